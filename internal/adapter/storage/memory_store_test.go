package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/port"
)

func newPendingOrder(table string, now time.Time) domain.Order {
	items := []domain.OrderItem{
		{MenuItemID: "pho", Name: "Pho", Price: decimal.RequireFromString("9.50"), Quantity: 2},
	}
	return domain.Order{
		TableID:     table,
		TableName:   "Table " + table,
		Items:       items,
		TotalAmount: domain.ComputeTotal(items),
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func nextEvent(t *testing.T, sub port.Subscription) domain.SnapshotEvent {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.SnapshotEvent{}
}

func TestDiffSnapshots(t *testing.T) {
	now := time.Now()
	a := domain.Order{ID: "a", Status: domain.OrderStatusPending, UpdatedAt: now}
	b := domain.Order{ID: "b", Status: domain.OrderStatusPending, UpdatedAt: now}
	c := domain.Order{ID: "c", Status: domain.OrderStatusReady, UpdatedAt: now}

	b2 := b
	b2.Status = domain.OrderStatusPreparing
	b2.UpdatedAt = now.Add(time.Second)
	d := domain.Order{ID: "d", Status: domain.OrderStatusPending, UpdatedAt: now}

	changes := diffSnapshots([]domain.Order{a, b, c}, []domain.Order{a, b2, d})
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %+v", changes)
	}
	want := []struct {
		kind domain.ChangeKind
		id   string
	}{
		{domain.ChangeModified, "b"},
		{domain.ChangeAdded, "d"},
		{domain.ChangeRemoved, "c"},
	}
	for i, w := range want {
		if changes[i].Kind != w.kind || changes[i].Order.ID != w.id {
			t.Errorf("change %d: expected %s %s, got %s %s", i, w.kind, w.id, changes[i].Kind, changes[i].Order.ID)
		}
	}

	if got := diffSnapshots([]domain.Order{a}, []domain.Order{a}); len(got) != 0 {
		t.Errorf("expected no changes, got %+v", got)
	}
}

func TestMemoryStore_InitialEvent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	id, err := store.CreateOrder(ctx, newPendingOrder("1", now))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	sub, err := store.Subscribe(ctx, domain.OrderQuery{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	event := nextEvent(t, sub)
	if len(event.Snapshot) != 1 || event.Snapshot[0].ID != id {
		t.Fatalf("unexpected snapshot %+v", event.Snapshot)
	}
	if len(event.Changes) != 1 || event.Changes[0].Kind != domain.ChangeAdded {
		t.Errorf("expected one added change, got %+v", event.Changes)
	}
}

func TestMemoryStore_CommitOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	sub, err := store.Subscribe(ctx, domain.OrderQuery{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	// writes land before the reader catches up
	id, _ := store.CreateOrder(ctx, newPendingOrder("1", now))
	if err := store.UpdateOrder(ctx, id, domain.OrderPatch{Status: domain.OrderStatusPreparing, UpdatedAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.UpdateOrder(ctx, id, domain.OrderPatch{Status: domain.OrderStatusReady, UpdatedAt: now.Add(2 * time.Second)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	initial := nextEvent(t, sub)
	if len(initial.Snapshot) != 0 {
		t.Errorf("expected empty initial snapshot, got %d", len(initial.Snapshot))
	}

	wantStatus := []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusPreparing, domain.OrderStatusReady}
	wantKind := []domain.ChangeKind{domain.ChangeAdded, domain.ChangeModified, domain.ChangeModified}
	for i := range wantStatus {
		event := nextEvent(t, sub)
		if len(event.Changes) != 1 {
			t.Fatalf("event %d: expected 1 change, got %d", i, len(event.Changes))
		}
		ch := event.Changes[0]
		if ch.Kind != wantKind[i] || ch.Order.Status != wantStatus[i] {
			t.Errorf("event %d: got %s/%s", i, ch.Kind, ch.Order.Status)
		}
	}
}

func TestMemoryStore_QueryFilter(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	sub, err := store.Subscribe(ctx, domain.OrderQuery{Statuses: []domain.OrderStatus{domain.OrderStatusPending}})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	nextEvent(t, sub)

	id, _ := store.CreateOrder(ctx, newPendingOrder("1", now))
	added := nextEvent(t, sub)
	if added.Changes[0].Kind != domain.ChangeAdded {
		t.Errorf("expected added, got %s", added.Changes[0].Kind)
	}

	store.UpdateOrder(ctx, id, domain.OrderPatch{Status: domain.OrderStatusPreparing, UpdatedAt: now})
	left := nextEvent(t, sub)
	if len(left.Snapshot) != 0 || left.Changes[0].Kind != domain.ChangeRemoved {
		t.Errorf("expected order to leave the filtered feed, got %+v", left)
	}
}

func TestMemoryStore_ConditionalUpdate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	id, _ := store.CreateOrder(ctx, newPendingOrder("1", now))

	err := store.UpdateOrder(ctx, id, domain.OrderPatch{
		Status:   domain.OrderStatusReady,
		IfStatus: domain.OrderStatusPreparing,
	})
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}

	order, _ := store.GetOrder(ctx, id)
	if order.Status != domain.OrderStatusPending {
		t.Errorf("expected stored status pending, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("19")) {
		t.Errorf("patch must not touch the total, got %s", order.TotalAmount)
	}

	if err := store.UpdateOrder(ctx, "missing", domain.OrderPatch{Status: domain.OrderStatusReady}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CloseStopsDelivery(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sub, _ := store.Subscribe(ctx, domain.OrderQuery{})
	nextEvent(t, sub)
	sub.Close()

	store.CreateOrder(ctx, newPendingOrder("1", time.Now()))

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected no delivery after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected channel to close")
	}
}

func TestMemoryStore_ContextCancelCloses(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	sub, _ := store.Subscribe(ctx, domain.OrderQuery{})
	nextEvent(t, sub)
	cancel()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed on cancel")
	}
}

func TestMemoryStore_RejectsMalformed(t *testing.T) {
	store := NewMemoryStore()
	order := newPendingOrder("1", time.Now())
	order.Status = "shipped"

	if _, err := store.CreateOrder(context.Background(), order); !errors.Is(err, domain.ErrMalformedOrder) {
		t.Errorf("expected ErrMalformedOrder, got %v", err)
	}
}
