package service

import (
	"context"
	"testing"
	"time"

	"github.com/rl1809/table-order/internal/core/domain"
)

func newTestBoard(player *mockPlayer, now time.Time) *Board {
	return NewBoard(
		NewNotificationEngine(0, 0),
		NewAlertDispatcher(player),
		func() time.Time { return now },
	)
}

func TestBoard_NewOrderScenario(t *testing.T) {
	now := time.Now()
	player := &mockPlayer{}
	board := newTestBoard(player, now)

	a := testOrder("a", "1", domain.OrderStatusPending, "12.50", now)
	board.ApplySnapshot(context.Background(), domain.InitialEvent([]domain.Order{a}))
	board.Alert().Wait()

	if player.count() != 1 {
		t.Errorf("expected exactly one playback, got %d", player.count())
	}
	list := board.Notifications().List()
	if len(list) != 1 || list[0].Read {
		t.Fatalf("expected one unread notification, got %+v", list)
	}
	if board.Stats().PendingOrders != 1 {
		t.Errorf("expected 1 pending, got %d", board.Stats().PendingOrders)
	}
}

func TestBoard_MutedScenario(t *testing.T) {
	now := time.Now()
	player := &mockPlayer{}
	board := newTestBoard(player, now)
	board.Alert().SetMuted(true)

	a := testOrder("a", "1", domain.OrderStatusPending, "12.50", now)
	board.ApplySnapshot(context.Background(), domain.InitialEvent([]domain.Order{a}))

	if len(board.Notifications().List()) != 1 {
		t.Error("expected notification while muted")
	}

	board.Alert().SetMuted(false)
	board.ApplySnapshot(context.Background(), domain.SnapshotEvent{Snapshot: []domain.Order{a}})
	board.Alert().Wait()

	if player.count() != 0 {
		t.Errorf("expected no retroactive playback, got %d", player.count())
	}
}

func TestBoard_OrderLists(t *testing.T) {
	now := time.Now()
	board := newTestBoard(&mockPlayer{}, now)

	orders := []domain.Order{
		testOrder("old", "1", domain.OrderStatusReady, "1", now.Add(-2*time.Hour)),
		testOrder("new", "2", domain.OrderStatusPending, "1", now),
		testOrder("mid", "3", domain.OrderStatusReady, "1", now.Add(-time.Hour)),
	}
	board.ApplySnapshot(context.Background(), domain.SnapshotEvent{Snapshot: orders})

	recent := board.RecentOrders(2)
	if len(recent) != 2 || recent[0].ID != "new" {
		t.Errorf("unexpected recent orders %+v", recent)
	}
	ready := board.Orders(domain.OrderStatusReady)
	if len(ready) != 2 || ready[0].ID != "mid" || ready[1].ID != "old" {
		t.Errorf("unexpected ready orders %+v", ready)
	}
	if board.Deliveries() != 1 {
		t.Errorf("expected 1 delivery, got %d", board.Deliveries())
	}
}

func TestBoard_AttachAndClose(t *testing.T) {
	feed := newFakeFeed()
	hub, _ := startHub(t, feed)
	now := time.Now()
	player := &mockPlayer{}
	board := newTestBoard(player, now)

	board.Attach(context.Background(), hub)

	a := testOrder("a", "1", domain.OrderStatusPending, "3", now)
	feed.events <- domain.InitialEvent([]domain.Order{a})
	waitFor(t, "board delivery", func() bool { return board.Deliveries() == 1 })

	board.Close()

	b := testOrder("b", "2", domain.OrderStatusPending, "3", now)
	other := &recordingConsumer{}
	hub.Register(context.Background(), other)
	feed.events <- domain.SnapshotEvent{
		Snapshot: []domain.Order{a, b},
		Changes:  []domain.Change{{Kind: domain.ChangeAdded, Order: b}},
	}
	waitFor(t, "other consumer", func() bool { return other.count() == 2 })

	if board.Deliveries() != 1 {
		t.Errorf("closed board applied %d deliveries", board.Deliveries())
	}
	if board.Stats().PendingOrders != 1 {
		t.Errorf("closed board stats changed: %+v", board.Stats())
	}
	board.Alert().Wait()
}
