package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/port"
)

// MemoryStore keeps orders in process and pushes a delivery to every
// subscription on each committed write.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	ids    []string
	subs   map[*memorySubscription]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]domain.Order),
		subs:   make(map[*memorySubscription]struct{}),
	}
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order domain.Order) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	order.ID = uuid.NewString()
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	if err := order.Validate(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.orders[order.ID] = order
	m.ids = append(m.ids, order.ID)
	m.publishLocked()
	return order.ID, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.IfStatus != "" && order.Status != patch.IfStatus {
		return domain.ErrStatusConflict
	}
	if patch.Status != "" {
		order.Status = patch.Status
	}
	if !patch.UpdatedAt.IsZero() {
		order.UpdatedAt = patch.UpdatedAt
	}

	m.orders[id] = order
	m.publishLocked()
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, query domain.OrderQuery) (port.Subscription, error) {
	sub := &memorySubscription{
		store: m,
		query: query,
		wake:  make(chan struct{}, 1),
		out:   make(chan domain.SnapshotEvent),
		done:  make(chan struct{}),
	}

	m.mu.Lock()
	sub.prev = m.snapshotLocked(query)
	sub.enqueue(domain.InitialEvent(sub.prev))
	m.subs[sub] = struct{}{}
	m.mu.Unlock()

	go sub.pump()
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

func (m *MemoryStore) snapshotLocked(query domain.OrderQuery) []domain.Order {
	out := make([]domain.Order, 0, len(m.ids))
	for _, id := range m.ids {
		if o := m.orders[id]; query.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// publishLocked queues one delivery per subscription whose view changed.
// Deliveries are queued in commit order because m.mu is held.
func (m *MemoryStore) publishLocked() {
	for sub := range m.subs {
		next := m.snapshotLocked(sub.query)
		changes := diffSnapshots(sub.prev, next)
		sub.prev = next
		if len(changes) == 0 {
			continue
		}
		sub.enqueue(domain.SnapshotEvent{Snapshot: next, Changes: changes})
	}
}

func (m *MemoryStore) remove(sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, sub)
}

// memorySubscription buffers deliveries without bound so a slow reader never
// blocks a writer.
type memorySubscription struct {
	store *MemoryStore
	query domain.OrderQuery
	prev  []domain.Order

	mu    sync.Mutex
	queue []domain.SnapshotEvent
	wake  chan struct{}

	out       chan domain.SnapshotEvent
	done      chan struct{}
	closeOnce sync.Once
}

func (s *memorySubscription) Events() <-chan domain.SnapshotEvent {
	return s.out
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.store.remove(s)
	})
	return nil
}

func (s *memorySubscription) enqueue(event domain.SnapshotEvent) {
	s.mu.Lock()
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *memorySubscription) next() (domain.SnapshotEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return domain.SnapshotEvent{}, false
	}
	event := s.queue[0]
	s.queue[0] = domain.SnapshotEvent{}
	s.queue = s.queue[1:]
	return event, true
}

func (s *memorySubscription) pump() {
	defer close(s.out)

	for {
		event, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case <-s.done:
			return
		default:
		}

		select {
		case s.out <- event:
		case <-s.done:
			return
		}
	}
}
