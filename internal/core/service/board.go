package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rl1809/table-order/internal/core/domain"
)

// Board is the staff view of the order feed: statistics, the notification
// queue and the new-order cue, all derived from the latest delivery.
type Board struct {
	notifier *NotificationEngine
	alert    *AlertDispatcher
	now      func() time.Time

	mu         sync.RWMutex
	snapshot   []domain.Order
	stats      Stats
	deliveries int
	reg        *Registration
}

func NewBoard(notifier *NotificationEngine, alert *AlertDispatcher, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{
		notifier: notifier,
		alert:    alert,
		now:      now,
	}
}

// Attach registers the board with hub. Playback results are dropped once the
// board is closed.
func (b *Board) Attach(ctx context.Context, hub *FeedHub) {
	reg := hub.Register(ctx, b)

	b.mu.Lock()
	b.reg = reg
	b.mu.Unlock()

	b.alert.SetLiveness(reg.Alive)
}

// Close stops further deliveries to the board.
func (b *Board) Close() {
	b.mu.RLock()
	reg := b.reg
	b.mu.RUnlock()

	if reg != nil {
		reg.Cancel()
	}
}

// ApplySnapshot recomputes stats, feeds the notification engine and lets the
// alert dispatcher see the new pending count.
func (b *Board) ApplySnapshot(ctx context.Context, event domain.SnapshotEvent) {
	stats := Aggregate(event.Snapshot)
	created := b.notifier.Apply(event.Changes, b.now())

	b.mu.Lock()
	b.snapshot = event.Snapshot
	b.stats = stats
	b.deliveries++
	b.mu.Unlock()

	if b.alert.Observe(ctx, stats.PendingOrders) {
		log.Printf("board: pending orders rose to %d", stats.PendingOrders)
	}
	for _, n := range created {
		log.Printf("board: %s (%s)", n.Message, n.Amount.StringFixed(2))
	}
}

func (b *Board) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// Deliveries counts the events applied so far.
func (b *Board) Deliveries() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.deliveries
}

// RecentOrders returns the newest limit orders.
func (b *Board) RecentOrders(limit int) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return RecentOrders(b.snapshot, limit)
}

// Orders lists orders newest first, optionally restricted to one status.
func (b *Board) Orders(status domain.OrderStatus) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return FilterByStatus(RecentOrders(b.snapshot, 0), status)
}

func (b *Board) Notifications() *NotificationEngine {
	return b.notifier
}

func (b *Board) Alert() *AlertDispatcher {
	return b.alert
}
