package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/rl1809/table-order/internal/core/domain"
)

const (
	DefaultRecencyWindow     = 5 * time.Minute
	DefaultNotificationLimit = 10
)

// NotificationEngine turns feed changes into a bounded, newest-first queue of
// new-order notifications. Only pending orders created inside the recency
// window are notified, and each order at most once per engine.
type NotificationEngine struct {
	window time.Duration
	limit  int

	mu    sync.Mutex
	queue []domain.Notification
	seen  map[string]time.Time
}

func NewNotificationEngine(window time.Duration, limit int) *NotificationEngine {
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return &NotificationEngine{
		window: window,
		limit:  limit,
		seen:   make(map[string]time.Time),
	}
}

// Apply processes one delivery's changes and returns the notifications it
// created, in delivery order.
func (e *NotificationEngine) Apply(changes []domain.Change, now time.Time) []domain.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pruneSeen(now)

	var batch []domain.Notification
	for _, ch := range changes {
		if ch.Kind != domain.ChangeAdded {
			continue
		}
		order := ch.Order
		if order.Status != domain.OrderStatusPending {
			continue
		}
		if !e.recent(order.CreatedAt, now) {
			continue
		}
		if _, dup := e.seen[order.ID]; dup {
			continue
		}
		e.seen[order.ID] = order.CreatedAt
		batch = append(batch, domain.Notification{
			ID:        order.ID,
			Message:   fmt.Sprintf("New order from %s", order.TableName),
			TableName: order.TableName,
			Amount:    order.TotalAmount,
			CreatedAt: order.CreatedAt,
		})
	}

	if len(batch) == 0 {
		return nil
	}

	queue := make([]domain.Notification, 0, len(batch)+len(e.queue))
	queue = append(queue, batch...)
	queue = append(queue, e.queue...)
	if len(queue) > e.limit {
		queue = queue[:e.limit]
	}
	e.queue = queue

	out := make([]domain.Notification, len(batch))
	copy(out, batch)
	return out
}

// recent treats a creation time slightly in the future as recent; clocks of
// writers and viewers are not synchronized.
func (e *NotificationEngine) recent(createdAt, now time.Time) bool {
	if createdAt.IsZero() {
		return false
	}
	return now.Sub(createdAt) <= e.window
}

// pruneSeen drops ids that can no longer pass the recency check.
func (e *NotificationEngine) pruneSeen(now time.Time) {
	for id, createdAt := range e.seen {
		if !e.recent(createdAt, now) {
			delete(e.seen, id)
		}
	}
}

func (e *NotificationEngine) List() []domain.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Notification, len(e.queue))
	copy(out, e.queue)
	return out
}

func (e *NotificationEngine) UnreadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, item := range e.queue {
		if !item.Read {
			n++
		}
	}
	return n
}

// MarkRead reports whether id was in the queue.
func (e *NotificationEngine) MarkRead(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.queue {
		if e.queue[i].ID == id {
			e.queue[i].Read = true
			return true
		}
	}
	return false
}

func (e *NotificationEngine) MarkAllRead() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.queue {
		e.queue[i].Read = true
	}
}

// Dismiss removes id from the queue. The order stays in the seen set so it is
// not notified again.
func (e *NotificationEngine) Dismiss(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.queue {
		if e.queue[i].ID == id {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (e *NotificationEngine) DismissAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue = nil
}
