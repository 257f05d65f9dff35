package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/port"
)

var (
	ErrEventQueueFull   = errors.New("event queue full")
	ErrEventQueueClosed = errors.New("event queue closed")
)

// EventQueue decouples order writes from a slow broker. PublishOrderEvent
// only enqueues; worker goroutines started by Start drain to the sink.
type EventQueue struct {
	sink   port.EventPublisher
	events chan domain.OrderEvent

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewEventQueue(sink port.EventPublisher, queueSize int) *EventQueue {
	return &EventQueue{
		sink:   sink,
		events: make(chan domain.OrderEvent, queueSize),
	}
}

// PublishOrderEvent never blocks; a full or closed queue drops the event.
func (q *EventQueue) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrEventQueueClosed
	}
	select {
	case q.events <- event:
		return nil
	default:
		return ErrEventQueueFull
	}
}

func (q *EventQueue) Start(workers int) {
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			q.workerLoop(id)
		}(i)
	}
	log.Printf("event queue: started %d workers", workers)
}

func (q *EventQueue) workerLoop(id int) {
	for event := range q.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := q.sink.PublishOrderEvent(ctx, event); err != nil {
			log.Printf("worker %d: failed to publish %s for order %s: %v", id, event.Type, event.OrderID, err)
		}

		cancel()
	}
}

// Close stops accepting events and waits for queued ones to drain.
func (q *EventQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.events)
	}
	q.mu.Unlock()

	q.wg.Wait()
}
