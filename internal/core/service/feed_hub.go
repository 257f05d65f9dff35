package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/port"
)

var ErrFeedClosed = errors.New("order feed closed")

// FeedConsumer receives deliveries from a FeedHub. ApplySnapshot is never
// called concurrently for one consumer and must not call back into the hub.
type FeedConsumer interface {
	ApplySnapshot(ctx context.Context, event domain.SnapshotEvent)
}

// Registration ties a consumer to a hub. Cancel stops delivery immediately;
// the hub drops the registration on its next pass.
type Registration struct {
	consumer FeedConsumer
	alive    atomic.Bool
}

func (r *Registration) Cancel() {
	r.alive.Store(false)
}

func (r *Registration) Alive() bool {
	return r.alive.Load()
}

// FeedHub owns the single store subscription and fans each event out to the
// registered consumers in delivery order.
type FeedHub struct {
	feed  port.OrderFeed
	query domain.OrderQuery

	mu     sync.Mutex
	regs   []*Registration
	latest []domain.Order
	primed bool

	ready     chan struct{}
	readyOnce sync.Once
}

func NewFeedHub(feed port.OrderFeed, query domain.OrderQuery) *FeedHub {
	return &FeedHub{
		feed:  feed,
		query: query,
		ready: make(chan struct{}),
	}
}

// Register adds a consumer. If the hub already has state, the consumer first
// receives it as an initial event, before any later delivery.
func (h *FeedHub) Register(ctx context.Context, consumer FeedConsumer) *Registration {
	reg := &Registration{consumer: consumer}
	reg.alive.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.primed {
		consumer.ApplySnapshot(ctx, domain.InitialEvent(copyOrders(h.latest)))
	}
	h.regs = append(h.regs, reg)
	return reg
}

// Run subscribes to the feed and dispatches until ctx is done or the feed
// closes. It returns nil on cancellation.
func (h *FeedHub) Run(ctx context.Context) error {
	sub, err := h.feed.Subscribe(ctx, h.query)
	if err != nil {
		return fmt.Errorf("subscribe to orders: %w", err)
	}
	defer sub.Close()

	log.Println("feed hub: subscribed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrFeedClosed
			}
			h.dispatch(ctx, event)
		}
	}
}

func (h *FeedHub) dispatch(ctx context.Context, event domain.SnapshotEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = event.Snapshot
	h.primed = true

	live := h.regs[:0]
	for _, reg := range h.regs {
		if !reg.Alive() {
			continue
		}
		live = append(live, reg)
		reg.consumer.ApplySnapshot(ctx, event)
	}
	for i := len(live); i < len(h.regs); i++ {
		h.regs[i] = nil
	}
	h.regs = live

	h.readyOnce.Do(func() { close(h.ready) })
}

// WaitReady blocks until the first event has been dispatched.
func (h *FeedHub) WaitReady(ctx context.Context) error {
	select {
	case <-h.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Latest returns a copy of the most recent snapshot.
func (h *FeedHub) Latest() []domain.Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	return copyOrders(h.latest)
}

func (h *FeedHub) Consumers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, reg := range h.regs {
		if reg.Alive() {
			n++
		}
	}
	return n
}

func copyOrders(orders []domain.Order) []domain.Order {
	out := make([]domain.Order, len(orders))
	copy(out, orders)
	return out
}
