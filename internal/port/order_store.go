package port

import (
	"context"

	"github.com/rl1809/table-order/internal/core/domain"
)

// Subscription is a live change feed. Events are delivered in commit order;
// after Close returns no further event is sent and the channel is closed.
type Subscription interface {
	Events() <-chan domain.SnapshotEvent
	Close() error
}

type OrderFeed interface {
	// Subscribe opens a feed over the orders matching query. The first event
	// carries the full state with every order tagged added.
	Subscribe(ctx context.Context, query domain.OrderQuery) (Subscription, error)
}

type OrderWriter interface {
	// CreateOrder persists a new order and returns its assigned id
	CreateOrder(ctx context.Context, order domain.Order) (string, error)

	// UpdateOrder merges patch into the stored order
	UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error
}

type OrderReader interface {
	// GetOrder returns domain.ErrNotFound when the id is unknown
	GetOrder(ctx context.Context, id string) (domain.Order, error)
}

type OrderStore interface {
	OrderFeed
	OrderWriter
	OrderReader
}
