package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled is accepted from the store and treated as terminal,
	// but no staff action moves an order into it.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// statusFlow is the only valid forward sequence.
var statusFlow = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusPreparing,
	OrderStatusPreparing: OrderStatusReady,
	OrderStatusReady:     OrderStatusCompleted,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Next returns the status a staff action moves s to, or false when s is terminal.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := statusFlow[s]
	return next, ok
}

// ValidateTransition accepts only the single forward step from one status to the next.
func ValidateTransition(from, to OrderStatus) error {
	next, ok := from.Next()
	if !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// OrderItem is a frozen copy of a menu item taken when the order was submitted.
type OrderItem struct {
	MenuItemID string
	Name       string
	Price      decimal.Decimal
	Quantity   int
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID          string
	TableID     string
	TableName   string
	Items       []OrderItem
	TotalAmount decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive reports whether the order still occupies its table.
func (o Order) IsActive() bool {
	return !o.Status.IsTerminal()
}

// Validate rejects records that would corrupt aggregates. A missing total is
// tolerated and reads as zero.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedOrder)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: order %s has unknown status %q", ErrMalformedOrder, o.ID, o.Status)
	}
	for _, item := range o.Items {
		if item.Quantity < 0 {
			return fmt.Errorf("%w: order %s has negative quantity for %q", ErrMalformedOrder, o.ID, item.Name)
		}
	}
	return nil
}

// ComputeTotal sums price x quantity over items.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// OrderPatch is a partial update merged into an existing order. IfStatus, when
// set, makes the update conditional on the stored status.
type OrderPatch struct {
	Status    OrderStatus
	UpdatedAt time.Time
	IfStatus  OrderStatus
}

// OrderEvent is published to other processes after a write succeeds.
type OrderEvent struct {
	Type           string
	OrderID        string
	TableID        string
	TableName      string
	Status         OrderStatus
	PreviousStatus OrderStatus
	TotalAmount    decimal.Decimal
	OccurredAt     time.Time
}

const (
	OrderEventPlaced        = "order.placed"
	OrderEventStatusChanged = "order.status_changed"
)
