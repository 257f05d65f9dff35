package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/port"
)

const idempotencyPrefix = "order-request:"

type OrderService struct {
	store     port.OrderStore
	cache     port.CacheRepository
	publisher port.EventPublisher
	now       func() time.Time
}

type OrderServiceOption func(*OrderService)

// WithCache enables request de-duplication on PlaceOrder.
func WithCache(cache port.CacheRepository) OrderServiceOption {
	return func(s *OrderService) { s.cache = cache }
}

func WithPublisher(publisher port.EventPublisher) OrderServiceOption {
	return func(s *OrderService) { s.publisher = publisher }
}

func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(store port.OrderStore, opts ...OrderServiceOption) *OrderService {
	s := &OrderService{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder submits cart for table. A non-empty requestID makes the call
// idempotent: a repeated id returns ErrDuplicateRequest without writing.
func (s *OrderService) PlaceOrder(ctx context.Context, requestID string, cart *Cart, table domain.TableRef) (domain.Order, error) {
	if cart.IsEmpty() {
		return domain.Order{}, domain.ErrEmptyCart
	}

	key := ""
	if s.cache != nil && requestID != "" {
		key = idempotencyPrefix + requestID
		ok, err := s.cache.SetIdempotency(ctx, key)
		if err != nil {
			return domain.Order{}, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return domain.Order{}, domain.ErrDuplicateRequest
		}
	}

	order, err := cart.Submit(ctx, s.store, table, s.now())
	if err != nil {
		if key != "" {
			// Rollback so the customer can retry with the same request id
			if clearErr := s.cache.ClearIdempotency(ctx, key); clearErr != nil {
				log.Printf("order service: failed to release %s: %v", key, clearErr)
			}
		}
		return domain.Order{}, err
	}

	s.publish(ctx, domain.OrderEvent{
		Type:        domain.OrderEventPlaced,
		OrderID:     order.ID,
		TableID:     order.TableID,
		TableName:   order.TableName,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		OccurredAt:  order.CreatedAt,
	})

	return order, nil
}

// AdvanceStatus moves order id to target. Anything other than the single
// forward step is rejected before the store is written.
func (s *OrderService) AdvanceStatus(ctx context.Context, id string, target domain.OrderStatus) (domain.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	if err := domain.ValidateTransition(order.Status, target); err != nil {
		return domain.Order{}, err
	}

	now := s.now()
	patch := domain.OrderPatch{
		Status:    target,
		UpdatedAt: now,
		IfStatus:  order.Status,
	}
	if err := s.store.UpdateOrder(ctx, id, patch); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			return domain.Order{}, fmt.Errorf("%w: %w", domain.ErrInvalidTransition, err)
		}
		return domain.Order{}, err
	}

	previous := order.Status
	order.Status = target
	order.UpdatedAt = now

	s.publish(ctx, domain.OrderEvent{
		Type:           domain.OrderEventStatusChanged,
		OrderID:        order.ID,
		TableID:        order.TableID,
		TableName:      order.TableName,
		Status:         target,
		PreviousStatus: previous,
		TotalAmount:    order.TotalAmount,
		OccurredAt:     now,
	})

	return order, nil
}

// AdvanceNext moves order id one step forward, whatever its current status.
func (s *OrderService) AdvanceNext(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	next, ok := order.Status.Next()
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s is terminal", domain.ErrInvalidTransition, order.Status)
	}
	return s.AdvanceStatus(ctx, id, next)
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// publish is best effort; the order is already committed.
func (s *OrderService) publish(ctx context.Context, event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		log.Printf("order service: failed to publish %s for %s: %v", event.Type, event.OrderID, err)
	}
}
