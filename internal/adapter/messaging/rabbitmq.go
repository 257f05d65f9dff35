package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/table-order/internal/core/domain"
)

const DefaultExchange = "orders_fanout"

var ErrNotConfirmed = errors.New("publish not confirmed by broker")

// RabbitPublisher sends order events to a durable fanout exchange with
// publisher confirms.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

type orderEventMessage struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	TableID        string    `json:"table_id"`
	TableName      string    `json:"table_name"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	TotalAmount    string    `json:"total_amount"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func encodeEvent(event domain.OrderEvent) ([]byte, error) {
	return json.Marshal(orderEventMessage{
		Type:           event.Type,
		OrderID:        event.OrderID,
		TableID:        event.TableID,
		TableName:      event.TableName,
		Status:         string(event.Status),
		PreviousStatus: string(event.PreviousStatus),
		TotalAmount:    event.TotalAmount.StringFixed(2),
		OccurredAt:     event.OccurredAt.UTC(),
	})
}

func (p *RabbitPublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	body, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Type:          event.Type,
		CorrelationId: event.OrderID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}

	dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, "", false, false, pub)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	if dc == nil {
		return fmt.Errorf("publish %s: %w: channel not in confirm mode", event.Type, ErrNotConfirmed)
	}
	if err := awaitConfirm(ctx, dc); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// confirmWaiter is the part of amqp.DeferredConfirmation used here.
type confirmWaiter interface {
	WaitContext(ctx context.Context) (bool, error)
}

// awaitConfirm waits for the broker's answer to one publishing. Each
// publishing has its own delivery tag, so an answer that arrives after ctx
// gave up can never be read by a later publish.
func awaitConfirm(ctx context.Context, dc confirmWaiter) error {
	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return ErrNotConfirmed
	}
	return nil
}

func (p *RabbitPublisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
