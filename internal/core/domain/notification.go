package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Notification is a session-local alert about a newly placed order. Its ID is
// the order ID, so one order yields at most one notification.
type Notification struct {
	ID        string
	Message   string
	TableName string
	Amount    decimal.Decimal
	CreatedAt time.Time
	Read      bool
}
