package domain

import "github.com/shopspring/decimal"

// MenuItem is the live menu entry. Orders copy what they need from it at
// submission, so editing a price never changes an existing order.
type MenuItem struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	CategoryID string
	Available  bool
}
