package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/port"
)

type CartLine struct {
	Item     domain.MenuItem
	Quantity int
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is a customer's selection before submission. It is owned by one
// session and is not safe for concurrent use.
type Cart struct {
	lines []CartLine
	index map[string]int
}

func NewCart() *Cart {
	return &Cart{index: make(map[string]int)}
}

// Add puts one more of item in the cart, keeping the position of the first add.
func (c *Cart) Add(item domain.MenuItem) {
	c.AddN(item, 1)
}

// AddN puts n more of item in the cart in one step. n <= 0 is ignored.
func (c *Cart) AddN(item domain.MenuItem, n int) {
	if n <= 0 {
		return
	}
	if i, ok := c.index[item.ID]; ok {
		c.lines[i].Quantity += n
		return
	}
	c.index[item.ID] = len(c.lines)
	c.lines = append(c.lines, CartLine{Item: item, Quantity: n})
}

// Remove takes one of itemID out, dropping the line when it reaches zero.
func (c *Cart) Remove(itemID string) {
	i, ok := c.index[itemID]
	if !ok {
		return
	}
	if c.lines[i].Quantity > 1 {
		c.lines[i].Quantity--
		return
	}

	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, itemID)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].Item.ID] = j
	}
}

func (c *Cart) Quantity(itemID string) int {
	if i, ok := c.index[itemID]; ok {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[string]int)
}

// Submit writes the cart as a new pending order for table. Item names and
// prices are copied, so later menu edits leave the order unchanged. The cart
// is cleared only after a successful write.
func (c *Cart) Submit(ctx context.Context, writer port.OrderWriter, table domain.TableRef, now time.Time) (domain.Order, error) {
	if c.IsEmpty() {
		return domain.Order{}, domain.ErrEmptyCart
	}

	items := make([]domain.OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, domain.OrderItem{
			MenuItemID: l.Item.ID,
			Name:       l.Item.Name,
			Price:      l.Item.Price,
			Quantity:   l.Quantity,
		})
	}

	order := domain.Order{
		TableID:     table.ID,
		TableName:   table.Name,
		Items:       items,
		TotalAmount: domain.ComputeTotal(items),
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := writer.CreateOrder(ctx, order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("submit order for %s: %w", table.Name, err)
	}
	order.ID = id

	c.Clear()
	return order, nil
}
