package service

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/table-order/internal/core/domain"
)

// MaxLineQuantity caps how many of one item a single cart may hold.
const MaxLineQuantity = 99

// Menu is the live catalog carts are filled from. Price edits here never
// reach orders already placed.
type Menu struct {
	mu    sync.RWMutex
	items map[string]domain.MenuItem
	ids   []string
}

func NewMenu(items ...domain.MenuItem) *Menu {
	m := &Menu{items: make(map[string]domain.MenuItem)}
	for _, item := range items {
		m.Put(item)
	}
	return m
}

// Put adds or replaces item, keeping the position of an existing entry.
func (m *Menu) Put(item domain.MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; !ok {
		m.ids = append(m.ids, item.ID)
	}
	m.items[item.ID] = item
}

// Item returns an orderable item.
func (m *Menu) Item(id string) (domain.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok || !item.Available {
		return domain.MenuItem{}, fmt.Errorf("%w: %s", domain.ErrItemUnavailable, id)
	}
	return item, nil
}

func (m *Menu) Items() []domain.MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.MenuItem, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, m.items[id])
	}
	return out
}

func (m *Menu) SetPrice(id string, price decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrItemUnavailable, id)
	}
	item.Price = price
	m.items[id] = item
	return nil
}

// FillCart adds quantity of item id to cart. The line may not exceed
// MaxLineQuantity in total.
func (m *Menu) FillCart(cart *Cart, id string, quantity int) error {
	if quantity <= 0 || quantity > MaxLineQuantity-cart.Quantity(id) {
		return fmt.Errorf("%w: %s quantity %d", domain.ErrInvalidQuantity, id, quantity)
	}
	item, err := m.Item(id)
	if err != nil {
		return err
	}
	cart.AddN(item, quantity)
	return nil
}
