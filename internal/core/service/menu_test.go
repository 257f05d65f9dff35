package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/table-order/internal/core/domain"
)

func TestMenu_FillCart(t *testing.T) {
	soldOut := menuItem("bun", "Bun Cha", "8.00")
	soldOut.Available = false
	menu := NewMenu(menuItem("pho", "Pho", "9.50"), soldOut)

	cart := NewCart()
	if err := menu.FillCart(cart, "pho", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Quantity("pho") != 3 {
		t.Errorf("expected 3 pho, got %d", cart.Quantity("pho"))
	}

	for _, id := range []string{"bun", "missing"} {
		if err := menu.FillCart(cart, id, 1); !errors.Is(err, domain.ErrItemUnavailable) {
			t.Errorf("%s: expected ErrItemUnavailable, got %v", id, err)
		}
	}
	if err := menu.FillCart(cart, "pho", 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected zero quantity rejected, got %v", err)
	}
}

func TestMenu_FillCartQuantityLimit(t *testing.T) {
	menu := NewMenu(menuItem("pho", "Pho", "9.50"))
	cart := NewCart()

	if err := menu.FillCart(cart, "pho", 2_000_000_000); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if !cart.IsEmpty() {
		t.Error("expected rejected line to leave the cart empty")
	}

	if err := menu.FillCart(cart, "pho", MaxLineQuantity); err != nil {
		t.Fatalf("expected %d to be allowed, got %v", MaxLineQuantity, err)
	}
	if cart.Quantity("pho") != MaxLineQuantity {
		t.Errorf("expected %d pho, got %d", MaxLineQuantity, cart.Quantity("pho"))
	}

	// the cap covers the line, not just one request
	if err := menu.FillCart(cart, "pho", 1); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected line over the cap rejected, got %v", err)
	}
	if cart.Quantity("pho") != MaxLineQuantity {
		t.Errorf("expected line unchanged, got %d", cart.Quantity("pho"))
	}
}

func TestMenu_PriceChangeLeavesOrders(t *testing.T) {
	menu := NewMenu(menuItem("pho", "Pho", "9.50"))
	writer := &mockWriter{}

	cart := NewCart()
	menu.FillCart(cart, "pho", 2)
	order, err := cart.Submit(context.Background(), writer, table1, time.Now())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := menu.SetPrice("pho", decimal.RequireFromString("11.00")); err != nil {
		t.Fatalf("set price: %v", err)
	}

	if !order.TotalAmount.Equal(decimal.RequireFromString("19.00")) {
		t.Errorf("expected order total 19.00, got %s", order.TotalAmount)
	}
	item, _ := menu.Item("pho")
	if !item.Price.Equal(decimal.RequireFromString("11.00")) {
		t.Errorf("expected menu price 11.00, got %s", item.Price)
	}
	if items := menu.Items(); len(items) != 1 {
		t.Errorf("expected 1 menu item, got %d", len(items))
	}
}
