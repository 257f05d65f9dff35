package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rl1809/table-order/internal/core/domain"
)

type Stats struct {
	TotalOrders   int
	PendingOrders int
	Revenue       decimal.Decimal
	ActiveTables  int
}

// Aggregate recomputes board statistics from a full snapshot. Revenue counts
// every order regardless of status; a missing total reads as zero.
func Aggregate(snapshot []domain.Order) Stats {
	stats := Stats{Revenue: decimal.Zero}
	tables := make(map[string]struct{})

	for _, order := range snapshot {
		stats.TotalOrders++
		stats.Revenue = stats.Revenue.Add(order.TotalAmount)
		if order.Status == domain.OrderStatusPending {
			stats.PendingOrders++
		}
		if order.IsActive() {
			tables[order.TableID] = struct{}{}
		}
	}

	stats.ActiveTables = len(tables)
	return stats
}

// RecentOrders returns up to limit orders, newest first.
func RecentOrders(snapshot []domain.Order, limit int) []domain.Order {
	out := make([]domain.Order, len(snapshot))
	copy(out, snapshot)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FilterByStatus keeps orders in status; an empty status keeps everything.
func FilterByStatus(orders []domain.Order, status domain.OrderStatus) []domain.Order {
	if status == "" {
		return orders
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}
