package storage

import (
	"github.com/rl1809/table-order/internal/core/domain"
)

// diffSnapshots lists what changed between two deliveries of one feed. Orders
// are immutable apart from status and updated_at, so only those are compared.
func diffSnapshots(prev, next []domain.Order) []domain.Change {
	before := make(map[string]domain.Order, len(prev))
	for _, o := range prev {
		before[o.ID] = o
	}

	var changes []domain.Change
	seen := make(map[string]struct{}, len(next))
	for _, o := range next {
		seen[o.ID] = struct{}{}
		old, ok := before[o.ID]
		switch {
		case !ok:
			changes = append(changes, domain.Change{Kind: domain.ChangeAdded, Order: o})
		case old.Status != o.Status || !old.UpdatedAt.Equal(o.UpdatedAt):
			changes = append(changes, domain.Change{Kind: domain.ChangeModified, Order: o})
		}
	}

	for _, o := range prev {
		if _, ok := seen[o.ID]; !ok {
			changes = append(changes, domain.Change{Kind: domain.ChangeRemoved, Order: o})
		}
	}
	return changes
}
