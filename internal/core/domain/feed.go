package domain

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

type Change struct {
	Kind  ChangeKind
	Order Order
}

// SnapshotEvent is one delivery of a change feed: the full filtered collection
// plus the changes since the previous delivery of the same subscription.
type SnapshotEvent struct {
	Snapshot []Order
	Changes  []Change
}

// InitialEvent builds the first delivery for a snapshot, every record tagged added.
func InitialEvent(snapshot []Order) SnapshotEvent {
	changes := make([]Change, 0, len(snapshot))
	for _, o := range snapshot {
		changes = append(changes, Change{Kind: ChangeAdded, Order: o})
	}
	return SnapshotEvent{Snapshot: snapshot, Changes: changes}
}

// OrderQuery filters a subscription. An empty Statuses matches every order.
type OrderQuery struct {
	Statuses []OrderStatus
}

func (q OrderQuery) Matches(o Order) bool {
	if len(q.Statuses) == 0 {
		return true
	}
	for _, s := range q.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}
