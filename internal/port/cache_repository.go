package port

import "context"

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency releases a key (for rollback when the guarded write fails)
	ClearIdempotency(ctx context.Context, key string) error
}

// ChangeSignal wakes polling feeds in other processes after a local write.
type ChangeSignal interface {
	NotifyOrdersChanged(ctx context.Context) error

	// OrdersVersion counts the changes announced so far
	OrdersVersion(ctx context.Context) (int64, error)

	// WatchOrderChanges delivers a tick per remote change until ctx is done
	WatchOrderChanges(ctx context.Context) <-chan struct{}
}
