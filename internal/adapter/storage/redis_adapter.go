package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/table-order/internal/core/domain"
)

const (
	ordersVersionKey  = "orders:version"
	ordersChannel     = "orders:changed"
	idempotencyKeyTTL = 24 * time.Hour
)

// bumpVersionScript increments the change counter and publishes it in one step
// so watchers never see a version that was not stored.
var bumpVersionScript = redis.NewScript(`
local version = redis.call('INCR', KEYS[1])
redis.call('PUBLISH', ARGV[1], version)
return version
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// NotifyOrdersChanged bumps the orders version and announces it.
func (r *RedisAdapter) NotifyOrdersChanged(ctx context.Context) error {
	if err := bumpVersionScript.Run(ctx, r.client, []string{ordersVersionKey}, ordersChannel).Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// OrdersVersion returns how many changes have been announced so far.
func (r *RedisAdapter) OrdersVersion(ctx context.Context) (int64, error) {
	v, err := r.client.Get(ctx, ordersVersionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return v, nil
}

// WatchOrderChanges ticks once per announced change, coalescing bursts. The
// channel is closed when ctx is done.
func (r *RedisAdapter) WatchOrderChanges(ctx context.Context) <-chan struct{} {
	ticks := make(chan struct{}, 1)
	ps := r.client.Subscribe(ctx, ordersChannel)

	// wait for the subscription to be confirmed so no later change is missed
	if _, err := ps.Receive(ctx); err != nil {
		log.Printf("redis: watch order changes: %v", err)
		ps.Close()
		close(ticks)
		return ticks
	}

	go func() {
		defer close(ticks)
		defer ps.Close()

		messages := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					log.Println("redis: order change subscription closed")
					return
				}
				select {
				case ticks <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ticks
}
