package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetIdempotency(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	ok, _ := cache.SetIdempotency(ctx, "order-request:r1")
	if !ok {
		t.Fatal("expected first set to succeed")
	}
	ok, _ = cache.SetIdempotency(ctx, "order-request:r1")
	if ok {
		t.Error("expected duplicate set to fail")
	}

	cache.ClearIdempotency(ctx, "order-request:r1")
	ok, _ = cache.SetIdempotency(ctx, "order-request:r1")
	if !ok {
		t.Error("expected set after clear to succeed")
	}
}

func TestMemoryCache_KeysExpire(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	cache.SetIdempotency(ctx, "k")
	now = now.Add(idempotencyKeyTTL + time.Second)

	if ok, _ := cache.SetIdempotency(ctx, "k"); !ok {
		t.Error("expected expired key to be reusable")
	}
}

func TestMemoryCache_PrunesExpiredKeys(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		cache.SetIdempotency(ctx, key)
	}
	now = now.Add(idempotencyKeyTTL)
	cache.SetIdempotency(ctx, "d")

	cache.mu.Lock()
	n := len(cache.keys)
	cache.mu.Unlock()
	if n != 1 {
		t.Errorf("expected only the fresh key to remain, got %d keys", n)
	}
}
