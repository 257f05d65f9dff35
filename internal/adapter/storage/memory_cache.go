package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the single-process stand-in for RedisAdapter's
// idempotency keys. Keys expire after the same TTL.
type MemoryCache struct {
	mu   sync.Mutex
	keys map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		keys: make(map[string]time.Time),
		ttl:  idempotencyKeyTTL,
		now:  time.Now,
	}
}

func (c *MemoryCache) SetIdempotency(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneExpired(now)

	if _, ok := c.keys[key]; ok {
		return false, nil
	}
	c.keys[key] = now.Add(c.ttl)
	return true, nil
}

// pruneExpired drops keys past their TTL. Called with c.mu held.
func (c *MemoryCache) pruneExpired(now time.Time) {
	for key, expires := range c.keys {
		if !now.Before(expires) {
			delete(c.keys, key)
		}
	}
}

func (c *MemoryCache) ClearIdempotency(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
	return nil
}
