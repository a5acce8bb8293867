// README: Cache backends for travel-time entries (in-memory and Redis).
package travel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is one cached travel estimate. Entries are immutable once written;
// expiry triggers a re-fetch, never a mutation.
type Entry struct {
	Duration   time.Duration `json:"duration"`
	Multiplier float64       `json:"multiplier"`
	StoredAt   time.Time     `json:"stored_at"`
}

// Cache stores travel entries under opaque keys. A zero ttl means no expiry.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, e Entry, ttl time.Duration) error
}

// MemoryCache is a process-local Cache safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	me, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if !me.expiresAt.IsZero() && time.Now().After(me.expiresAt) {
		return Entry{}, false, nil
	}
	return me.entry, true, nil
}

func (c *MemoryCache) Put(_ context.Context, key string, e Entry, ttl time.Duration) error {
	me := memoryEntry{entry: e}
	if ttl > 0 {
		me.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = me
	c.mu.Unlock()
	return nil
}

// RedisCache shares travel entries across instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}
