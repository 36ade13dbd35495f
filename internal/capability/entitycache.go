package capability

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryEntityCache is an in-process EntityCache, selected when
// gwconfig.Config.EntityCache.RedisAddress is empty. Entries expire by
// TTL on read; the map has no capacity bound.
type MemoryEntityCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryEntityCache builds an empty MemoryEntityCache.
func NewMemoryEntityCache() *MemoryEntityCache {
	return &MemoryEntityCache{entries: map[string]memoryCacheEntry{}}
}

func (c *MemoryEntityCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryEntityCache) Put(_ context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryCacheEntry{value: value, expires: time.Now().Add(time.Duration(ttlSeconds) * time.Second)}
	return nil
}

// RedisEntityCache is the EntityCache backend selected when
// gwconfig.Config.EntityCache.RedisAddress is set, grounded
// on volaticloud's redis/go-redis/v9 usage for its resolver result
// cache.
type RedisEntityCache struct {
	client *redis.Client
}

// NewRedisEntityCache wraps an already-configured redis.Client.
func NewRedisEntityCache(client *redis.Client) *RedisEntityCache {
	return &RedisEntityCache{client: client}
}

func (c *RedisEntityCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisEntityCache) Put(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return c.client.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second).Err()
}
