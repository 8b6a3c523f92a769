package services

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached pull replies.
	CacheKeyPrefix = "cache:snapshot:"
	// DefaultCacheTTL bounds how stale a cached pull can get if an
	// invalidation is lost.
	DefaultCacheTTL = 5 * time.Minute
	// MinCacheTTL and MaxCacheTTL clamp configured TTLs.
	MinCacheTTL = 10 * time.Second
	MaxCacheTTL = time.Hour
)

// SnapshotCache holds rendered pull replies per username.
type SnapshotCache interface {
	Get(ctx context.Context, username string) ([]byte, bool, error)
	Set(ctx context.Context, username string, data []byte) error
	Invalidate(ctx context.Context, username string) error
}

// RedisCache is the Redis-backed SnapshotCache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache clamps ttl to [MinCacheTTL, MaxCacheTTL]; zero means
// DefaultCacheTTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	switch {
	case ttl == 0:
		ttl = DefaultCacheTTL
	case ttl < MinCacheTTL:
		ttl = MinCacheTTL
	case ttl > MaxCacheTTL:
		ttl = MaxCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get reports a miss as (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, username string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, CacheKeyPrefix+username).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, username string, data []byte) error {
	return c.client.Set(ctx, CacheKeyPrefix+username, data, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, username string) error {
	return c.client.Del(ctx, CacheKeyPrefix+username).Err()
}

// TTL is the effective expiry applied to every entry.
func (c *RedisCache) TTL() time.Duration {
	return c.ttl
}
