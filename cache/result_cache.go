package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"od-flow-audit/analysis"
)

// ResultCache caches full reconciliation results per analysis window, so
// repeated API reads of the same window skip the result store entirely.
type ResultCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewResultCache creates a result cache. A nil redis client yields a cache
// that misses on every read, which keeps the pipeline usable without Redis.
func NewResultCache(redis *RedisClient, ttl time.Duration) *ResultCache {
	return &ResultCache{redis: redis, ttl: ttl}
}

func resultKey(windowStart, windowEnd string) string {
	return fmt.Sprintf("audit:result:%s:%s", windowStart, windowEnd)
}

// Store caches one run result under its window key
func (c *ResultCache) Store(ctx context.Context, windowStart, windowEnd string, result *analysis.Result) error {
	if c.redis == nil {
		return nil
	}
	key := resultKey(windowStart, windowEnd)
	if err := c.redis.Set(ctx, key, result, c.ttl); err != nil {
		return fmt.Errorf("failed to cache result %s: %w", key, err)
	}
	log.Printf("✅ Cached result %s (ttl %s)", key, c.ttl)
	return nil
}

// Load returns the cached result for a window, or (nil, nil) on a miss
func (c *ResultCache) Load(ctx context.Context, windowStart, windowEnd string) (*analysis.Result, error) {
	if c.redis == nil {
		return nil, nil
	}
	var result analysis.Result
	err := c.redis.Get(ctx, resultKey(windowStart, windowEnd), &result)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached result: %w", err)
	}
	return &result, nil
}

// Invalidate drops the cached result for a window
func (c *ResultCache) Invalidate(ctx context.Context, windowStart, windowEnd string) error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Delete(ctx, resultKey(windowStart, windowEnd))
}
