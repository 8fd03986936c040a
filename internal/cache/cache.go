// Package cache is the key/value store in front of availability searches and
// permission contexts.
//
// The cache is never the source of truth. Callers treat every error from it as
// a miss and recompute from Postgres, so a Redis outage slows requests down
// but never fails them.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores JSON-encoded values with a TTL.
type Cache interface {
	// Get decodes the value at key into dest. It returns false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob pattern such as
	// "availability:<tenant>:*".
	DeletePattern(ctx context.Context, pattern string) error
}

// Counter is a fixed-window counter, used for rate limiting.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

const (
	scanBatch   = 200
	deleteBatch = 500
)

type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis connects to the Redis URL ("redis://[:pass@]host:port/db") and
// pings it. The caller decides what to do when Redis is down; main falls
// back to Noop.
func NewRedis(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("redis connection established", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &RedisCache{client: client, logger: logger}, nil
}

// NewRedisFromClient wraps an existing client, e.g. one pointed at miniredis.
func NewRedisFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeletePattern walks the keyspace with SCAN rather than KEYS so a large
// keyspace never blocks the Redis event loop. Every matching key is collected
// before the first DEL; deleting while the cursor is live can make SCAN skip
// keys.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", pattern, err)
	}

	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		if err := c.Delete(ctx, keys[start:end]...); err != nil {
			return err
		}
	}

	c.logger.Debug("cache pattern invalidated", zap.String("pattern", pattern), zap.Int("keys", len(keys)))
	return nil
}

// Incr bumps the counter at key and returns the new value. The first
// increment in a window starts its expiry; later ones leave it alone.
func (c *RedisCache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop is a cache that never holds anything. It stands in when Redis is not
// reachable at startup.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) DeletePattern(context.Context, string) error { return nil }
func (Noop) Incr(context.Context, string, time.Duration) (int64, error) { return 0, nil }
