package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the engine's ephemeral key/value gateway: plain get/set with
// TTL plus an atomic increment that arms expiry on the first hit of a
// window. Counters live only for their window; nothing here is durable.
type Cache struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Cache {
	return &Cache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Increment bumps the counter and, when this call created it, sets the
// key to expire after ttl. The increment itself is atomic on the store,
// so concurrent callers across processes never lose updates.
func (c *Cache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (c *Cache) Close() error { return c.rdb.Close() }
