package referral

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Counter is a TTL-bounded counter used for click rate limiting and the
// anti-abuse windows. Increments must be atomic; read-modify-write is not
// acceptable under concurrent click bursts.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Count(ctx context.Context, key string) (int64, error)
}

// RedisCounter implements Counter on a shared redis instance.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a redis-backed counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr atomically increments a key and starts its expiry window on first use.
func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Count returns the current value of a counter, zero when the key expired.
func (c *RedisCounter) Count(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
