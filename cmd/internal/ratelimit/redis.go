package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every API instance.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int64
	window time.Duration
}

// NewRedisLimiter constructs a RedisLimiter; keys are stored under prefix.
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

// Allow implements Limiter. now is unused: the window is kept by the key's TTL.
func (r *RedisLimiter) Allow(ctx context.Context, key string, _ time.Time) (bool, time.Duration, error) {
	k := Key(r.prefix, "rl", key)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := r.client.PExpire(ctx, k, r.window).Err(); err != nil {
			return false, 0, err
		}
	}
	if count <= r.limit {
		return true, 0, nil
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		// The expiry was lost; restart the window rather than blocking forever.
		_ = r.client.PExpire(ctx, k, r.window).Err()
		ttl = r.window
	}
	return false, ttl, nil
}

// RedisCooldown grants a key once per ttl using a lock that is left to expire.
type RedisCooldown struct {
	client redis.UniversalClient
	locker *redislock.Client
	prefix string
}

// NewRedisCooldown constructs a RedisCooldown; keys are stored under prefix.
func NewRedisCooldown(client redis.UniversalClient, prefix string) *RedisCooldown {
	return &RedisCooldown{client: client, locker: redislock.New(client), prefix: prefix}
}

// Acquire implements Cooldown.
func (c *RedisCooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	if ttl <= 0 {
		return true, 0, nil
	}
	k := Key(c.prefix, "cooldown", key)

	_, err := c.locker.Obtain(ctx, k, ttl, nil)
	if err == nil {
		return true, 0, nil
	}
	if !errors.Is(err, redislock.ErrNotObtained) {
		return false, 0, err
	}

	remaining, err := c.client.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, err
	}
	if remaining <= 0 {
		remaining = time.Second
	}
	return false, remaining, nil
}

// Release implements Cooldown.
func (c *RedisCooldown) Release(ctx context.Context, key string) error {
	return c.client.Del(ctx, Key(c.prefix, "cooldown", key)).Err()
}
