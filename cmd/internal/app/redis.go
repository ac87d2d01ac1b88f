package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the configured Redis and validates connectivity.
// It returns nil, nil when Redis is not configured.
func NewRedisClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := PingRedis(ctx, client, 3*time.Second); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// PingRedis checks the connection within timeout.
func PingRedis(parent context.Context, client redis.UniversalClient, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
