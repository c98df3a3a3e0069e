package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultOpTimeout bounds session reads and lock calls so a slow Redis
// cannot stall a transfer.
const defaultOpTimeout = 3 * time.Second

// NewClient creates a client from a redis:// URL and pings it once.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = defaultOpTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaultOpTimeout
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}

// Ping reports whether client answers; it backs the readiness check.
func Ping(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
