package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// InFlightLock implements usecase.InFlightLock using Redis SETNX.
// The TTL bounds how long a crashed holder can block a key.
type InFlightLock struct {
	client *redis.Client
	prefix string
}

// NewInFlightLock creates a new InFlightLock.
func NewInFlightLock(client *redis.Client) *InFlightLock {
	return &InFlightLock{
		client: client,
		prefix: "inflight:",
	}
}

// Acquire marks key as busy. It returns false if the key is already held.
func (l *InFlightLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
}

// Release frees key.
func (l *InFlightLock) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
