package redis

import (
	"context"
	"testing"
	"time"
)

func TestInFlightLockExclusive(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	lock := NewInFlightLock(client)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "transfer:w-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got ok=%v err=%v", ok, err)
	}

	ok, err = lock.Acquire(ctx, "transfer:w-1", time.Minute)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if ok {
		t.Fatalf("expected second acquire to fail while held")
	}

	ok, _ = lock.Acquire(ctx, "transfer:w-2", time.Minute)
	if !ok {
		t.Fatalf("expected a different key to be independent")
	}
}

func TestInFlightLockRelease(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	lock := NewInFlightLock(client)
	ctx := context.Background()

	_, _ = lock.Acquire(ctx, "transfer:w-1", time.Minute)
	if err := lock.Release(ctx, "transfer:w-1"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	ok, err := lock.Acquire(ctx, "transfer:w-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release, got ok=%v err=%v", ok, err)
	}
}

func TestInFlightLockExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	lock := NewInFlightLock(client)
	ctx := context.Background()

	_, _ = lock.Acquire(ctx, "transfer:w-1", time.Minute)
	mr.FastForward(2 * time.Minute)

	ok, _ := lock.Acquire(ctx, "transfer:w-1", time.Minute)
	if !ok {
		t.Fatalf("expected stale lock to expire")
	}
}
