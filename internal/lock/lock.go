// Package lock serializes work on one recipient's execution state across
// workers. Keys are state keys (campaign/recipient).
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLockNotAcquired is returned when a lock cannot be acquired
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when trying to release a lock not held
	ErrLockNotHeld = errors.New("lock not held")
)

type Lock interface {
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) error
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// TryAcquire retries Acquire with capped exponential backoff until timeout.
func TryAcquire(ctx context.Context, l Locker, key string, ttl, timeout time.Duration) (Lock, error) {
	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond

	for {
		lk, err := l.Acquire(ctx, key, ttl)
		if err == nil {
			return lk, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		if !time.Now().Add(backoff).Before(deadline) {
			return nil, ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff = backoff * 2
			if backoff > 500*time.Millisecond {
				backoff = 500 * time.Millisecond
			}
		}
	}
}

// WithLock executes fn while holding key.
func WithLock(ctx context.Context, l Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	lk, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer lk.Release(context.WithoutCancel(ctx))

	return fn(ctx)
}

// WithLockWait is WithLock that retries for up to wait before giving up
// with ErrLockNotAcquired.
func WithLockWait(ctx context.Context, l Locker, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) error {
	lk, err := TryAcquire(ctx, l, key, ttl, wait)
	if err != nil {
		return err
	}
	defer lk.Release(context.WithoutCancel(ctx))

	return fn(ctx)
}
