package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "login:failures:"

// LoginThrottle implements repository.LoginThrottle with a Redis counter per
// key that expires window after the first failure.
type LoginThrottle struct {
	client      redis.Cmdable
	maxFailures int64
	window      time.Duration
}

// NewLoginThrottle creates a throttle that locks a key out after maxFailures
// failures within window.
func NewLoginThrottle(client redis.Cmdable, maxFailures int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		client:      client,
		maxFailures: int64(maxFailures),
		window:      window,
	}
}

// Allowed reports whether key is below the failure threshold.
func (t *LoginThrottle) Allowed(ctx context.Context, key string) (bool, error) {
	n, err := t.client.Get(ctx, throttleKeyPrefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("redis get login failures: %w", err)
	}
	return n < t.maxFailures, nil
}

// RecordFailure increments the failure counter for key. The window starts
// at the first failure and is not extended by later ones.
func (t *LoginThrottle) RecordFailure(ctx context.Context, key string) error {
	k := throttleKeyPrefix + key

	n, err := t.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("redis incr login failures: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, k, t.window).Err(); err != nil {
			return fmt.Errorf("redis expire login failures: %w", err)
		}
	}
	return nil
}

// Reset clears the failure counter for key.
func (t *LoginThrottle) Reset(ctx context.Context, key string) error {
	if err := t.client.Del(ctx, throttleKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del login failures: %w", err)
	}
	return nil
}
