package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per identifier in Redis.
// Key format: login_failures:<identifier>
// The window starts at the first failure and is not extended by later ones.
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewLoginThrottle creates a LoginThrottle that locks an identifier out after
// maxAttempts failures until window has elapsed since the first one.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Allow reports whether identifier may attempt another login.
func (l *LoginThrottle) Allow(ctx context.Context, identifier string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(identifier)).Int64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n < l.maxAttempts, nil
}

// RecordFailure increments the counter and sets its expiry in one MULTI/EXEC.
// EXPIRE NX only applies when the key has no TTL, so the window is anchored at
// the first failure and a key that lost its TTL regains one.
func (l *LoginThrottle) RecordFailure(ctx context.Context, identifier string) error {
	key := l.key(identifier)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("throttle record failure: %w", err)
	}
	return nil
}

func (l *LoginThrottle) Reset(ctx context.Context, identifier string) error {
	return l.client.Del(ctx, l.key(identifier)).Err()
}

func (l *LoginThrottle) key(identifier string) string {
	return "login_failures:" + identifier
}
