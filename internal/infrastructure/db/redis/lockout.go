package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultThreshold = 5
	defaultWindow    = 15 * time.Minute
)

// SignInLimiter counts failed sign-ins per identifier. Once threshold failures
// accumulate inside window the identifier is locked until the key expires.
// Key format: signin:failures:<identifier>
type SignInLimiter struct {
	client    *redis.Client
	threshold int64
	window    time.Duration
}

// NewSignInLimiter creates a SignInLimiter. Non-positive values fall back to
// 5 attempts per 15 minutes.
func NewSignInLimiter(client *redis.Client, threshold int, window time.Duration) *SignInLimiter {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &SignInLimiter{client: client, threshold: int64(threshold), window: window}
}

// Locked reports whether identifier has reached the failure threshold.
func (l *SignInLimiter) Locked(ctx context.Context, identifier string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(identifier)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lockout check: %w", err)
	}
	return n >= l.threshold, nil
}

// RecordFailure increments the failure counter. The window starts at the
// first failure.
func (l *SignInLimiter) RecordFailure(ctx context.Context, identifier string) error {
	key := l.key(identifier)
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, key)
		p.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("lockout record: %w", err)
	}
	return nil
}

// Reset clears the failure counter after a successful sign-in.
func (l *SignInLimiter) Reset(ctx context.Context, identifier string) error {
	return l.client.Del(ctx, l.key(identifier)).Err()
}

// key uses identifier verbatim: user lookup is case-sensitive, so only the
// exact identifier can accumulate failures against an account.
func (l *SignInLimiter) key(identifier string) string {
	return "signin:failures:" + identifier
}
