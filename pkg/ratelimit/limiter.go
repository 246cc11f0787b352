// Package ratelimit paces outbound REST requests so the client stays
// inside the per-key request allowance the exchange enforces.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/ratelimit"
)

// Rate allows Limit operations per Interval.
type Rate struct {
	Limit    int
	Interval time.Duration
}

// perSecond converts the rate to the whole-per-second granularity the
// underlying limiter takes. Sub-one rates round up to one permit per second
// rather than down to an invalid zero.
func (r Rate) perSecond() int {
	if r.Limit <= 0 || r.Interval <= 0 {
		return 1
	}
	if n := int(float64(r.Limit) / r.Interval.Seconds()); n >= 1 {
		return n
	}
	return 1
}

// RateLimiter paces operations according to a configured Rate.
type RateLimiter interface {
	// Wait blocks until an operation is permitted or the context ends.
	Wait(ctx context.Context) error

	// SetLimit replaces the rate at runtime.
	SetLimit(rate Rate) error
}

// tokenBucket wraps Uber's leaky bucket limiter.
type tokenBucket struct {
	mu      sync.Mutex
	limiter ratelimit.Limiter
}

// NewTokenBucketLimiter creates a limiter allowing rate.Limit operations
// per rate.Interval.
func NewTokenBucketLimiter(rate Rate) RateLimiter {
	return &tokenBucket{limiter: ratelimit.New(rate.perSecond())}
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	b.mu.Lock()
	limiter := b.limiter
	b.mu.Unlock()

	// Take blocks without observing the context, so run it aside and race
	// it against cancellation. An abandoned slot just delays the next
	// caller by one interval.
	taken := make(chan struct{})
	go func() {
		limiter.Take()
		close(taken)
	}()

	select {
	case <-taken:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	}
}

func (b *tokenBucket) SetLimit(rate Rate) error {
	if rate.Limit <= 0 || rate.Interval <= 0 {
		return fmt.Errorf("invalid rate limit: %d per %s", rate.Limit, rate.Interval)
	}

	b.mu.Lock()
	b.limiter = ratelimit.New(rate.perSecond())
	b.mu.Unlock()
	return nil
}
