// ratelimit.go implements token-bucket rate limiting for the live
// brokerage REST API. The venue enforces per-category limits measured in
// requests per window; this uses a smooth token-bucket that refills
// continuously rather than in bursts, to avoid tripping hard limits.
package exchange

import (
	"context"
	"sync"
	"time"
)

// TokenBucket implements a token-bucket rate limiter with continuous refill.
// Callers block in Wait() until a token is available or the context is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64   // current available tokens (fractional allowed)
	capacity float64   // maximum burst size
	rate     float64   // tokens refilled per second
	lastTime time.Time // last time tokens were calculated
}

// NewTokenBucket creates a rate limiter with the given capacity and refill rate.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiterConfig sets the capacity and per-second refill rate for each
// request category.
type RateLimiterConfig struct {
	SubmitCapacity, SubmitRate float64
	CancelCapacity, CancelRate float64
	QueryCapacity, QueryRate   float64
}

// DefaultRateLimiterConfig returns conservative defaults suitable for a
// typical brokerage REST API.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		SubmitCapacity: 100, SubmitRate: 20,
		CancelCapacity: 100, CancelRate: 20,
		QueryCapacity: 50, QueryRate: 10,
	}
}

// RateLimiter groups token buckets by request category. Each trading
// operation calls the appropriate bucket's Wait() before making the HTTP
// request.
type RateLimiter struct {
	Submit *TokenBucket // POST order submission
	Cancel *TokenBucket // DELETE order cancellation
	Query  *TokenBucket // GET book/account reads
}

// NewRateLimiter creates a rate limiter from cfg.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		Submit: NewTokenBucket(cfg.SubmitCapacity, cfg.SubmitRate),
		Cancel: NewTokenBucket(cfg.CancelCapacity, cfg.CancelRate),
		Query:  NewTokenBucket(cfg.QueryCapacity, cfg.QueryRate),
	}
}
