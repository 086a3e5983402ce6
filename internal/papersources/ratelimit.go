package papersources

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket that caps the sustained request rate
// independently of upstream latency. It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a bucket refilled at ratePerSecond holding at most
// burst tokens.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// Wait blocks until a token is available or the context is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow consumes a token if one is available without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// SetRate updates the refill rate.
func (r *RateLimiter) SetRate(ratePerSecond float64) {
	r.limiter.SetLimit(rate.Limit(ratePerSecond))
}

// Tokens returns the number of tokens currently available.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
