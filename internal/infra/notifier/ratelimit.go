package notifier

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces messages per webhook. Each webhook gets its own token
// bucket so batches bound for different channels do not wait on each other.
type RateLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with burst
// per key.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until key may send or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	return r.limiter(key).Wait(ctx)
}

func (r *RateLimiter) limiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[key]
	if !ok {
		l = rate.NewLimiter(r.rate, r.burst)
		r.limiters[key] = l
	}
	return l
}
