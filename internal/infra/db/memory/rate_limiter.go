package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloudshare/internal/domain/ports/adapter"

	"golang.org/x/time/rate"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

type bucket struct {
	lim    *rate.Limiter
	limit  int
	window time.Duration
}

// RateLimiter keeps one token bucket per key: limit tokens, refilled evenly
// over window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	if window <= 0 {
		return false, fmt.Errorf("rate limit %s: window must be positive", key)
	}
	return r.bucket(key, limit, window).AllowN(r.now(), 1), nil
}

func (r *RateLimiter) bucket(key string, limit int, window time.Duration) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buckets[key]
	if !ok || b.limit != limit || b.window != window {
		b = &bucket{
			lim:    rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit),
			limit:  limit,
			window: window,
		}
		r.buckets[key] = b
	}
	return b.lim
}
