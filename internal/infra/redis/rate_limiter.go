package redis

import (
	"context"
	"fmt"
	"time"

	"cloudshare/internal/domain/ports/adapter"
)

var _ adapter.RateLimiter = (*RateLimiter)(nil)

// RateLimiter counts hits per key in fixed windows shared by every replica.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow reports whether the hit that was just counted is within limit.
// A non-positive limit always allows.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	if window <= 0 {
		return false, fmt.Errorf("rate limit %s: window must be positive", key)
	}
	count, err := r.client.IncrWindow(ctx, key, window)
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return count <= int64(limit), nil
}
