package adapter

import (
	"context"
	"fmt"
	"time"
)

// Locker is a mutual-exclusion lease keyed by string. Unlock only releases a
// lease still held with the returned token.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter admits at most limit events per key within window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// OrderLockKey names the settlement lease of one order.
func OrderLockKey(orderID string) string {
	return fmt.Sprintf("lock:order:%s", orderID)
}

// RateLimitKey names the per-user counter of one operation.
func RateLimitKey(clerkID, operation string) string {
	return fmt.Sprintf("rate_limit:%s:%s", clerkID, operation)
}
