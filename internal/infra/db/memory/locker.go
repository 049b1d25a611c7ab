// File: internal/infra/db/memory/locker.go
package memory

import (
	"context"
	"sync"
	"time"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/ports/adapter"

	"github.com/google/uuid"
)

var _ adapter.Locker = (*Locker)(nil)

type lease struct {
	token   string
	expires time.Time
}

// Locker is a single-process adapter.Locker for dev mode and tests.
type Locker struct {
	mu      sync.Mutex
	held    map[string]lease
	tries   int
	backoff time.Duration
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]lease), tries: 20, backoff: 25 * time.Millisecond}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < l.tries; i++ {
		if l.acquire(key, token, ttl) {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	return "", domain.ErrLockNotAcquired
}

func (l *Locker) acquire(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return false
	}
	l.held[key] = lease{token: token, expires: now.Add(ttl)}
	return true
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
