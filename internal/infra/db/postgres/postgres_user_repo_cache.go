package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
	"cloudshare/internal/infra/metrics"
	red "cloudshare/internal/infra/redis"

	"github.com/go-redis/redis/v8"
)

var _ repository.ProfileRepository = (*profileRepoCacheDecorator)(nil)

type profileRepoCacheDecorator struct {
	inner repository.ProfileRepository
	cache red.RedisClient
	ttl   time.Duration
}

// NewProfileRepoCacheDecorator serves FindByClerkID from Redis and drops the
// entry on every write. A Redis outage degrades to the inner repository.
func NewProfileRepoCacheDecorator(inner repository.ProfileRepository, cache red.RedisClient, ttl time.Duration) repository.ProfileRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &profileRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func profileKey(clerkID string) string { return fmt.Sprintf("profile:clerk:%s", clerkID) }

type cachedProfile struct {
	ClerkID   string    `json:"clerk_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	PhotoURL  string    `json:"photo_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *profileRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	return d.write(ctx, tx, p.ClerkID, func() error { return d.inner.Create(ctx, tx, p) })
}

func (d *profileRepoCacheDecorator) Update(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	return d.write(ctx, tx, p.ClerkID, func() error { return d.inner.Update(ctx, tx, p) })
}

func (d *profileRepoCacheDecorator) Delete(ctx context.Context, tx repository.Tx, clerkID string) error {
	return d.write(ctx, tx, clerkID, func() error { return d.inner.Delete(ctx, tx, clerkID) })
}

// write drops the entry before the inner write and again once the write is
// visible, so a read racing the write cannot leave the old row cached.
func (d *profileRepoCacheDecorator) write(ctx context.Context, tx repository.Tx, clerkID string, fn func() error) error {
	key := profileKey(clerkID)
	_ = d.cache.Del(ctx, key)
	if err := fn(); err != nil {
		return err
	}
	afterCommit(ctx, tx, func(ctx context.Context) { _ = d.cache.Del(ctx, key) })
	return nil
}

func (d *profileRepoCacheDecorator) FindByClerkID(ctx context.Context, tx repository.Tx, clerkID string) (*model.Profile, error) {
	key := profileKey(clerkID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var c cachedProfile
		if json.Unmarshal([]byte(val), &c) == nil {
			metrics.IncCacheRequest("profile", "hit")
			return &model.Profile{
				ClerkID:   c.ClerkID,
				Email:     c.Email,
				FirstName: c.FirstName,
				LastName:  c.LastName,
				PhotoURL:  c.PhotoURL,
				CreatedAt: c.CreatedAt,
			}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		metrics.IncCacheRequest("profile", "error")
	}

	metrics.IncCacheRequest("profile", "miss")
	p, err := d.inner.FindByClerkID(ctx, tx, clerkID)
	if err != nil {
		return nil, err
	}
	// reads inside a transaction may see uncommitted rows
	if tx == nil {
		b, _ := json.Marshal(cachedProfile{
			ClerkID:   p.ClerkID,
			Email:     p.Email,
			FirstName: p.FirstName,
			LastName:  p.LastName,
			PhotoURL:  p.PhotoURL,
			CreatedAt: p.CreatedAt,
		})
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return p, nil
}
