// File: internal/infra/auth/keycache.go
package auth

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"cloudshare/internal/domain"
	"cloudshare/internal/infra/metrics"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// maxJWKSBody caps the key set response size.
const maxJWKSBody = 1 << 20

// SigningKey is one public key published by the identity provider.
type SigningKey struct {
	KeyID     string
	Key       crypto.PublicKey
	FetchedAt time.Time
}

// KeySource resolves a key id to a verification key.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (SigningKey, error)
}

type KeyCacheOptions struct {
	URL                string
	TTL                time.Duration // 0 keeps a snapshot until a miss
	RefreshInterval    time.Duration // background refresh, 0 disables Run
	MinRefreshInterval time.Duration // minimum gap between refreshes forced by unknown kids
	FetchTimeout       time.Duration
	Client             *http.Client
	Now                func() time.Time
}

type keySet struct {
	keys      map[string]SigningKey
	fetchedAt time.Time
}

// KeyCache keeps the identity provider's key set in memory. Lookups read an
// immutable snapshot without locking; refreshes replace the snapshot whole.
type KeyCache struct {
	url             string
	ttl             time.Duration
	refreshInterval time.Duration
	fetchTimeout    time.Duration
	client          *http.Client
	now             func() time.Time

	snap    atomic.Pointer[keySet]
	group   singleflight.Group
	limiter *rate.Limiter
	log     *zerolog.Logger
}

func NewKeyCache(opts KeyCacheOptions, logger *zerolog.Logger) *KeyCache {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.FetchTimeout}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	limit := rate.Inf
	if opts.MinRefreshInterval > 0 {
		limit = rate.Every(opts.MinRefreshInterval)
	}
	l := logger.With().Str("component", "KeyCache").Logger()
	return &KeyCache{
		url:             opts.URL,
		ttl:             opts.TTL,
		refreshInterval: opts.RefreshInterval,
		fetchTimeout:    opts.FetchTimeout,
		client:          opts.Client,
		now:             opts.Now,
		limiter:         rate.NewLimiter(limit, 1),
		log:             &l,
	}
}

// PublicKey returns the key for kid, fetching the key set on a miss.
// Unknown kid after a refresh yields domain.ErrKeyNotFound; transport,
// status or parse failures yield domain.ErrKeyFetchFailed.
func (c *KeyCache) PublicKey(ctx context.Context, kid string) (SigningKey, error) {
	var (
		set *keySet
		err error
	)
	snap := c.snap.Load()
	switch {
	case snap != nil && !c.expired(snap):
		if k, ok := snap.keys[kid]; ok {
			metrics.IncKeyCache("hit")
			return k, nil
		}
		metrics.IncKeyCache("miss")
		set, err = c.forcedRefresh(ctx)
	case snap != nil:
		metrics.IncKeyCache("stale")
		set, err = c.refresh(ctx)
	default:
		metrics.IncKeyCache("miss")
		set, err = c.refresh(ctx)
	}
	if err != nil {
		return SigningKey{}, err
	}
	k, ok := set.keys[kid]
	if !ok {
		return SigningKey{}, fmt.Errorf("%w: %q", domain.ErrKeyNotFound, kid)
	}
	return k, nil
}

// Refresh forces a fetch of the key set.
func (c *KeyCache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

// Run refreshes the key set every RefreshInterval until ctx is done.
// A failed refresh keeps the previous snapshot.
func (c *KeyCache) Run(ctx context.Context) {
	if c.refreshInterval <= 0 {
		return
	}
	t := time.NewTicker(c.refreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.Refresh(ctx); err != nil {
				c.log.Warn().Err(err).Msg("background key refresh failed")
			}
		}
	}
}

func (c *KeyCache) expired(s *keySet) bool {
	return c.ttl > 0 && c.now().Sub(s.fetchedAt) >= c.ttl
}

// forcedRefresh serves a kid missing from a fresh snapshot. Concurrent
// callers share one call and the limiter decides whether that call reaches
// the endpoint; a throttled call returns the current snapshot, which already
// holds whatever the last permitted refresh found.
func (c *KeyCache) forcedRefresh(ctx context.Context) (*keySet, error) {
	ch := c.group.DoChan("forced", func() (any, error) {
		if !c.limiter.AllowN(c.now(), 1) {
			metrics.IncKeyFetch("throttled")
			return c.snap.Load(), nil
		}
		set, err := c.refresh(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		return set, nil
	})
	return c.await(ctx, ch)
}

// refresh coalesces concurrent callers onto one fetch. The fetch itself is
// detached from the first caller's cancellation and bounded by fetchTimeout.
func (c *KeyCache) refresh(ctx context.Context) (*keySet, error) {
	ch := c.group.DoChan("jwks", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		set, err := c.fetch(fctx)
		if err != nil {
			metrics.IncKeyFetch("error")
			return nil, err
		}
		metrics.IncKeyFetch("ok")
		c.snap.Store(set)
		c.log.Debug().Int("keys", len(set.keys)).Msg("key set refreshed")
		return set, nil
	})
	return c.await(ctx, ch)
}

func (c *KeyCache) await(ctx context.Context, ch <-chan singleflight.Result) (*keySet, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrKeyFetchFailed, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.IncKeyFetch("coalesced")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		set, ok := res.Val.(*keySet)
		if !ok || set == nil {
			return nil, fmt.Errorf("%w: no key set loaded", domain.ErrKeyFetchFailed)
		}
		return set, nil
	}
}

// jwksDocument keeps entries raw so one unusable key does not reject the set.
type jwksDocument struct {
	Keys []json.RawMessage `json:"keys"`
}

func (c *KeyCache) fetch(ctx context.Context) (*keySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrKeyFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrKeyFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxJWKSBody))
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrKeyFetchFailed, resp.StatusCode)
	}

	var body jwksDocument
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode key set: %w", domain.ErrKeyFetchFailed, err)
	}

	now := c.now()
	set := &keySet{keys: make(map[string]SigningKey, len(body.Keys)), fetchedAt: now}
	for _, raw := range body.Keys {
		var jwk jose.JSONWebKey
		if err := json.Unmarshal(raw, &jwk); err != nil {
			c.log.Warn().Err(err).Msg("skipping unusable key")
			continue
		}
		if jwk.KeyID == "" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		if !jwk.IsPublic() {
			jwk = jwk.Public()
		}
		switch jwk.Key.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey:
			set.keys[jwk.KeyID] = SigningKey{KeyID: jwk.KeyID, Key: jwk.Key, FetchedAt: now}
		default:
			// symmetric and EdDSA keys are not accepted by the verifier
		}
	}
	return set, nil
}
