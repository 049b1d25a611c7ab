package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeySource struct {
	calls atomic.Int32
	keys  map[string]SigningKey
	err   error
}

func (f *fakeKeySource) PublicKey(_ context.Context, kid string) (SigningKey, error) {
	f.calls.Add(1)
	if f.err != nil {
		return SigningKey{}, f.err
	}
	k, ok := f.keys[kid]
	if !ok {
		return SigningKey{}, domain.ErrKeyNotFound
	}
	return k, nil
}

func newTestVerifier(t *testing.T, now time.Time) (*Verifier, *fakeKeySource) {
	t.Helper()
	priv, _ := testKeys(t)
	src := &fakeKeySource{keys: map[string]SigningKey{
		"k1": {KeyID: "k1", Key: &priv.PublicKey, FetchedAt: now},
	}}
	v := NewVerifier(src, VerifierOptions{
		Issuer:    testIssuer,
		ClockSkew: 60 * time.Second,
		Now:       func() time.Time { return now },
	})
	return v, src
}

func TestVerify_Valid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v, _ := newTestVerifier(t, now)
	priv, _ := testKeys(t)

	id, err := v.Verify(context.Background(), signRS256(t, priv, "k1", claimsAt(now, "user_123", time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user_123", id.Subject)
	assert.Equal(t, []string{model.RoleAdmin}, id.Roles)
}

func TestVerify_MalformedNeverFetchesKey(t *testing.T) {
	v, src := newTestVerifier(t, time.Now())

	for _, raw := range []string{"", "abc", "abc.def", "!!!.def.ghi"} {
		_, err := v.Verify(context.Background(), raw)
		assert.ErrorIs(t, err, domain.ErrMalformedToken, raw)
		var ite *domain.InvalidTokenError
		assert.True(t, errors.As(err, &ite), raw)
	}
	assert.EqualValues(t, 0, src.calls.Load())
}

func TestVerify_MissingKid(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v, src := newTestVerifier(t, now)
	priv, _ := testKeys(t)

	_, err := v.Verify(context.Background(), signRS256(t, priv, "", claimsAt(now, "u", time.Hour)))
	assert.ErrorIs(t, err, domain.ErrMissingKeyID)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
	assert.EqualValues(t, 0, src.calls.Load())
}

func TestVerify_UnknownKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v, _ := newTestVerifier(t, now)
	priv, _ := testKeys(t)

	_, err := v.Verify(context.Background(), signRS256(t, priv, "rotated", claimsAt(now, "u", time.Hour)))
	assert.ErrorIs(t, err, domain.ErrUnknownSigningKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestVerify_FetchFailureIsUnknownKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v, src := newTestVerifier(t, now)
	src.err = domain.ErrKeyFetchFailed
	priv, _ := testKeys(t)

	_, err := v.Verify(context.Background(), signRS256(t, priv, "k1", claimsAt(now, "u", time.Hour)))
	assert.ErrorIs(t, err, domain.ErrUnknownSigningKey)
	assert.ErrorIs(t, err, domain.ErrKeyFetchFailed)
}

func TestVerify_ClaimChecks(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	priv, other := testKeys(t)

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name: "expired within skew is accepted",
			token: func(t *testing.T) string {
				return signRS256(t, priv, "k1", claimsAt(now, "u", -30*time.Second))
			},
		},
		{
			name: "expired beyond skew",
			token: func(t *testing.T) string {
				return signRS256(t, priv, "k1", claimsAt(now, "u", -90*time.Second))
			},
			wantErr: domain.ErrTokenExpired,
		},
		{
			name: "issuer mismatch",
			token: func(t *testing.T) string {
				c := claimsAt(now, "u", time.Hour)
				c["iss"] = "https://evil.example.test"
				return signRS256(t, priv, "k1", c)
			},
			wantErr: domain.ErrIssuerMismatch,
		},
		{
			name: "signed by another key",
			token: func(t *testing.T) string {
				return signRS256(t, other, "k1", claimsAt(now, "u", time.Hour))
			},
			wantErr: domain.ErrSignatureInvalid,
		},
		{
			name: "symmetric algorithm refused",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claimsAt(now, "u", time.Hour))
				tok.Header["kid"] = "k1"
				s, err := tok.SignedString([]byte("shared-secret"))
				require.NoError(t, err)
				return s
			},
			wantErr: domain.ErrSignatureInvalid,
		},
		{
			name: "missing exp",
			token: func(t *testing.T) string {
				c := claimsAt(now, "u", time.Hour)
				delete(c, "exp")
				return signRS256(t, priv, "k1", c)
			},
			wantErr: domain.ErrMalformedToken,
		},
		{
			name: "empty subject",
			token: func(t *testing.T) string {
				return signRS256(t, priv, "k1", claimsAt(now, "", time.Hour))
			},
			wantErr: domain.ErrMalformedToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newTestVerifier(t, now)
			id, err := v.Verify(context.Background(), tt.token(t))
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "u", id.Subject)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, id)
		})
	}
}

func TestVerify_EndToEndWithKeyCache(t *testing.T) {
	priv, _ := testKeys(t)
	srv := newJWKSServer(t, rsaJWK("k1", &priv.PublicKey))
	kc := NewKeyCache(KeyCacheOptions{URL: srv.URL, TTL: time.Hour}, nopLogger())
	v := NewVerifier(kc, VerifierOptions{Issuer: testIssuer, ClockSkew: time.Minute})

	raw := signRS256(t, priv, "k1", claimsAt(time.Now(), "user_e2e", time.Hour))
	for i := 0; i < 3; i++ {
		id, err := v.Verify(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "user_e2e", id.Subject)
	}
	assert.EqualValues(t, 1, srv.hits.Load())
}
