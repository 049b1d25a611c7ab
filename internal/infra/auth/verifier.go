// File: internal/infra/auth/verifier.go
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
)

var validMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512"}

type VerifierOptions struct {
	Issuer    string
	ClockSkew time.Duration
	Now       func() time.Time
}

// Verifier checks bearer tokens against keys from a KeySource.
// It keeps no per-request state and is safe for concurrent use.
type Verifier struct {
	keys   KeySource
	parser *jwt.Parser
}

func NewVerifier(keys KeySource, opts VerifierOptions) *Verifier {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Verifier{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods(validMethods),
			jwt.WithIssuer(opts.Issuer),
			jwt.WithLeeway(opts.ClockSkew),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(opts.Now),
		),
	}
}

type tokenHeader struct {
	Kid string `json:"kid"`
	Alg string `json:"alg"`
}

// Verify returns the identity carried by raw. Every failure is a
// *domain.InvalidTokenError whose cause is one of the token sentinels.
func (v *Verifier) Verify(ctx context.Context, raw string) (*model.Identity, error) {
	parts := strings.Split(raw, ".")
	if len(parts) < 3 {
		return nil, domain.InvalidToken(domain.ErrMalformedToken)
	}

	hb, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[0], "="))
	if err != nil {
		return nil, domain.InvalidToken(fmt.Errorf("%w: header encoding", domain.ErrMalformedToken))
	}
	var hdr tokenHeader
	if err := json.Unmarshal(hb, &hdr); err != nil {
		return nil, domain.InvalidToken(fmt.Errorf("%w: header json", domain.ErrMalformedToken))
	}
	if hdr.Kid == "" {
		return nil, domain.InvalidToken(domain.ErrMissingKeyID)
	}

	key, err := v.keys.PublicKey(ctx, hdr.Kid)
	if err != nil {
		return nil, domain.InvalidToken(fmt.Errorf("%w: %w", domain.ErrUnknownSigningKey, err))
	}

	var claims jwt.RegisteredClaims
	_, err = v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return key.Key, nil
	})
	if err != nil {
		return nil, domain.InvalidToken(classifyParseError(err))
	}
	if claims.Subject == "" {
		return nil, domain.InvalidToken(fmt.Errorf("%w: empty subject", domain.ErrMalformedToken))
	}

	return &model.Identity{
		Subject: claims.Subject,
		Roles:   []string{model.RoleAdmin},
	}, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", domain.ErrSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %w", domain.ErrIssuerMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %w", domain.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrMalformedToken, err)
	}
}
