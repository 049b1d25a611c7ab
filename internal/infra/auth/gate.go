// File: internal/infra/auth/gate.go
package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/infra/logging"
	"cloudshare/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const (
	msgMissingHeader = "Authorization header is missing or invalid"
	msgInvalidToken  = "Invalid JWT Token: "
	bearerPrefix     = "Bearer "
)

// TokenVerifier is what the gate needs from Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*model.Identity, error)
}

type GateOptions struct {
	// ExemptPaths are matched as substrings of the request path.
	ExemptPaths []string
	Logger      *zerolog.Logger
}

// Gate rejects requests without a valid bearer token with 403. Preflight
// requests and exempt paths pass through untouched.
func Gate(v TokenVerifier, opts GateOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || exempt(r.URL.Path, opts.ExemptPaths) {
				metrics.IncAuthRequest("exempt", "none")
				next.ServeHTTP(w, r)
				return
			}

			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, bearerPrefix) {
				metrics.IncAuthRequest("rejected", "missing_header")
				deny(w, msgMissingHeader)
				return
			}

			id, err := v.Verify(r.Context(), strings.TrimPrefix(h, bearerPrefix))
			if err != nil {
				reason, cause := classify(err)
				metrics.IncAuthRequest("rejected", reason)
				logging.With(r.Context(), logger).Debug().Err(err).Str("reason", reason).Msg("token rejected")
				deny(w, msgInvalidToken+cause.Error())
				return
			}

			metrics.IncAuthRequest("allowed", "none")
			ctx := WithIdentity(r.Context(), id)
			ctx = logging.WithUserID(ctx, id.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func exempt(path string, fragments []string) bool {
	for _, f := range fragments {
		if f != "" && strings.Contains(path, f) {
			return true
		}
	}
	return false
}

// committer is implemented by response writers that know whether headers went out.
type committer interface {
	Committed() bool
}

func deny(w http.ResponseWriter, msg string) {
	if c, ok := w.(committer); ok && c.Committed() {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = io.WriteString(w, msg)
}

// classify maps a verification error to a metric reason and the sentinel
// whose text is shown to the client. The full chain stays in the log.
func classify(err error) (string, error) {
	switch {
	case errors.Is(err, domain.ErrMissingKeyID):
		return "missing_kid", domain.ErrMissingKeyID
	case errors.Is(err, domain.ErrUnknownSigningKey):
		return "unknown_key", domain.ErrUnknownSigningKey
	case errors.Is(err, domain.ErrSignatureInvalid):
		return "bad_signature", domain.ErrSignatureInvalid
	case errors.Is(err, domain.ErrIssuerMismatch):
		return "issuer", domain.ErrIssuerMismatch
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired", domain.ErrTokenExpired
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed", domain.ErrMalformedToken
	default:
		return "unknown", domain.ErrMalformedToken
	}
}
