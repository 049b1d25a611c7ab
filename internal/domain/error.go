package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("read database row")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrLockNotAcquired    = errors.New("lock not acquired")
)

// Token verification failures. All of them surface to the HTTP layer as an
// *InvalidTokenError carrying one of these as its cause.
var (
	ErrMalformedToken    = errors.New("malformed token")
	ErrMissingKeyID      = fmt.Errorf("%w: header has no key id", ErrMalformedToken)
	ErrUnknownSigningKey = errors.New("unknown signing key")
	ErrSignatureInvalid  = errors.New("token signature is invalid")
	ErrIssuerMismatch    = errors.New("token issuer mismatch")
	ErrTokenExpired      = errors.New("token expired")
)

// Key cache failures. Callers treat both as ErrUnknownSigningKey.
var (
	ErrKeyNotFound    = errors.New("signing key not found")
	ErrKeyFetchFailed = errors.New("signing key set fetch failed")
)

// Settlement failures.
var (
	ErrSignatureVerificationFailed = errors.New("payment signature verification failed")
	ErrUnrecognizedPlan            = errors.New("unrecognized plan")
	ErrLedgerWrite                 = errors.New("ledger write failed")
	ErrOrderNotFound               = errors.New("payment order not found")
	ErrAlreadySettled              = errors.New("payment order already settled")
)

// InvalidTokenError is returned by token verification. Cause is one of the
// token sentinels above, possibly wrapping a lower-level error.
type InvalidTokenError struct {
	Cause error
}

func (e *InvalidTokenError) Error() string {
	if e.Cause == nil {
		return "invalid token"
	}
	return e.Cause.Error()
}

func (e *InvalidTokenError) Unwrap() error { return e.Cause }

// InvalidToken wraps cause into an *InvalidTokenError.
func InvalidToken(cause error) error {
	return &InvalidTokenError{Cause: cause}
}
