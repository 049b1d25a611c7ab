package repository

import (
	"context"

	"cloudshare/internal/domain/model"
)

// -----------------------------
// Credit ledger
// -----------------------------

// CreditLedger stores one balance per external identity. AddCredits must be
// atomic per clerk id; updates for different ids must not serialize.
type CreditLedger interface {
	// GetOrCreate returns the balance, creating the default one when absent.
	GetOrCreate(ctx context.Context, tx Tx, clerkID string) (*model.CreditBalance, error)
	// AddCredits adds amount (> 0) and sets plan, creating the default balance first if needed.
	AddCredits(ctx context.Context, tx Tx, clerkID string, amount int, plan string) (*model.CreditBalance, error)
}
