package usecase

import (
	"context"
	"strings"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
	"cloudshare/internal/infra/logging"

	"github.com/rs/zerolog"
)

var _ LedgerUseCase = (*ledgerUC)(nil)

type LedgerUseCase interface {
	// GetBalance returns the caller's balance, creating the default one on first use.
	GetBalance(ctx context.Context, clerkID string) (*model.CreditBalance, error)
}

type ledgerUC struct {
	ledger repository.CreditLedger
	log    *zerolog.Logger
}

func NewLedgerUseCase(ledger repository.CreditLedger, logger *zerolog.Logger) *ledgerUC {
	return &ledgerUC{ledger: ledger, log: logger}
}

func (u *ledgerUC) GetBalance(ctx context.Context, clerkID string) (*model.CreditBalance, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.GetBalance")()
	if strings.TrimSpace(clerkID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.ledger.GetOrCreate(ctx, nil, clerkID)
}
