// File: internal/infra/db/memory/ledger.go
package memory

import (
	"context"
	"strings"
	"sync"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
)

var _ repository.CreditLedger = (*CreditLedger)(nil)

// balanceRow is guarded by its own mutex so different identities never contend.
type balanceRow struct {
	mu      sync.Mutex
	credits int
	plan    string
}

type CreditLedger struct {
	mu   sync.RWMutex
	rows map[string]*balanceRow
}

func NewCreditLedger() *CreditLedger {
	return &CreditLedger{rows: make(map[string]*balanceRow)}
}

func (l *CreditLedger) GetOrCreate(ctx context.Context, tx repository.Tx, clerkID string) (*model.CreditBalance, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(clerkID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	row := l.row(clerkID)
	row.mu.Lock()
	defer row.mu.Unlock()
	return &model.CreditBalance{ClerkID: clerkID, Credits: row.credits, Plan: row.plan}, nil
}

func (l *CreditLedger) AddCredits(ctx context.Context, tx repository.Tx, clerkID string, amount int, plan string) (*model.CreditBalance, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(clerkID) == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	row := l.row(clerkID)
	row.mu.Lock()
	prevPlan := row.plan
	row.credits += amount
	if plan != "" {
		row.plan = plan
	}
	out := &model.CreditBalance{ClerkID: clerkID, Credits: row.credits, Plan: row.plan}
	row.mu.Unlock()

	err := onRollback(tx, func() {
		row.mu.Lock()
		row.credits -= amount
		if row.plan == plan {
			row.plan = prevPlan
		}
		row.mu.Unlock()
	})
	return out, err
}

func (l *CreditLedger) row(clerkID string) *balanceRow {
	l.mu.RLock()
	row, ok := l.rows[clerkID]
	l.mu.RUnlock()
	if ok {
		return row
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok = l.rows[clerkID]; ok {
		return row
	}
	row = &balanceRow{credits: model.DefaultCredits, plan: model.DefaultPlan}
	l.rows[clerkID] = row
	return row
}
