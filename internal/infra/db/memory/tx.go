// File: internal/infra/db/memory/tx.go
package memory

import (
	"context"
	"sync"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*TxManager)(nil)

// undoTx collects compensating actions; rollback runs them newest first.
// Writes are visible to other callers before commit.
type undoTx struct {
	mu   sync.Mutex
	undo []func()
}

func (t *undoTx) record(fn func()) {
	t.mu.Lock()
	t.undo = append(t.undo, fn)
	t.mu.Unlock()
}

func (t *undoTx) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// TxManager is the in-memory repository.TransactionManager.
type TxManager struct{}

func NewTxManager() *TxManager { return &TxManager{} }

func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &undoTx{}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// onRollback registers fn with tx. A nil tx means autocommit.
func onRollback(tx repository.Tx, fn func()) error {
	switch v := tx.(type) {
	case nil:
		return nil
	case *undoTx:
		v.record(fn)
		return nil
	default:
		return domain.ErrInvalidExecContext
	}
}

func checkTx(tx repository.Tx) error {
	switch tx.(type) {
	case nil, *undoTx:
		return nil
	default:
		return domain.ErrInvalidExecContext
	}
}
