package repository

import "context"

// Tx is an opaque transaction handle. Its concrete type is infra-defined
// (pgx.Tx for Postgres, an undo log for the memory store). Repositories MUST
// accept a nil Tx and fall back to their non-transactional path.
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside a transaction and passes the handle via tx.
// fn returning an error rolls the transaction back; nil commits it.
//
//	tm.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
//		ok, err := orders.TransitionIfPending(ctx, tx, id, t)
//		...
//		_, err = ledger.AddCredits(ctx, tx, clerkID, n, plan)
//		return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
