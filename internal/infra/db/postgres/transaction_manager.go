package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/ports/repository"
)

var _ repository.TransactionManager = (*TxManager)(nil)

// TxManager implements repository.TransactionManager for Postgres (pgx).
// The tx handle reaches repositories as a pgx.Tx inside repository.Tx.
type TxManager struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (m *TxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	raw, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return err
	}
	tx := &pgTx{Tx: raw}
	defer func() { _ = raw.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := raw.Commit(ctx); err != nil {
		return err
	}
	tx.committed(context.WithoutCancel(ctx))
	return nil
}

// pgTx is the pgx.Tx handed to repositories, plus hooks run after commit.
type pgTx struct {
	pgx.Tx
	mu    sync.Mutex
	after []func(context.Context)
}

func (t *pgTx) committed(ctx context.Context) {
	t.mu.Lock()
	hooks := t.after
	t.after = nil
	t.mu.Unlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}

// afterCommit defers fn until tx commits. Outside a managed transaction fn runs now.
func afterCommit(ctx context.Context, tx repository.Tx, fn func(context.Context)) {
	if t, ok := tx.(*pgTx); ok {
		t.mu.Lock()
		t.after = append(t.after, fn)
		t.mu.Unlock()
		return
	}
	fn(ctx)
}

type executor interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func getExecutor(pool *pgxpool.Pool, tx repository.Tx) (executor, error) {
	switch v := tx.(type) {
	case pgx.Tx:
		return v, nil
	case *pgxpool.Conn:
		return v, nil
	case *pgxpool.Pool:
		return v, nil
	case nil:
		if pool != nil {
			return pool, nil
		}
		return nil, domain.ErrInvalidArgument
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

func execSQL(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q string, args ...interface{}) (pgconn.CommandTag, error) {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	return ex.Exec(ctx, q, args...)
}

func pickRow(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q string, args ...interface{}) (pgx.Row, error) {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	return ex.QueryRow(ctx, q, args...), nil
}

func queryRows(ctx context.Context, pool *pgxpool.Pool, tx repository.Tx, q string, args ...interface{}) (pgx.Rows, error) {
	ex, err := getExecutor(pool, tx)
	if err != nil {
		return nil, err
	}
	return ex.Query(ctx, q, args...)
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// opError keeps the exec-context sentinels and folds everything else into ErrOperationFailed.
func opError(err error) error {
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
		return err
	}
	return domain.ErrOperationFailed
}
