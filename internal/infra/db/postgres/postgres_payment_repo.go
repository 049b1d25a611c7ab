package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
)

var _ repository.PaymentOrderRepository = (*paymentOrderRepo)(nil)

type paymentOrderRepo struct{ pool *pgxpool.Pool }

func NewPaymentOrderRepo(pool *pgxpool.Pool) *paymentOrderRepo {
	return &paymentOrderRepo{pool: pool}
}

const orderColumns = `order_id, clerk_id, plan_id, amount, currency, status, payment_id, credits_added, transaction_date, user_email, user_name`

func (r *paymentOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.PaymentOrder) error {
	const q = `
INSERT INTO payment_orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := execSQL(ctx, r.pool, tx, q,
		o.OrderID, o.ClerkID, o.PlanID, o.Amount, o.Currency, string(o.Status),
		o.PaymentID, o.CreditsAdded, o.TransactionDate, o.UserEmail, o.UserName)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return opError(err)
	}
	return nil
}

func (r *paymentOrderRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.PaymentOrder, error) {
	q := `SELECT ` + orderColumns + ` FROM payment_orders WHERE order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

// TransitionIfPending is a compare-and-set on status='PENDING'.
func (r *paymentOrderRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, orderID string, t model.Transition) (bool, error) {
	const q = `
UPDATE payment_orders
   SET status = $2,
       payment_id = COALESCE($3, payment_id),
       credits_added = COALESCE($4, credits_added),
       updated_at = NOW()
 WHERE order_id = $1
   AND status = 'PENDING';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, string(t.Status), t.PaymentID, t.CreditsAdded)
	if err != nil {
		return false, opError(err)
	}
	if cmd.RowsAffected() >= 1 {
		return true, nil
	}

	// nothing updated: either terminal or missing
	row, err := pickRow(ctx, r.pool, tx, `SELECT 1 FROM payment_orders WHERE order_id=$1;`, orderID)
	if err != nil {
		return false, err
	}
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrOrderNotFound
		}
		return false, domain.ErrReadDatabaseRow
	}
	return false, nil
}

func (r *paymentOrderRepo) ListByClerkAndStatus(ctx context.Context, tx repository.Tx, clerkID string, status model.PaymentStatus) ([]*model.PaymentOrder, error) {
	const q = `SELECT ` + orderColumns + ` FROM payment_orders WHERE clerk_id=$1 AND status=$2 ORDER BY transaction_date DESC;`
	return r.list(ctx, tx, q, clerkID, string(status))
}

func (r *paymentOrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + orderColumns + ` FROM payment_orders WHERE status='PENDING' AND transaction_date < $1 ORDER BY transaction_date ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *paymentOrderRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PaymentOrder, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, opError(err)
	}
	defer rows.Close()

	var out []*model.PaymentOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*model.PaymentOrder, error) {
	o := &model.PaymentOrder{}
	var status string
	if err := row.Scan(&o.OrderID, &o.ClerkID, &o.PlanID, &o.Amount, &o.Currency, &status,
		&o.PaymentID, &o.CreditsAdded, &o.TransactionDate, &o.UserEmail, &o.UserName); err != nil {
		return nil, err
	}
	o.Status = model.PaymentStatus(status)
	return o, nil
}
