package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
)

var _ repository.CreditLedger = (*creditLedgerRepo)(nil)

type creditLedgerRepo struct{ pool *pgxpool.Pool }

func NewCreditLedgerRepo(pool *pgxpool.Pool) *creditLedgerRepo {
	return &creditLedgerRepo{pool: pool}
}

func (r *creditLedgerRepo) GetOrCreate(ctx context.Context, tx repository.Tx, clerkID string) (*model.CreditBalance, error) {
	if strings.TrimSpace(clerkID) == "" {
		return nil, domain.ErrInvalidArgument
	}
	const ins = `INSERT INTO user_credits (clerk_id, credits, plan) VALUES ($1, $2, $3) ON CONFLICT (clerk_id) DO NOTHING;`
	if _, err := execSQL(ctx, r.pool, tx, ins, clerkID, model.DefaultCredits, model.DefaultPlan); err != nil {
		return nil, opError(err)
	}

	row, err := pickRow(ctx, r.pool, tx, `SELECT credits, plan FROM user_credits WHERE clerk_id=$1;`, clerkID)
	if err != nil {
		return nil, err
	}
	b := &model.CreditBalance{ClerkID: clerkID}
	if err := row.Scan(&b.Credits, &b.Plan); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return b, nil
}

// AddCredits is a single upsert, so concurrent grants for one clerk id
// serialize on the row lock and never lose an update.
func (r *creditLedgerRepo) AddCredits(ctx context.Context, tx repository.Tx, clerkID string, amount int, plan string) (*model.CreditBalance, error) {
	if strings.TrimSpace(clerkID) == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO user_credits (clerk_id, credits, plan)
VALUES ($1, $2::int + $3::int, COALESCE(NULLIF($4::text, ''), $5::text))
ON CONFLICT (clerk_id) DO UPDATE
   SET credits = user_credits.credits + $3::int,
       plan = COALESCE(NULLIF($4::text, ''), user_credits.plan),
       updated_at = NOW()
RETURNING credits, plan;`

	row, err := pickRow(ctx, r.pool, tx, q, clerkID, model.DefaultCredits, amount, plan, model.DefaultPlan)
	if err != nil {
		return nil, err
	}
	b := &model.CreditBalance{ClerkID: clerkID}
	if err := row.Scan(&b.Credits, &b.Plan); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return b, nil
}
