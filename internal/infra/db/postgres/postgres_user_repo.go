package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct{ pool *pgxpool.Pool }

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) Create(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	const q = `
INSERT INTO profiles (clerk_id, email, first_name, last_name, photo_url, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := execSQL(ctx, r.pool, tx, q, p.ClerkID, p.Email, p.FirstName, p.LastName, p.PhotoURL, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return opError(err)
	}
	return nil
}

func (r *profileRepo) Update(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	const q = `UPDATE profiles SET email=$2, first_name=$3, last_name=$4, photo_url=$5 WHERE clerk_id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, p.ClerkID, p.Email, p.FirstName, p.LastName, p.PhotoURL)
	if err != nil {
		return opError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *profileRepo) Delete(ctx context.Context, tx repository.Tx, clerkID string) error {
	if _, err := execSQL(ctx, r.pool, tx, `DELETE FROM profiles WHERE clerk_id=$1;`, clerkID); err != nil {
		return opError(err)
	}
	return nil
}

func (r *profileRepo) FindByClerkID(ctx context.Context, tx repository.Tx, clerkID string) (*model.Profile, error) {
	const q = `SELECT clerk_id, email, first_name, last_name, photo_url, created_at FROM profiles WHERE clerk_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, clerkID)
	if err != nil {
		return nil, err
	}
	p := &model.Profile{}
	if err := row.Scan(&p.ClerkID, &p.Email, &p.FirstName, &p.LastName, &p.PhotoURL, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
