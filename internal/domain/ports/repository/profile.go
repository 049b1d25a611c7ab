package repository

import (
	"context"

	"cloudshare/internal/domain/model"
)

// -----------------------------
// Profiles
// -----------------------------

type ProfileRepository interface {
	// Create yields domain.ErrAlreadyExists for a known clerk id.
	Create(ctx context.Context, tx Tx, p *model.Profile) error
	// Update yields domain.ErrNotFound when the profile does not exist.
	Update(ctx context.Context, tx Tx, p *model.Profile) error
	Delete(ctx context.Context, tx Tx, clerkID string) error
	FindByClerkID(ctx context.Context, tx Tx, clerkID string) (*model.Profile, error)
}
