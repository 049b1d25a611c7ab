// File: internal/infra/db/memory/profiles.go
package memory

import (
	"context"
	"sync"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
)

var _ repository.ProfileRepository = (*ProfileRepo)(nil)

type ProfileRepo struct {
	mu       sync.RWMutex
	profiles map[string]model.Profile
}

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{profiles: make(map[string]model.Profile)}
}

func (r *ProfileRepo) Create(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ClerkID]; ok {
		return domain.ErrAlreadyExists
	}
	r.profiles[p.ClerkID] = *p
	return onRollback(tx, func() { r.restore(p.ClerkID, nil) })
}

func (r *ProfileRepo) Update(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.profiles[p.ClerkID]
	if !ok {
		return domain.ErrNotFound
	}
	next := *p
	next.CreatedAt = prev.CreatedAt
	r.profiles[p.ClerkID] = next
	return onRollback(tx, func() { r.restore(p.ClerkID, &prev) })
}

func (r *ProfileRepo) Delete(ctx context.Context, tx repository.Tx, clerkID string) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.profiles[clerkID]
	if !ok {
		return nil
	}
	delete(r.profiles, clerkID)
	return onRollback(tx, func() { r.restore(clerkID, &prev) })
}

func (r *ProfileRepo) FindByClerkID(ctx context.Context, tx repository.Tx, clerkID string) (*model.Profile, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[clerkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *ProfileRepo) restore(clerkID string, p *model.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		delete(r.profiles, clerkID)
		return
	}
	r.profiles[clerkID] = *p
}
