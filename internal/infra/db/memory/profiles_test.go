package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepo_Lifecycle(t *testing.T) {
	r := NewProfileRepo()
	ctx := context.Background()
	p, err := model.NewProfile("user_1", "a@example.com", "Ada", "Lovelace", "")
	require.NoError(t, err)

	require.NoError(t, r.Create(ctx, nil, p))
	assert.ErrorIs(t, r.Create(ctx, nil, p), domain.ErrAlreadyExists)

	upd := *p
	upd.Email = "ada@example.com"
	upd.CreatedAt = time.Time{}
	require.NoError(t, r.Update(ctx, nil, &upd))

	got, err := r.FindByClerkID(ctx, nil, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, p.CreatedAt, got.CreatedAt)
	assert.Equal(t, "Ada Lovelace", got.FullName())

	require.NoError(t, r.Delete(ctx, nil, "user_1"))
	require.NoError(t, r.Delete(ctx, nil, "user_1"))
	_, err = r.FindByClerkID(ctx, nil, "user_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, r.Update(ctx, nil, &upd), domain.ErrNotFound)
}

func TestProfileRepo_RollbackCreate(t *testing.T) {
	r := NewProfileRepo()
	tm := NewTxManager()
	p, err := model.NewProfile("user_1", "", "", "", "")
	require.NoError(t, err)

	err = tm.WithTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, r.Create(ctx, tx, p))
		return errors.New("abort")
	})
	require.Error(t, err)

	_, err = r.FindByClerkID(context.Background(), nil, "user_1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
