package auth

import (
	"context"

	"cloudshare/internal/domain/model"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity the gate stored for this request.
func IdentityFrom(ctx context.Context) (*model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*model.Identity)
	return id, ok && id != nil
}
