package repository

import (
	"context"
	"time"

	"cloudshare/internal/domain/model"
)

// -----------------------------
// Payment orders
// -----------------------------

type PaymentOrderRepository interface {
	// Save inserts a new order; a duplicate order id yields domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, o *model.PaymentOrder) error
	// FindByOrderID returns domain.ErrOrderNotFound when no order matches.
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.PaymentOrder, error)
	// TransitionIfPending atomically applies t only while the order is PENDING.
	// It reports false when the order exists but is already terminal and
	// returns domain.ErrOrderNotFound when no order matches.
	TransitionIfPending(ctx context.Context, tx Tx, orderID string, t model.Transition) (bool, error)
	// ListByClerkAndStatus returns matching orders, newest first.
	ListByClerkAndStatus(ctx context.Context, tx Tx, clerkID string, status model.PaymentStatus) ([]*model.PaymentOrder, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentOrder, error)
}
