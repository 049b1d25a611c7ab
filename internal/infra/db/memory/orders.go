// File: internal/infra/db/memory/orders.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloudshare/internal/domain"
	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
)

var _ repository.PaymentOrderRepository = (*OrderRepo)(nil)

type OrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*model.PaymentOrder
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{orders: make(map[string]*model.PaymentOrder)}
}

func (r *OrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.PaymentOrder) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.OrderID]; ok {
		return domain.ErrAlreadyExists
	}
	r.orders[o.OrderID] = cloneOrder(o)
	return onRollback(tx, func() {
		r.mu.Lock()
		delete(r.orders, o.OrderID)
		r.mu.Unlock()
	})
}

func (r *OrderRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.PaymentOrder, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, orderID string, t model.Transition) (bool, error) {
	if err := checkTx(tx); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return false, domain.ErrOrderNotFound
	}
	if o.Status != model.PaymentStatusPending {
		return false, nil
	}
	prev := cloneOrder(o)
	o.Status = t.Status
	if t.PaymentID != nil {
		o.PaymentID = strPtr(*t.PaymentID)
	}
	if t.CreditsAdded != nil {
		o.CreditsAdded = intPtr(*t.CreditsAdded)
	}
	return true, onRollback(tx, func() {
		r.mu.Lock()
		if cur, ok := r.orders[orderID]; ok && cur.Status == t.Status {
			r.orders[orderID] = prev
		}
		r.mu.Unlock()
	})
}

func (r *OrderRepo) ListByClerkAndStatus(ctx context.Context, tx repository.Tx, clerkID string, status model.PaymentStatus) ([]*model.PaymentOrder, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	out := r.filter(func(o *model.PaymentOrder) bool {
		return o.ClerkID == clerkID && o.Status == status
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionDate.After(out[j].TransactionDate)
	})
	return out, nil
}

func (r *OrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentOrder, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	out := r.filter(func(o *model.PaymentOrder) bool {
		return o.Status == model.PaymentStatusPending && o.TransactionDate.Before(olderThan)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TransactionDate.Before(out[j].TransactionDate)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OrderRepo) filter(keep func(*model.PaymentOrder) bool) []*model.PaymentOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.PaymentOrder
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	return out
}

func cloneOrder(o *model.PaymentOrder) *model.PaymentOrder {
	c := *o
	if o.PaymentID != nil {
		c.PaymentID = strPtr(*o.PaymentID)
	}
	if o.CreditsAdded != nil {
		c.CreditsAdded = intPtr(*o.CreditsAdded)
	}
	return &c
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
