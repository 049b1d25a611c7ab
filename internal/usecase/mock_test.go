//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/adapter"
	"cloudshare/internal/domain/ports/repository"
	"cloudshare/internal/infra/db/memory"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu       sync.Mutex
	seq      int
	Receipts []string

	CreateOrderFunc func(ctx context.Context, amount int64, currency, receipt string) (string, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	m.mu.Lock()
	m.Receipts = append(m.Receipts, receipt)
	m.seq++
	n := m.seq
	m.mu.Unlock()
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, amount, currency, receipt)
	}
	return fmt.Sprintf("order_mock_%d", n), nil
}

// ---- Mock PaymentOrderRepository ----

// MockOrderRepo delegates to the memory store unless a func field is set.
type MockOrderRepo struct {
	*memory.OrderRepo

	TransitionIfPendingFunc func(ctx context.Context, tx repository.Tx, orderID string, t model.Transition) (bool, error)
}

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{OrderRepo: memory.NewOrderRepo()}
}

func (m *MockOrderRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, orderID string, t model.Transition) (bool, error) {
	if m.TransitionIfPendingFunc != nil {
		return m.TransitionIfPendingFunc(ctx, tx, orderID, t)
	}
	return m.OrderRepo.TransitionIfPending(ctx, tx, orderID, t)
}

// ---- Mock CreditLedger ----

type MockLedger struct {
	*memory.CreditLedger

	AddCreditsFunc func(ctx context.Context, tx repository.Tx, clerkID string, amount int, plan string) (*model.CreditBalance, error)
}

func NewMockLedger() *MockLedger {
	return &MockLedger{CreditLedger: memory.NewCreditLedger()}
}

func (m *MockLedger) AddCredits(ctx context.Context, tx repository.Tx, clerkID string, amount int, plan string) (*model.CreditBalance, error) {
	if m.AddCreditsFunc != nil {
		return m.AddCreditsFunc(ctx, tx, clerkID, amount, plan)
	}
	return m.CreditLedger.AddCredits(ctx, tx, clerkID, amount, plan)
}

// ---- Mock ProfileRepository ----

type MockProfileRepo struct {
	*memory.ProfileRepo

	FindByClerkIDFunc func(ctx context.Context, tx repository.Tx, clerkID string) (*model.Profile, error)
}

func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{ProfileRepo: memory.NewProfileRepo()}
}

func (m *MockProfileRepo) FindByClerkID(ctx context.Context, tx repository.Tx, clerkID string) (*model.Profile, error) {
	if m.FindByClerkIDFunc != nil {
		return m.FindByClerkIDFunc(ctx, tx, clerkID)
	}
	return m.ProfileRepo.FindByClerkID(ctx, tx, clerkID)
}

// ---- Mock RateLimiter ----

type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ adapter.RateLimiter = (*MockRateLimiter)(nil)

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return m.AllowFunc(ctx, key, limit, window)
}
