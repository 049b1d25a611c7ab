package payment

import (
	"context"
	"fmt"
	"sync"

	"cloudshare/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway mints sequential order ids in memory. Used in dev mode and tests.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	receipts map[string]string // order id -> receipt
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{receipts: make(map[string]string)}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("noop: amount must be positive, got %d", amount)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("order_noop_%d", g.seq)
	g.receipts[id] = receipt
	return id, nil
}

// Receipt returns the receipt an order was created with.
func (g *NoopPaymentGateway) Receipt(orderID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.receipts[orderID]
	return r, ok
}
