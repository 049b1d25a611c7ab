package adapter

import "context"

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string
	// CreateOrder mints a provider order for amount (minor units) and returns its id.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (orderID string, err error)
}
