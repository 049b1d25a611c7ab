// File: internal/infra/adapters/payment/razorpay_gateway.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"cloudshare/internal/config"
	"cloudshare/internal/domain/ports/adapter"

	razorpay "github.com/razorpay/razorpay-go"
)

var _ adapter.PaymentGateway = (*RazorpayGateway)(nil)

const defaultRazorpayURL = "https://api.razorpay.com"

// razorpay.NewClient writes a package-level request; construction is serialized.
var clientMu sync.Mutex

// RazorpayGateway mints orders through the Razorpay Orders API.
type RazorpayGateway struct {
	keyID     string
	keySecret string
	endpoint  *url.URL // nil keeps the SDK's default host
	timeout   time.Duration
	transport http.RoundTripper
}

func NewRazorpayGateway(cfg config.RazorpayConfig) (*RazorpayGateway, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	g := &RazorpayGateway{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		timeout:   timeout,
		transport: http.DefaultTransport,
	}
	if base := strings.TrimRight(cfg.BaseURL, "/"); base != "" && base != defaultRazorpayURL {
		u, err := url.Parse(base)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("razorpay base url %q is invalid", cfg.BaseURL)
		}
		g.endpoint = u
	}
	return g, nil
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

// CreateOrder creates a gateway order and returns its id.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error) {
	client := g.client(ctx)
	out, err := client.Order.Create(map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("razorpay create order: %w", ctx.Err())
		}
		return "", fmt.Errorf("razorpay create order: %w", err)
	}
	id, _ := out["id"].(string)
	if id == "" {
		return "", errors.New("razorpay create order: empty order id")
	}
	return id, nil
}

// client builds an SDK client whose requests carry ctx and go to endpoint.
func (g *RazorpayGateway) client(ctx context.Context) *razorpay.Client {
	clientMu.Lock()
	c := razorpay.NewClient(g.keyID, g.keySecret)
	clientMu.Unlock()
	c.Order.Request.HTTPClient = &http.Client{
		Timeout:   g.timeout,
		Transport: &callTransport{ctx: ctx, endpoint: g.endpoint, next: g.transport},
	}
	return c
}

// callTransport attaches the caller's context to SDK requests, which the SDK
// does not accept itself, and redirects them when an endpoint is configured.
type callTransport struct {
	ctx      context.Context
	endpoint *url.URL
	next     http.RoundTripper
}

func (t *callTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(t.ctx)
	if t.endpoint != nil {
		r.URL.Scheme = t.endpoint.Scheme
		r.URL.Host = t.endpoint.Host
		r.URL.Path = strings.TrimRight(t.endpoint.Path, "/") + r.URL.Path
		r.Host = t.endpoint.Host
	}
	return t.next.RoundTrip(r)
}
