package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloudshare/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, h http.HandlerFunc) *RazorpayGateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	g, err := NewRazorpayGateway(config.RazorpayConfig{
		KeyID: "rzp_test_key", KeySecret: "secret", BaseURL: srv.URL + "/", Timeout: time.Second,
	})
	require.NoError(t, err)
	return g
}

func TestRazorpayGateway_CreateOrder(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(49900), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "order_rcpt", body.Receipt)

		_, _ = w.Write([]byte(`{"id":"order_Abc123","entity":"order","status":"created"}`))
	})

	id, err := g.CreateOrder(context.Background(), 49900, "INR", "order_rcpt")
	require.NoError(t, err)
	assert.Equal(t, "order_Abc123", id)
	assert.Equal(t, "razorpay", g.Name())
}

func TestRazorpayGateway_Errors(t *testing.T) {
	t.Run("gateway rejects", func(t *testing.T) {
		g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
		})
		_, err := g.CreateOrder(context.Background(), 1, "INR", "r")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "amount too small")
	})

	t.Run("missing id", func(t *testing.T) {
		g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"created"}`))
		})
		_, err := g.CreateOrder(context.Background(), 100, "INR", "r")
		assert.Error(t, err)
	})

	t.Run("timeout", func(t *testing.T) {
		g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(3 * time.Second):
			case <-r.Context().Done():
			}
		})
		_, err := g.CreateOrder(context.Background(), 100, "INR", "r")
		assert.Error(t, err)
	})
}

func TestRazorpayGateway_HonoursContext(t *testing.T) {
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.CreateOrder(ctx, 100, "INR", "r")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestRazorpayGateway_ConcurrentOrders(t *testing.T) {
	var seen atomic.Int32
	g := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		n := seen.Add(1)
		_, _ = fmt.Fprintf(w, `{"id":"order_%d"}`, n)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.CreateOrder(context.Background(), 100, "INR", "r")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 8, seen.Load())
}

func TestNewRazorpayGateway_RequiresCredentials(t *testing.T) {
	_, err := NewRazorpayGateway(config.RazorpayConfig{KeyID: "k"})
	assert.Error(t, err)
	_, err = NewRazorpayGateway(config.RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestNoopPaymentGateway(t *testing.T) {
	g := NewNoopPaymentGateway()
	a, err := g.CreateOrder(context.Background(), 100, "INR", "r1")
	require.NoError(t, err)
	b, err := g.CreateOrder(context.Background(), 100, "INR", "r2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	r, ok := g.Receipt(b)
	assert.True(t, ok)
	assert.Equal(t, "r2", r)

	_, err = g.CreateOrder(context.Background(), 0, "INR", "r3")
	assert.Error(t, err)
}
