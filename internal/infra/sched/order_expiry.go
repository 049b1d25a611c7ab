package sched

import (
	"context"
	"time"

	"cloudshare/internal/domain/model"
	"cloudshare/internal/domain/ports/repository"
	"cloudshare/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const expiryBatch = 200

// OrderExpiryWorker fails PENDING orders that were never verified.
type OrderExpiryWorker struct {
	orders   repository.PaymentOrderRepository
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
	log      *zerolog.Logger
}

// NewOrderExpiryWorker returns a worker that scans every interval. A zero ttl
// disables it.
func NewOrderExpiryWorker(orders repository.PaymentOrderRepository, interval, ttl time.Duration, logger *zerolog.Logger) *OrderExpiryWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	l := logger.With().Str("component", "OrderExpiryWorker").Logger()
	return &OrderExpiryWorker{orders: orders, interval: interval, ttl: ttl, now: time.Now, log: &l}
}

func (w *OrderExpiryWorker) Start(ctx context.Context) {
	if w.ttl <= 0 {
		w.log.Info().Msg("order expiry disabled")
		return
	}
	w.log.Info().Dur("ttl", w.ttl).Dur("interval", w.interval).Msg("starting order expiry worker")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping order expiry worker")
			return
		case <-t.C:
			if _, err := w.Tick(ctx); err != nil {
				w.log.Error().Err(err).Msg("order expiry scan failed")
			}
		}
	}
}

// Tick expires one batch and reports how many orders moved to FAILED.
// An order settled between the scan and the write is skipped.
func (w *OrderExpiryWorker) Tick(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.ttl)
	stale, err := w.orders.ListPendingOlderThan(ctx, nil, cutoff, expiryBatch)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, o := range stale {
		moved, err := w.orders.TransitionIfPending(ctx, nil, o.OrderID, model.Transition{Status: model.PaymentStatusFailed})
		if err != nil {
			w.log.Warn().Err(err).Str("order_id", o.OrderID).Msg("expire order failed")
			continue
		}
		if moved {
			expired++
		}
	}
	if expired > 0 {
		metrics.AddOrdersExpired(expired)
		w.log.Info().Int("count", expired).Msg("stale orders expired")
	}
	return expired, nil
}
