package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		ordersCreatedTotal,
		settlementTotal,
		creditsGrantedTotal,
		settlementDuration,
		ordersExpiredTotal,
	)
}

var (
	// result: ok|error|rate_limited
	ordersCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Payment orders opened with the gateway.",
		},
		[]string{"result"},
	)

	// outcome: success|failed|error|already_settled|not_found|fatal
	settlementTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_total",
			Help: "Payment verifications by final outcome.",
		},
		[]string{"outcome"},
	)

	creditsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Credits added to balances, labeled by plan id.",
		},
		[]string{"plan"},
	)

	// operation: create_order|verify_payment
	settlementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "Duration of settlement operations in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	ordersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_expired_total",
			Help: "Stale PENDING orders moved to FAILED by the expiry worker.",
		},
	)
)

func IncOrderCreated(result string) {
	ordersCreatedTotal.WithLabelValues(norm(result)).Inc()
}

func IncSettlement(outcome string) {
	settlementTotal.WithLabelValues(norm(outcome)).Inc()
}

func AddCreditsGranted(plan string, credits int) {
	creditsGrantedTotal.WithLabelValues(norm(plan)).Add(float64(credits))
}

// ObserveSettlement records the time since start for operation.
func ObserveSettlement(operation string, start time.Time) {
	settlementDuration.WithLabelValues(norm(operation)).Observe(time.Since(start).Seconds())
}

func AddOrdersExpired(n int) {
	ordersExpiredTotal.Add(float64(n))
}
