package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jwksCacheRequests,
		jwksFetchTotal,
		authRequestsTotal,
	)
}

var (
	// result: hit|miss|stale
	jwksCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jwks_cache_requests_total",
			Help: "Signing key lookups against the local key cache.",
		},
		[]string{"result"},
	)

	// result: ok|error|coalesced|throttled
	jwksFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jwks_fetch_total",
			Help: "Remote key set fetches by result.",
		},
		[]string{"result"},
	)

	// result: allowed|rejected|exempt, reason is bounded to the token error classes.
	authRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Requests seen by the authentication gate.",
		},
		[]string{"result", "reason"},
	)
)

func IncKeyCache(result string) {
	jwksCacheRequests.WithLabelValues(norm(result)).Inc()
}

func IncKeyFetch(result string) {
	jwksFetchTotal.WithLabelValues(norm(result)).Inc()
}

func IncAuthRequest(result, reason string) {
	authRequestsTotal.WithLabelValues(norm(result), norm(reason)).Inc()
}
