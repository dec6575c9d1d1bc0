// Package metrics provides Prometheus metrics for the auth pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for metrics.
const (
	ResultHit           = "hit"
	ResultMiss          = "miss"
	ResultAuthenticated = "authenticated"
	ResultAnonymous     = "anonymous"
	ResultUnavailable   = "unavailable"
)

// Registry holds every metric of the service.
var Registry = prometheus.NewRegistry()

var (
	// AuthenticationsTotal counts pipeline outcomes; rejections are labeled
	// with their error kind.
	AuthenticationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionauth",
			Subsystem: "auth",
			Name:      "authentications_total",
			Help:      "Total number of bearer authentications by result",
		},
		[]string{"result"},
	)

	// TokensIssuedTotal counts signed tokens by kind.
	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionauth",
			Subsystem: "token",
			Name:      "issued_total",
			Help:      "Total number of issued tokens by kind",
		},
		[]string{"kind"},
	)

	// RevocationsTotal counts revocation records written.
	RevocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionauth",
			Subsystem: "token",
			Name:      "revocations_total",
			Help:      "Total number of revocations by scope (subject or token)",
		},
		[]string{"scope"},
	)

	// UserCacheLookupsTotal counts user cache reads per resolver prefix.
	UserCacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionauth",
			Subsystem: "user_cache",
			Name:      "lookups_total",
			Help:      "Total number of user cache lookups by result",
		},
		[]string{"prefix", "result"},
	)

	// UserCacheEvictionsTotal counts evictions triggered by user writes.
	UserCacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionauth",
			Subsystem: "user_cache",
			Name:      "evictions_total",
			Help:      "Total number of user cache evictions",
		},
		[]string{"prefix"},
	)
)

func init() {
	Registry.MustRegister(
		AuthenticationsTotal,
		TokensIssuedTotal,
		RevocationsTotal,
		UserCacheLookupsTotal,
		UserCacheEvictionsTotal,
	)
}

// RecordAuthentication increments the authentication counter.
func RecordAuthentication(result string) {
	AuthenticationsTotal.WithLabelValues(result).Inc()
}

// RecordTokenIssued increments the issued token counter.
func RecordTokenIssued(kind string) {
	TokensIssuedTotal.WithLabelValues(kind).Inc()
}

// RecordRevocation increments the revocation counter.
func RecordRevocation(scope string) {
	RevocationsTotal.WithLabelValues(scope).Inc()
}

// RecordCacheLookup increments the cache lookup counter.
func RecordCacheLookup(prefix string, hit bool) {
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	UserCacheLookupsTotal.WithLabelValues(prefix, result).Inc()
}

// RecordEviction increments the eviction counter.
func RecordEviction(prefix string) {
	UserCacheEvictionsTotal.WithLabelValues(prefix).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
