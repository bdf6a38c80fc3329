package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(repoCacheRequestsTotal, repoCacheInvalidationsTotal) }

var (
	repoCacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repo_cache_requests_total",
			Help: "Redis-backed repository cache lookups by cache and result (hit, miss, error).",
		},
		[]string{"cache", "result"},
	)

	repoCacheInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repo_cache_invalidations_total",
			Help: "Cache invalidations after writes, by cache and outcome.",
		},
		[]string{"cache", "outcome"}, // ok, error
	)
)

func IncCacheRequest(cache, result string) {
	repoCacheRequestsTotal.WithLabelValues(norm(cache), norm(result)).Inc()
}

func IncCacheInvalidation(cache string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	repoCacheInvalidationsTotal.WithLabelValues(norm(cache), outcome).Inc()
}
