package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(pgPoolConns, pgPoolEmptyAcquires) }

var (
	pgPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "postgres_pool_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // total, idle, acquired, max
	)

	pgPoolEmptyAcquires = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "postgres_pool_empty_acquires",
			Help: "Cumulative acquires that had to wait for a connection (pool exhausted).",
		},
	)
)

// PoolStats is a snapshot of the pgx pool counters.
type PoolStats struct {
	Total, Idle, Acquired, Max int32
	EmptyAcquires              int64
}

func SetDBPoolStats(s PoolStats) {
	pgPoolConns.WithLabelValues("total").Set(float64(s.Total))
	pgPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	pgPoolConns.WithLabelValues("acquired").Set(float64(s.Acquired))
	pgPoolConns.WithLabelValues("max").Set(float64(s.Max))
	pgPoolEmptyAcquires.Set(float64(s.EmptyAcquires))
}
