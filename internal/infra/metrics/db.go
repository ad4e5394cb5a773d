package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		dbPoolStats,
		storeOpDuration,
		storeVersionConflicts,
	)
}

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "Current state of the database connection pool.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use'
	)

	storeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "document_store_op_duration_seconds",
			Help:    "Document store call latency by collection, op and result.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"collection", "op", "result"},
	)

	storeVersionConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_store_version_conflicts_total",
			Help: "Conditional writes rejected because the document changed underneath.",
		},
		[]string{"collection"},
	)
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func ObserveStoreOp(collection, op, result string, d time.Duration) {
	storeOpDuration.WithLabelValues(norm(collection), norm(op), norm(result)).Observe(d.Seconds())
}

func IncVersionConflict(collection string) {
	storeVersionConflicts.WithLabelValues(norm(collection)).Inc()
}
