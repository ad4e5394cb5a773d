package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		authAttemptsTotal,
		rateLimitTriggeredTotal,
	)
}

var (
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authenticated surface checks by surface (cron|operator) and status (authorized|unauthorized).",
		},
		[]string{"surface", "status"},
	)

	rateLimitTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_triggered_total",
			Help: "Requests rejected by the per-user rate limiter.",
		},
		[]string{"action"},
	)
)

func IncAuthAttempt(surface, status string) {
	authAttemptsTotal.WithLabelValues(norm(surface), norm(status)).Inc()
}

func IncRateLimited(action string) {
	rateLimitTriggeredTotal.WithLabelValues(norm(action)).Inc()
}
