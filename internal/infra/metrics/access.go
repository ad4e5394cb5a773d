package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(accessGrantsTotal) }

var accessGrantsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_grants_total",
		Help: "Access grant attempts by kind (resource|item) and result (granted|already|not_found|error).",
	},
	[]string{"kind", "result"},
)

func IncAccessGrant(kind, result string) {
	accessGrantsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}
