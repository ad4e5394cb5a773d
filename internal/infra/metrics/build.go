package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo)
}

var buildInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "build_info",
		Help: "A constant metric with labels for version, commit and store driver.",
	},
	[]string{"version", "commit", "store"},
)

func SetBuildInfo(version, commit, store string) {
	buildInfo.WithLabelValues(version, commit, norm(store)).Set(1)
}
