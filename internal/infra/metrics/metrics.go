// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		notificationsTotal,
		notificationQueueDropped,
	)
}

var (
	// status: sent|error|skipped
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "E-mail notifications by kind and delivery status.",
		},
		[]string{"kind", "status"},
	)

	notificationQueueDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_queue_dropped_total",
			Help: "Notifications dropped because the dispatch queue was full.",
		},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Notification helpers --------

func IncNotification(kind, status string) {
	notificationsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncNotificationDropped() { notificationQueueDropped.Inc() }
