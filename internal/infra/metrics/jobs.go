package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		reminderSendsTotal,
		reminderSweepsTotal,
		stalePendingTransactions,
	)
}

var (
	reminderSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_sends_total",
			Help: "Reminder e-mails by window and status (sent|error|skipped).",
		},
		[]string{"window", "status"},
	)

	reminderSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_sweeps_total",
			Help: "Reminder sweep runs by result (completed|interrupted|locked|failed).",
		},
		[]string{"result"},
	)

	stalePendingTransactions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_stale_pending_transactions",
			Help: "Pending transactions older than the audit threshold at the last audit.",
		},
	)
)

func IncReminderSend(window, status string) {
	reminderSendsTotal.WithLabelValues(norm(window), norm(status)).Inc()
}

func IncReminderSweep(result string) {
	reminderSweepsTotal.WithLabelValues(norm(result)).Inc()
}

func SetStalePending(n int) { stalePendingTransactions.Set(float64(n)) }
