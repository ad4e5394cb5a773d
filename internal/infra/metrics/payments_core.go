package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		grantedButPendingTotal,
		ledgerWritesTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Reconciled payments by status and method.",
		},
		[]string{"status", "method"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	grantedButPendingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_granted_but_pending_total",
			Help: "Access granted but the ledger could not be marked success.",
		},
	)

	// op: record|update_status|set_contact; result: ok|skipped|conflict_retry|error
	ledgerWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_writes_total",
			Help: "Ledger read-modify-write attempts by operation and result.",
		},
		[]string{"op", "result"},
	)
)

func IncPayment(status, method string) {
	paymentsTotal.WithLabelValues(norm(status), norm(method)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	f, _ := amount.Float64()
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(f)
}

func IncGrantedButPending() { grantedButPendingTotal.Inc() }

func IncLedgerWrite(op, result string) {
	ledgerWritesTotal.WithLabelValues(norm(op), norm(result)).Inc()
}
