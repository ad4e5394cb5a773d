package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"masterclass-reconciler/internal/infra/metrics"
	"masterclass-reconciler/internal/usecase"
)

// PendingAuditor periodically reports ledger entries that stayed pending
// longer than staleAfter. It only reports; nothing is finalized here.
type PendingAuditor struct {
	interval   time.Duration
	staleAfter time.Duration
	ledger     usecase.LedgerUseCase
	log        *zerolog.Logger
}

func NewPendingAuditor(interval, staleAfter time.Duration, ledger usecase.LedgerUseCase, logger *zerolog.Logger) *PendingAuditor {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	compLog := logger.With().Str("component", "PendingAuditor").Logger()
	return &PendingAuditor{interval: interval, staleAfter: staleAfter, ledger: ledger, log: &compLog}
}

func (w *PendingAuditor) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting pending auditor")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping pending auditor")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PendingAuditor) tick(ctx context.Context) int {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.ledger.ListStalePending(ctx, cutoff)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale pending failed")
		return 0
	}
	metrics.SetStalePending(len(stale))
	for _, e := range stale {
		w.log.Warn().
			Str("user_id", e.UserID).
			Str("order_id", e.Transaction.OrderID).
			Str("resource_id", e.Transaction.ResourceID).
			Time("updated_at", e.Transaction.UpdatedAt).
			Msg("transaction still pending")
	}
	return len(stale)
}
