package sched

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/usecase"
)

// ReminderWorker runs reminder sweeps on a cron schedule such as "@hourly"
// or "*/15 * * * *". The HTTP trigger and this worker share the sweep lock.
type ReminderWorker struct {
	spec   string
	budget time.Duration
	uc     usecase.ReminderUseCase
	log    *zerolog.Logger

	cron *cron.Cron
	ctx  context.Context
}

func NewReminderWorker(spec string, budget time.Duration, uc usecase.ReminderUseCase, logger *zerolog.Logger) *ReminderWorker {
	if budget <= 0 {
		budget = 5 * time.Minute
	}
	compLog := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{spec: spec, budget: budget, uc: uc, log: &compLog}
}

// Start registers the sweep and starts the cron loop. Calling Start twice has no effect.
func (w *ReminderWorker) Start(ctx context.Context) error {
	if w.cron != nil {
		return nil
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(w.spec, w.runOnce); err != nil {
		return err
	}
	w.ctx = ctx
	w.cron = c
	c.Start()
	w.log.Info().Str("schedule", w.spec).Msg("Starting reminder worker")
	return nil
}

// Stop halts the schedule and waits for a running sweep to return.
func (w *ReminderWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	w.cron = nil
	w.log.Info().Msg("Stopping reminder worker")
}

func (w *ReminderWorker) runOnce() {
	ctx, cancel := context.WithTimeout(w.ctx, w.budget)
	defer cancel()

	report, err := w.uc.Sweep(ctx, time.Now())
	switch {
	case errors.Is(err, domain.ErrSweepInProgress):
		w.log.Debug().Msg("sweep already running elsewhere")
	case err != nil:
		w.log.Error().Err(err).Msg("reminder sweep failed")
	case report.Reminders24h+report.Reminders2h > 0 || report.Errors > 0:
		w.log.Info().
			Int("reminders_24h", report.Reminders24h).
			Int("reminders_2h", report.Reminders2h).
			Int("errors", report.Errors).
			Msg("reminders sent")
	}
}
