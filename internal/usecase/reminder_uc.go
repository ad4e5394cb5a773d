package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/adapter"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/logging"
	"masterclass-reconciler/internal/infra/metrics"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

const sweepLockKey = "lock:reminder_sweep"

// SweepReport counts what a single sweep did.
type SweepReport struct {
	Reminders24h       int  `json:"reminders_24h"`
	Reminders2h        int  `json:"reminders_2h"`
	Errors             int  `json:"errors"`
	Skipped            int  `json:"skipped"`
	ProcessedResources int  `json:"processed_resources"`
	Interrupted        bool `json:"interrupted,omitempty"`
}

func (r *SweepReport) addSent(w model.Window) {
	if w == model.Window2h {
		r.Reminders2h++
		return
	}
	r.Reminders24h++
}

type ReminderOptions struct {
	SendInterval time.Duration // pause between two sends
	LockTTL      time.Duration
}

type ReminderUseCase interface {
	// Sweep sends every reminder due at now. Only one sweep runs at a time;
	// a concurrent call gets domain.ErrSweepInProgress.
	Sweep(ctx context.Context, now time.Time) (*SweepReport, error)
}

type reminderUC struct {
	resources repository.ResourceRepository
	ledgers   repository.LedgerRepository
	sent      repository.ReminderLog
	notify    NotificationUseCase
	locker    adapter.Locker
	opts      ReminderOptions
	log       *zerolog.Logger
}

func NewReminderUseCase(
	resources repository.ResourceRepository,
	ledgers repository.LedgerRepository,
	sent repository.ReminderLog,
	notify NotificationUseCase,
	locker adapter.Locker,
	opts ReminderOptions,
	logger *zerolog.Logger,
) *reminderUC {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	l := logger.With().Str("component", "ReminderUC").Logger()
	return &reminderUC{
		resources: resources,
		ledgers:   ledgers,
		sent:      sent,
		notify:    notify,
		locker:    locker,
		opts:      opts,
		log:       &l,
	}
}

func (u *reminderUC) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	defer logging.TraceDuration(u.log, "ReminderUC.Sweep")()
	log := logging.With(ctx, u.log)

	token, err := u.locker.TryLock(ctx, sweepLockKey, u.opts.LockTTL)
	if err != nil {
		if isConflict(err) {
			metrics.IncReminderSweep("locked")
			return nil, domain.ErrSweepInProgress
		}
		metrics.IncReminderSweep("error")
		return nil, fmt.Errorf("%w: sweep lock: %v", domain.ErrOperationFailed, err)
	}
	defer func() {
		// the sweep ctx may already be done
		if err := u.locker.Unlock(logging.Detach(ctx), sweepLockKey, token); err != nil {
			log.Warn().Err(err).Msg("sweep lock release failed")
		}
	}()

	resources, err := u.resources.ListScheduled(ctx)
	if err != nil {
		metrics.IncReminderSweep("error")
		return nil, persistErr(err)
	}

	report := &SweepReport{}
	for _, res := range resources {
		if ctx.Err() != nil {
			report.Interrupted = true
			log.Warn().Int("processed", report.ProcessedResources).Msg("reminder sweep stopped early")
			break
		}
		if res.Type != model.ResourceTypeUpcoming || !res.Scheduled() || !res.Schedule.StartsAt.After(now) {
			continue
		}
		due := dueWindows(res, now)
		if len(due) == 0 {
			continue
		}
		report.ProcessedResources++
		// a started resource runs to completion; cancellation is observed between resources
		rctx := logging.Detach(ctx)
		for _, w := range due {
			u.sendWindow(rctx, res, w, report)
		}
	}

	result := "ok"
	if report.Interrupted {
		result = "interrupted"
	}
	metrics.IncReminderSweep(result)
	log.Info().
		Int("reminders_24h", report.Reminders24h).
		Int("reminders_2h", report.Reminders2h).
		Int("errors", report.Errors).
		Int("skipped", report.Skipped).
		Int("resources", report.ProcessedResources).
		Msg("reminder sweep finished")
	return report, nil
}

// dueWindows returns the windows containing the start whose flag is still unset.
func dueWindows(res *model.Resource, now time.Time) []model.Window {
	var out []model.Window
	for _, w := range model.Windows {
		if w.Contains(res.Schedule.StartsAt, now) && !res.ReminderSent(w) {
			out = append(out, w)
		}
	}
	return out
}

func (u *reminderUC) sendWindow(ctx context.Context, res *model.Resource, w model.Window, report *SweepReport) {
	log := u.log.With().Str("resource_id", res.ID).Str("window", string(w)).Logger()
	sent, claimed := 0, 0
	for i, userID := range res.AccessList {
		if i > 0 && u.opts.SendInterval > 0 {
			if err := sleepCtx(ctx, u.opts.SendInterval); err != nil {
				break
			}
		}
		switch err := u.sendOne(ctx, res, w, userID); {
		case err == nil:
			sent++
			report.addSent(w)
			metrics.IncReminderSend(string(w), "sent")
		case errors.Is(err, errReminderClaimed):
			claimed++
			report.Skipped++
			metrics.IncReminderSend(string(w), "already_sent")
		case errors.Is(err, errReminderSkipped):
			report.Skipped++
			metrics.IncReminderSend(string(w), "skipped")
		default:
			report.Errors++
			metrics.IncReminderSend(string(w), "error")
			log.Warn().Err(err).Str("user_id", userID).Msg("reminder send failed")
		}
	}
	// a window whose users were all claimed by an earlier run is done too
	if sent == 0 && (claimed == 0 || claimed < len(res.AccessList)) {
		return
	}

	flagged := false
	err := mutateResource(ctx, u.resources, res.ID, func(r *model.Resource) (bool, error) {
		flagged = r.MarkReminderSent(w, time.Now().UTC())
		return flagged, nil
	})
	if err != nil {
		report.Errors++
		log.Error().Err(err).Msg("reminder flag not saved")
		return
	}
	log.Info().Int("sent", sent).Bool("flagged", flagged).Msg("reminder window done")
}

var (
	errReminderSkipped = errors.New("reminder skipped")
	errReminderClaimed = errors.New("reminder already claimed")
)

func (u *reminderUC) sendOne(ctx context.Context, res *model.Resource, w model.Window, userID string) error {
	ledger, err := u.ledgers.Get(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return errReminderSkipped
		}
		return err
	}
	if ledger.Contact.Email == "" {
		return errReminderSkipped
	}

	claimed, err := u.sent.Claim(ctx, res.ID, w, userID)
	if err != nil {
		return err
	}
	if !claimed {
		return errReminderClaimed
	}

	if err := u.notify.SendReminder(ctx, ledger.Contact, res, w); err != nil {
		if rerr := u.sent.Release(ctx, res.ID, w, userID); rerr != nil {
			u.log.Warn().Err(rerr).Str("user_id", userID).Msg("reminder claim not released")
		}
		return err
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
