package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/adapter"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/logging"
	"masterclass-reconciler/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// TaskQueue runs work off the request path. worker.Pool satisfies it.
type TaskQueue interface {
	Submit(task func(ctx context.Context) error) error
}

// EnrollmentNotice describes a completed reconciliation worth telling the user about.
type EnrollmentNotice struct {
	UserID        string
	OrderID       string
	ResourceID    string
	ResourceTitle string
	ResourceType  model.ResourceType
	ItemTitle     string
	StartsAt      time.Time
	Amount        decimal.Decimal
	Currency      string
	StartingSoon  bool
}

type NotificationUseCase interface {
	// NotifyEnrollment queues confirmation mail. It never blocks on the provider and never fails.
	NotifyEnrollment(ctx context.Context, n EnrollmentNotice)
	// SendReminder renders and sends a reminder synchronously.
	SendReminder(ctx context.Context, c model.Contact, r *model.Resource, w model.Window) error
	// Dispatch queues a rendered message and returns immediately.
	Dispatch(ctx context.Context, msg *model.Message)
	// SendNow delivers a rendered message synchronously.
	SendNow(ctx context.Context, msg *model.Message) error
}

type notificationUC struct {
	sender      adapter.EmailSender
	ledgers     repository.LedgerRepository
	queue       TaskQueue
	appURL      string
	sendTimeout time.Duration
	log         *zerolog.Logger
}

func NewNotificationUseCase(sender adapter.EmailSender, ledgers repository.LedgerRepository, queue TaskQueue, appURL string, sendTimeout time.Duration, logger *zerolog.Logger) *notificationUC {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "NotificationUC").Str("provider", sender.Name()).Logger()
	return &notificationUC{sender: sender, ledgers: ledgers, queue: queue, appURL: appURL, sendTimeout: sendTimeout, log: &l}
}

func (u *notificationUC) NotifyEnrollment(ctx context.Context, n EnrollmentNotice) {
	l := logging.With(ctx, u.log)
	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, u.sendTimeout)
		defer cancel()
		u.deliverEnrollment(ctx, n, l)
		return nil
	}
	if err := u.queue.Submit(task); err != nil {
		metrics.IncNotificationDropped()
		l.Warn().Err(err).Str("order_id", n.OrderID).Msg("enrollment notification dropped")
	}
}

func (u *notificationUC) deliverEnrollment(ctx context.Context, n EnrollmentNotice, l *zerolog.Logger) {
	kinds := []model.NotificationKind{confirmationKind(n)}
	if n.StartingSoon {
		kinds = append(kinds, model.NotificationStartingSoon)
	}

	ledger, err := u.ledgers.Get(ctx, n.UserID)
	if err != nil || ledger.Contact.Email == "" {
		for _, k := range kinds {
			metrics.IncNotification(string(k), "skipped")
		}
		l.Warn().Err(err).Str("user_id", n.UserID).Msg("no contact address; enrollment mail skipped")
		return
	}

	d := mailData{
		Name:      ledger.Contact.Name,
		Title:     n.ResourceTitle,
		ItemTitle: n.ItemTitle,
		OrderID:   n.OrderID,
		Currency:  n.Currency,
		StartsAt:  formatStart(n.StartsAt),
		AppURL:    u.appURL,
	}
	if n.Amount.IsPositive() {
		d.Amount = n.Amount.StringFixed(2)
	}
	for _, k := range kinds {
		subject, html, err := render(k, d)
		if err != nil {
			l.Error().Err(err).Str("kind", string(k)).Msg("render failed")
			continue
		}
		if err := u.SendNow(ctx, model.NewMessage(k, ledger.Contact.Email, subject, html)); err != nil {
			l.Warn().Err(err).Str("kind", string(k)).Str("to", logging.Redact(ledger.Contact.Email, false)).Msg("enrollment mail failed")
		}
	}
}

func confirmationKind(n EnrollmentNotice) model.NotificationKind {
	if n.ItemTitle == "" && n.ResourceType == model.ResourceTypeUpcoming {
		return model.NotificationRegistrationConfirmed
	}
	return model.NotificationPurchaseConfirmed
}

func (u *notificationUC) SendReminder(ctx context.Context, c model.Contact, r *model.Resource, w model.Window) error {
	if c.Email == "" {
		return fmt.Errorf("%w: contact has no e-mail", domain.ErrInvalidArgument)
	}
	d := mailData{Name: c.Name, Title: r.Title, Lead: leadText(w), AppURL: u.appURL}
	if r.Schedule != nil {
		d.StartsAt = formatStart(r.Schedule.StartsAt)
	}
	kind := model.ReminderKind(w)
	subject, html, err := render(kind, d)
	if err != nil {
		return err
	}
	return u.SendNow(ctx, model.NewMessage(kind, c.Email, subject, html))
}

func (u *notificationUC) Dispatch(ctx context.Context, msg *model.Message) {
	l := logging.With(ctx, u.log)
	task := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, u.sendTimeout)
		defer cancel()
		return u.SendNow(ctx, msg)
	}
	if err := u.queue.Submit(task); err != nil {
		metrics.IncNotificationDropped()
		l.Warn().Err(err).Str("message_id", msg.ID).Str("kind", string(msg.Kind)).Msg("notification dropped")
	}
}

func (u *notificationUC) SendNow(ctx context.Context, msg *model.Message) error {
	err := u.sender.Send(ctx, msg.To, msg.Subject, msg.HTML)
	if err != nil {
		metrics.IncNotification(string(msg.Kind), "error")
		if !errors.Is(err, domain.ErrDownstream) {
			err = fmt.Errorf("%w: %s: %v", domain.ErrDownstream, u.sender.Name(), err)
		}
		return err
	}
	metrics.IncNotification(string(msg.Kind), "sent")
	u.log.Debug().Str("message_id", msg.ID).Str("kind", string(msg.Kind)).Msg("notification sent")
	return nil
}
