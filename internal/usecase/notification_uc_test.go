//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/usecase"
)

func TestNotificationUseCase_NotifyEnrollment(t *testing.T) {
	ctx := context.Background()

	t.Run("should render a registration confirmation with the start time", func(t *testing.T) {
		// --- Arrange ---
		s := newStores()
		l := model.NewLedger("u1")
		l.Contact = model.Contact{Email: "u1@example.com", Name: "Ada <script>"}
		seedLedger(t, s.ledgers, l)
		mail := &mockEmailSender{}
		uc := usecase.NewNotificationUseCase(mail, s.ledgers, inlineQueue{}, "https://app.example.com", time.Second, &nopLogger)

		// --- Act ---
		uc.NotifyEnrollment(ctx, usecase.EnrollmentNotice{
			UserID: "u1", OrderID: "ord_1", ResourceTitle: "Go in Production",
			ResourceType: model.ResourceTypeUpcoming,
			StartsAt:     time.Date(2026, 5, 1, 14, 30, 0, 0, time.UTC),
		})

		// --- Assert ---
		sent := mail.Sent()
		if len(sent) != 1 {
			t.Fatalf("expected one mail, got %d", len(sent))
		}
		if sent[0].Subject != "Enrollment Confirmed: Go in Production" {
			t.Errorf("unexpected subject %q", sent[0].Subject)
		}
		if !strings.Contains(sent[0].HTML, "Fri, 01 May 2026 14:30 UTC") {
			t.Errorf("expected start time in body, got %s", sent[0].HTML)
		}
		if strings.Contains(sent[0].HTML, "<script>") {
			t.Error("expected contact name to be escaped")
		}
	})

	t.Run("should render an item purchase with amount", func(t *testing.T) {
		s := newStores()
		l := model.NewLedger("u1")
		l.Contact = model.Contact{Email: "u1@example.com"}
		seedLedger(t, s.ledgers, l)
		mail := &mockEmailSender{}
		uc := usecase.NewNotificationUseCase(mail, s.ledgers, inlineQueue{}, "", time.Second, &nopLogger)

		uc.NotifyEnrollment(ctx, usecase.EnrollmentNotice{
			UserID: "u1", OrderID: "ord_2", ResourceTitle: "Course", ItemTitle: "Video one",
			ResourceType: model.ResourceTypeRecorded, Amount: decimal.NewFromInt(99), Currency: "INR",
		})

		sent := mail.Sent()
		if len(sent) != 1 || sent[0].Subject != "Purchase Confirmed: Course - Video one" {
			t.Fatalf("unexpected mails %+v", sent)
		}
		if !strings.Contains(sent[0].HTML, "99.00 INR") {
			t.Errorf("expected amount in body, got %s", sent[0].HTML)
		}
	})

	t.Run("should skip users without an address", func(t *testing.T) {
		s := newStores()
		mail := &mockEmailSender{}
		uc := usecase.NewNotificationUseCase(mail, s.ledgers, inlineQueue{}, "", time.Second, &nopLogger)

		uc.NotifyEnrollment(ctx, usecase.EnrollmentNotice{UserID: "ghost", OrderID: "o", ResourceTitle: "X"})

		if n := len(mail.Sent()); n != 0 {
			t.Errorf("expected no mail, got %d", n)
		}
	})

	t.Run("should drop silently when the queue is full", func(t *testing.T) {
		s := newStores()
		mail := &mockEmailSender{}
		uc := usecase.NewNotificationUseCase(mail, s.ledgers, fullQueue{}, "", time.Second, &nopLogger)

		uc.NotifyEnrollment(ctx, usecase.EnrollmentNotice{UserID: "u1", OrderID: "o", ResourceTitle: "X"})
		uc.Dispatch(ctx, model.NewMessage(model.NotificationStartingSoon, "a@example.com", "s", "<p>x</p>"))

		if n := len(mail.Sent()); n != 0 {
			t.Errorf("expected no mail, got %d", n)
		}
	})
}

func TestNotificationUseCase_SendReminder(t *testing.T) {
	ctx := context.Background()
	res := upcomingClass("up_1", time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))

	t.Run("should send a 2h reminder", func(t *testing.T) {
		mail := &mockEmailSender{}
		uc := usecase.NewNotificationUseCase(mail, newStores().ledgers, inlineQueue{}, "", time.Second, &nopLogger)

		err := uc.SendReminder(ctx, model.Contact{Email: "u1@example.com"}, res, model.Window2h)

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		sent := mail.Sent()
		if len(sent) != 1 || sent[0].Subject != "Reminder: Live up_1 starts in 2 hours" {
			t.Errorf("unexpected mails %+v", sent)
		}
	})

	t.Run("should wrap provider failures as downstream errors", func(t *testing.T) {
		mail := &mockEmailSender{SendFunc: func(context.Context, string, string, string) error {
			return errors.New("503 from provider")
		}}
		uc := usecase.NewNotificationUseCase(mail, newStores().ledgers, inlineQueue{}, "", time.Second, &nopLogger)

		err := uc.SendReminder(ctx, model.Contact{Email: "u1@example.com"}, res, model.Window24h)

		if !errors.Is(err, domain.ErrDownstream) {
			t.Fatalf("expected ErrDownstream, got %v", err)
		}
	})

	t.Run("should refuse an empty address", func(t *testing.T) {
		uc := usecase.NewNotificationUseCase(&mockEmailSender{}, newStores().ledgers, inlineQueue{}, "", time.Second, &nopLogger)

		err := uc.SendReminder(ctx, model.Contact{}, res, model.Window24h)

		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
