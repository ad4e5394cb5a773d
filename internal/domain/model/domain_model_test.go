//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"masterclass-reconciler/internal/domain"
)

// --- Ledger Tests ---

func TestLedger(t *testing.T) {
	t.Run("should append once per order id", func(t *testing.T) {
		l := NewLedger("u1")

		first := l.Append(Transaction{OrderID: "ord_1", Status: TransactionStatusPending})
		second := l.Append(Transaction{OrderID: "ord_1", Status: TransactionStatusSuccess})

		if !first || second {
			t.Fatalf("expected first append to win, got first=%v second=%v", first, second)
		}
		tx, ok := l.Get("ord_1")
		if !ok || tx.Status != TransactionStatusPending {
			t.Errorf("expected the original pending entry, got %+v", tx)
		}
	})

	t.Run("should return a copy from Get", func(t *testing.T) {
		l := NewLedger("u1")
		l.Append(Transaction{OrderID: "ord_1", Status: TransactionStatusPending})

		tx, _ := l.Get("ord_1")
		tx.Status = TransactionStatusFailed

		if l.Transactions[0].Status != TransactionStatusPending {
			t.Error("expected ledger entry to be unaffected by changes to the copy")
		}
	})

	t.Run("should list only pending entries older than the cutoff", func(t *testing.T) {
		now := time.Now()
		l := NewLedger("u1")
		l.Append(Transaction{OrderID: "old", Status: TransactionStatusPending, UpdatedAt: now.Add(-time.Hour)})
		l.Append(Transaction{OrderID: "fresh", Status: TransactionStatusPending, UpdatedAt: now})
		l.Append(Transaction{OrderID: "done", Status: TransactionStatusSuccess, UpdatedAt: now.Add(-time.Hour)})

		got := l.Pending(now.Add(-30 * time.Minute))

		if len(got) != 1 || got[0].OrderID != "old" {
			t.Errorf("expected only the stale pending entry, got %+v", got)
		}
	})
}

// --- Transaction Tests ---

func TestTransaction_Validate(t *testing.T) {
	valid := Transaction{
		OrderID: "ord_1", ResourceID: "mc_1", Amount: decimal.NewFromInt(10),
		Status: TransactionStatusPending, Method: PaymentMethodGateway,
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"missing order id", func(tx *Transaction) { tx.OrderID = "" }},
		{"missing resource id", func(tx *Transaction) { tx.ResourceID = "" }},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }},
		{"unknown status", func(tx *Transaction) { tx.Status = "refunded" }},
		{"unknown method", func(tx *Transaction) { tx.Method = "cash" }},
	}

	t.Run("should accept a complete transaction", func(t *testing.T) {
		tx := valid
		if err := tx.Validate(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	for _, tc := range cases {
		t.Run("should reject "+tc.name, func(t *testing.T) {
			tx := valid
			tc.mutate(&tx)

			if err := tx.Validate(); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

// --- Resource Tests ---

func TestResource_Access(t *testing.T) {
	t.Run("should add a user once", func(t *testing.T) {
		r := &Resource{ID: "mc_1"}

		if !r.AddAccess("u1") || r.AddAccess("u1") {
			t.Fatal("expected exactly one successful add")
		}
		if len(r.AccessList) != 1 || !r.HasAccess("u1") {
			t.Errorf("unexpected access list %v", r.AccessList)
		}
	})

	t.Run("should track item access per user", func(t *testing.T) {
		r := &Resource{ID: "mc_1", Items: []Item{{ID: "v1", Price: decimal.NewFromInt(99)}}}

		if !r.AddItemAccess("u1", "v1") || r.AddItemAccess("u1", "v1") {
			t.Fatal("expected exactly one successful item add")
		}
		if r.HasItem("u2", "v1") || r.HasAccess("u1") {
			t.Error("item access must not leak to other users or to the whole resource")
		}
	})

	t.Run("should price the whole resource or a single item", func(t *testing.T) {
		r := &Resource{Price: decimal.NewFromInt(500), Items: []Item{{ID: "v1", Price: decimal.NewFromInt(99)}}}

		whole, _ := r.PriceFor("")
		item, ok := r.PriceFor("v1")
		_, missing := r.PriceFor("v9")

		if !whole.Equal(decimal.NewFromInt(500)) || !ok || !item.Equal(decimal.NewFromInt(99)) || missing {
			t.Errorf("unexpected prices whole=%s item=%s missing=%v", whole, item, missing)
		}
	})
}

func TestResource_ReminderFlags(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	t.Run("should set a flag once and never clear it", func(t *testing.T) {
		r := &Resource{Schedule: &Schedule{StartsAt: at}}

		if !r.MarkReminderSent(Window24h, at.Add(-24*time.Hour)) {
			t.Fatal("expected first mark to succeed")
		}
		if r.MarkReminderSent(Window24h, at.Add(-23*time.Hour)) {
			t.Error("expected second mark to be refused")
		}
		if !r.ReminderSent(Window24h) || r.ReminderSent(Window2h) {
			t.Errorf("unexpected flags %+v", r.Schedule.Reminders)
		}
		if got := r.Schedule.Reminders[Window24h].SentAt; !got.Equal(at.Add(-24 * time.Hour)) {
			t.Errorf("expected first sent time to stick, got %s", got)
		}
	})

	t.Run("should ignore unscheduled resources", func(t *testing.T) {
		r := &Resource{}
		if r.MarkReminderSent(Window2h, at) || r.ReminderSent(Window2h) {
			t.Error("expected no flag on an unscheduled resource")
		}
	})
}

// --- Window Tests ---

func TestWindow_Contains(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		w    Window
		lead time.Duration
		want bool
	}{
		{"24h lower edge", Window24h, 23 * time.Hour, true},
		{"24h upper edge", Window24h, 25 * time.Hour, true},
		{"24h just outside", Window24h, 25*time.Hour + time.Second, false},
		{"2h lower edge", Window2h, 90 * time.Minute, true},
		{"2h upper edge", Window2h, 150 * time.Minute, true},
		{"2h just below", Window2h, 89 * time.Minute, false},
		{"already started", Window2h, 0, false},
		{"unknown window", Window("1h"), time.Hour, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.w.Contains(now.Add(tc.lead), now); got != tc.want {
				t.Errorf("Contains(lead=%s) = %v, want %v", tc.lead, got, tc.want)
			}
		})
	}
}

func TestStartingSoon(t *testing.T) {
	now := time.Now()
	if !StartingSoon(now.Add(time.Hour), now, 2*time.Hour) {
		t.Error("expected a start within the lead to be soon")
	}
	if StartingSoon(now.Add(3*time.Hour), now, 2*time.Hour) {
		t.Error("expected a distant start not to be soon")
	}
	if StartingSoon(now.Add(-time.Minute), now, 2*time.Hour) || StartingSoon(time.Time{}, now, 2*time.Hour) {
		t.Error("expected past or zero starts not to be soon")
	}
}

func TestNewMessage(t *testing.T) {
	a := NewMessage(NotificationReminder2h, "u1@example.com", "s", "<p>x</p>")
	b := NewMessage(NotificationReminder2h, "u1@example.com", "s", "<p>x</p>")

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected unique non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if ReminderKind(Window2h) != NotificationReminder2h || ReminderKind(Window24h) != NotificationReminder24h {
		t.Error("unexpected reminder kind mapping")
	}
}
