//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/adapter"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/db/docstore"
	"masterclass-reconciler/internal/infra/db/memory"
)

// -----------------------------
// Utilities
// -----------------------------

var nopLogger = zerolog.Nop()

type stores struct {
	docs      *memory.DocumentStore
	ledgers   repository.LedgerRepository
	resources repository.ResourceRepository
}

func newStores() *stores {
	docs := memory.NewDocumentStore()
	return &stores{docs: docs, ledgers: docstore.NewLedgerRepo(docs), resources: docstore.NewResourceRepo(docs)}
}

func seedResource(t *testing.T, repo repository.ResourceRepository, r *model.Resource) {
	t.Helper()
	if r.AccessList == nil {
		r.AccessList = []string{}
	}
	if err := repo.Save(context.Background(), r); err != nil {
		t.Fatalf("seed resource %s: %v", r.ID, err)
	}
}

func seedLedger(t *testing.T, repo repository.LedgerRepository, l *model.Ledger) {
	t.Helper()
	if err := repo.Save(context.Background(), l); err != nil {
		t.Fatalf("seed ledger %s: %v", l.UserID, err)
	}
}

func recordedCourse(id string, price int64) *model.Resource {
	return &model.Resource{
		ID:    id,
		Title: "Course " + id,
		Type:  model.ResourceTypeRecorded,
		Price: decimal.NewFromInt(price),
		Items: []model.Item{
			{ID: "v1", Title: "Video one", Price: decimal.NewFromInt(99)},
			{ID: "v0", Title: "Free intro", Price: decimal.Zero},
		},
	}
}

func upcomingClass(id string, startsAt time.Time, users ...string) *model.Resource {
	return &model.Resource{
		ID:         id,
		Title:      "Live " + id,
		Type:       model.ResourceTypeUpcoming,
		Price:      decimal.Zero,
		AccessList: users,
		Schedule:   &model.Schedule{StartsAt: startsAt},
	}
}

func pendingTx(orderID, resourceID string, amount int64) model.Transaction {
	now := time.Now().UTC()
	return model.Transaction{
		OrderID:    orderID,
		ResourceID: resourceID,
		Amount:     decimal.NewFromInt(amount),
		Status:     model.TransactionStatusPending,
		Method:     model.PaymentMethodGateway,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// -----------------------------
// Repository decorators
// -----------------------------

// flakyLedgerRepo fails Save while failSaves is set.
type flakyLedgerRepo struct {
	repository.LedgerRepository
	mu        sync.Mutex
	failSaves bool
}

func (r *flakyLedgerRepo) Save(ctx context.Context, l *model.Ledger) error {
	r.mu.Lock()
	fail := r.failSaves
	r.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return r.LedgerRepository.Save(ctx, l)
}

// -----------------------------
// Adapters
// -----------------------------

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

type mockEmailSender struct {
	mu       sync.Mutex
	sent     []sentMail
	SendFunc func(ctx context.Context, to, subject, html string) error
}

func (m *mockEmailSender) Name() string { return "mock" }

func (m *mockEmailSender) Send(ctx context.Context, to, subject, html string) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, to, subject, html); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *mockEmailSender) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// inlineQueue runs tasks on the caller goroutine.
type inlineQueue struct{}

func (inlineQueue) Submit(task func(ctx context.Context) error) error {
	return task(context.Background())
}

type fullQueue struct{}

func (fullQueue) Submit(func(ctx context.Context) error) error {
	return errors.New("queue full")
}

type mockRateLimiter struct {
	AllowFunc func(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func (m *mockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return m.AllowFunc(ctx, key, limit, window)
}

var _ adapter.RateLimiter = (*mockRateLimiter)(nil)

// memLocker is an in-process adapter.Locker.
type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	seq   int
	Err   error
	Calls int
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls++
	if l.Err != nil {
		return "", l.Err
	}
	if _, ok := l.held[key]; ok {
		return "", domain.ErrConflict
	}
	l.seq++
	token := fmt.Sprintf("tok-%d", l.seq)
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

func (l *memLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

// memReminderLog is an in-process repository.ReminderLog.
type memReminderLog struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func newMemReminderLog() *memReminderLog { return &memReminderLog{claimed: map[string]bool{}} }

func reminderKey(resourceID string, w model.Window, userID string) string {
	return resourceID + "|" + string(w) + "|" + userID
}

func (r *memReminderLog) Claim(ctx context.Context, resourceID string, w model.Window, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := reminderKey(resourceID, w, userID)
	if r.claimed[k] {
		return false, nil
	}
	r.claimed[k] = true
	return true, nil
}

func (r *memReminderLog) Release(ctx context.Context, resourceID string, w model.Window, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claimed, reminderKey(resourceID, w, userID))
	return nil
}

func (r *memReminderLog) Claimed(resourceID string, w model.Window, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimed[reminderKey(resourceID, w, userID)]
}
