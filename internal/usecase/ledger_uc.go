// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// TransactionPatch lists the fields UpdateStatus may merge into an entry.
// Nil pointers keep the stored value. Amount and the order target are never
// patched. Method is accepted but never applied over an existing method.
type TransactionPatch struct {
	PaymentID        *string
	ResourceTitle    *string
	SubResourceTitle *string
	Method           *model.PaymentMethod
	FailureReason    *string
	ErrorCode        *string

	// UnlessStatus refuses the update with domain.ErrConflict when the stored
	// entry already has this status.
	UnlessStatus model.TransactionStatus
	// Target, when set, refuses the update with domain.ErrConflict unless the
	// stored entry is for the same resource and item.
	Target *OrderTarget
}

// OrderTarget names what an order pays for.
type OrderTarget struct {
	ResourceID    string
	SubResourceID string
}

// Matches reports whether tx pays for t.
func (t OrderTarget) Matches(tx model.Transaction) bool {
	return tx.ResourceID == t.ResourceID && tx.SubResourceID == t.SubResourceID
}

// PendingEntry is a pending transaction together with its owner.
type PendingEntry struct {
	UserID      string
	Transaction model.Transaction
}

type LedgerUseCase interface {
	// Record appends tx unless its order id exists. recorded is false for the idempotent skip.
	Record(ctx context.Context, userID string, tx model.Transaction) (recorded bool, err error)
	// UpdateStatus merges patch into the entry for orderID. domain.ErrNotFound when absent.
	UpdateStatus(ctx context.Context, userID, orderID string, status model.TransactionStatus, patch TransactionPatch) (*model.Transaction, error)
	// SetContact stores notification contact info, creating the ledger if needed.
	SetContact(ctx context.Context, userID string, c model.Contact) error
	Get(ctx context.Context, userID string) (*model.Ledger, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]PendingEntry, error)
}

type ledgerUC struct {
	ledgers repository.LedgerRepository
	log     *zerolog.Logger
}

func NewLedgerUseCase(ledgers repository.LedgerRepository, logger *zerolog.Logger) *ledgerUC {
	l := logger.With().Str("component", "LedgerUC").Logger()
	return &ledgerUC{ledgers: ledgers, log: &l}
}

func (u *ledgerUC) Record(ctx context.Context, userID string, tx model.Transaction) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("%w: user_id is required", domain.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	if tx.Status == "" {
		tx.Status = model.TransactionStatusPending
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	if err := tx.Validate(); err != nil {
		return false, err
	}

	recorded := false
	err := u.mutate(ctx, "record", userID, true, func(l *model.Ledger) (bool, error) {
		recorded = l.Append(tx)
		return recorded, nil
	})
	if err != nil {
		metrics.IncLedgerWrite("record", "error")
		return false, err
	}
	if !recorded {
		metrics.IncLedgerWrite("record", "skipped")
		u.log.Debug().Str("user_id", userID).Str("order_id", tx.OrderID).Err(domain.ErrConflict).Msg("order already in ledger; skipped")
		return false, nil
	}
	metrics.IncLedgerWrite("record", "ok")
	return true, nil
}

func (u *ledgerUC) UpdateStatus(ctx context.Context, userID, orderID string, status model.TransactionStatus, patch TransactionPatch) (*model.Transaction, error) {
	if userID == "" || orderID == "" {
		return nil, fmt.Errorf("%w: user_id and order_id are required", domain.ErrInvalidArgument)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidArgument, status)
	}

	var out model.Transaction
	err := u.mutate(ctx, "update_status", userID, false, func(l *model.Ledger) (bool, error) {
		i, ok := l.Find(orderID)
		if !ok {
			return false, domain.ErrNotFound
		}
		cur := l.Transactions[i]
		if patch.UnlessStatus != "" && cur.Status == patch.UnlessStatus {
			return false, fmt.Errorf("%w: order %s is already %s", domain.ErrConflict, orderID, cur.Status)
		}
		if patch.Target != nil && !patch.Target.Matches(cur) {
			return false, fmt.Errorf("%w: order %s is for %s/%s", domain.ErrConflict, orderID, cur.ResourceID, cur.SubResourceID)
		}
		out = mergeTransaction(cur, status, patch, time.Now().UTC())
		l.Transactions[i] = out
		return true, nil
	})
	if err != nil {
		metrics.IncLedgerWrite("update_status", "error")
		return nil, err
	}
	metrics.IncLedgerWrite("update_status", "ok")
	return &out, nil
}

// mergeTransaction applies patch over cur. The stored method always wins.
func mergeTransaction(cur model.Transaction, status model.TransactionStatus, p TransactionPatch, now time.Time) model.Transaction {
	next := cur
	if p.PaymentID != nil {
		next.PaymentID = *p.PaymentID
	}
	if p.ResourceTitle != nil {
		next.ResourceTitle = *p.ResourceTitle
	}
	if p.SubResourceTitle != nil {
		next.SubResourceTitle = *p.SubResourceTitle
	}
	if p.FailureReason != nil {
		next.FailureReason = *p.FailureReason
	}
	if p.ErrorCode != nil {
		next.ErrorCode = *p.ErrorCode
	}
	next.Method = cur.Method
	if next.Method == "" && p.Method != nil {
		next.Method = *p.Method
	}

	next.Status = status
	next.UpdatedAt = now
	switch status {
	case model.TransactionStatusFailed:
		t := now
		next.FailedAt = &t
	case model.TransactionStatusSuccess:
		next.FailureReason = ""
		next.ErrorCode = ""
		next.FailedAt = nil
	}
	return next
}

func (u *ledgerUC) SetContact(ctx context.Context, userID string, c model.Contact) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", domain.ErrInvalidArgument)
	}
	if c.Email == "" && c.Name == "" {
		return nil
	}
	err := u.mutate(ctx, "set_contact", userID, true, func(l *model.Ledger) (bool, error) {
		next := l.Contact
		if c.Email != "" {
			next.Email = c.Email
		}
		if c.Name != "" {
			next.Name = c.Name
		}
		if next == l.Contact {
			return false, nil
		}
		l.Contact = next
		return true, nil
	})
	if err != nil {
		metrics.IncLedgerWrite("set_contact", "error")
	}
	return err
}

func (u *ledgerUC) Get(ctx context.Context, userID string) (*model.Ledger, error) {
	l, err := u.ledgers.Get(ctx, userID)
	if err != nil {
		return nil, persistErr(err)
	}
	return l, nil
}

func (u *ledgerUC) ListStalePending(ctx context.Context, cutoff time.Time) ([]PendingEntry, error) {
	all, err := u.ledgers.List(ctx)
	if err != nil {
		return nil, persistErr(err)
	}
	var out []PendingEntry
	for _, l := range all {
		for _, tx := range l.Pending(cutoff) {
			out = append(out, PendingEntry{UserID: l.UserID, Transaction: tx})
		}
	}
	return out, nil
}

// mutate performs one read, fn, and one conditional write, replaying the
// whole sequence when another writer got there first. fn returning false
// skips the write.
func (u *ledgerUC) mutate(ctx context.Context, op, userID string, create bool, fn func(l *model.Ledger) (bool, error)) error {
	onRetry := func(attempt int) {
		metrics.IncLedgerWrite(op, "conflict_retry")
		u.log.Debug().Str("user_id", userID).Str("op", op).Int("attempt", attempt).Msg("ledger version conflict; retrying")
	}
	err := retryOnConflict(ctx, onRetry, func() error {
		l, err := u.ledgers.Get(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound) && create:
			l = model.NewLedger(userID)
		case err != nil:
			return err
		}
		changed, err := fn(l)
		if err != nil || !changed {
			return err
		}
		l.UpdatedAt = time.Now().UTC()
		return u.ledgers.Save(ctx, l)
	})
	return persistErr(err)
}
