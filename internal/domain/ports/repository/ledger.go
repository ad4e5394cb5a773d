package repository

import (
	"context"

	"masterclass-reconciler/internal/domain/model"
)

type LedgerRepository interface {
	// Get returns domain.ErrNotFound when the user has no ledger yet.
	Get(ctx context.Context, userID string) (*model.Ledger, error)
	// Save writes the whole ledger conditionally on l.Version and bumps it on success.
	Save(ctx context.Context, l *model.Ledger) error
	List(ctx context.Context) ([]*model.Ledger, error)
}
