package docstore

import (
	"context"
	"encoding/json"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct{ store repository.DocumentStore }

func NewLedgerRepo(store repository.DocumentStore) *ledgerRepo {
	return &ledgerRepo{store: store}
}

func (r *ledgerRepo) Get(ctx context.Context, userID string) (*model.Ledger, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	d, err := r.store.Get(ctx, repository.CollectionLedgers, userID)
	if err != nil {
		return nil, err
	}
	return decodeLedger(d)
}

func (r *ledgerRepo) Save(ctx context.Context, l *model.Ledger) error {
	if l == nil || l.UserID == "" {
		return domain.ErrInvalidArgument
	}
	body, err := json.Marshal(l)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	v, err := r.store.Put(ctx, repository.CollectionLedgers, &repository.Document{ID: l.UserID, Version: l.Version, Body: body})
	if err != nil {
		return err
	}
	l.Version = v
	return nil
}

func (r *ledgerRepo) List(ctx context.Context) ([]*model.Ledger, error) {
	docs, err := r.store.List(ctx, repository.CollectionLedgers)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Ledger, 0, len(docs))
	for _, d := range docs {
		l, err := decodeLedger(d)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func decodeLedger(d *repository.Document) (*model.Ledger, error) {
	l := model.NewLedger(d.ID)
	if err := json.Unmarshal(d.Body, l); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if l.UserID == "" {
		l.UserID = d.ID
	}
	if l.Transactions == nil {
		l.Transactions = []model.Transaction{}
	}
	l.Version = d.Version
	return l, nil
}
