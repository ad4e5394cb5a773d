package repository

import (
	"context"

	"masterclass-reconciler/internal/domain/model"
)

type ResourceRepository interface {
	Get(ctx context.Context, id string) (*model.Resource, error)
	// Save writes the whole resource conditionally on r.Version and bumps it on success.
	Save(ctx context.Context, r *model.Resource) error
	// ListScheduled returns resources of type upcoming that carry a start time.
	ListScheduled(ctx context.Context) ([]*model.Resource, error)
}
