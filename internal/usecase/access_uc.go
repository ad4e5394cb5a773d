package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/metrics"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

// AccessUseCase grants users access to whole resources or single items.
// Grants are idempotent and never revoked here.
type AccessUseCase interface {
	// Grant adds userID to the resource access list. granted is false when already a member.
	Grant(ctx context.Context, resourceID, userID string) (granted bool, err error)
	// GrantItem records that userID holds one item of the resource.
	GrantItem(ctx context.Context, resourceID, itemID, userID string) (granted bool, err error)
	HasAccess(ctx context.Context, resourceID, userID, itemID string) (bool, error)
}

type accessUC struct {
	resources repository.ResourceRepository
	log       *zerolog.Logger
}

func NewAccessUseCase(resources repository.ResourceRepository, logger *zerolog.Logger) *accessUC {
	l := logger.With().Str("component", "AccessUC").Logger()
	return &accessUC{resources: resources, log: &l}
}

func (u *accessUC) Grant(ctx context.Context, resourceID, userID string) (bool, error) {
	if resourceID == "" || userID == "" {
		return false, fmt.Errorf("%w: resource_id and user_id are required", domain.ErrInvalidArgument)
	}
	granted := false
	err := mutateResource(ctx, u.resources, resourceID, func(r *model.Resource) (bool, error) {
		granted = r.AddAccess(userID)
		return granted, nil
	})
	u.observe("resource", granted, err)
	return granted, err
}

func (u *accessUC) GrantItem(ctx context.Context, resourceID, itemID, userID string) (bool, error) {
	if resourceID == "" || itemID == "" || userID == "" {
		return false, fmt.Errorf("%w: resource_id, item_id and user_id are required", domain.ErrInvalidArgument)
	}
	granted := false
	err := mutateResource(ctx, u.resources, resourceID, func(r *model.Resource) (bool, error) {
		if _, ok := r.Item(itemID); !ok {
			return false, fmt.Errorf("%w: item %s is not part of resource %s", domain.ErrNotFound, itemID, resourceID)
		}
		granted = r.AddItemAccess(userID, itemID)
		return granted, nil
	})
	u.observe("item", granted, err)
	return granted, err
}

func (u *accessUC) HasAccess(ctx context.Context, resourceID, userID, itemID string) (bool, error) {
	r, err := u.resources.Get(ctx, resourceID)
	if err != nil {
		return false, persistErr(err)
	}
	if itemID != "" {
		return r.HasItem(userID, itemID), nil
	}
	return r.HasAccess(userID), nil
}

func (u *accessUC) observe(kind string, granted bool, err error) {
	switch {
	case err == nil && granted:
		metrics.IncAccessGrant(kind, "granted")
	case err == nil:
		metrics.IncAccessGrant(kind, "already")
	case isNotFound(err):
		metrics.IncAccessGrant(kind, "not_found")
	default:
		metrics.IncAccessGrant(kind, "error")
		u.log.Error().Err(err).Str("kind", kind).Msg("access grant failed")
	}
}

// mutateResource is the resource counterpart of ledgerUC.mutate. A missing
// resource is domain.ErrNotFound; there is no create path.
func mutateResource(ctx context.Context, repo repository.ResourceRepository, id string, fn func(r *model.Resource) (bool, error)) error {
	err := retryOnConflict(ctx, nil, func() error {
		r, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		changed, err := fn(r)
		if err != nil || !changed {
			return err
		}
		r.UpdatedAt = time.Now().UTC()
		return repo.Save(ctx, r)
	})
	return persistErr(err)
}
