package docstore

import (
	"context"
	"encoding/json"
	"sort"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/repository"
)

var _ repository.ResourceRepository = (*resourceRepo)(nil)

type resourceRepo struct{ store repository.DocumentStore }

func NewResourceRepo(store repository.DocumentStore) *resourceRepo {
	return &resourceRepo{store: store}
}

func (r *resourceRepo) Get(ctx context.Context, id string) (*model.Resource, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	d, err := r.store.Get(ctx, repository.CollectionResources, id)
	if err != nil {
		return nil, err
	}
	return decodeResource(d)
}

func (r *resourceRepo) Save(ctx context.Context, res *model.Resource) error {
	if res == nil || res.ID == "" {
		return domain.ErrInvalidArgument
	}
	body, err := json.Marshal(res)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	v, err := r.store.Put(ctx, repository.CollectionResources, &repository.Document{ID: res.ID, Version: res.Version, Body: body})
	if err != nil {
		return err
	}
	res.Version = v
	return nil
}

func (r *resourceRepo) ListScheduled(ctx context.Context) ([]*model.Resource, error) {
	docs, err := r.store.List(ctx, repository.CollectionResources)
	if err != nil {
		return nil, err
	}
	var out []*model.Resource
	for _, d := range docs {
		res, err := decodeResource(d)
		if err != nil {
			return nil, err
		}
		if res.Type == model.ResourceTypeUpcoming && res.Scheduled() {
			out = append(out, res)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Schedule.StartsAt.Before(out[j].Schedule.StartsAt)
	})
	return out, nil
}

func decodeResource(d *repository.Document) (*model.Resource, error) {
	res := &model.Resource{}
	if err := json.Unmarshal(d.Body, res); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if res.ID == "" {
		res.ID = d.ID
	}
	if res.AccessList == nil {
		res.AccessList = []string{}
	}
	res.Version = d.Version
	return res, nil
}
