package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"masterclass-reconciler/internal/domain/model"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/metrics"
	red "masterclass-reconciler/internal/infra/redis"
)

var _ repository.ResourceRepository = (*resourceRepoCacheDecorator)(nil)

// cachedResource carries the version alongside the body, since Resource
// does not serialise it.
type cachedResource struct {
	Version  int64           `json:"version"`
	Resource *model.Resource `json:"resource"`
}

// resourceRepoCacheDecorator serves Get from redis. Every Save drops the key,
// whether or not the write succeeded, so a retry after a version conflict
// always reads the store.
type resourceRepoCacheDecorator struct {
	inner repository.ResourceRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewResourceRepoCacheDecorator(inner repository.ResourceRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.ResourceRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	l := logger.With().Str("component", "ResourceCache").Logger()
	return &resourceRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func resourceKey(id string) string { return fmt.Sprintf("resource:%s", id) }

func (d *resourceRepoCacheDecorator) Get(ctx context.Context, id string) (*model.Resource, error) {
	key := resourceKey(id)
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil && val != "":
		var c cachedResource
		if json.Unmarshal([]byte(val), &c) == nil && c.Resource != nil {
			metrics.IncCacheRequest("resource", "hit")
			c.Resource.Version = c.Version
			return c.Resource, nil
		}
	case err != nil && !errors.Is(err, redis.Nil):
		metrics.IncCacheRequest("resource", "error")
		d.log.Warn().Err(err).Str("resource_id", id).Msg("cache read failed")
	}

	metrics.IncCacheRequest("resource", "miss")
	res, err := d.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(cachedResource{Version: res.Version, Resource: res}); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("resource_id", id).Msg("cache write failed")
		}
	}
	return res, nil
}

func (d *resourceRepoCacheDecorator) Save(ctx context.Context, res *model.Resource) error {
	err := d.inner.Save(ctx, res)
	if res != nil && res.ID != "" {
		if derr := d.cache.Del(ctx, resourceKey(res.ID)); derr != nil {
			d.log.Warn().Err(derr).Str("resource_id", res.ID).Msg("cache invalidation failed")
		}
	}
	return err
}

// ListScheduled always reads the store; the sweep needs fresh flags.
func (d *resourceRepoCacheDecorator) ListScheduled(ctx context.Context) ([]*model.Resource, error) {
	return d.inner.ListScheduled(ctx)
}
