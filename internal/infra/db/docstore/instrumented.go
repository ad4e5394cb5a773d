package docstore

import (
	"context"
	"errors"
	"time"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/ports/repository"
	"masterclass-reconciler/internal/infra/metrics"
)

var _ repository.DocumentStore = (*instrumentedStore)(nil)

// instrumentedStore decorates a DocumentStore with latency and conflict metrics.
type instrumentedStore struct {
	inner repository.DocumentStore
}

func NewInstrumented(inner repository.DocumentStore) *instrumentedStore {
	return &instrumentedStore{inner: inner}
}

func (s *instrumentedStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	start := time.Now()
	d, err := s.inner.Get(ctx, collection, id)
	metrics.ObserveStoreOp(collection, "get", result(err), time.Since(start))
	return d, err
}

func (s *instrumentedStore) Put(ctx context.Context, collection string, doc *repository.Document) (int64, error) {
	start := time.Now()
	v, err := s.inner.Put(ctx, collection, doc)
	metrics.ObserveStoreOp(collection, "put", result(err), time.Since(start))
	if errors.Is(err, domain.ErrVersionConflict) {
		metrics.IncVersionConflict(collection)
	}
	return v, err
}

func (s *instrumentedStore) List(ctx context.Context, collection string) ([]*repository.Document, error) {
	start := time.Now()
	docs, err := s.inner.List(ctx, collection)
	metrics.ObserveStoreOp(collection, "list", result(err), time.Since(start))
	return docs, err
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrVersionConflict):
		return "conflict"
	default:
		return "error"
	}
}
