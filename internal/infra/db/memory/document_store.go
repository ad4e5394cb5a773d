package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/ports/repository"
)

var _ repository.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is a process-local store with the same conditional write
// rules as the database backends. Bodies are copied on the way in and out.
type DocumentStore struct {
	mu   sync.RWMutex
	data map[string]map[string]repository.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{data: make(map[string]map[string]repository.Document)}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(d), nil
}

func (s *DocumentStore) Put(ctx context.Context, collection string, doc *repository.Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if doc == nil || doc.ID == "" {
		return 0, domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.data[collection]
	if !ok {
		coll = make(map[string]repository.Document)
		s.data[collection] = coll
	}
	cur, exists := coll[doc.ID]
	switch {
	case doc.Version == 0 && exists:
		return 0, domain.ErrVersionConflict
	case doc.Version != 0 && (!exists || cur.Version != doc.Version):
		return 0, domain.ErrVersionConflict
	}
	next := *clone(*doc)
	next.Version = doc.Version + 1
	next.UpdatedAt = time.Now()
	coll[doc.ID] = next
	return next.Version, nil
}

func (s *DocumentStore) List(ctx context.Context, collection string) ([]*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*repository.Document, 0, len(s.data[collection]))
	for _, d := range s.data[collection] {
		out = append(out, clone(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func clone(d repository.Document) *repository.Document {
	cp := d
	cp.Body = append([]byte(nil), d.Body...)
	return &cp
}
