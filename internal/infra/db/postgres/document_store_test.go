//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/ports/repository"
)

func TestDocumentStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	store := NewDocumentStore(testPool)

	t.Run("should create once and reject a second create", func(t *testing.T) {
		cleanup(t)

		v, err := store.Put(ctx, repository.CollectionLedgers, &repository.Document{ID: "u1", Body: []byte(`{"user_id":"u1"}`)})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if v != 1 {
			t.Errorf("expected version 1, got %d", v)
		}

		_, err = store.Put(ctx, repository.CollectionLedgers, &repository.Document{ID: "u1", Body: []byte(`{}`)})
		if !errors.Is(err, domain.ErrVersionConflict) {
			t.Fatalf("expected version conflict, got %v", err)
		}
	})

	t.Run("should update on matching version only", func(t *testing.T) {
		cleanup(t)
		_, _ = store.Put(ctx, repository.CollectionResources, &repository.Document{ID: "mc_1", Body: []byte(`{"id":"mc_1"}`)})

		v, err := store.Put(ctx, repository.CollectionResources, &repository.Document{ID: "mc_1", Version: 1, Body: []byte(`{"id":"mc_1","title":"A"}`)})
		if err != nil || v != 2 {
			t.Fatalf("expected version 2, got %d (%v)", v, err)
		}
		if _, err := store.Put(ctx, repository.CollectionResources, &repository.Document{ID: "mc_1", Version: 1, Body: []byte(`{}`)}); !errors.Is(err, domain.ErrVersionConflict) {
			t.Fatalf("expected stale write to conflict, got %v", err)
		}

		got, err := store.Get(ctx, repository.CollectionResources, "mc_1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Version != 2 {
			t.Errorf("expected stored version 2, got %d", got.Version)
		}
	})

	t.Run("should return not found and list per collection", func(t *testing.T) {
		cleanup(t)
		if _, err := store.Get(ctx, repository.CollectionLedgers, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		_, _ = store.Put(ctx, repository.CollectionLedgers, &repository.Document{ID: "u1", Body: []byte(`{}`)})
		_, _ = store.Put(ctx, repository.CollectionLedgers, &repository.Document{ID: "u2", Body: []byte(`{}`)})
		_, _ = store.Put(ctx, repository.CollectionResources, &repository.Document{ID: "mc_1", Body: []byte(`{}`)})

		docs, err := store.List(ctx, repository.CollectionLedgers)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(docs) != 2 || docs[0].ID != "u1" || docs[1].ID != "u2" {
			t.Errorf("unexpected listing %+v", docs)
		}
	})

	t.Run("should leave only the primary key index after migrating twice", func(t *testing.T) {
		if err := Migrate(ctx, testPool); err != nil {
			t.Fatalf("second migrate: %v", err)
		}
		var n int
		err := testPool.QueryRow(ctx, `SELECT count(*) FROM pg_indexes WHERE tablename = 'documents'`).Scan(&n)
		if err != nil {
			t.Fatalf("count indexes: %v", err)
		}
		if n != 1 {
			t.Errorf("expected only the primary key index, got %d", n)
		}
	})
}
