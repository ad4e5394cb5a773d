package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/ports/repository"
)

var _ repository.DocumentStore = (*documentStore)(nil)

// documentStore keeps every collection in one JSONB table; the version
// column backs the conditional writes.
type documentStore struct{ pool *pgxpool.Pool }

func NewDocumentStore(pool *pgxpool.Pool) *documentStore {
	return &documentStore{pool: pool}
}

func (s *documentStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	const q = `SELECT id, version, body, updated_at FROM documents WHERE collection=$1 AND id=$2;`
	d := &repository.Document{}
	err := s.pool.QueryRow(ctx, q, collection, id).Scan(&d.ID, &d.Version, &d.Body, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return d, nil
}

func (s *documentStore) Put(ctx context.Context, collection string, doc *repository.Document) (int64, error) {
	if doc == nil || doc.ID == "" {
		return 0, domain.ErrInvalidArgument
	}
	if doc.Version == 0 {
		const q = `
INSERT INTO documents (collection, id, version, body, updated_at)
VALUES ($1, $2, 1, $3, NOW())
ON CONFLICT (collection, id) DO NOTHING;`
		tag, err := s.pool.Exec(ctx, q, collection, doc.ID, doc.Body)
		if err != nil {
			return 0, mapWriteErr(err)
		}
		if tag.RowsAffected() == 0 {
			return 0, domain.ErrVersionConflict
		}
		return 1, nil
	}

	const q = `
UPDATE documents SET body=$3, version=version+1, updated_at=NOW()
WHERE collection=$1 AND id=$2 AND version=$4;`
	tag, err := s.pool.Exec(ctx, q, collection, doc.ID, doc.Body, doc.Version)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return 0, domain.ErrVersionConflict
	}
	return doc.Version + 1, nil
}

func (s *documentStore) List(ctx context.Context, collection string) ([]*repository.Document, error) {
	const q = `SELECT id, version, body, updated_at FROM documents WHERE collection=$1 ORDER BY id;`
	rows, err := s.pool.Query(ctx, q, collection)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*repository.Document
	for rows.Next() {
		d := &repository.Document{}
		if err := rows.Scan(&d.ID, &d.Version, &d.Body, &d.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

// mapWriteErr turns serialization and unique violations into version
// conflicts so callers retry them; everything else is a persistence failure.
func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "23505":
			return domain.ErrVersionConflict
		}
	}
	return domain.ErrOperationFailed
}
