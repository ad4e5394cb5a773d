package repository

import (
	"context"
	"time"
)

const (
	CollectionLedgers   = "user_ledgers"
	CollectionResources = "resources"
)

// Document is an opaque JSON body stored under a collection and id.
// Version starts at 1 on create and grows by one on every write.
type Document struct {
	ID        string
	Version   int64
	Body      []byte
	UpdatedAt time.Time
}

// DocumentStore is the generic get/put/list store both collections live in.
//
// Put is conditional: a document with Version 0 is created only if absent,
// otherwise the write succeeds only when the stored version still equals
// doc.Version. A lost race returns domain.ErrVersionConflict. Put returns
// the new version.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Put(ctx context.Context, collection string, doc *Document) (int64, error)
	List(ctx context.Context, collection string) ([]*Document, error)
}
