package mongo

import (
	"context"
	"errors"
	"time"

	"masterclass-reconciler/internal/domain"
	"masterclass-reconciler/internal/domain/ports/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repository.DocumentStore = (*documentStore)(nil)

// stored is the on-disk shape: the JSON body is kept as a native sub-document
// so it stays queryable from the mongo shell.
type stored struct {
	ID        string    `bson:"_id"`
	Version   int64     `bson:"version"`
	Body      bson.Raw  `bson:"body"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type documentStore struct {
	db *mongo.Database
}

func NewDocumentStore(db *mongo.Database) *documentStore {
	return &documentStore{db: db}
}

func (s *documentStore) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	var st stored
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&st)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return toDocument(st)
}

func (s *documentStore) Put(ctx context.Context, collection string, doc *repository.Document) (int64, error) {
	if doc == nil || doc.ID == "" {
		return 0, domain.ErrInvalidArgument
	}
	body, err := bodyFromJSON(doc.Body)
	if err != nil {
		return 0, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	coll := s.db.Collection(collection)

	if doc.Version == 0 {
		_, err := coll.InsertOne(ctx, bson.M{"_id": doc.ID, "version": int64(1), "body": body, "updated_at": now})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return 0, domain.ErrVersionConflict
			}
			return 0, domain.ErrOperationFailed
		}
		return 1, nil
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "version": doc.Version},
		bson.M{
			"$set": bson.M{"body": body, "updated_at": now},
			"$inc": bson.M{"version": int64(1)},
		},
	)
	if err != nil {
		return 0, domain.ErrOperationFailed
	}
	if res.MatchedCount == 0 {
		return 0, domain.ErrVersionConflict
	}
	return doc.Version + 1, nil
}

func (s *documentStore) List(ctx context.Context, collection string) ([]*repository.Document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer cur.Close(ctx)

	var out []*repository.Document
	for cur.Next(ctx) {
		var st stored
		if err := cur.Decode(&st); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		d, err := toDocument(st)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := cur.Err(); err != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func toDocument(st stored) (*repository.Document, error) {
	body, err := bodyToJSON(st.Body)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return &repository.Document{ID: st.ID, Version: st.Version, Body: body, UpdatedAt: st.UpdatedAt}, nil
}
