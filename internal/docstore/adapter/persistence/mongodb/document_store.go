package mongodb

import (
	"context"
	"errors"
	"fmt"

	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/docstore/domain/repository"
	"docstore-gateway/internal/docstore/query"
	apperrors "docstore-gateway/internal/shared/errors"
	"docstore-gateway/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	keyField          = "_id"
	keyPartitionField = "pk"
	keyIDField        = "id"
)

// DocumentStore implements repository.DocumentStore on MongoDB. Every document
// is stored with a compound _id {pk, id}, so (partitionKey, id) is unique
// within a collection and an insert doubles as a conditional create.
type DocumentStore struct {
	client *mongo.Client
	logger logger.Logger
}

var (
	_ repository.DocumentStore       = (*DocumentStore)(nil)
	_ repository.ConditionalInserter = (*DocumentStore)(nil)
)

// NewDocumentStore creates a MongoDB-backed document store
func NewDocumentStore(client *mongo.Client, log logger.Logger) *DocumentStore {
	return &DocumentStore{
		client: client,
		logger: log.WithComponent("mongodb_document_store"),
	}
}

func (s *DocumentStore) collection(database, collection string) *mongo.Collection {
	return s.client.Database(database).Collection(collection)
}

func compoundKey(addr model.Address) bson.D {
	return bson.D{
		{Key: keyPartitionField, Value: addr.PartitionKey},
		{Key: keyIDField, Value: addr.ID},
	}
}

func keyFilter(addr model.Address) bson.D {
	return bson.D{{Key: keyField, Value: compoundKey(addr)}}
}

// storedShape prepends the compound key to the user document.
func storedShape(addr model.Address, doc model.Document) bson.D {
	body := doc.Without(keyField)
	out := make(bson.D, 0, len(body)+1)
	out = append(out, bson.E{Key: keyField, Value: compoundKey(addr)})
	return append(out, body...)
}

// Read fetches a document by its compound key
func (s *DocumentStore) Read(ctx context.Context, addr model.Address) repository.ReadResult {
	var raw bson.D
	err := s.collection(addr.Database, addr.Collection).FindOne(ctx, keyFilter(addr)).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.NotFound(fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, addr))
		}
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"address": addr.String(),
			"error":   err.Error(),
		}).Error("Failed to read document")
		return repository.Failed(fmt.Errorf("failed to read document: %w", err))
	}
	return repository.Found(model.Document(raw).Without(keyField))
}

// Create inserts doc and fails with ErrDocumentExists when the key is taken
func (s *DocumentStore) Create(ctx context.Context, addr model.Address, doc model.Document) (model.Document, error) {
	resource, inserted, err := s.InsertIfAbsent(ctx, addr, doc)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentExists, addr)
	}
	return resource, nil
}

// InsertIfAbsent performs a single InsertOne. A duplicate key error means the
// document already existed and nothing was written.
func (s *DocumentStore) InsertIfAbsent(ctx context.Context, addr model.Address, doc model.Document) (model.Document, bool, error) {
	_, err := s.collection(addr.Database, addr.Collection).InsertOne(ctx, storedShape(addr, doc))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.logger.WithContext(ctx).Debugf("Document %s already exists", addr)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to insert document: %w", err)
	}
	return doc.Without(keyField), true, nil
}

// Replace writes doc at addr, inserting it when absent
func (s *DocumentStore) Replace(ctx context.Context, addr model.Address, doc model.Document) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection(addr.Database, addr.Collection).ReplaceOne(ctx, keyFilter(addr), storedShape(addr, doc), opts)
	if err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

// Delete removes the document at addr
func (s *DocumentStore) Delete(ctx context.Context, addr model.Address) error {
	res, err := s.collection(addr.Database, addr.Collection).DeleteOne(ctx, keyFilter(addr))
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, addr)
	}
	return nil
}

// Query runs spec and streams the matches. Native filters are evaluated by the
// server; predicates are evaluated on each document of the partition scan.
func (s *DocumentStore) Query(ctx context.Context, spec model.QuerySpec) (model.DocumentSeq, error) {
	expr, err := query.Parse(spec.Expression)
	if err != nil {
		return nil, err
	}

	filter := buildFilter(expr, spec)
	cursor, err := s.collection(spec.Database, spec.Collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"collection":      spec.Collection,
		"cross_partition": spec.CrossPartition,
		"native":          expr.IsNative(),
	}).Debug("Query started")

	return func(yield func(model.Document, error) bool) {
		defer cursor.Close(context.WithoutCancel(ctx))
		for cursor.Next(ctx) {
			var raw bson.D
			if err := cursor.Decode(&raw); err != nil {
				yield(nil, fmt.Errorf("failed to decode document: %w", err))
				return
			}
			doc := model.Document(raw).Without(keyField)
			if !expr.Matches(doc) {
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			yield(nil, fmt.Errorf("query cursor failed: %w", err))
		}
	}, nil
}

func buildFilter(expr *query.Expression, spec model.QuerySpec) bson.D {
	var partition bson.D
	if !spec.CrossPartition {
		partition = bson.D{{Key: keyField + "." + keyPartitionField, Value: spec.PartitionKey}}
	}

	if !expr.IsNative() {
		if partition == nil {
			return bson.D{}
		}
		return partition
	}

	native := expr.NativeFilter()
	if partition == nil {
		return native
	}
	return bson.D{{Key: "$and", Value: bson.A{native, partition}}}
}

// Ping checks connectivity with the primary
func (s *DocumentStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return apperrors.ErrStoreNotInitialized
	}
	return s.client.Ping(ctx, readpref.Primary())
}
