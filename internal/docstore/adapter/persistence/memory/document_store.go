// Package memory provides an in-process DocumentStore for local development
// and tests. It keeps collections in maps guarded by a single RWMutex.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/docstore/domain/repository"
	"docstore-gateway/internal/docstore/query"
	apperrors "docstore-gateway/internal/shared/errors"
)

type documentKey struct {
	partitionKey string
	id           string
}

type collectionKey struct {
	database   string
	collection string
}

// DocumentStore is a map-backed repository.DocumentStore.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[collectionKey]map[documentKey]model.Document
	calls       int
}

var (
	_ repository.DocumentStore       = (*DocumentStore)(nil)
	_ repository.ConditionalInserter = (*DocumentStore)(nil)
)

// NewDocumentStore creates an empty store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[collectionKey]map[documentKey]model.Document),
	}
}

// Calls returns how many store operations have been served.
func (s *DocumentStore) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

func (s *DocumentStore) docs(database, collection string, create bool) map[documentKey]model.Document {
	key := collectionKey{database: database, collection: collection}
	docs, ok := s.collections[key]
	if !ok && create {
		docs = make(map[documentKey]model.Document)
		s.collections[key] = docs
	}
	return docs
}

func keyOf(addr model.Address) documentKey {
	return documentKey{partitionKey: addr.PartitionKey, id: addr.ID}
}

// clone copies the top level so callers cannot mutate stored documents.
func clone(doc model.Document) model.Document {
	out := make(model.Document, len(doc))
	copy(out, doc)
	return out
}

func (s *DocumentStore) Read(ctx context.Context, addr model.Address) repository.ReadResult {
	if err := ctx.Err(); err != nil {
		return repository.Failed(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	doc, ok := s.docs(addr.Database, addr.Collection, false)[keyOf(addr)]
	if !ok {
		return repository.NotFound(fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, addr))
	}
	return repository.Found(clone(doc))
}

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

func (s *DocumentStore) InsertIfAbsent(ctx context.Context, addr model.Address, doc model.Document) (model.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	docs := s.docs(addr.Database, addr.Collection, true)
	if _, exists := docs[keyOf(addr)]; exists {
		return nil, false, nil
	}
	docs[keyOf(addr)] = clone(doc)
	return clone(doc), true, nil
}

func (s *DocumentStore) Replace(ctx context.Context, addr model.Address, doc model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	s.docs(addr.Database, addr.Collection, true)[keyOf(addr)] = clone(doc)
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, addr model.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	docs := s.docs(addr.Database, addr.Collection, false)
	if _, ok := docs[keyOf(addr)]; !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, addr)
	}
	delete(docs, keyOf(addr))
	return nil
}

// Query evaluates predicate expressions over a snapshot of the collection.
// Results are ordered by partition key, then id.
func (s *DocumentStore) Query(ctx context.Context, spec model.QuerySpec) (model.DocumentSeq, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expr, err := query.Parse(spec.Expression)
	if err != nil {
		return nil, err
	}
	if expr.IsNative() {
		return nil, fmt.Errorf("%w: native filters need the mongodb driver", apperrors.ErrUnsupportedQuery)
	}

	s.mu.Lock()
	s.calls++
	docs := s.docs(spec.Database, spec.Collection, false)
	keys := make([]documentKey, 0, len(docs))
	for k := range docs {
		if spec.CrossPartition || k.partitionKey == spec.PartitionKey {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].partitionKey != keys[j].partitionKey {
			return keys[i].partitionKey < keys[j].partitionKey
		}
		return keys[i].id < keys[j].id
	})
	snapshot := make([]model.Document, 0, len(keys))
	for _, k := range keys {
		snapshot = append(snapshot, clone(docs[k]))
	}
	s.mu.Unlock()

	return func(yield func(model.Document, error) bool) {
		for _, doc := range snapshot {
			if !expr.Matches(doc) {
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}
	}, nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
