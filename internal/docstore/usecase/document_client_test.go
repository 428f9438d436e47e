package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"docstore-gateway/internal/docstore/adapter/persistence/memory"
	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/docstore/domain/repository"
	apperrors "docstore-gateway/internal/shared/errors"
	"docstore-gateway/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testDB = "appdb"

func parse(t *testing.T, js string) model.Document {
	t.Helper()
	d, err := model.ParseDocument([]byte(js))
	require.NoError(t, err)
	return d
}

func newMemoryClient() (*DocumentClient, *memory.DocumentStore, *recordingPublisher) {
	store := memory.NewDocumentStore()
	pub := &recordingPublisher{}
	return NewDocumentClient(testDB, store, pub, logger.NewNopLogger()), store, pub
}

func TestDocumentClient_MissingIDSkipsStore(t *testing.T) {
	payloads := []string{`{}`, `{"name":"x"}`, `{"id":5}`, `{"id":""}`, `{"id":null}`}

	for _, js := range payloads {
		t.Run(js, func(t *testing.T) {
			client, store, pub := newMemoryClient()

			out := client.CreateIfNotExists(context.Background(), "items", parse(t, js), "pk")
			assert.Equal(t, model.OutcomeBadRequest, out.Kind())
			assert.Equal(t, MessageMissingID, out.Message())

			out = client.CreateOrUpdate(context.Background(), "items", parse(t, js), "pk")
			assert.Equal(t, model.OutcomeBadRequest, out.Kind())
			assert.Equal(t, MessageMissingID, out.Message())

			assert.Equal(t, 0, store.Calls())
			assert.Empty(t, pub.changes())
		})
	}
}

func TestDocumentClient_CreateIfNotExistsTwice(t *testing.T) {
	client, _, pub := newMemoryClient()
	ctx := context.Background()

	first := client.CreateIfNotExists(ctx, "items", parse(t, `{"id":"a","v":1}`), "pk1")
	require.Equal(t, model.OutcomeCreated, first.Kind())
	assert.Equal(t, "dbs/appdb/colls/items/docs/a", first.Location())
	resource, ok := first.Document()
	require.True(t, ok)
	assert.Equal(t, parse(t, `{"id":"a","v":1}`), resource)

	second := client.CreateIfNotExists(ctx, "items", parse(t, `{"id":"a","v":2}`), "pk1")
	assert.Equal(t, model.OutcomeOK, second.Kind())
	_, hasPayload := second.Document()
	assert.False(t, hasPayload)

	read := client.Read(ctx, "items", "a", "pk1")
	stored, _ := read.Document()
	assert.Equal(t, parse(t, `{"id":"a","v":1}`), stored)

	changes := pub.changes()
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeCreated, changes[0].Type)
	assert.Equal(t, "pk1", changes[0].PartitionKey)
}

func TestDocumentClient_CreateOrUpdateIdempotent(t *testing.T) {
	client, _, pub := newMemoryClient()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		out := client.CreateOrUpdate(ctx, "items", parse(t, `{"id":"a","v":2}`), "pk1")
		assert.Equal(t, model.OutcomeOK, out.Kind())
	}

	read := client.Read(ctx, "items", "a", "pk1")
	require.Equal(t, model.OutcomeOK, read.Kind())
	doc, _ := read.Document()
	assert.Equal(t, parse(t, `{"id":"a","v":2}`), doc)
	assert.Len(t, pub.changes(), 2)
}

func TestDocumentClient_DeleteThenRead(t *testing.T) {
	client, _, pub := newMemoryClient()
	ctx := context.Background()

	require.Equal(t, model.OutcomeOK, client.CreateOrUpdate(ctx, "items", parse(t, `{"id":"a"}`), "pk1").Kind())
	assert.Equal(t, model.OutcomeOK, client.Delete(ctx, "items", "a", "pk1").Kind())

	read := client.Read(ctx, "items", "a", "pk1")
	assert.Equal(t, model.OutcomeBadRequest, read.Kind())
	assert.Contains(t, read.Message(), "document not found")

	again := client.Delete(ctx, "items", "a", "pk1")
	assert.Equal(t, model.OutcomeBadRequest, again.Kind())

	changes := pub.changes()
	require.Len(t, changes, 2)
	assert.Equal(t, model.ChangeDeleted, changes[1].Type)
	assert.Nil(t, changes[1].Document)
}

func TestDocumentClient_QueryScopes(t *testing.T) {
	client, _, _ := newMemoryClient()
	ctx := context.Background()
	for _, w := range []struct{ js, pk string }{
		{`{"id":"a","v":1}`, "pk1"},
		{`{"id":"b","v":2}`, "pk1"},
		{`{"id":"c","v":3}`, "pk2"},
	} {
		require.Equal(t, model.OutcomeOK, client.CreateOrUpdate(ctx, "items", parse(t, w.js), w.pk).Kind())
	}

	collect := func(out model.Outcome) []string {
		require.Equal(t, model.OutcomeOK, out.Kind(), out.Message())
		seq, ok := out.Documents()
		require.True(t, ok)
		docs, err := model.CollectDocuments(seq)
		require.NoError(t, err)
		ids := make([]string, 0, len(docs))
		for _, d := range docs {
			id, _ := d.ID()
			ids = append(ids, id)
		}
		return ids
	}

	scoped := collect(client.Query(ctx, "items", "SELECT * FROM c", "pk1"))
	cross := collect(client.QueryCrossPartition(ctx, "items", "SELECT * FROM c"))
	assert.Equal(t, []string{"a", "b"}, scoped)
	assert.Subset(t, cross, scoped)
	assert.Equal(t, []string{"a", "b", "c"}, cross)

	filtered := collect(client.QueryCrossPartition(ctx, "items", "SELECT * FROM c WHERE c.v >= 2"))
	assert.Equal(t, []string{"b", "c"}, filtered)

	bad := client.Query(ctx, "items", "SELECT c.id FROM c", "pk1")
	assert.Equal(t, model.OutcomeBadRequest, bad.Kind())
}

func TestDocumentClient_ConditionalInsertPath(t *testing.T) {
	ctx := context.Background()
	doc := model.Document{{Key: "id", Value: "a"}}
	addr := model.Address{Database: testDB, Collection: "items", ID: "a", PartitionKey: "pk"}

	t.Run("exists", func(t *testing.T) {
		store := new(mockConditionalStore)
		store.On("InsertIfAbsent", mock.Anything, addr, doc).Return(nil, false, nil)
		client := NewDocumentClient(testDB, store, nil, logger.NewNopLogger())

		out := client.CreateIfNotExists(ctx, "items", doc, "pk")
		assert.Equal(t, model.OutcomeOK, out.Kind())
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "Read", mock.Anything, mock.Anything)
	})

	t.Run("store_error", func(t *testing.T) {
		store := new(mockConditionalStore)
		store.On("InsertIfAbsent", mock.Anything, addr, doc).Return(nil, false, errors.New("throttled"))
		client := NewDocumentClient(testDB, store, nil, logger.NewNopLogger())

		out := client.CreateIfNotExists(ctx, "items", doc, "pk")
		assert.Equal(t, model.OutcomeBadRequest, out.Kind())
		assert.Equal(t, "throttled", out.Message())
	})
}

func TestDocumentClient_CheckThenActFallback(t *testing.T) {
	ctx := context.Background()
	doc := model.Document{{Key: "id", Value: "a"}}
	addr := model.Address{Database: testDB, Collection: "items", ID: "a", PartitionKey: "pk"}

	t.Run("found", func(t *testing.T) {
		store := new(mockDocumentStore)
		store.On("Read", mock.Anything, addr).Return(repository.Found(doc))
		client := NewDocumentClient(testDB, store, nil, logger.NewNopLogger())

		assert.Equal(t, model.OutcomeOK, client.CreateIfNotExists(ctx, "items", doc, "pk").Kind())
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not_found_creates", func(t *testing.T) {
		store := new(mockDocumentStore)
		store.On("Read", mock.Anything, addr).Return(repository.NotFound(apperrors.ErrDocumentNotFound))
		store.On("Create", mock.Anything, addr, doc).Return(doc, nil)
		pub := &recordingPublisher{}
		client := NewDocumentClient(testDB, store, pub, logger.NewNopLogger())

		out := client.CreateIfNotExists(ctx, "items", doc, "pk")
		assert.Equal(t, model.OutcomeCreated, out.Kind())
		assert.Equal(t, "dbs/appdb/colls/items/docs/a", out.Location())
		assert.Len(t, pub.changes(), 1)
	})

	t.Run("lost_race", func(t *testing.T) {
		store := new(mockDocumentStore)
		store.On("Read", mock.Anything, addr).Return(repository.NotFound(nil))
		store.On("Create", mock.Anything, addr, doc).Return(nil, fmt.Errorf("%w: a", apperrors.ErrDocumentExists))
		client := NewDocumentClient(testDB, store, nil, logger.NewNopLogger())

		out := client.CreateIfNotExists(ctx, "items", doc, "pk")
		assert.Equal(t, model.OutcomeBadRequest, out.Kind())
		assert.Equal(t, "document already exists: a", out.Message())
	})

	t.Run("read_failed", func(t *testing.T) {
		store := new(mockDocumentStore)
		store.On("Read", mock.Anything, addr).Return(repository.Failed(errors.New("timeout")))
		client := NewDocumentClient(testDB, store, nil, logger.NewNopLogger())

		out := client.CreateIfNotExists(ctx, "items", doc, "pk")
		assert.Equal(t, model.OutcomeBadRequest, out.Kind())
		assert.Equal(t, MessageCreateFailed, out.Message())
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDocumentClient_StoreErrorsBecomeBadRequest(t *testing.T) {
	ctx := context.Background()
	store := new(mockDocumentStore)
	store.On("Read", mock.Anything, mock.Anything).Return(repository.Failed(errors.New("unreachable")))
	store.On("Replace", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("too many requests"))
	store.On("Delete", mock.Anything, mock.Anything).Return(errors.New("forbidden"))
	store.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("bad cursor"))
	pub := &recordingPublisher{}
	client := NewDocumentClient(testDB, store, pub, logger.NewNopLogger())

	assert.Equal(t, "unreachable", client.Read(ctx, "items", "a", "pk").Message())
	assert.Equal(t, "too many requests", client.CreateOrUpdate(ctx, "items", model.Document{{Key: "id", Value: "a"}}, "pk").Message())
	assert.Equal(t, "forbidden", client.Delete(ctx, "items", "a", "pk").Message())
	assert.Equal(t, "bad cursor", client.Query(ctx, "items", "true", "pk").Message())
	assert.Equal(t, "bad cursor", client.QueryCrossPartition(ctx, "items", "true").Message())
	assert.Empty(t, pub.changes())
}

func TestDocumentClient_QueryCrossPartitionSpec(t *testing.T) {
	store := new(mockDocumentStore)
	store.On("Query", mock.Anything, model.QuerySpec{
		Database:       testDB,
		Collection:     "items",
		Expression:     "true",
		CrossPartition: true,
	}).Return(model.SliceSeq(nil), nil)
	client := NewDocumentClient(testDB, store, nil, logger.NewNopLogger())

	out := client.QueryCrossPartition(context.Background(), "items", "true")
	assert.Equal(t, model.OutcomeOK, out.Kind())
	store.AssertExpectations(t)
}
