package mongodb

import (
	"context"
	"testing"

	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/docstore/domain/repository"
	apperrors "docstore-gateway/internal/shared/errors"
	"docstore-gateway/internal/shared/logger"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const testNamespace = "appdb.items"

func testAddress(id string) model.Address {
	return model.Address{Database: "appdb", Collection: "items", ID: id, PartitionKey: "pk1"}
}

func storedDoc(pk, id string, extra ...bson.E) bson.D {
	d := bson.D{
		{Key: "_id", Value: bson.D{{Key: "pk", Value: pk}, {Key: "id", Value: id}}},
		{Key: "id", Value: id},
	}
	return append(d, extra...)
}

func TestDocumentStore_Read(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch,
			storedDoc("pk1", "a", bson.E{Key: "v", Value: int32(1)})))

		res := store.Read(context.Background(), testAddress("a"))

		require.Equal(t, repository.ReadFound, res.Status)
		want := model.Document{{Key: "id", Value: "a"}, {Key: "v", Value: int32(1)}}
		if diff := cmp.Diff(want, res.Document); diff != "" {
			t.Errorf("Read() mismatch (-want +got):\n%s", diff)
		}

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "find", started.CommandName)
		assert.Equal(t, "pk1", started.Command.Lookup("filter", "_id", "pk").StringValue())
		assert.Equal(t, "a", started.Command.Lookup("filter", "_id", "id").StringValue())
	})

	mt.Run("not_found", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch))

		res := store.Read(context.Background(), testAddress("missing"))

		assert.Equal(t, repository.ReadNotFound, res.Status)
		assert.ErrorIs(t, res.Err, apperrors.ErrDocumentNotFound)
	})

	mt.Run("failed", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 13, Message: "unauthorized"}))

		res := store.Read(context.Background(), testAddress("a"))

		assert.Equal(t, repository.ReadFailed, res.Status)
		assert.ErrorContains(t, res.Err, "unauthorized")
	})
}

func TestDocumentStore_InsertIfAbsent(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	doc := model.Document{{Key: "id", Value: "a"}, {Key: "v", Value: int32(1)}}

	mt.Run("inserted", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		resource, inserted, err := store.InsertIfAbsent(context.Background(), testAddress("a"), doc)

		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, doc, resource)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "insert", started.CommandName)
		stored := started.Command.Lookup("documents").Array().Index(0).Value().Document()
		assert.Equal(t, "pk1", stored.Lookup("_id", "pk").StringValue())
		assert.Equal(t, "a", stored.Lookup("_id", "id").StringValue())
		assert.Equal(t, int32(1), stored.Lookup("v").Int32())
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		resource, inserted, err := store.InsertIfAbsent(context.Background(), testAddress("a"), doc)

		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Nil(t, resource)
	})

	mt.Run("create_reports_exists", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		_, err := store.Create(context.Background(), testAddress("a"), doc)

		assert.ErrorIs(t, err, apperrors.ErrDocumentExists)
	})

	mt.Run("store_error", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "insert failed"}))

		_, inserted, err := store.InsertIfAbsent(context.Background(), testAddress("a"), doc)

		assert.False(t, inserted)
		assert.ErrorContains(t, err, "insert failed")
	})
}

func TestDocumentStore_Replace(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	doc := model.Document{{Key: "id", Value: "a"}, {Key: "v", Value: int32(2)}}

	mt.Run("upsert", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(t, store.Replace(context.Background(), testAddress("a"), doc))

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "update", started.CommandName)
		update := started.Command.Lookup("updates").Array().Index(0).Value().Document()
		assert.True(t, update.Lookup("upsert").Boolean())
		assert.Equal(t, int32(2), update.Lookup("u", "v").Int32())
	})

	mt.Run("error", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "replace failed"}))

		err := store.Replace(context.Background(), testAddress("a"), doc)
		assert.ErrorContains(t, err, "replace failed")
	})
}

func TestDocumentStore_Delete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deleted", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(t, store.Delete(context.Background(), testAddress("a")))
	})

	mt.Run("missing", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := store.Delete(context.Background(), testAddress("a"))
		assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	})
}

func TestDocumentStore_Query(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("predicate_scoped", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch,
			storedDoc("pk1", "a", bson.E{Key: "v", Value: int32(1)}),
			storedDoc("pk1", "b", bson.E{Key: "v", Value: int32(5)}),
		))

		seq, err := store.Query(context.Background(), model.QuerySpec{
			Database:     "appdb",
			Collection:   "items",
			Expression:   "SELECT * FROM c WHERE c.v > 2",
			PartitionKey: "pk1",
		})
		require.NoError(t, err)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "pk1", started.Command.Lookup("filter", "_id.pk").StringValue())

		docs, err := model.CollectDocuments(seq)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		id, _ := docs[0].ID()
		assert.Equal(t, "b", id)
		_, hasKey := docs[0].Get("_id")
		assert.False(t, hasKey)
	})

	mt.Run("native_cross_partition", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, testNamespace, mtest.FirstBatch,
			storedDoc("pk1", "a"),
			storedDoc("pk2", "b"),
		))

		seq, err := store.Query(context.Background(), model.QuerySpec{
			Database:       "appdb",
			Collection:     "items",
			Expression:     `{"v": {"$gt": 1}}`,
			CrossPartition: true,
		})
		require.NoError(t, err)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		filter := started.Command.Lookup("filter").Document()
		_, err = filter.LookupErr("_id.pk")
		assert.Error(t, err)
		_, err = filter.LookupErr("v", "$gt")
		assert.NoError(t, err)

		docs, err := model.CollectDocuments(seq)
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	mt.Run("invalid_expression", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())

		_, err := store.Query(context.Background(), model.QuerySpec{
			Database:   "appdb",
			Collection: "items",
			Expression: "SELECT * FROM c WHERE c.v >",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
	})

	mt.Run("find_error", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "find error"}))

		_, err := store.Query(context.Background(), model.QuerySpec{
			Database:     "appdb",
			Collection:   "items",
			Expression:   "c.v = 1",
			PartitionKey: "pk1",
		})
		assert.ErrorContains(t, err, "find error")
	})
}

func TestDocumentStore_Ping(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("ok", func(mt *mtest.T) {
		store := NewDocumentStore(mt.Client, logger.NewNopLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(t, store.Ping(context.Background()))
	})

	t.Run("nil_client", func(t *testing.T) {
		store := NewDocumentStore(nil, logger.NewNopLogger())
		assert.ErrorIs(t, store.Ping(context.Background()), apperrors.ErrStoreNotInitialized)
	})
}

func TestBuildFilter(t *testing.T) {
	native := bson.D{{Key: "v", Value: int32(1)}}
	scoped := model.QuerySpec{PartitionKey: "pk1"}

	tests := []struct {
		name string
		expr string
		spec model.QuerySpec
		want bson.D
	}{
		{"predicate scoped", "c.v = 1", scoped, bson.D{{Key: "_id.pk", Value: "pk1"}}},
		{"predicate cross", "c.v = 1", model.QuerySpec{CrossPartition: true}, bson.D{}},
		{"native scoped", `{"v": 1}`, scoped, bson.D{{Key: "$and", Value: bson.A{native, bson.D{{Key: "_id.pk", Value: "pk1"}}}}}},
		{"native cross", `{"v": 1}`, model.QuerySpec{CrossPartition: true}, native},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := mustParse(t, tt.expr)
			if diff := cmp.Diff(tt.want, buildFilter(expr, tt.spec)); diff != "" {
				t.Errorf("buildFilter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	opts := buildClientOptions(ClientOptions{URI: "mongodb://localhost:27017", AppName: "gw"})
	assert.Nil(t, opts.Auth)
	require.NotNil(t, opts.AppName)
	assert.Equal(t, "gw", *opts.AppName)

	opts = buildClientOptions(ClientOptions{
		URI:        "mongodb://localhost:27017",
		Username:   "svc",
		Password:   "secret",
		AuthSource: "admin",
	})
	require.NotNil(t, opts.Auth)
	assert.Equal(t, "svc", opts.Auth.Username)
	assert.Equal(t, "secret", opts.Auth.Password)
	assert.Equal(t, "admin", opts.Auth.AuthSource)
}
