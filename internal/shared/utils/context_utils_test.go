package utils

import (
	"context"
	"testing"

	"docstore-gateway/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRequestIDFromContext(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		id, err := GetRequestIDFromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "req-1", id)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := GetRequestIDFromContext(context.Background())
		assert.ErrorIs(t, err, ErrRequestIDNotFound)
	})

	t.Run("wrong type", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, 42)
		_, err := GetRequestIDFromContext(ctx)
		assert.ErrorIs(t, err, ErrRequestIDNotString)
	})
}

func TestWithOperation(t *testing.T) {
	ctx := WithOperation(context.Background(), "query", "items", "pk1")
	assert.Equal(t, "query", GetStringFromContext(ctx, contextkeys.OperationKey))
	assert.Equal(t, "items", GetStringFromContext(ctx, contextkeys.CollectionKey))
	assert.Equal(t, "pk1", GetStringFromContext(ctx, contextkeys.PartitionKeyKey))

	cross := WithOperation(context.Background(), "query_cross_partition", "items", "")
	assert.Empty(t, GetStringFromContext(cross, contextkeys.PartitionKeyKey))
}
