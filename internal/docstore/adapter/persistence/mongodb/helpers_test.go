package mongodb

import (
	"testing"

	"docstore-gateway/internal/docstore/query"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, expr string) *query.Expression {
	t.Helper()
	parsed, err := query.Parse(expr)
	require.NoError(t, err)
	return parsed
}
