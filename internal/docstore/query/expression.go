// Package query parses the query expressions accepted by the gateway.
//
// Two forms are supported. An expression starting with '{' is a MongoDB
// extended-JSON filter handed to the store untouched. Anything else is the SQL
// dialect of the document API, "SELECT * FROM c WHERE c.v > 1", or a bare
// predicate over c. The predicate is translated to CEL and evaluated against
// each document streamed back from the store.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"docstore-gateway/internal/docstore/domain/model"
	apperrors "docstore-gateway/internal/shared/errors"

	"github.com/google/cel-go/cel"
	"go.mongodb.org/mongo-driver/bson"
)

// DefaultAlias is the document variable of bare predicates.
const DefaultAlias = "c"

var selectPattern = regexp.MustCompile(`(?is)^SELECT\s+(.+?)\s+FROM\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s+WHERE\s+(.+))?$`)

// Expression is a parsed query expression.
type Expression struct {
	raw     string
	native  bson.D
	alias   string
	source  string
	program cel.Program
}

// Parse validates and compiles expr.
func Parse(expr string) (*Expression, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty expression", apperrors.ErrInvalidQuery)
	}

	if strings.HasPrefix(trimmed, "{") {
		var filter bson.D
		if err := bson.UnmarshalExtJSON([]byte(trimmed), false, &filter); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidQuery, err)
		}
		if filter == nil {
			filter = bson.D{}
		}
		return &Expression{raw: expr, native: filter}, nil
	}

	alias, predicate, err := splitSelect(trimmed)
	if err != nil {
		return nil, err
	}

	source := translatePredicate(predicate)
	program, err := compile(alias, source)
	if err != nil {
		return nil, err
	}
	return &Expression{raw: expr, alias: alias, source: source, program: program}, nil
}

// splitSelect returns the document alias and the WHERE predicate.
func splitSelect(expr string) (alias, predicate string, err error) {
	if !strings.EqualFold(firstWord(expr), "SELECT") {
		return DefaultAlias, expr, nil
	}

	m := selectPattern.FindStringSubmatch(expr)
	if m == nil {
		return "", "", fmt.Errorf("%w: malformed SELECT statement", apperrors.ErrInvalidQuery)
	}
	if strings.TrimSpace(m[1]) != "*" {
		return "", "", fmt.Errorf("%w: only SELECT * is supported", apperrors.ErrUnsupportedQuery)
	}
	predicate = strings.TrimSpace(m[3])
	if predicate == "" {
		predicate = "true"
	}
	return m[2], predicate, nil
}

func firstWord(s string) string {
	if i := strings.IndexFunc(s, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }); i >= 0 {
		return s[:i]
	}
	return s
}

func compile(alias, source string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable(alias, cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidQuery, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: predicate must be boolean, got %s", apperrors.ErrInvalidQuery, out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidQuery, err)
	}
	return prg, nil
}

// IsNative reports whether the expression is a store-native filter.
func (e *Expression) IsNative() bool {
	return e.program == nil
}

// NativeFilter returns the store-native filter. It is nil for predicates.
func (e *Expression) NativeFilter() bson.D {
	return e.native
}

// Source returns the compiled CEL source of a predicate expression.
func (e *Expression) Source() string {
	return e.source
}

func (e *Expression) String() string {
	return e.raw
}

// Matches evaluates the predicate against doc. Native expressions always
// match because the store has already applied them. An evaluation error, such
// as a reference to a missing field, counts as no match.
func (e *Expression) Matches(doc model.Document) bool {
	if e.program == nil {
		return true
	}
	out, _, err := e.program.Eval(map[string]interface{}{
		e.alias: doc.ToMap(),
	})
	if err != nil {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}
