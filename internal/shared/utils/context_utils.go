package utils

import (
	"context"
	"errors"

	"docstore-gateway/internal/shared/contextkeys"
)

// Common context errors
var (
	ErrRequestIDNotFound  = errors.New("requestID not found in context")
	ErrRequestIDNotString = errors.New("requestID in context is not a string")
)

// WithRequestID returns a copy of ctx carrying the request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextkeys.RequestIDKey, requestID)
}

// GetRequestIDFromContext retrieves the request ID from the context.
// It returns the request ID and an error if it is not found or is not a string.
func GetRequestIDFromContext(ctx context.Context) (string, error) {
	val := ctx.Value(contextkeys.RequestIDKey)
	if val == nil {
		return "", ErrRequestIDNotFound
	}
	requestID, ok := val.(string)
	if !ok {
		return "", ErrRequestIDNotString
	}
	return requestID, nil
}

// WithOperation tags ctx with the client operation and its addressing so that
// loggers built with WithContext pick them up.
func WithOperation(ctx context.Context, operation, collection, partitionKey string) context.Context {
	ctx = context.WithValue(ctx, contextkeys.OperationKey, operation)
	ctx = context.WithValue(ctx, contextkeys.CollectionKey, collection)
	if partitionKey != "" {
		ctx = context.WithValue(ctx, contextkeys.PartitionKeyKey, partitionKey)
	}
	return ctx
}

// GetStringFromContext returns the string stored under key, or "" when absent.
func GetStringFromContext(ctx context.Context, key interface{}) string {
	if val, ok := ctx.Value(key).(string); ok {
		return val
	}
	return ""
}
