package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "docstore-gateway context key " + string(c)
}

// RequestIDKey is the key for the per-request correlation ID in context.Context
const RequestIDKey = contextKey("requestID")

// CollectionKey is the key for the target collection of the current operation
const CollectionKey = contextKey("collection")

// PartitionKeyKey is the key for the partition key of the current operation
const PartitionKeyKey = contextKey("partitionKey")

// OperationKey is the key for the client operation name (read, create_if_not_exists, ...)
const OperationKey = contextKey("operation")

// ComponentKey is the key for the component emitting log lines
const ComponentKey = contextKey("component")
