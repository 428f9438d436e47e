package usecase

import (
	"context"

	"docstore-gateway/internal/docstore/domain/model"
	"docstore-gateway/internal/docstore/domain/repository"
	apperrors "docstore-gateway/internal/shared/errors"
	"docstore-gateway/internal/shared/eventbus"
	"docstore-gateway/internal/shared/logger"
	"docstore-gateway/internal/shared/utils"
)

const (
	// MessageMissingID is returned when a write payload has no usable id.
	MessageMissingID = "No valid 'id' field found in the document provided."
	// MessageCreateFailed is returned when the existence probe fails for a
	// reason other than not-found.
	MessageCreateFailed = "Unable to create document. The document may already exist."

	eventSource = "docstore"
)

// DocumentClientInterface is the set of operations exposed to the HTTP layer.
// Every operation reports its result as a model.Outcome and never returns an error.
type DocumentClientInterface interface {
	Read(ctx context.Context, collection, id, partitionKey string) model.Outcome
	CreateIfNotExists(ctx context.Context, collection string, doc model.Document, partitionKey string) model.Outcome
	CreateOrUpdate(ctx context.Context, collection string, doc model.Document, partitionKey string) model.Outcome
	Delete(ctx context.Context, collection, id, partitionKey string) model.Outcome
	Query(ctx context.Context, collection, expression, partitionKey string) model.Outcome
	QueryCrossPartition(ctx context.Context, collection, expression string) model.Outcome
}

// DocumentClient binds a store to one database. It holds no per-request
// state and is safe for concurrent use.
type DocumentClient struct {
	database  string
	store     repository.DocumentStore
	publisher eventbus.Publisher
	logger    logger.Logger
}

var _ DocumentClientInterface = (*DocumentClient)(nil)

// NewDocumentClient creates a client for database. publisher may be nil, in
// which case no change events are emitted.
func NewDocumentClient(database string, store repository.DocumentStore, publisher eventbus.Publisher, log logger.Logger) *DocumentClient {
	return &DocumentClient{
		database:  database,
		store:     store,
		publisher: publisher,
		logger:    log.WithComponent("document_client"),
	}
}

// Database returns the database every operation is bound to.
func (c *DocumentClient) Database() string { return c.database }

func (c *DocumentClient) address(collection, id, partitionKey string) model.Address {
	return model.Address{Database: c.database, Collection: collection, ID: id, PartitionKey: partitionKey}
}

func (c *DocumentClient) fail(ctx context.Context, operation string, err error) model.Outcome {
	if err == nil {
		err = apperrors.ErrDocumentNotFound
	}
	appErr := apperrors.Classify(err)
	c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"operation":  operation,
		"error_type": string(appErr.Type),
		"error":      err.Error(),
	}).Warn("Document operation failed")
	return model.BadRequest(appErr.Message)
}

func (c *DocumentClient) publish(ctx context.Context, changeType model.ChangeType, addr model.Address, doc model.Document) {
	if c.publisher == nil {
		return
	}
	change := model.NewChangeEvent(changeType, addr, doc)
	c.publisher.PublishAndForget(ctx, eventbus.NewBasicEvent(string(changeType), change, eventSource))
}

// Read fetches a single document. Any failure, including not-found, is a BadRequest.
func (c *DocumentClient) Read(ctx context.Context, collection, id, partitionKey string) model.Outcome {
	ctx = utils.WithOperation(ctx, "read", collection, partitionKey)
	res := c.store.Read(ctx, c.address(collection, id, partitionKey))
	switch res.Status {
	case repository.ReadFound:
		return model.OkDocument(res.Document)
	default:
		return c.fail(ctx, "read", res.Err)
	}
}

// CreateIfNotExists creates doc unless a document with the same id already
// lives in the partition, in which case the stored document is left as is.
func (c *DocumentClient) CreateIfNotExists(ctx context.Context, collection string, doc model.Document, partitionKey string) model.Outcome {
	ctx = utils.WithOperation(ctx, "create_if_not_exists", collection, partitionKey)
	id, ok := doc.ID()
	if !ok {
		return model.BadRequest(MessageMissingID)
	}
	addr := c.address(collection, id, partitionKey)

	if inserter, ok := c.store.(repository.ConditionalInserter); ok {
		resource, inserted, err := inserter.InsertIfAbsent(ctx, addr, doc)
		if err != nil {
			return c.fail(ctx, "create_if_not_exists", err)
		}
		if !inserted {
			return model.Ok()
		}
		c.publish(ctx, model.ChangeCreated, addr, resource)
		return model.Created(addr.Location(), resource)
	}

	// Without an atomic insert two callers may both observe NotFound; the
	// loser's Create then fails and surfaces as a BadRequest.
	res := c.store.Read(ctx, addr)
	switch res.Status {
	case repository.ReadFound:
		return model.Ok()
	case repository.ReadNotFound:
		resource, err := c.store.Create(ctx, addr, doc)
		if err != nil {
			return c.fail(ctx, "create_if_not_exists", err)
		}
		c.publish(ctx, model.ChangeCreated, addr, resource)
		return model.Created(addr.Location(), resource)
	default:
		c.fail(ctx, "create_if_not_exists", res.Err)
		return model.BadRequest(MessageCreateFailed)
	}
}

// CreateOrUpdate replaces the document addressed by its id and partitionKey,
// inserting it when absent.
func (c *DocumentClient) CreateOrUpdate(ctx context.Context, collection string, doc model.Document, partitionKey string) model.Outcome {
	ctx = utils.WithOperation(ctx, "create_or_update", collection, partitionKey)
	id, ok := doc.ID()
	if !ok {
		return model.BadRequest(MessageMissingID)
	}
	addr := c.address(collection, id, partitionKey)

	if err := c.store.Replace(ctx, addr, doc); err != nil {
		return c.fail(ctx, "create_or_update", err)
	}
	c.publish(ctx, model.ChangeReplaced, addr, doc)
	return model.Ok()
}

// Delete removes a document. Deleting a missing document is a BadRequest.
func (c *DocumentClient) Delete(ctx context.Context, collection, id, partitionKey string) model.Outcome {
	ctx = utils.WithOperation(ctx, "delete", collection, partitionKey)
	addr := c.address(collection, id, partitionKey)

	if err := c.store.Delete(ctx, addr); err != nil {
		return c.fail(ctx, "delete", err)
	}
	c.publish(ctx, model.ChangeDeleted, addr, nil)
	return model.Ok()
}

// Query runs expression against a single partition.
func (c *DocumentClient) Query(ctx context.Context, collection, expression, partitionKey string) model.Outcome {
	ctx = utils.WithOperation(ctx, "query", collection, partitionKey)
	return c.query(ctx, "query", model.QuerySpec{
		Database:     c.database,
		Collection:   collection,
		Expression:   expression,
		PartitionKey: partitionKey,
	})
}

// QueryCrossPartition runs expression against every partition of the collection.
func (c *DocumentClient) QueryCrossPartition(ctx context.Context, collection, expression string) model.Outcome {
	ctx = utils.WithOperation(ctx, "query_cross_partition", collection, "")
	return c.query(ctx, "query_cross_partition", model.QuerySpec{
		Database:       c.database,
		Collection:     collection,
		Expression:     expression,
		CrossPartition: true,
	})
}

func (c *DocumentClient) query(ctx context.Context, operation string, spec model.QuerySpec) model.Outcome {
	seq, err := c.store.Query(ctx, spec)
	if err != nil {
		return c.fail(ctx, operation, err)
	}
	return model.OkDocuments(seq)
}
