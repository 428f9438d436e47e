package repository

import (
	"context"

	"docstore-gateway/internal/docstore/domain/model"
)

// ReadStatus is the state of a point read.
type ReadStatus int

const (
	ReadFound ReadStatus = iota
	ReadNotFound
	ReadFailed
)

func (s ReadStatus) String() string {
	switch s {
	case ReadFound:
		return "Found"
	case ReadNotFound:
		return "NotFound"
	default:
		return "Failed"
	}
}

// ReadResult is the tri-state outcome of DocumentStore.Read.
type ReadResult struct {
	Status   ReadStatus
	Document model.Document
	Err      error
}

// Found builds a ReadResult carrying doc.
func Found(doc model.Document) ReadResult {
	return ReadResult{Status: ReadFound, Document: doc}
}

// NotFound builds a ReadResult for a missing document. err describes the
// miss and may be nil.
func NotFound(err error) ReadResult {
	return ReadResult{Status: ReadNotFound, Err: err}
}

// Failed builds a ReadResult for any other failure.
func Failed(err error) ReadResult {
	return ReadResult{Status: ReadFailed, Err: err}
}

// DocumentStore is the port to the remote document database. Implementations
// report a missing document with errors.ErrDocumentNotFound and a duplicate
// with errors.ErrDocumentExists, wrapped with %w.
type DocumentStore interface {
	// Read fetches the document at addr.
	Read(ctx context.Context, addr model.Address) ReadResult
	// Create inserts doc at addr. It fails when the document already exists.
	Create(ctx context.Context, addr model.Address, doc model.Document) (model.Document, error)
	// Replace unconditionally writes doc at addr, inserting it when absent.
	Replace(ctx context.Context, addr model.Address, doc model.Document) error
	// Delete removes the document at addr.
	Delete(ctx context.Context, addr model.Address) error
	// Query evaluates spec and returns a lazy sequence of matches.
	Query(ctx context.Context, spec model.QuerySpec) (model.DocumentSeq, error)
	// Ping checks connectivity with the store.
	Ping(ctx context.Context) error
}

// ConditionalInserter is implemented by stores with an atomic insert-if-absent
// primitive. inserted is false when the document already existed, in which case
// the stored document is left untouched.
type ConditionalInserter interface {
	InsertIfAbsent(ctx context.Context, addr model.Address, doc model.Document) (resource model.Document, inserted bool, err error)
}
