package model

import (
	"fmt"
	"iter"
	"net/http"
)

// DocumentSeq is a lazy, forward-only sequence of documents. It can be ranged
// over once; ranging it to the end releases the underlying cursor.
type DocumentSeq = iter.Seq2[Document, error]

// OutcomeKind enumerates the closed set of client results.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeCreated
	OutcomeBadRequest
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "Ok"
	case OutcomeCreated:
		return "Created"
	case OutcomeBadRequest:
		return "BadRequest"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is returned by every document client operation in place of errors.
type Outcome struct {
	kind      OutcomeKind
	document  Document
	documents DocumentSeq
	location  string
	message   string
}

// Ok is a success without payload.
func Ok() Outcome {
	return Outcome{kind: OutcomeOK}
}

// OkDocument is a success carrying a single document.
func OkDocument(doc Document) Outcome {
	return Outcome{kind: OutcomeOK, document: doc}
}

// OkDocuments is a success carrying a document sequence.
func OkDocuments(seq DocumentSeq) Outcome {
	return Outcome{kind: OutcomeOK, documents: seq}
}

// Created reports a newly created resource and where it lives.
func Created(location string, resource Document) Outcome {
	return Outcome{kind: OutcomeCreated, location: location, document: resource}
}

// BadRequest reports any failure.
func BadRequest(message string) Outcome {
	return Outcome{kind: OutcomeBadRequest, message: message}
}

func (o Outcome) Kind() OutcomeKind { return o.kind }

// Document returns the single-document payload, if any.
func (o Outcome) Document() (Document, bool) {
	return o.document, o.document != nil
}

// Documents returns the sequence payload, if any.
func (o Outcome) Documents() (DocumentSeq, bool) {
	return o.documents, o.documents != nil
}

func (o Outcome) Location() string { return o.location }

func (o Outcome) Message() string { return o.message }

// StatusCode maps the outcome onto its HTTP status.
func (o Outcome) StatusCode() int {
	switch o.kind {
	case OutcomeCreated:
		return http.StatusCreated
	case OutcomeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

func (o Outcome) String() string {
	switch o.kind {
	case OutcomeCreated:
		return fmt.Sprintf("Created(%s)", o.location)
	case OutcomeBadRequest:
		return fmt.Sprintf("BadRequest(%s)", o.message)
	default:
		return "Ok"
	}
}

// CollectDocuments drains seq into a slice. It stops at the first error.
func CollectDocuments(seq DocumentSeq) ([]Document, error) {
	docs := make([]Document, 0)
	for doc, err := range seq {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// SliceSeq adapts a slice to a DocumentSeq.
func SliceSeq(docs []Document) DocumentSeq {
	return func(yield func(Document, error) bool) {
		for _, doc := range docs {
			if !yield(doc, nil) {
				return
			}
		}
	}
}
