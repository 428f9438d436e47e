package model

import "time"

// ChangeType names a document mutation published on the change feed.
type ChangeType string

const (
	ChangeCreated  ChangeType = "document.created"
	ChangeReplaced ChangeType = "document.replaced"
	ChangeDeleted  ChangeType = "document.deleted"
)

// AllChangeTypes lists every change type, in publication order of a document's life.
var AllChangeTypes = []ChangeType{ChangeCreated, ChangeReplaced, ChangeDeleted}

// ChangeEvent describes one successful write against the remote store.
type ChangeEvent struct {
	Type         ChangeType `json:"type"`
	Database     string     `json:"database"`
	Collection   string     `json:"collection"`
	ID           string     `json:"id"`
	PartitionKey string     `json:"partitionKey"`
	Document     Document   `json:"document,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// NewChangeEvent builds an event for addr. doc is nil for deletions.
func NewChangeEvent(changeType ChangeType, addr Address, doc Document) ChangeEvent {
	return ChangeEvent{
		Type:         changeType,
		Database:     addr.Database,
		Collection:   addr.Collection,
		ID:           addr.ID,
		PartitionKey: addr.PartitionKey,
		Document:     doc,
		Timestamp:    time.Now().UTC(),
	}
}
