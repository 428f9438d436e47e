package model

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the document property that carries the document identifier.
const IDField = "id"

// ErrNotAnObject is returned when a payload is not a JSON object.
var ErrNotAnObject = errors.New("document must be a JSON object")

// Document is an ordered JSON object. Keeping bson.D preserves key order and
// numeric kinds between the request body, the store and the response.
type Document bson.D

// ParseDocument decodes a JSON object into a Document.
func ParseDocument(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}

	var d bson.D
	if err := bson.UnmarshalExtJSON(trimmed, false, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnObject, err)
	}
	if d == nil {
		d = bson.D{}
	}
	return Document(d), nil
}

// ID returns the string value of the "id" property. ok is false when the
// property is missing, is not a string or is empty.
func (d Document) ID() (id string, ok bool) {
	v, found := d.Get(IDField)
	if !found {
		return "", false
	}
	id, ok = v.(string)
	return id, ok && id != ""
}

// Get returns the top-level value stored under key.
func (d Document) Get(key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Without returns a copy of d without the given top-level keys.
func (d Document) Without(keys ...string) Document {
	out := make(Document, 0, len(d))
next:
	for _, e := range d {
		for _, k := range keys {
			if e.Key == k {
				continue next
			}
		}
		out = append(out, e)
	}
	return out
}

// MarshalJSON renders the document as relaxed extended JSON, so plain
// numbers, strings and nested objects come out as ordinary JSON.
func (d Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return bson.MarshalExtJSON(bson.D(d), false, false)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDocument(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ToMap converts the document into plain Go maps and slices, the shape used by
// expression evaluators. int32 values are widened to int64.
func (d Document) ToMap() map[string]interface{} {
	return docToMap(bson.D(d))
}

func docToMap(d bson.D) map[string]interface{} {
	m := make(map[string]interface{}, len(d))
	for _, e := range d {
		m[e.Key] = plainValue(e.Value)
	}
	return m
}

func plainValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.D:
		return docToMap(val)
	case Document:
		return docToMap(bson.D(val))
	case bson.M:
		m := make(map[string]interface{}, len(val))
		for k, inner := range val {
			m[k] = plainValue(inner)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = plainValue(inner)
		}
		return out
	case int32:
		return int64(val)
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.Decimal128:
		return val.String()
	case time.Time:
		return val.UTC()
	default:
		return val
	}
}
