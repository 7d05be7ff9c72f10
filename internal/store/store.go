// Package store is the document store client. Every collection is a flat set of
// documents keyed by id; relationships are plain string fields resolved by query.
package store

import (
	"context"
	"errors"

	"anoa.com/shuttleapi/internal/entity"
	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

// Document is anything stored under a collection key.
type Document interface {
	DocID() string
	SetDocID(id string)
}

// Fields is a partial document used for merges. Keys are field names.
type Fields map[string]any

type Filter struct {
	Field string
	Value any
}

// Query is an equality-filtered, optionally ordered and limited scan.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

func Where(field string, value any) Query {
	return Query{}.Where(field, value)
}

func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

func (q Query) OrderByDesc(field string) Query {
	q.OrderBy, q.Desc = field, true
	return q
}

func (q Query) OrderByAsc(field string) Query {
	q.OrderBy, q.Desc = field, false
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// Store is the accessor every service and reactor receives. Single-document
// writes are atomic; sequences of calls are not, use a Batch for that.
type Store interface {
	// Get loads one document into dst (a struct pointer or *map[string]any).
	Get(ctx context.Context, coll entity.Collection, id string, dst any) error
	// Find runs q and appends matching documents into dst (a pointer to a slice).
	Find(ctx context.Context, coll entity.Collection, q Query, dst any) error
	// Create inserts doc, generating an id when it has none.
	Create(ctx context.Context, coll entity.Collection, doc Document) error
	// Set creates or fully replaces doc.
	Set(ctx context.Context, coll entity.Collection, doc Document) error
	// Update merges fields into an existing document; ErrNotFound if missing.
	Update(ctx context.Context, coll entity.Collection, id string, fields Fields) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, coll entity.Collection, id string) error
	Batch() Batch
}

type OpKind int

const (
	OpUpdate OpKind = iota
	OpDelete
)

type Op struct {
	Kind       OpKind
	Collection entity.Collection
	ID         string
	Fields     Fields
}

// Batch collects writes that commit all-or-nothing.
type Batch interface {
	Update(coll entity.Collection, id string, fields Fields)
	Delete(coll entity.Collection, id string)
	Ops() []Op
	Len() int
	Commit(ctx context.Context) error
}

type opList struct {
	ops []Op
}

func (b *opList) Update(coll entity.Collection, id string, fields Fields) {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Collection: coll, ID: id, Fields: fields})
}

func (b *opList) Delete(coll entity.Collection, id string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: coll, ID: id})
}

func (b *opList) Ops() []Op { return b.ops }

func (b *opList) Len() int { return len(b.ops) }

// NewID returns a time-ordered document id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func ensureID(doc Document) {
	if doc.DocID() == "" {
		doc.SetDocID(NewID())
	}
}
