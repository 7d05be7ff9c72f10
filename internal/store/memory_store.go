package store

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	"github.com/goccy/go-json"
)

// MemoryStore keeps documents as encoded JSON. It backs tests and the
// STORE_DRIVER=memory mode; field names are the documents' JSON keys.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[entity.Collection]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[entity.Collection]map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, coll entity.Collection, id string, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	raw, ok := s.docs[coll][id]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

type candidate struct {
	id     string
	raw    []byte
	fields map[string]any
}

func (s *MemoryStore) Find(ctx context.Context, coll entity.Collection, q Query, dst any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	matched := make([]candidate, 0)
	for id, raw := range s.docs[coll] {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			s.mu.RUnlock()
			return fmt.Errorf("decode %s/%s: %w", coll, id, err)
		}
		if matches(fields, q.Filters) {
			matched = append(matched, candidate{id: id, raw: raw, fields: fields})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if q.OrderBy != "" {
			if c := compareValues(matched[i].fields[q.OrderBy], matched[j].fields[q.OrderBy]); c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return matched[i].id < matched[j].id
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range matched {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(c.raw)
	}
	buf.WriteByte(']')

	return json.Unmarshal(buf.Bytes(), dst)
}

func (s *MemoryStore) Create(ctx context.Context, coll entity.Collection, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ensureID(doc)

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collection(coll)[doc.DocID()]; exists {
		return fmt.Errorf("%s/%s: %w", coll, doc.DocID(), ErrAlreadyExists)
	}
	s.collection(coll)[doc.DocID()] = raw
	return nil
}

func (s *MemoryStore) Set(ctx context.Context, coll entity.Collection, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ensureID(doc)

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.collection(coll)[doc.DocID()] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, coll entity.Collection, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(coll, id, fields)
}

func (s *MemoryStore) Delete(ctx context.Context, coll entity.Collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.collection(coll), id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Batch() Batch {
	return &memoryBatch{store: s}
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(coll entity.Collection) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[coll])
}

func (s *MemoryStore) collection(coll entity.Collection) map[string][]byte {
	docs, ok := s.docs[coll]
	if !ok {
		docs = make(map[string][]byte)
		s.docs[coll] = docs
	}
	return docs
}

func (s *MemoryStore) updateLocked(coll entity.Collection, id string, fields Fields) error {
	raw, ok := s.docs[coll][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", coll, id, ErrNotFound)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.docs[coll][id] = merged
	return nil
}

type memoryBatch struct {
	opList
	store *MemoryStore
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range b.ops {
		if op.Kind != OpUpdate {
			continue
		}
		if _, ok := s.docs[op.Collection][op.ID]; !ok {
			return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrNotFound)
		}
	}

	for _, op := range b.ops {
		switch op.Kind {
		case OpUpdate:
			if err := s.updateLocked(op.Collection, op.ID, op.Fields); err != nil {
				return err
			}
		case OpDelete:
			delete(s.collection(op.Collection), op.ID)
		}
	}
	return nil
}

func matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || !equalValues(v, f.Value) {
			return false
		}
	}
	return true
}

// equalValues compares a decoded document value with a filter value by
// pushing the filter value through the same JSON round trip.
func equalValues(docValue, want any) bool {
	raw, err := json.Marshal(want)
	if err != nil {
		return false
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return false
	}
	return reflect.DeepEqual(docValue, normalized)
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case nil:
		if b == nil {
			return 0
		}
		return -1
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case bool:
		bv, ok := b.(bool)
		if !ok || av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0
		}
		at, aErr := time.Parse(time.RFC3339Nano, av)
		bt, bErr := time.Parse(time.RFC3339Nano, bv)
		if aErr == nil && bErr == nil {
			return at.Compare(bt)
		}
		return strings.Compare(av, bv)
	}
	return 0
}
