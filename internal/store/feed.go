package store

import (
	"context"
	"errors"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/pkg/logger"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent describes one committed write. Before is empty for creations,
// After is empty for deletions.
type ChangeEvent struct {
	EventID    string            `json:"event_id"`
	Collection entity.Collection `json:"collection"`
	DocID      string            `json:"doc_id"`
	Kind       ChangeKind        `json:"kind"`
	Before     json.RawMessage   `json:"before,omitempty"`
	After      json.RawMessage   `json:"after,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

var ErrNoSnapshot = errors.New("change event has no snapshot")

// Topic is the watermill topic carrying changes of coll.
func Topic(coll entity.Collection) string {
	return "store." + string(coll)
}

func (e ChangeEvent) DecodeBefore(dst any) error {
	if len(e.Before) == 0 {
		return ErrNoSnapshot
	}
	return json.Unmarshal(e.Before, dst)
}

func (e ChangeEvent) DecodeAfter(dst any) error {
	if len(e.After) == 0 {
		return ErrNoSnapshot
	}
	return json.Unmarshal(e.After, dst)
}

func DecodeEvent(msg *message.Message) (ChangeEvent, error) {
	var event ChangeEvent
	err := json.Unmarshal(msg.Payload, &event)
	return event, err
}

// NewChangeMessage encodes event as a watermill message with kind metadata.
func NewChangeMessage(event ChangeEvent) (*message.Message, error) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(event.EventID, payload)
	msg.Metadata.Set("collection", string(event.Collection))
	msg.Metadata.Set("kind", string(event.Kind))
	return msg, nil
}

type feedStore struct {
	Store
	pub message.Publisher
}

// WithChangeFeed wraps inner so that every successful write is published to
// Topic(collection). Publish failures are logged and never fail the write.
func WithChangeFeed(inner Store, pub message.Publisher) Store {
	return &feedStore{Store: inner, pub: pub}
}

func (s *feedStore) Create(ctx context.Context, coll entity.Collection, doc Document) error {
	if err := s.Store.Create(ctx, coll, doc); err != nil {
		return err
	}
	s.emit(coll, doc.DocID(), ChangeCreated, nil, encode(doc))
	return nil
}

func (s *feedStore) Set(ctx context.Context, coll entity.Collection, doc Document) error {
	ensureID(doc)
	before, err := s.snapshot(ctx, coll, doc.DocID())
	if err != nil {
		return err
	}
	if err := s.Store.Set(ctx, coll, doc); err != nil {
		return err
	}

	kind := ChangeUpdated
	if before == nil {
		kind = ChangeCreated
	}
	s.emit(coll, doc.DocID(), kind, before, encode(doc))
	return nil
}

func (s *feedStore) Update(ctx context.Context, coll entity.Collection, id string, fields Fields) error {
	before, err := s.snapshot(ctx, coll, id)
	if err != nil {
		return err
	}
	if err := s.Store.Update(ctx, coll, id, fields); err != nil {
		return err
	}
	after, err := s.snapshot(ctx, coll, id)
	if err != nil {
		logger.Warn().Err(err).Str("collection", string(coll)).Str("id", id).Msg("change feed: read after update")
	}
	s.emit(coll, id, ChangeUpdated, before, after)
	return nil
}

func (s *feedStore) Delete(ctx context.Context, coll entity.Collection, id string) error {
	before, err := s.snapshot(ctx, coll, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, coll, id); err != nil {
		return err
	}
	if before != nil {
		s.emit(coll, id, ChangeDeleted, before, nil)
	}
	return nil
}

func (s *feedStore) Batch() Batch {
	return &feedBatch{Batch: s.Store.Batch(), feed: s}
}

// snapshot returns the encoded document, or nil when it does not exist.
func (s *feedStore) snapshot(ctx context.Context, coll entity.Collection, id string) (json.RawMessage, error) {
	var doc map[string]any
	err := s.Store.Get(ctx, coll, id, &doc)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return encode(doc), nil
}

func (s *feedStore) emit(coll entity.Collection, id string, kind ChangeKind, before, after json.RawMessage) {
	msg, err := NewChangeMessage(ChangeEvent{
		Collection: coll,
		DocID:      id,
		Kind:       kind,
		Before:     before,
		After:      after,
	})
	if err == nil {
		err = s.pub.Publish(Topic(coll), msg)
	}
	if err != nil {
		logger.Error().Err(err).
			Str("collection", string(coll)).
			Str("id", id).
			Str("kind", string(kind)).
			Msg("change feed: publish failed")
	}
}

type feedBatch struct {
	Batch
	feed *feedStore
}

func (b *feedBatch) Commit(ctx context.Context) error {
	ops := b.Ops()
	befores := make([]json.RawMessage, len(ops))
	for i, op := range ops {
		before, err := b.feed.snapshot(ctx, op.Collection, op.ID)
		if err != nil {
			return err
		}
		befores[i] = before
	}

	if err := b.Batch.Commit(ctx); err != nil {
		return err
	}

	for i, op := range ops {
		switch op.Kind {
		case OpUpdate:
			after, err := b.feed.snapshot(ctx, op.Collection, op.ID)
			if err != nil {
				logger.Warn().Err(err).Str("collection", string(op.Collection)).Str("id", op.ID).Msg("change feed: read after batch")
			}
			b.feed.emit(op.Collection, op.ID, ChangeUpdated, befores[i], after)
		case OpDelete:
			if befores[i] != nil {
				b.feed.emit(op.Collection, op.ID, ChangeDeleted, befores[i], nil)
			}
		}
	}
	return nil
}

func encode(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}
