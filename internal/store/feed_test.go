package store

import (
	"context"
	"testing"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeed(t *testing.T, colls ...entity.Collection) (Store, map[entity.Collection]<-chan *message.Message) {
	t.Helper()
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	subs := make(map[entity.Collection]<-chan *message.Message)
	for _, coll := range colls {
		ch, err := pubsub.Subscribe(context.Background(), Topic(coll))
		require.NoError(t, err)
		subs[coll] = ch
	}
	return WithChangeFeed(NewMemoryStore(), pubsub), subs
}

func nextEvent(t *testing.T, ch <-chan *message.Message) ChangeEvent {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		event, err := DecodeEvent(msg)
		require.NoError(t, err)
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no change event received")
	}
	return ChangeEvent{}
}

func assertNoEvent(t *testing.T, ch <-chan *message.Message) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected change event: %s", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChangeFeed_CreateUpdateDelete(t *testing.T) {
	s, subs := newFeed(t, entity.CollectionPosts)
	ctx := context.Background()
	ch := subs[entity.CollectionPosts]

	p := &entity.Post{Body: "hi", AuthorHandle: "alice"}
	require.NoError(t, s.Create(ctx, entity.CollectionPosts, p))

	created := nextEvent(t, ch)
	assert.Equal(t, ChangeCreated, created.Kind)
	assert.Equal(t, p.ID, created.DocID)
	assert.Empty(t, created.Before)
	var after entity.Post
	require.NoError(t, created.DecodeAfter(&after))
	assert.Equal(t, "hi", after.Body)

	require.NoError(t, s.Update(ctx, entity.CollectionPosts, p.ID, Fields{"like_count": 1}))
	updated := nextEvent(t, ch)
	assert.Equal(t, ChangeUpdated, updated.Kind)
	var before entity.Post
	require.NoError(t, updated.DecodeBefore(&before))
	require.NoError(t, updated.DecodeAfter(&after))
	assert.Equal(t, 0, before.LikeCount)
	assert.Equal(t, 1, after.LikeCount)

	require.NoError(t, s.Delete(ctx, entity.CollectionPosts, p.ID))
	deleted := nextEvent(t, ch)
	assert.Equal(t, ChangeDeleted, deleted.Kind)
	assert.ErrorIs(t, deleted.DecodeAfter(&after), ErrNoSnapshot)
}

func TestChangeFeed_DeleteMissingEmitsNothing(t *testing.T) {
	s, subs := newFeed(t, entity.CollectionPosts)
	require.NoError(t, s.Delete(context.Background(), entity.CollectionPosts, "missing"))
	assertNoEvent(t, subs[entity.CollectionPosts])
}

func TestChangeFeed_FailedWriteEmitsNothing(t *testing.T) {
	s, subs := newFeed(t, entity.CollectionPosts)
	err := s.Update(context.Background(), entity.CollectionPosts, "missing", Fields{"body": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assertNoEvent(t, subs[entity.CollectionPosts])
}

func TestChangeFeed_SetReportsCreatedThenUpdated(t *testing.T) {
	s, subs := newFeed(t, entity.CollectionNotifications)
	ctx := context.Background()
	ch := subs[entity.CollectionNotifications]

	n := &entity.Notification{ID: "like-1", Recipient: "alice", Sender: "bob", Type: entity.NotificationTypeLike}
	require.NoError(t, s.Set(ctx, entity.CollectionNotifications, n))
	assert.Equal(t, ChangeCreated, nextEvent(t, ch).Kind)

	require.NoError(t, s.Set(ctx, entity.CollectionNotifications, n))
	assert.Equal(t, ChangeUpdated, nextEvent(t, ch).Kind)
}

func TestChangeFeed_BatchEmitsPerOperation(t *testing.T) {
	s, subs := newFeed(t, entity.CollectionComments, entity.CollectionLikes)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, entity.CollectionComments, &entity.Comment{ID: "c1", PostID: "p1"}))
	nextEvent(t, subs[entity.CollectionComments])

	b := s.Batch()
	b.Delete(entity.CollectionComments, "c1")
	b.Delete(entity.CollectionLikes, "missing")
	require.NoError(t, b.Commit(ctx))

	event := nextEvent(t, subs[entity.CollectionComments])
	assert.Equal(t, ChangeDeleted, event.Kind)
	assert.Equal(t, "c1", event.DocID)
	assertNoEvent(t, subs[entity.CollectionLikes])
}
