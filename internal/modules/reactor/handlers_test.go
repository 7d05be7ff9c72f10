package reactor

import (
	"context"
	"testing"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/store"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func created(t *testing.T, coll entity.Collection, doc store.Document) store.ChangeEvent {
	return store.ChangeEvent{Collection: coll, DocID: doc.DocID(), Kind: store.ChangeCreated, After: raw(t, doc)}
}

func setup(t *testing.T) (*Reactor, *store.MemoryStore, *entity.Post) {
	t.Helper()
	s := store.NewMemoryStore()
	post := &entity.Post{ID: "p1", Body: "hello", AuthorHandle: "alice", AuthorImageURL: "old.png", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Create(context.Background(), entity.CollectionPosts, post))
	return NewReactor(s), s, post
}

func TestOnLikeCreated_NotifiesAuthor(t *testing.T) {
	r, s, post := setup(t)
	like := &entity.Like{ID: "l1", PostID: post.ID, UserHandle: "bob"}

	require.NoError(t, r.OnLikeCreated(context.Background(), created(t, entity.CollectionLikes, like)))

	var n entity.Notification
	require.NoError(t, s.Get(context.Background(), entity.CollectionNotifications, "l1", &n))
	assert.Equal(t, "alice", n.Recipient)
	assert.Equal(t, "bob", n.Sender)
	assert.Equal(t, entity.NotificationTypeLike, n.Type)
	assert.Equal(t, post.ID, n.PostID)
	assert.False(t, n.Read)
}

func TestOnLikeCreated_SkipsSelfLikeAndMissingPost(t *testing.T) {
	r, s, post := setup(t)
	ctx := context.Background()

	self := &entity.Like{ID: "l1", PostID: post.ID, UserHandle: "alice"}
	require.NoError(t, r.OnLikeCreated(ctx, created(t, entity.CollectionLikes, self)))

	orphan := &entity.Like{ID: "l2", PostID: "gone", UserHandle: "bob"}
	require.NoError(t, r.OnLikeCreated(ctx, created(t, entity.CollectionLikes, orphan)))

	assert.Zero(t, s.Count(entity.CollectionNotifications))
}

func TestOnLikeCreated_RedeliveryDoesNotDuplicate(t *testing.T) {
	r, s, post := setup(t)
	event := created(t, entity.CollectionLikes, &entity.Like{ID: "l1", PostID: post.ID, UserHandle: "bob"})

	require.NoError(t, r.OnLikeCreated(context.Background(), event))
	require.NoError(t, r.OnLikeCreated(context.Background(), event))

	assert.Equal(t, 1, s.Count(entity.CollectionNotifications))
}

func TestOnCommentCreated_NotifiesEvenSelfComment(t *testing.T) {
	r, s, post := setup(t)
	ctx := context.Background()

	mine := &entity.Comment{ID: "c1", PostID: post.ID, AuthorHandle: "alice", Body: "me"}
	require.NoError(t, r.OnCommentCreated(ctx, created(t, entity.CollectionComments, mine)))

	var n entity.Notification
	require.NoError(t, s.Get(ctx, entity.CollectionNotifications, "c1", &n))
	assert.Equal(t, "alice", n.Recipient)
	assert.Equal(t, "alice", n.Sender)
	assert.Equal(t, entity.NotificationTypeComment, n.Type)
}

func TestOnCommentCreated_MissingPost(t *testing.T) {
	r, s, _ := setup(t)

	c := &entity.Comment{ID: "c1", PostID: "gone", AuthorHandle: "bob"}
	require.NoError(t, r.OnCommentCreated(context.Background(), created(t, entity.CollectionComments, c)))
	assert.Zero(t, s.Count(entity.CollectionNotifications))
}

func TestOnCommentDeleted_RemovesNotification(t *testing.T) {
	r, s, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, entity.CollectionNotifications, &entity.Notification{ID: "c1", Recipient: "alice"}))

	event := store.ChangeEvent{Collection: entity.CollectionComments, DocID: "c1", Kind: store.ChangeDeleted}
	require.NoError(t, r.OnCommentDeleted(ctx, event))
	assert.Zero(t, s.Count(entity.CollectionNotifications))

	// already gone
	require.NoError(t, r.OnCommentDeleted(ctx, event))
}

func TestOnUserImageChanged(t *testing.T) {
	r, s, post := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, entity.CollectionPosts, &entity.Post{ID: "p2", AuthorHandle: "alice", AuthorImageURL: "old.png"}))
	require.NoError(t, s.Create(ctx, entity.CollectionPosts, &entity.Post{ID: "p3", AuthorHandle: "bob", AuthorImageURL: "bob.png"}))

	before := entity.User{Handle: "alice", ImageURL: "old.png"}
	after := entity.User{Handle: "alice", ImageURL: "new.png"}
	require.NoError(t, s.Set(ctx, entity.CollectionUsers, &after))
	event := store.ChangeEvent{
		Collection: entity.CollectionUsers,
		DocID:      "alice",
		Kind:       store.ChangeUpdated,
		Before:     raw(t, before),
		After:      raw(t, after),
	}
	require.NoError(t, r.OnUserImageChanged(ctx, event))

	for id, want := range map[string]string{post.ID: "new.png", "p2": "new.png", "p3": "bob.png"} {
		var p entity.Post
		require.NoError(t, s.Get(ctx, entity.CollectionPosts, id, &p))
		assert.Equal(t, want, p.AuthorImageURL, id)
	}
}

func TestOnUserImageChanged_StaleEventWritesCurrentImage(t *testing.T) {
	r, s, post := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, entity.CollectionUsers, &entity.User{Handle: "alice", ImageURL: "c.png"}))

	// the a -> b event is handled after the user already moved on to c
	event := store.ChangeEvent{
		Collection: entity.CollectionUsers,
		DocID:      "alice",
		Kind:       store.ChangeUpdated,
		Before:     raw(t, entity.User{Handle: "alice", ImageURL: "a.png"}),
		After:      raw(t, entity.User{Handle: "alice", ImageURL: "b.png"}),
	}
	require.NoError(t, r.OnUserImageChanged(ctx, event))

	var p entity.Post
	require.NoError(t, s.Get(ctx, entity.CollectionPosts, post.ID, &p))
	assert.Equal(t, "c.png", p.AuthorImageURL)
}

func TestOnUserImageChanged_DeletedUserIsNoop(t *testing.T) {
	r, s, post := setup(t)
	ctx := context.Background()

	event := store.ChangeEvent{
		Collection: entity.CollectionUsers,
		DocID:      "alice",
		Kind:       store.ChangeUpdated,
		Before:     raw(t, entity.User{Handle: "alice", ImageURL: "old.png"}),
		After:      raw(t, entity.User{Handle: "alice", ImageURL: "new.png"}),
	}
	require.NoError(t, r.OnUserImageChanged(ctx, event))

	var p entity.Post
	require.NoError(t, s.Get(ctx, entity.CollectionPosts, post.ID, &p))
	assert.Equal(t, "old.png", p.AuthorImageURL)
}

func TestSyncAuthorImage_OnlyTouchesStalePosts(t *testing.T) {
	_, s, post := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, entity.CollectionPosts, &entity.Post{ID: "p2", AuthorHandle: "alice", AuthorImageURL: "new.png"}))

	updated, err := SyncAuthorImage(ctx, s, "alice", "new.png")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	var p entity.Post
	require.NoError(t, s.Get(ctx, entity.CollectionPosts, post.ID, &p))
	assert.Equal(t, "new.png", p.AuthorImageURL)

	updated, err = SyncAuthorImage(ctx, s, "alice", "new.png")
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestOnUserImageChanged_UnchangedIsNoop(t *testing.T) {
	r, s, post := setup(t)
	ctx := context.Background()

	u := entity.User{Handle: "alice", ImageURL: "other.png", Bio: "before"}
	changed := u
	changed.Bio = "after"
	event := store.ChangeEvent{Kind: store.ChangeUpdated, Before: raw(t, u), After: raw(t, changed)}
	require.NoError(t, r.OnUserImageChanged(ctx, event))

	var p entity.Post
	require.NoError(t, s.Get(ctx, entity.CollectionPosts, post.ID, &p))
	assert.Equal(t, "old.png", p.AuthorImageURL)
}

func TestOnPostDeleted_Cascades(t *testing.T) {
	r, s, post := setup(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, entity.CollectionComments, &entity.Comment{ID: "c1", PostID: post.ID}))
	require.NoError(t, s.Create(ctx, entity.CollectionComments, &entity.Comment{ID: "c2", PostID: "other"}))
	require.NoError(t, s.Create(ctx, entity.CollectionLikes, &entity.Like{ID: "l1", PostID: post.ID}))
	require.NoError(t, s.Create(ctx, entity.CollectionLikes, &entity.Like{ID: "l2", PostID: post.ID}))
	require.NoError(t, s.Set(ctx, entity.CollectionNotifications, &entity.Notification{ID: "l1", PostID: post.ID}))
	require.NoError(t, s.Set(ctx, entity.CollectionNotifications, &entity.Notification{ID: "x", PostID: "other"}))
	require.NoError(t, s.Delete(ctx, entity.CollectionPosts, post.ID))

	event := store.ChangeEvent{Collection: entity.CollectionPosts, DocID: post.ID, Kind: store.ChangeDeleted}
	require.NoError(t, r.OnPostDeleted(ctx, event))

	assert.Equal(t, 1, s.Count(entity.CollectionComments))
	assert.Zero(t, s.Count(entity.CollectionLikes))
	assert.Equal(t, 1, s.Count(entity.CollectionNotifications))

	// redelivery finds nothing left to do
	require.NoError(t, r.OnPostDeleted(ctx, event))
}
