package store

import (
	"context"
	"testing"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPosts(t *testing.T, s Store, posts ...*entity.Post) {
	t.Helper()
	for _, p := range posts {
		require.NoError(t, s.Create(context.Background(), entity.CollectionPosts, p))
	}
}

func TestMemoryStore_CreateGeneratesID(t *testing.T) {
	s := NewMemoryStore()
	p := &entity.Post{Body: "hello", AuthorHandle: "alice", CreatedAt: time.Now().UTC()}

	require.NoError(t, s.Create(context.Background(), entity.CollectionPosts, p))
	require.NotEmpty(t, p.ID)

	var got entity.Post
	require.NoError(t, s.Get(context.Background(), entity.CollectionPosts, p.ID, &got))
	assert.Equal(t, "hello", got.Body)
	assert.Equal(t, "alice", got.AuthorHandle)
}

func TestMemoryStore_CreateRejectsExistingID(t *testing.T) {
	s := NewMemoryStore()
	seedPosts(t, s, &entity.Post{ID: "p1", Body: "a"})

	err := s.Create(context.Background(), entity.CollectionPosts, &entity.Post{ID: "p1", Body: "b"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	var got entity.Post
	assert.ErrorIs(t, s.Get(context.Background(), entity.CollectionPosts, "nope", &got), ErrNotFound)
}

func TestMemoryStore_FindFiltersOrdersAndLimits(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedPosts(t, s,
		&entity.Post{ID: "a", AuthorHandle: "alice", CreatedAt: base},
		&entity.Post{ID: "b", AuthorHandle: "bob", CreatedAt: base.Add(time.Hour)},
		&entity.Post{ID: "c", AuthorHandle: "alice", CreatedAt: base.Add(2 * time.Hour)},
		&entity.Post{ID: "d", AuthorHandle: "alice", CreatedAt: base.Add(90 * time.Minute)},
	)

	var posts []entity.Post
	q := Where("author_handle", "alice").OrderByDesc("created_at")
	require.NoError(t, s.Find(context.Background(), entity.CollectionPosts, q, &posts))
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"c", "d", "a"}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	var limited []entity.Post
	require.NoError(t, s.Find(context.Background(), entity.CollectionPosts, q.WithLimit(1), &limited))
	require.Len(t, limited, 1)
	assert.Equal(t, "c", limited[0].ID)
}

func TestMemoryStore_FindMatchesNumbersAndBools(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, entity.CollectionNotifications, &entity.Notification{ID: "n1", Recipient: "alice"}))
	require.NoError(t, s.Set(ctx, entity.CollectionNotifications, &entity.Notification{ID: "n2", Recipient: "alice", Read: true}))
	seedPosts(t, s, &entity.Post{ID: "p1", LikeCount: 2}, &entity.Post{ID: "p2", LikeCount: 0})

	var unread []entity.Notification
	require.NoError(t, s.Find(ctx, entity.CollectionNotifications, Where("read", false), &unread))
	require.Len(t, unread, 1)
	assert.Equal(t, "n1", unread[0].ID)

	var liked []entity.Post
	require.NoError(t, s.Find(ctx, entity.CollectionPosts, Where("like_count", 2), &liked))
	require.Len(t, liked, 1)
	assert.Equal(t, "p1", liked[0].ID)
}

func TestMemoryStore_FindEmpty(t *testing.T) {
	s := NewMemoryStore()
	var posts []entity.Post
	require.NoError(t, s.Find(context.Background(), entity.CollectionPosts, Query{}, &posts))
	assert.Empty(t, posts)
}

func TestMemoryStore_UpdateMergesFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPosts(t, s, &entity.Post{ID: "p1", Body: "keep", LikeCount: 1})

	require.NoError(t, s.Update(ctx, entity.CollectionPosts, "p1", Fields{"like_count": 2}))

	var got entity.Post
	require.NoError(t, s.Get(ctx, entity.CollectionPosts, "p1", &got))
	assert.Equal(t, 2, got.LikeCount)
	assert.Equal(t, "keep", got.Body)

	assert.ErrorIs(t, s.Update(ctx, entity.CollectionPosts, "missing", Fields{"like_count": 1}), ErrNotFound)
}

func TestMemoryStore_DeleteMissingIsNoop(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Delete(context.Background(), entity.CollectionPosts, "missing"))
}

func TestMemoryStore_BatchIsAllOrNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPosts(t, s, &entity.Post{ID: "p1"}, &entity.Post{ID: "p2"})

	b := s.Batch()
	b.Delete(entity.CollectionPosts, "p1")
	b.Update(entity.CollectionPosts, "missing", Fields{"body": "x"})
	assert.ErrorIs(t, b.Commit(ctx), ErrNotFound)
	assert.Equal(t, 2, s.Count(entity.CollectionPosts))

	b = s.Batch()
	b.Delete(entity.CollectionPosts, "p1")
	b.Update(entity.CollectionPosts, "p2", Fields{"body": "updated"})
	require.Equal(t, 2, b.Len())
	require.NoError(t, b.Commit(ctx))

	assert.Equal(t, 1, s.Count(entity.CollectionPosts))
	var got entity.Post
	require.NoError(t, s.Get(ctx, entity.CollectionPosts, "p2", &got))
	assert.Equal(t, "updated", got.Body)
}

func TestMemoryStore_UsersKeyedByHandle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, entity.CollectionUsers, &entity.User{Handle: "alice", UserID: "u-1"}))

	var got entity.User
	require.NoError(t, s.Get(ctx, entity.CollectionUsers, "alice", &got))
	assert.Equal(t, "u-1", got.UserID)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got entity.Post
	assert.ErrorIs(t, s.Get(ctx, entity.CollectionPosts, "p1", &got), context.Canceled)
}
