package shuttle

import (
	"context"
	"testing"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	engagementRepo "anoa.com/shuttleapi/internal/modules/engagement/repository"
	shuttleDto "anoa.com/shuttleapi/internal/modules/shuttle/dto"
	shuttleRepo "anoa.com/shuttleapi/internal/modules/shuttle/repository"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = dto.Author{Handle: "alice", ImageURL: "https://img.example/alice.png"}
	bob   = dto.Author{Handle: "bob", ImageURL: "https://img.example/bob.png"}
)

func newService(t *testing.T) (ShuttleService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	svc := NewShuttleService(shuttleRepo.NewShuttleRepository(s), engagementRepo.NewCommentRepository(s), nil, 0)
	return svc, s
}

func TestCreateShuttle(t *testing.T) {
	svc, s := newService(t)

	post, err := svc.CreateShuttle(context.Background(), alice, shuttleDto.CreateShuttleRequest{Body: "hello"})
	require.NoError(t, err)

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "hello", post.Body)
	assert.Equal(t, "alice", post.AuthorHandle)
	assert.Equal(t, alice.ImageURL, post.AuthorImageURL)
	assert.Zero(t, post.LikeCount)
	assert.Zero(t, post.CommentCount)
	assert.False(t, post.CreatedAt.IsZero())
	assert.Equal(t, 1, s.Count(entity.CollectionPosts))
}

func TestCreateShuttle_RejectsBlankBody(t *testing.T) {
	svc, s := newService(t)

	for _, body := range []string{"", "   ", "\n\t "} {
		_, err := svc.CreateShuttle(context.Background(), alice, shuttleDto.CreateShuttleRequest{Body: body})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput, "body %q", body)
	}
	assert.Zero(t, s.Count(entity.CollectionPosts))
}

func TestListShuttles_NewestFirst(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	seed := []struct {
		id     string
		offset time.Duration
	}{
		{"old", 0},
		{"new", 2 * time.Minute},
		{"mid", time.Minute},
	}
	for _, p := range seed {
		require.NoError(t, s.Create(ctx, entity.CollectionPosts, &entity.Post{ID: p.id, Body: p.id, CreatedAt: base.Add(p.offset)}))
	}

	posts, err := svc.ListShuttles(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "new", posts[0].ID)
	assert.Equal(t, "mid", posts[1].ID)
	assert.Equal(t, "old", posts[2].ID)
}

func TestListShuttles_Empty(t *testing.T) {
	svc, _ := newService(t)

	posts, err := svc.ListShuttles(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestGetShuttle_WithCommentsNewestFirst(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()

	post, err := svc.CreateShuttle(ctx, alice, shuttleDto.CreateShuttleRequest{Body: "hello"})
	require.NoError(t, err)

	base := time.Now().UTC()
	require.NoError(t, s.Create(ctx, entity.CollectionComments, &entity.Comment{ID: "c1", PostID: post.ID, Body: "first", CreatedAt: base}))
	require.NoError(t, s.Create(ctx, entity.CollectionComments, &entity.Comment{ID: "c2", PostID: post.ID, Body: "second", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, s.Create(ctx, entity.CollectionComments, &entity.Comment{ID: "c3", PostID: "other", Body: "elsewhere", CreatedAt: base}))

	detail, err := svc.GetShuttle(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, detail.ID)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "c2", detail.Comments[0].ID)
	assert.Equal(t, "c1", detail.Comments[1].ID)
}

func TestGetShuttle_NotFound(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.GetShuttle(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.EqualError(t, err, "shuttle not found")
}

func TestDeleteShuttle(t *testing.T) {
	svc, s := newService(t)
	ctx := context.Background()

	post, err := svc.CreateShuttle(ctx, alice, shuttleDto.CreateShuttleRequest{Body: "hello"})
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, entity.CollectionComments, &entity.Comment{ID: "c1", PostID: post.ID}))

	t.Run("non-owner is forbidden and nothing changes", func(t *testing.T) {
		err := svc.DeleteShuttle(ctx, post.ID, bob)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.Equal(t, 1, s.Count(entity.CollectionPosts))
		assert.Equal(t, 1, s.Count(entity.CollectionComments))
	})

	t.Run("owner deletes only the post", func(t *testing.T) {
		require.NoError(t, svc.DeleteShuttle(ctx, post.ID, alice))
		assert.Zero(t, s.Count(entity.CollectionPosts))
		assert.Equal(t, 1, s.Count(entity.CollectionComments))
	})

	t.Run("missing post", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteShuttle(ctx, post.ID, alice), apperror.ErrNotFound)
	})
}
