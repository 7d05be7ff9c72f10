package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	engagementRepo "anoa.com/shuttleapi/internal/modules/engagement/repository"
	notifRepo "anoa.com/shuttleapi/internal/modules/notification/repository"
	shuttleRepo "anoa.com/shuttleapi/internal/modules/shuttle/repository"
	userDto "anoa.com/shuttleapi/internal/modules/user/dto"
	userRepo "anoa.com/shuttleapi/internal/modules/user/repository"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/dto"
	"anoa.com/shuttleapi/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	uploaded []string
	deleted  []string
	err      error
}

func (f *fakeStorage) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://res.cloudinary.com/demo/image/upload/v1/" + folder + "/" + fileName
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeStorage) DeleteImage(_ context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

func setup(t *testing.T, images *fakeStorage) (UserService, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, entity.CollectionUsers, &entity.User{Handle: "alice", UserID: "u-alice", ImageURL: "https://img.example/old.png"}))

	var imageStorage storage.ImageStorage
	if images != nil {
		imageStorage = images
	}

	svc := NewUserService(
		userRepo.NewUserRepository(s),
		shuttleRepo.NewShuttleRepository(s),
		engagementRepo.NewLikeRepository(s),
		notifRepo.NewNotificationRepository(s),
		imageStorage,
	)
	return svc, s
}

func image(contentType string) dto.ImageFile {
	return dto.ImageFile{Reader: strings.NewReader("data"), FileName: "me.png", ContentType: contentType}
}

func TestUploadImage(t *testing.T) {
	images := &fakeStorage{}
	svc, s := setup(t, images)

	url, err := svc.UploadImage(context.Background(), "alice", image("image/png"))
	require.NoError(t, err)
	assert.Contains(t, url, "avatars/me.png")

	var u entity.User
	require.NoError(t, s.Get(context.Background(), entity.CollectionUsers, "alice", &u))
	assert.Equal(t, url, u.ImageURL)
	assert.Equal(t, []string{"https://img.example/old.png"}, images.deleted)
}

func TestUploadImage_RejectsWrongType(t *testing.T) {
	images := &fakeStorage{}
	svc, _ := setup(t, images)

	_, err := svc.UploadImage(context.Background(), "alice", image("application/pdf"))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.EqualError(t, err, "wrong file type submitted")
	assert.Empty(t, images.uploaded)
}

func TestUploadImage_StorageFailureLeavesUser(t *testing.T) {
	svc, s := setup(t, &fakeStorage{err: errors.New("cloudinary down")})

	_, err := svc.UploadImage(context.Background(), "alice", image("image/jpeg"))
	require.Error(t, err)

	var u entity.User
	require.NoError(t, s.Get(context.Background(), entity.CollectionUsers, "alice", &u))
	assert.Equal(t, "https://img.example/old.png", u.ImageURL)
}

func TestUploadImage_NotConfigured(t *testing.T) {
	svc, _ := setup(t, nil)

	_, err := svc.UploadImage(context.Background(), "alice", image("image/png"))
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestAddUserDetails(t *testing.T) {
	svc, s := setup(t, nil)
	ctx := context.Background()

	err := svc.AddUserDetails(ctx, "alice", userDto.UserDetailsRequest{
		Bio:      "  hello there ",
		Website:  " example.com ",
		Location: "   ",
	})
	require.NoError(t, err)

	var u entity.User
	require.NoError(t, s.Get(ctx, entity.CollectionUsers, "alice", &u))
	assert.Equal(t, "hello there", u.Bio)
	assert.Equal(t, "http://example.com", u.Website)
	assert.Empty(t, u.Location)

	require.NoError(t, svc.AddUserDetails(ctx, "alice", userDto.UserDetailsRequest{Website: "https://secure.example"}))
	require.NoError(t, s.Get(ctx, entity.CollectionUsers, "alice", &u))
	assert.Equal(t, "https://secure.example", u.Website)
	assert.Equal(t, "hello there", u.Bio)
}

func TestAddUserDetails_UnknownUser(t *testing.T) {
	svc, _ := setup(t, nil)
	err := svc.AddUserDetails(context.Background(), "ghost", userDto.UserDetailsRequest{Bio: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestGetAuthenticatedUser(t *testing.T) {
	svc, s := setup(t, nil)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, s.Create(ctx, entity.CollectionLikes, &entity.Like{ID: "l1", PostID: "p1", UserHandle: "alice"}))
	require.NoError(t, s.Create(ctx, entity.CollectionLikes, &entity.Like{ID: "l2", PostID: "p1", UserHandle: "bob"}))
	for i := 0; i < 12; i++ {
		require.NoError(t, s.Set(ctx, entity.CollectionNotifications, &entity.Notification{
			ID:        store.NewID(),
			Recipient: "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	res, err := svc.GetAuthenticatedUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Credentials.Handle)
	require.Len(t, res.Likes, 1)
	assert.Equal(t, "l1", res.Likes[0].ID)
	require.Len(t, res.Notifications, 10)
	assert.True(t, res.Notifications[0].CreatedAt.After(res.Notifications[9].CreatedAt))
}

func TestGetUserDetails(t *testing.T) {
	svc, s := setup(t, nil)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, entity.CollectionPosts, &entity.Post{ID: "p1", AuthorHandle: "alice"}))
	require.NoError(t, s.Create(ctx, entity.CollectionPosts, &entity.Post{ID: "p2", AuthorHandle: "bob"}))

	res, err := svc.GetUserDetails(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Handle)
	require.Len(t, res.Shuttles, 1)
	assert.Equal(t, "p1", res.Shuttles[0].ID)

	_, err = svc.GetUserDetails(ctx, "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
