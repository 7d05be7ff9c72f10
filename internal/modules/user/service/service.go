package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"anoa.com/shuttleapi/internal/entity"
	likeRepo "anoa.com/shuttleapi/internal/modules/engagement/repository"
	notifRepo "anoa.com/shuttleapi/internal/modules/notification/repository"
	shuttleRepo "anoa.com/shuttleapi/internal/modules/shuttle/repository"
	userDto "anoa.com/shuttleapi/internal/modules/user/dto"
	userRepo "anoa.com/shuttleapi/internal/modules/user/repository"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/dto"
	"anoa.com/shuttleapi/pkg/logger"
	"anoa.com/shuttleapi/pkg/storage"
)

const (
	avatarFolder           = "avatars"
	recentNotificationsCap = 10
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type UserService interface {
	UploadImage(ctx context.Context, handle string, image dto.ImageFile) (string, error)
	AddUserDetails(ctx context.Context, handle string, req userDto.UserDetailsRequest) error
	GetAuthenticatedUser(ctx context.Context, handle string) (*userDto.AuthenticatedUserResponse, error)
	GetUserDetails(ctx context.Context, handle string) (*userDto.UserDetailsResponse, error)
}

type userService struct {
	userRepo     userRepo.UserRepository
	shuttleRepo  shuttleRepo.ShuttleRepository
	likeRepo     likeRepo.LikeRepository
	notifRepo    notifRepo.NotificationRepository
	imageStorage storage.ImageStorage
}

func NewUserService(userRepo userRepo.UserRepository, shuttleRepo shuttleRepo.ShuttleRepository, likeRepo likeRepo.LikeRepository, notifRepo notifRepo.NotificationRepository, imageStorage storage.ImageStorage) UserService {
	return &userService{
		userRepo:     userRepo,
		shuttleRepo:  shuttleRepo,
		likeRepo:     likeRepo,
		notifRepo:    notifRepo,
		imageStorage: imageStorage,
	}
}

// UploadImage stores a new profile image and points the user at it. The
// image-change reactor then copies the URL onto the user's posts.
func (s *userService) UploadImage(ctx context.Context, handle string, image dto.ImageFile) (string, error) {
	if !allowedImageTypes[image.ContentType] {
		return "", apperror.InvalidInput("wrong file type submitted")
	}
	if s.imageStorage == nil {
		return "", apperror.New(http.StatusServiceUnavailable, "image storage is not configured", apperror.ErrUnavailable)
	}

	user, err := s.findUser(ctx, handle)
	if err != nil {
		return "", err
	}

	url, err := s.imageStorage.UploadImage(ctx, image.Reader, avatarFolder, image.FileName)
	if err != nil {
		return "", err
	}

	if err := s.userRepo.Update(ctx, handle, store.Fields{"image_url": url}); err != nil {
		return "", err
	}

	if user.ImageURL != "" && user.ImageURL != url {
		if err := s.imageStorage.DeleteImage(ctx, user.ImageURL); err != nil {
			logger.Warn().Err(err).Str("handle", handle).Msg("failed to delete previous profile image")
		}
	}

	return url, nil
}

func (s *userService) AddUserDetails(ctx context.Context, handle string, req userDto.UserDetailsRequest) error {
	if _, err := s.findUser(ctx, handle); err != nil {
		return err
	}

	fields := reduceUserDetails(req)
	if len(fields) == 0 {
		return nil
	}
	return s.userRepo.Update(ctx, handle, fields)
}

func (s *userService) GetAuthenticatedUser(ctx context.Context, handle string) (*userDto.AuthenticatedUserResponse, error) {
	user, err := s.findUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	likes, err := s.likeRepo.FindByUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	notifications, err := s.notifRepo.FindByRecipient(ctx, handle, recentNotificationsCap)
	if err != nil {
		return nil, err
	}

	return &userDto.AuthenticatedUserResponse{
		Credentials:   *user,
		Likes:         likes,
		Notifications: notifications,
	}, nil
}

func (s *userService) GetUserDetails(ctx context.Context, handle string) (*userDto.UserDetailsResponse, error) {
	user, err := s.findUser(ctx, handle)
	if err != nil {
		return nil, err
	}

	shuttles, err := s.shuttleRepo.FindByAuthor(ctx, handle)
	if err != nil {
		return nil, err
	}

	return &userDto.UserDetailsResponse{User: *user, Shuttles: shuttles}, nil
}

func (s *userService) findUser(ctx context.Context, handle string) (*entity.User, error) {
	user, err := s.userRepo.FindByHandle(ctx, handle)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("user not found")
	}
	return user, err
}

// reduceUserDetails trims the submitted details, drops blank ones and gives a
// scheme-less website an http:// prefix.
func reduceUserDetails(req userDto.UserDetailsRequest) store.Fields {
	fields := store.Fields{}

	if bio := strings.TrimSpace(req.Bio); bio != "" {
		fields["bio"] = bio
	}
	if website := strings.TrimSpace(req.Website); website != "" {
		if !strings.HasPrefix(website, "http") {
			website = "http://" + website
		}
		fields["website"] = website
	}
	if location := strings.TrimSpace(req.Location); location != "" {
		fields["location"] = location
	}

	return fields
}
