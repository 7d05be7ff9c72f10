package shuttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	commentRepo "anoa.com/shuttleapi/internal/modules/engagement/repository"
	shuttleDto "anoa.com/shuttleapi/internal/modules/shuttle/dto"
	shuttleRepo "anoa.com/shuttleapi/internal/modules/shuttle/repository"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/dto"
	"anoa.com/shuttleapi/pkg/logger"
	"anoa.com/shuttleapi/pkg/ratelimiter"
	"github.com/redis/go-redis/v9"
)

type ShuttleService interface {
	ListShuttles(ctx context.Context) ([]entity.Post, error)
	CreateShuttle(ctx context.Context, author dto.Author, req shuttleDto.CreateShuttleRequest) (*entity.Post, error)
	GetShuttle(ctx context.Context, id string) (*shuttleDto.ShuttleDetailResponse, error)
	DeleteShuttle(ctx context.Context, id string, requester dto.Author) error
}

type shuttleService struct {
	shuttleRepo shuttleRepo.ShuttleRepository
	commentRepo commentRepo.CommentRepository
	redisClient *redis.Client
	cooldown    time.Duration
}

// NewShuttleService builds the post service. A nil redis client or a zero
// cooldown disables the per-author posting cooldown.
func NewShuttleService(shuttleRepo shuttleRepo.ShuttleRepository, commentRepo commentRepo.CommentRepository, redisClient *redis.Client, cooldown time.Duration) ShuttleService {
	return &shuttleService{
		shuttleRepo: shuttleRepo,
		commentRepo: commentRepo,
		redisClient: redisClient,
		cooldown:    cooldown,
	}
}

func (s *shuttleService) ListShuttles(ctx context.Context) ([]entity.Post, error) {
	return s.shuttleRepo.FindAll(ctx)
}

func (s *shuttleService) CreateShuttle(ctx context.Context, author dto.Author, req shuttleDto.CreateShuttleRequest) (*entity.Post, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, apperror.InvalidInput("body must not be empty")
	}

	allowed, err := ratelimiter.CheckAndSetRateLimit(ctx, s.redisClient, author.Handle, "shuttle", s.cooldown)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		ttl, _ := ratelimiter.GetRateLimitTTL(ctx, s.redisClient, author.Handle, "shuttle")
		return nil, &ratelimiter.RateLimitError{
			Message:    fmt.Sprintf("you can only post one shuttle every %.0f seconds. Please wait %.0f seconds", s.cooldown.Seconds(), ttl.Seconds()),
			RetryAfter: ttl,
		}
	}

	post := &entity.Post{
		Body:           req.Body,
		AuthorHandle:   author.Handle,
		AuthorImageURL: author.ImageURL,
		CreatedAt:      time.Now().UTC(),
		LikeCount:      0,
		CommentCount:   0,
	}

	if err := s.shuttleRepo.Create(ctx, post); err != nil {
		_ = ratelimiter.ClearRateLimit(ctx, s.redisClient, author.Handle, "shuttle")
		return nil, err
	}

	logger.Info().Str("shuttle_id", post.ID).Str("author", author.Handle).Msg("shuttle created")
	return post, nil
}

func (s *shuttleService) GetShuttle(ctx context.Context, id string) (*shuttleDto.ShuttleDetailResponse, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.FindByPostID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &shuttleDto.ShuttleDetailResponse{Post: *post, Comments: comments}, nil
}

// DeleteShuttle removes only the post document. Its comments, likes and
// notifications are removed later by the post-deleted reactor.
func (s *shuttleService) DeleteShuttle(ctx context.Context, id string, requester dto.Author) error {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return err
	}

	if post.AuthorHandle != requester.Handle {
		return apperror.Forbidden("unauthorized")
	}

	if err := s.shuttleRepo.Delete(ctx, id); err != nil {
		return err
	}

	logger.Info().Str("shuttle_id", id).Str("author", requester.Handle).Msg("shuttle deleted")
	return nil
}

func (s *shuttleService) findPost(ctx context.Context, id string) (*entity.Post, error) {
	post, err := s.shuttleRepo.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("shuttle not found")
	}
	return post, err
}
