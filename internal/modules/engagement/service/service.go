package engagement

import (
	"context"
	"errors"
	"strings"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	engagementDto "anoa.com/shuttleapi/internal/modules/engagement/dto"
	engagementRepo "anoa.com/shuttleapi/internal/modules/engagement/repository"
	shuttleRepo "anoa.com/shuttleapi/internal/modules/shuttle/repository"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/dto"
	"anoa.com/shuttleapi/pkg/logger"
)

// EngagementService handles comments and likes. Counter updates are
// read-then-write and the like existence check is not transactional with the
// insert; concurrent calls can race. The reconciler repairs the fallout.
type EngagementService interface {
	AddComment(ctx context.Context, postID string, author dto.Author, req engagementDto.AddCommentRequest) (*entity.Comment, error)
	LikeShuttle(ctx context.Context, postID string, user dto.Author) (*entity.Post, error)
	UnlikeShuttle(ctx context.Context, postID string, user dto.Author) (*entity.Post, error)
}

type engagementService struct {
	shuttleRepo shuttleRepo.ShuttleRepository
	commentRepo engagementRepo.CommentRepository
	likeRepo    engagementRepo.LikeRepository
}

func NewEngagementService(shuttleRepo shuttleRepo.ShuttleRepository, commentRepo engagementRepo.CommentRepository, likeRepo engagementRepo.LikeRepository) EngagementService {
	return &engagementService{
		shuttleRepo: shuttleRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
	}
}

func (s *engagementService) AddComment(ctx context.Context, postID string, author dto.Author, req engagementDto.AddCommentRequest) (*entity.Comment, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, apperror.InvalidInput("comment must not be empty")
	}

	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if err := s.shuttleRepo.UpdateFields(ctx, postID, store.Fields{"comment_count": post.CommentCount + 1}); err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		PostID:         postID,
		Body:           req.Body,
		AuthorHandle:   author.Handle,
		AuthorImageURL: author.ImageURL,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	logger.Info().Str("shuttle_id", postID).Str("comment_id", comment.ID).Str("author", author.Handle).Msg("comment added")
	return comment, nil
}

func (s *engagementService) LikeShuttle(ctx context.Context, postID string, user dto.Author) (*entity.Post, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	existing, err := s.likeRepo.FindOne(ctx, postID, user.Handle)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Conflict("shuttle already liked")
	}

	like := &entity.Like{
		PostID:     postID,
		UserHandle: user.Handle,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.likeRepo.Create(ctx, like); err != nil {
		return nil, err
	}

	post.LikeCount++
	if err := s.shuttleRepo.UpdateFields(ctx, postID, store.Fields{"like_count": post.LikeCount}); err != nil {
		return nil, err
	}

	return post, nil
}

func (s *engagementService) UnlikeShuttle(ctx context.Context, postID string, user dto.Author) (*entity.Post, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	existing, err := s.likeRepo.FindOne(ctx, postID, user.Handle)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperror.Conflict("shuttle not liked")
	}

	if err := s.likeRepo.Delete(ctx, existing.ID); err != nil {
		return nil, err
	}

	post.LikeCount--
	if err := s.shuttleRepo.UpdateFields(ctx, postID, store.Fields{"like_count": post.LikeCount}); err != nil {
		return nil, err
	}

	return post, nil
}

func (s *engagementService) findPost(ctx context.Context, id string) (*entity.Post, error) {
	post, err := s.shuttleRepo.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("shuttle not found")
	}
	return post, err
}
