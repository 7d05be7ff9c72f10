package repository

import (
	"context"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/store"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) error
	FindByPostID(ctx context.Context, postID string) ([]entity.Comment, error)
}

type commentRepository struct {
	store store.Store
}

func NewCommentRepository(s store.Store) CommentRepository {
	return &commentRepository{store: s}
}

func (r *commentRepository) Create(ctx context.Context, comment *entity.Comment) error {
	return r.store.Create(ctx, entity.CollectionComments, comment)
}

// FindByPostID returns a post's comments, newest first.
func (r *commentRepository) FindByPostID(ctx context.Context, postID string) ([]entity.Comment, error) {
	comments := make([]entity.Comment, 0)
	q := store.Where("post_id", postID).OrderByDesc("created_at")
	err := r.store.Find(ctx, entity.CollectionComments, q, &comments)
	return comments, err
}
