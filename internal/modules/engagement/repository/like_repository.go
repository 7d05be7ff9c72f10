package repository

import (
	"context"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/store"
)

type LikeRepository interface {
	Create(ctx context.Context, like *entity.Like) error
	// FindOne returns the first like of postID by handle, or nil when there is none.
	FindOne(ctx context.Context, postID, handle string) (*entity.Like, error)
	FindByUser(ctx context.Context, handle string) ([]entity.Like, error)
	Delete(ctx context.Context, id string) error
}

type likeRepository struct {
	store store.Store
}

func NewLikeRepository(s store.Store) LikeRepository {
	return &likeRepository{store: s}
}

func (r *likeRepository) Create(ctx context.Context, like *entity.Like) error {
	return r.store.Create(ctx, entity.CollectionLikes, like)
}

func (r *likeRepository) FindOne(ctx context.Context, postID, handle string) (*entity.Like, error) {
	var likes []entity.Like
	q := store.Where("post_id", postID).Where("user_handle", handle).WithLimit(1)
	if err := r.store.Find(ctx, entity.CollectionLikes, q, &likes); err != nil {
		return nil, err
	}
	if len(likes) == 0 {
		return nil, nil
	}
	return &likes[0], nil
}

func (r *likeRepository) FindByUser(ctx context.Context, handle string) ([]entity.Like, error) {
	likes := make([]entity.Like, 0)
	err := r.store.Find(ctx, entity.CollectionLikes, store.Where("user_handle", handle), &likes)
	return likes, err
}

func (r *likeRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, entity.CollectionLikes, id)
}
