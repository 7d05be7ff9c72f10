package repository

import (
	"context"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/store"
)

type ShuttleRepository interface {
	Create(ctx context.Context, post *entity.Post) error
	FindByID(ctx context.Context, id string) (*entity.Post, error)
	FindAll(ctx context.Context) ([]entity.Post, error)
	FindByAuthor(ctx context.Context, handle string) ([]entity.Post, error)
	UpdateFields(ctx context.Context, id string, fields store.Fields) error
	Delete(ctx context.Context, id string) error
}

type shuttleRepository struct {
	store store.Store
}

func NewShuttleRepository(s store.Store) ShuttleRepository {
	return &shuttleRepository{store: s}
}

func (r *shuttleRepository) Create(ctx context.Context, post *entity.Post) error {
	return r.store.Create(ctx, entity.CollectionPosts, post)
}

func (r *shuttleRepository) FindByID(ctx context.Context, id string) (*entity.Post, error) {
	var post entity.Post
	if err := r.store.Get(ctx, entity.CollectionPosts, id, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *shuttleRepository) FindAll(ctx context.Context) ([]entity.Post, error) {
	posts := make([]entity.Post, 0)
	err := r.store.Find(ctx, entity.CollectionPosts, store.Query{}.OrderByDesc("created_at"), &posts)
	return posts, err
}

func (r *shuttleRepository) FindByAuthor(ctx context.Context, handle string) ([]entity.Post, error) {
	posts := make([]entity.Post, 0)
	q := store.Where("author_handle", handle).OrderByDesc("created_at")
	err := r.store.Find(ctx, entity.CollectionPosts, q, &posts)
	return posts, err
}

func (r *shuttleRepository) UpdateFields(ctx context.Context, id string, fields store.Fields) error {
	return r.store.Update(ctx, entity.CollectionPosts, id, fields)
}

func (r *shuttleRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, entity.CollectionPosts, id)
}
