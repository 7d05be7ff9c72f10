package repository

import (
	"context"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/store"
)

type UserRepository interface {
	FindByHandle(ctx context.Context, handle string) (*entity.User, error)
	// FindByUserID resolves an identity subject to its user, or store.ErrNotFound.
	FindByUserID(ctx context.Context, userID string) (*entity.User, error)
	Save(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, handle string, fields store.Fields) error
}

type userRepository struct {
	store store.Store
}

func NewUserRepository(s store.Store) UserRepository {
	return &userRepository{store: s}
}

func (r *userRepository) FindByHandle(ctx context.Context, handle string) (*entity.User, error) {
	var user entity.User
	if err := r.store.Get(ctx, entity.CollectionUsers, handle, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUserID(ctx context.Context, userID string) (*entity.User, error) {
	var users []entity.User
	if err := r.store.Find(ctx, entity.CollectionUsers, store.Where("user_id", userID).WithLimit(1), &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, store.ErrNotFound
	}
	return &users[0], nil
}

func (r *userRepository) Save(ctx context.Context, user *entity.User) error {
	return r.store.Set(ctx, entity.CollectionUsers, user)
}

func (r *userRepository) Update(ctx context.Context, handle string, fields store.Fields) error {
	return r.store.Update(ctx, entity.CollectionUsers, handle, fields)
}
