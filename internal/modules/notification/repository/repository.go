package repository

import (
	"context"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/store"
)

type NotificationRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Notification, error)
	FindByRecipient(ctx context.Context, handle string, limit int) ([]entity.Notification, error)
	FindUnread(ctx context.Context, handle string) ([]entity.Notification, error)
	MarkRead(ctx context.Context, ids []string) error
}

type notificationRepository struct {
	store store.Store
}

func NewNotificationRepository(s store.Store) NotificationRepository {
	return &notificationRepository{store: s}
}

func (r *notificationRepository) FindByID(ctx context.Context, id string) (*entity.Notification, error) {
	var n entity.Notification
	if err := r.store.Get(ctx, entity.CollectionNotifications, id, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// FindByRecipient returns the newest notifications first. A limit of 0 returns all.
func (r *notificationRepository) FindByRecipient(ctx context.Context, handle string, limit int) ([]entity.Notification, error) {
	notifications := make([]entity.Notification, 0)
	q := store.Where("recipient", handle).OrderByDesc("created_at").WithLimit(limit)
	err := r.store.Find(ctx, entity.CollectionNotifications, q, &notifications)
	return notifications, err
}

func (r *notificationRepository) FindUnread(ctx context.Context, handle string) ([]entity.Notification, error) {
	notifications := make([]entity.Notification, 0)
	q := store.Where("recipient", handle).Where("read", false)
	err := r.store.Find(ctx, entity.CollectionNotifications, q, &notifications)
	return notifications, err
}

// MarkRead flags every id as read in a single batch.
func (r *notificationRepository) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := r.store.Batch()
	for _, id := range ids {
		batch.Update(entity.CollectionNotifications, id, store.Fields{"read": true})
	}
	return batch.Commit(ctx)
}
