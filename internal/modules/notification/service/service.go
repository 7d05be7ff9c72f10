package service

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/shuttleapi/internal/entity"
	notifRepo "anoa.com/shuttleapi/internal/modules/notification/repository"
	"anoa.com/shuttleapi/internal/modules/reactor"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const defaultListLimit = 20

type NotificationService interface {
	GetNotifications(ctx context.Context, handle string, limit int) ([]entity.Notification, error)
	MarkNotificationsRead(ctx context.Context, handle string, ids []string) error
	UnreadCount(ctx context.Context, handle string) (int, error)
	// Publish pushes a notification to the recipient's realtime channel.
	Publish(ctx context.Context, notification *entity.Notification) error
	Register(router *reactor.Router)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

// Channel is the redis pub/sub channel carrying a user's new notifications.
func Channel(handle string) string {
	return fmt.Sprintf("user_notifications:%s", handle)
}

func (s *notificationService) GetNotifications(ctx context.Context, handle string, limit int) ([]entity.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.FindByRecipient(ctx, handle, limit)
}

// MarkNotificationsRead flags ids as read. Every id must exist and belong to handle.
func (s *notificationService) MarkNotificationsRead(ctx context.Context, handle string, ids []string) error {
	for _, id := range ids {
		n, err := s.repo.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NotFound("notification %s not found", id)
		}
		if err != nil {
			return err
		}
		if n.Recipient != handle {
			return apperror.Forbidden("unauthorized")
		}
	}

	if err := s.repo.MarkRead(ctx, ids); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NotFound("notification not found")
		}
		return err
	}
	return nil
}

func (s *notificationService) UnreadCount(ctx context.Context, handle string) (int, error) {
	unread, err := s.repo.FindUnread(ctx, handle)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

func (s *notificationService) Publish(ctx context.Context, notification *entity.Notification) error {
	if s.redisClient == nil {
		return nil
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return s.redisClient.Publish(ctx, Channel(notification.Recipient), payload).Err()
}

// Register pushes newly created notifications to connected websocket clients.
// Redelivered notifications arrive as updates and are not pushed again.
func (s *notificationService) Register(router *reactor.Router) {
	if s.redisClient == nil {
		logger.Info().Msg("redis not configured, realtime notifications disabled")
		return
	}
	router.Handle("notification_push", entity.CollectionNotifications, store.ChangeCreated, s.onNotificationCreated)
}

func (s *notificationService) onNotificationCreated(ctx context.Context, event store.ChangeEvent) error {
	var n entity.Notification
	if err := event.DecodeAfter(&n); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	return s.Publish(ctx, &n)
}
