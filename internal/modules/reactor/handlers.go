// Package reactor keeps derived documents consistent with the writes that
// services make: notifications, denormalized author images and the cascade
// that follows a deleted post. Handlers run asynchronously from the change
// feed with at-least-once delivery and must tolerate redelivery.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/logger"
)

const maxImageSyncPasses = 5

type docRef struct {
	ID string `json:"id" gorm:"column:id"`
}

type Reactor struct {
	store store.Store
}

func NewReactor(s store.Store) *Reactor {
	return &Reactor{store: s}
}

// Register binds every handler to its collection event.
func (r *Reactor) Register(router *Router) {
	router.Handle("notify_on_like", entity.CollectionLikes, store.ChangeCreated, r.OnLikeCreated)
	router.Handle("notify_on_comment", entity.CollectionComments, store.ChangeCreated, r.OnCommentCreated)
	router.Handle("clear_comment_notification", entity.CollectionComments, store.ChangeDeleted, r.OnCommentDeleted)
	router.Handle("propagate_user_image", entity.CollectionUsers, store.ChangeUpdated, r.OnUserImageChanged)
	router.Handle("cascade_post_delete", entity.CollectionPosts, store.ChangeDeleted, r.OnPostDeleted)
}

// OnLikeCreated notifies the post's author, except when they liked their own post.
func (r *Reactor) OnLikeCreated(ctx context.Context, event store.ChangeEvent) error {
	var like entity.Like
	if err := event.DecodeAfter(&like); err != nil {
		return fmt.Errorf("decode like: %w", err)
	}

	post, err := r.findPost(ctx, like.PostID)
	if err != nil || post == nil {
		return err
	}
	if post.AuthorHandle == like.UserHandle {
		return nil
	}

	return r.notify(ctx, event.DocID, post, like.UserHandle, entity.NotificationTypeLike)
}

// OnCommentCreated notifies the post's author. Self-comments are notified too.
func (r *Reactor) OnCommentCreated(ctx context.Context, event store.ChangeEvent) error {
	var comment entity.Comment
	if err := event.DecodeAfter(&comment); err != nil {
		return fmt.Errorf("decode comment: %w", err)
	}

	post, err := r.findPost(ctx, comment.PostID)
	if err != nil || post == nil {
		return err
	}

	return r.notify(ctx, event.DocID, post, comment.AuthorHandle, entity.NotificationTypeComment)
}

// OnCommentDeleted removes the notification the comment produced.
func (r *Reactor) OnCommentDeleted(ctx context.Context, event store.ChangeEvent) error {
	return r.store.Delete(ctx, entity.CollectionNotifications, event.DocID)
}

// OnUserImageChanged copies a user's image URL onto every post they wrote.
// The event only signals that the image moved; the value written is read from
// the current user document, so events handled out of order converge.
func (r *Reactor) OnUserImageChanged(ctx context.Context, event store.ChangeEvent) error {
	var before, after entity.User
	if err := event.DecodeBefore(&before); err != nil {
		return fmt.Errorf("decode user before: %w", err)
	}
	if err := event.DecodeAfter(&after); err != nil {
		return fmt.Errorf("decode user after: %w", err)
	}
	if before.ImageURL == after.ImageURL {
		return nil
	}

	written := ""
	for attempt := 0; attempt < maxImageSyncPasses; attempt++ {
		var user entity.User
		err := r.store.Get(ctx, entity.CollectionUsers, event.DocID, &user)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		// a concurrent handler may have committed an older value after our last pass
		if attempt > 0 && user.ImageURL == written {
			return nil
		}

		updated, err := SyncAuthorImage(ctx, r.store, user.Handle, user.ImageURL)
		if err != nil {
			return err
		}
		if updated > 0 {
			logger.Info().Str("handle", user.Handle).Int("posts", updated).Msg("author image propagated")
		}
		written = user.ImageURL
	}
	return fmt.Errorf("user %s image still changing after %d passes", event.DocID, maxImageSyncPasses)
}

// SyncAuthorImage sets author_image_url to imageURL on the handle's posts that
// still carry a different value and reports how many it changed.
func SyncAuthorImage(ctx context.Context, s store.Store, handle, imageURL string) (int, error) {
	var posts []entity.Post
	if err := s.Find(ctx, entity.CollectionPosts, store.Where("author_handle", handle), &posts); err != nil {
		return 0, err
	}

	batch := s.Batch()
	for _, p := range posts {
		if p.AuthorImageURL != imageURL {
			batch.Update(entity.CollectionPosts, p.ID, store.Fields{"author_image_url": imageURL})
		}
	}
	if batch.Len() == 0 {
		return 0, nil
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, err
	}
	return batch.Len(), nil
}

// OnPostDeleted deletes the post's comments, likes and notifications in one batch.
func (r *Reactor) OnPostDeleted(ctx context.Context, event store.ChangeEvent) error {
	postID := event.DocID
	batch := r.store.Batch()

	for _, coll := range []entity.Collection{
		entity.CollectionComments,
		entity.CollectionLikes,
		entity.CollectionNotifications,
	} {
		var docs []docRef
		if err := r.store.Find(ctx, coll, store.Where("post_id", postID), &docs); err != nil {
			return fmt.Errorf("query %s: %w", coll, err)
		}
		for _, d := range docs {
			batch.Delete(coll, d.ID)
		}
	}

	if batch.Len() == 0 {
		return nil
	}
	if err := batch.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Str("shuttle_id", postID).Int("deleted", batch.Len()).Msg("shuttle cascade completed")
	return nil
}

func (r *Reactor) findPost(ctx context.Context, id string) (*entity.Post, error) {
	var post entity.Post
	err := r.store.Get(ctx, entity.CollectionPosts, id, &post)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// notify writes the notification under the triggering document's id, so a
// redelivered event overwrites instead of duplicating.
func (r *Reactor) notify(ctx context.Context, triggerID string, post *entity.Post, sender, kind string) error {
	return r.store.Set(ctx, entity.CollectionNotifications, &entity.Notification{
		ID:        triggerID,
		Recipient: post.AuthorHandle,
		Sender:    sender,
		Type:      kind,
		Read:      false,
		CreatedAt: time.Now().UTC(),
		PostID:    post.ID,
	})
}
