// Package reconcile repairs derived state that the reactors and the
// non-atomic engagement writes can leave behind: orphaned comments, likes and
// notifications, duplicate likes, and drifted like/comment counters.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/shuttleapi/internal/entity"
	"anoa.com/shuttleapi/internal/metrics"
	"anoa.com/shuttleapi/internal/store"
	"anoa.com/shuttleapi/pkg/logger"
)

// Report counts the repairs made by one run.
type Report struct {
	OrphanedComments      int `json:"orphaned_comments"`
	OrphanedLikes         int `json:"orphaned_likes"`
	OrphanedNotifications int `json:"orphaned_notifications"`
	DuplicateLikes        int `json:"duplicate_likes"`
	CountersFixed         int `json:"counters_fixed"`
	ImagesFixed           int `json:"images_fixed"`
}

func (r Report) Total() int {
	return r.OrphanedComments + r.OrphanedLikes + r.OrphanedNotifications + r.DuplicateLikes + r.CountersFixed + r.ImagesFixed
}

type Reconciler struct {
	store    store.Store
	schedule string
}

func NewReconciler(s store.Store, schedule string) *Reconciler {
	return &Reconciler{store: s, schedule: schedule}
}

func (r *Reconciler) GetName() string     { return "reconcile" }
func (r *Reconciler) GetSchedule() string { return r.schedule }

func (r *Reconciler) Execute(ctx context.Context) error {
	report, err := r.Run(ctx)
	if err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.ReconcileRunsTotal.WithLabelValues("ok").Inc()

	logger.Info().
		Int("orphaned_comments", report.OrphanedComments).
		Int("orphaned_likes", report.OrphanedLikes).
		Int("orphaned_notifications", report.OrphanedNotifications).
		Int("duplicate_likes", report.DuplicateLikes).
		Int("counters_fixed", report.CountersFixed).
		Int("images_fixed", report.ImagesFixed).
		Msg("reconcile completed")
	return nil
}

type likeKey struct {
	postID string
	handle string
}

// Run deletes orphans and duplicate likes in one batch, then repairs each
// surviving post on its own from a fresh read. Running it again right after a
// successful run repairs nothing.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	var report Report

	var posts []entity.Post
	if err := r.store.Find(ctx, entity.CollectionPosts, store.Query{}, &posts); err != nil {
		return report, fmt.Errorf("load posts: %w", err)
	}
	exists := make(map[string]bool, len(posts))
	for _, p := range posts {
		exists[p.ID] = true
	}

	batch := r.store.Batch()

	var likes []entity.Like
	if err := r.store.Find(ctx, entity.CollectionLikes, store.Query{}.OrderByAsc("created_at"), &likes); err != nil {
		return report, fmt.Errorf("load likes: %w", err)
	}
	seen := make(map[likeKey]bool, len(likes))
	for _, l := range likes {
		key := likeKey{postID: l.PostID, handle: l.UserHandle}
		switch {
		case !exists[l.PostID]:
			batch.Delete(entity.CollectionLikes, l.ID)
			report.OrphanedLikes++
		case seen[key]:
			batch.Delete(entity.CollectionLikes, l.ID)
			report.DuplicateLikes++
		default:
			seen[key] = true
		}
	}

	var comments []entity.Comment
	if err := r.store.Find(ctx, entity.CollectionComments, store.Query{}, &comments); err != nil {
		return report, fmt.Errorf("load comments: %w", err)
	}
	for _, c := range comments {
		if !exists[c.PostID] {
			batch.Delete(entity.CollectionComments, c.ID)
			report.OrphanedComments++
		}
	}

	var notifications []entity.Notification
	if err := r.store.Find(ctx, entity.CollectionNotifications, store.Query{}, &notifications); err != nil {
		return report, fmt.Errorf("load notifications: %w", err)
	}
	for _, n := range notifications {
		if !exists[n.PostID] {
			batch.Delete(entity.CollectionNotifications, n.ID)
			report.OrphanedNotifications++
		}
	}

	if err := batch.Commit(ctx); err != nil {
		return Report{}, fmt.Errorf("commit deletions: %w", err)
	}

	var users []entity.User
	if err := r.store.Find(ctx, entity.CollectionUsers, store.Query{}, &users); err != nil {
		return report, fmt.Errorf("load users: %w", err)
	}
	images := make(map[string]string, len(users))
	for _, u := range users {
		images[u.Handle] = u.ImageURL
	}

	for _, p := range posts {
		counters, image, err := r.repairPost(ctx, p.ID, images)
		if err != nil {
			return report, err
		}
		if counters {
			report.CountersFixed++
		}
		if image {
			report.ImagesFixed++
		}
	}

	metrics.ReconcileRepairsTotal.WithLabelValues("orphan").Add(float64(report.OrphanedComments + report.OrphanedLikes + report.OrphanedNotifications))
	metrics.ReconcileRepairsTotal.WithLabelValues("duplicate_like").Add(float64(report.DuplicateLikes))
	metrics.ReconcileRepairsTotal.WithLabelValues("counter").Add(float64(report.CountersFixed))
	metrics.ReconcileRepairsTotal.WithLabelValues("author_image").Add(float64(report.ImagesFixed))
	return report, nil
}

// repairPost recounts one post's likes and comments just before writing, so a
// like or comment that landed after the initial scan is not overwritten. A post
// deleted in the meantime is skipped.
func (r *Reconciler) repairPost(ctx context.Context, postID string, images map[string]string) (counters, image bool, err error) {
	var post entity.Post
	if err := r.store.Get(ctx, entity.CollectionPosts, postID, &post); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("load post %s: %w", postID, err)
	}

	var likes []entity.Like
	if err := r.store.Find(ctx, entity.CollectionLikes, store.Where("post_id", postID), &likes); err != nil {
		return false, false, fmt.Errorf("count likes for %s: %w", postID, err)
	}
	likers := make(map[string]bool, len(likes))
	for _, l := range likes {
		likers[l.UserHandle] = true
	}

	var comments []entity.Comment
	if err := r.store.Find(ctx, entity.CollectionComments, store.Where("post_id", postID), &comments); err != nil {
		return false, false, fmt.Errorf("count comments for %s: %w", postID, err)
	}

	fields := store.Fields{}
	if post.LikeCount != len(likers) || post.CommentCount != len(comments) {
		fields["like_count"] = len(likers)
		fields["comment_count"] = len(comments)
		counters = true
	}
	if url, ok := images[post.AuthorHandle]; ok && url != post.AuthorImageURL {
		fields["author_image_url"] = url
		image = true
	}
	if len(fields) == 0 {
		return false, false, nil
	}

	if err := r.store.Update(ctx, entity.CollectionPosts, postID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("repair post %s: %w", postID, err)
	}
	return counters, image, nil
}
