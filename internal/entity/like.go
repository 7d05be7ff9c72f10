package entity

import "time"

// Like has no unique constraint on (post_id, user_handle); uniqueness is an
// application-level check plus the reconciler's duplicate sweep.
type Like struct {
	ID         string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	PostID     string    `gorm:"column:post_id;type:varchar(64);not null;index:idx_likes_post_user,priority:1" json:"post_id"`
	UserHandle string    `gorm:"column:user_handle;size:50;not null;index:idx_likes_post_user,priority:2" json:"user_handle"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (Like) TableName() string { return string(CollectionLikes) }

func (l *Like) DocID() string      { return l.ID }
func (l *Like) SetDocID(id string) { l.ID = id }
