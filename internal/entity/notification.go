package entity

import "time"

const (
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
)

// Notification is keyed by the id of the like or comment that produced it,
// so a redelivered trigger overwrites rather than duplicates.
type Notification struct {
	ID        string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Recipient string    `gorm:"column:recipient;size:50;not null;index" json:"recipient"`
	Sender    string    `gorm:"column:sender;size:50;not null" json:"sender"`
	Type      string    `gorm:"column:type;size:20;not null" json:"type"`
	Read      bool      `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
	PostID    string    `gorm:"column:post_id;type:varchar(64);not null;index" json:"post_id"`
}

func (Notification) TableName() string { return string(CollectionNotifications) }

func (n *Notification) DocID() string      { return n.ID }
func (n *Notification) SetDocID(id string) { n.ID = id }
