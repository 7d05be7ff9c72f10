package entity

import "time"

type Comment struct {
	ID             string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	PostID         string    `gorm:"column:post_id;type:varchar(64);not null;index" json:"post_id"`
	Body           string    `gorm:"column:body;type:text;not null" json:"body"`
	AuthorHandle   string    `gorm:"column:author_handle;size:50;not null" json:"author_handle"`
	AuthorImageURL string    `gorm:"column:author_image_url;type:text" json:"author_image_url"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (Comment) TableName() string { return string(CollectionComments) }

func (c *Comment) DocID() string      { return c.ID }
func (c *Comment) SetDocID(id string) { c.ID = id }
