package entity

import "time"

// Post is a shuttle. Author display fields are copied at creation time and
// only repaired by the image-change reactor, never joined live.
type Post struct {
	ID             string    `gorm:"column:id;type:varchar(64);primaryKey" json:"id"`
	Body           string    `gorm:"column:body;type:text;not null" json:"body"`
	AuthorHandle   string    `gorm:"column:author_handle;size:50;not null;index" json:"author_handle"`
	AuthorImageURL string    `gorm:"column:author_image_url;type:text" json:"author_image_url"`
	CreatedAt      time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
	LikeCount      int       `gorm:"column:like_count;not null;default:0" json:"like_count"`
	CommentCount   int       `gorm:"column:comment_count;not null;default:0" json:"comment_count"`
}

func (Post) TableName() string { return string(CollectionPosts) }

func (p *Post) DocID() string      { return p.ID }
func (p *Post) SetDocID(id string) { p.ID = id }
