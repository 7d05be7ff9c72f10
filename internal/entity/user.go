package entity

import "time"

// User is keyed by handle. UserID is the identity provider's subject.
type User struct {
	Handle    string    `gorm:"column:handle;size:50;primaryKey" json:"handle"`
	UserID    string    `gorm:"column:user_id;size:128;not null;uniqueIndex" json:"user_id"`
	Email     string    `gorm:"column:email;size:100" json:"email"`
	ImageURL  string    `gorm:"column:image_url;type:text" json:"image_url"`
	Bio       string    `gorm:"column:bio;type:text" json:"bio,omitempty"`
	Website   string    `gorm:"column:website;type:text" json:"website,omitempty"`
	Location  string    `gorm:"column:location;size:100" json:"location,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (User) TableName() string { return string(CollectionUsers) }

func (u *User) DocID() string      { return u.Handle }
func (u *User) SetDocID(id string) { u.Handle = id }
