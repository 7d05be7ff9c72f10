package dto

import "anoa.com/shuttleapi/internal/entity"

type UserDetailsRequest struct {
	Bio      string `json:"bio" binding:"max=500"`
	Website  string `json:"website" binding:"max=200"`
	Location string `json:"location" binding:"max=100"`
}

type ImageUploadResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"image_url"`
}

type AuthenticatedUserResponse struct {
	Credentials   entity.User           `json:"credentials"`
	Likes         []entity.Like         `json:"likes"`
	Notifications []entity.Notification `json:"notifications"`
}

type UserDetailsResponse struct {
	User     entity.User   `json:"user"`
	Shuttles []entity.Post `json:"shuttles"`
}
