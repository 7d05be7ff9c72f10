package dto

import "anoa.com/shuttleapi/internal/entity"

type CreateShuttleRequest struct {
	Body string `json:"body" binding:"max=5000"`
}

// ShuttleDetailResponse is a post merged with its comments.
type ShuttleDetailResponse struct {
	entity.Post
	Comments []entity.Comment `json:"comments"`
}
