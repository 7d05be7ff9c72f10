package dto

type AddCommentRequest struct {
	Body string `json:"body" binding:"max=2000"`
}
