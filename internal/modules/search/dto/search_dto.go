package dto

type SearchQuery struct {
	Query string `form:"q" binding:"required,max=200"`
	Limit int64  `form:"limit" binding:"omitempty,min=1,max=100"`
}

type ShuttleHit struct {
	ID             string `json:"id"`
	Body           string `json:"body"`
	AuthorHandle   string `json:"author_handle"`
	AuthorImageURL string `json:"author_image_url"`
	CreatedAt      int64  `json:"created_at"`
	LikeCount      int    `json:"like_count"`
	CommentCount   int    `json:"comment_count"`
}

type SearchResponse struct {
	Hits               []ShuttleHit `json:"hits"`
	Query              string       `json:"query"`
	EstimatedTotalHits int64        `json:"estimatedTotalHits"`
	ProcessingTimeMs   int64        `json:"processingTimeMs"`
}
