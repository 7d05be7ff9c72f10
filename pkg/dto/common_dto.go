package dto

import "io"

// ImageFile is an uploaded image handed from the HTTP layer to a service.
type ImageFile struct {
	Reader      io.Reader
	FileName    string
	ContentType string
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Author is the authenticated caller's cached display identity.
type Author struct {
	Handle   string
	ImageURL string
}
