package dto

import "anoa.com/shuttleapi/internal/entity"

type NotificationFilter struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

type NotificationListResponse struct {
	Data []entity.Notification `json:"data"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}
