package handler

import (
	"net/http"

	engagementDto "anoa.com/shuttleapi/internal/modules/engagement/dto"
	engagement "anoa.com/shuttleapi/internal/modules/engagement/service"
	"anoa.com/shuttleapi/pkg/response"
	"anoa.com/shuttleapi/pkg/validator"
	"github.com/gin-gonic/gin"
)

type EngagementHandler struct {
	service engagement.EngagementService
}

func NewEngagementHandler(service engagement.EngagementService) *EngagementHandler {
	return &EngagementHandler{service: service}
}

func (h *EngagementHandler) AddComment(c *gin.Context) {
	var req engagementDto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	author, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), author, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, comment)
}

func (h *EngagementHandler) LikeShuttle(c *gin.Context) {
	user, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	post, err := h.service.LikeShuttle(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *EngagementHandler) UnlikeShuttle(c *gin.Context) {
	user, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	post, err := h.service.UnlikeShuttle(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}
