package handler

import (
	"net/http"

	shuttleDto "anoa.com/shuttleapi/internal/modules/shuttle/dto"
	shuttle "anoa.com/shuttleapi/internal/modules/shuttle/service"
	"anoa.com/shuttleapi/pkg/dto"
	"anoa.com/shuttleapi/pkg/response"
	"anoa.com/shuttleapi/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ShuttleHandler struct {
	service shuttle.ShuttleService
}

func NewShuttleHandler(service shuttle.ShuttleService) *ShuttleHandler {
	return &ShuttleHandler{service: service}
}

func (h *ShuttleHandler) ListShuttles(c *gin.Context) {
	posts, err := h.service.ListShuttles(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, posts)
}

func (h *ShuttleHandler) CreateShuttle(c *gin.Context) {
	var req shuttleDto.CreateShuttleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	author, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	post, err := h.service.CreateShuttle(c.Request.Context(), author, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *ShuttleHandler) GetShuttle(c *gin.Context) {
	detail, err := h.service.GetShuttle(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *ShuttleHandler) DeleteShuttle(c *gin.Context) {
	requester, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.service.DeleteShuttle(c.Request.Context(), c.Param("id"), requester); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "shuttle deleted successfully"})
}
