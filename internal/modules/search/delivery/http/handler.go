package handler

import (
	"net/http"

	searchDto "anoa.com/shuttleapi/internal/modules/search/dto"
	search "anoa.com/shuttleapi/internal/modules/search/service"
	"anoa.com/shuttleapi/pkg/response"
	"anoa.com/shuttleapi/pkg/validator"
	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	service search.SearchService
}

func NewSearchHandler(service search.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) SearchShuttles(c *gin.Context) {
	var query searchDto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.service.SearchShuttles(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
