package response

import (
	"errors"
	"fmt"
	"net/http"

	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/dto"
	"anoa.com/shuttleapi/pkg/logger"
	"anoa.com/shuttleapi/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	UserIDKey       = "user_id"
	UserHandleKey   = "user_handle"
	UserImageURLKey = "user_image_url"
)

// GetRequester retrieves the authenticated requester from the context
func GetRequester(c *gin.Context) (dto.Author, error) {
	handle := c.GetString(UserHandleKey)
	if handle == "" {
		return dto.Author{}, apperror.ErrUnauthorized
	}

	return dto.Author{
		Handle:   handle,
		ImageURL: c.GetString(UserImageURLKey),
	}, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("internal error")
	} else {
		logger.Debug().Err(err).Int("status", code).Str("path", c.FullPath()).Msg("request failed")
	}

	var rateLimitErr *ratelimiter.RateLimitError
	if errors.As(err, &rateLimitErr) {
		c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
	}

	c.JSON(code, gin.H{"error": err.Error()})
}
