package handler

import (
	"net/http"

	"anoa.com/shuttleapi/internal/metrics"
	notifDto "anoa.com/shuttleapi/internal/modules/notification/dto"
	"anoa.com/shuttleapi/internal/modules/notification/service"
	"anoa.com/shuttleapi/pkg/apperror"
	"anoa.com/shuttleapi/pkg/dto"
	"anoa.com/shuttleapi/pkg/logger"
	"anoa.com/shuttleapi/pkg/response"
	"anoa.com/shuttleapi/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

type NotificationHandler struct {
	service     service.NotificationService
	redisClient *redis.Client
	upgrader    websocket.Upgrader
}

func NewNotificationHandler(service service.NotificationService, redisClient *redis.Client) *NotificationHandler {
	return &NotificationHandler{
		service:     service,
		redisClient: redisClient,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	requester, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter notifDto.NotificationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	notifications, err := h.service.GetNotifications(c.Request.Context(), requester.Handle, filter.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifDto.NotificationListResponse{Data: notifications})
}

// MarkNotificationsRead takes a JSON array of notification ids.
func (h *NotificationHandler) MarkNotificationsRead(c *gin.Context) {
	requester, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var ids []string
	if err := c.ShouldBindJSON(&ids); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be an array of notification ids"})
		return
	}

	if err := h.service.MarkNotificationsRead(c.Request.Context(), requester.Handle, ids); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "notifications marked read"})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	requester, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), requester.Handle)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifDto.UnreadCountResponse{Count: count})
}

// HandleWebSocket forwards the requester's redis notification channel to a
// websocket until either side disconnects.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	requester, err := response.GetRequester(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if h.redisClient == nil {
		response.ResponseError(c, apperror.New(http.StatusServiceUnavailable, "realtime notifications are not configured", apperror.ErrUnavailable))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}
	defer conn.Close()

	metrics.NotificationStreams.Inc()
	defer metrics.NotificationStreams.Dec()

	ctx := c.Request.Context()
	pubsub := h.redisClient.Subscribe(ctx, service.Channel(requester.Handle))
	defer pubsub.Close()

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Error().Err(err).Str("handle", requester.Handle).Msg("failed to subscribe to notification channel")
		return
	}

	ch := pubsub.Channel()
	clientClosed := make(chan struct{})

	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				logger.Debug().Err(err).Str("handle", requester.Handle).Msg("websocket write failed")
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
