package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"internship-hub/internal/api/middleware"
	"internship-hub/internal/api/response"
	"internship-hub/internal/model"
	"internship-hub/internal/service"
)

type NotificationService interface {
	ListMine(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type NotificationHandler struct {
	notificationService NotificationService
}

func NewNotificationHandler(notificationService NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func RegisterNotificationRoutes(group *gin.RouterGroup, notificationService NotificationService) {
	if notificationService == nil {
		return
	}

	handler := NewNotificationHandler(notificationService)
	notifications := group.Group("/notifications")
	notifications.Use(middleware.JWTAuth())

	notifications.GET("", handler.ListMine)
	notifications.PATCH("/:id/read", handler.MarkRead)
	notifications.POST("/read-all", handler.MarkAllRead)
}

// ListMine
// @Summary List my notifications
// @Tags notification
// @Produce json
// @Param unread query bool false "only unread"
// @Success 200 {object} response.Response
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) ListMine(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	page, pageSize := parsePagination(c, notificationMaxPageSize)
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	items, total, err := h.notificationService.ListMine(c.Request.Context(), claims.UserID, unreadOnly, page, pageSize)
	if err != nil {
		handleNotificationServiceError(c, err)
		return
	}
	response.Paginated(c, items, page, pageSize, total)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		handleNotificationServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"read": true})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), claims.UserID)
	if err != nil {
		handleNotificationServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": updated})
}

func handleNotificationServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotificationNotFound, "notification not found")
	case errors.Is(err, service.ErrInvalidUserID):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
