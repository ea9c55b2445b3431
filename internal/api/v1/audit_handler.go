package v1

import (
	"context"

	"github.com/gin-gonic/gin"

	"internship-hub/internal/api/middleware"
	"internship-hub/internal/api/response"
	"internship-hub/internal/model"
)

type AuditService interface {
	AnnouncementHistory(ctx context.Context, announcementID, action string, page, pageSize int) ([]*model.AuditLog, int64, error)
}

type AuditHandler struct {
	auditService AuditService
}

func NewAuditHandler(auditService AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func RegisterAuditRoutes(group *gin.RouterGroup, auditService AuditService) {
	if auditService == nil {
		return
	}

	handler := NewAuditHandler(auditService)
	history := group.Group("/announcements")
	history.Use(middleware.JWTAuth(), middleware.RequireRole(managerRoles...))
	history.GET("/:id/history", handler.AnnouncementHistory)
}

// AnnouncementHistory
// @Summary List change history of an announcement
// @Tags audit
// @Produce json
// @Param id path string true "id"
// @Param action query string false "create | update | delete"
// @Param page query int false "page"
// @Param page_size query int false "page size"
// @Success 200 {object} response.Response
// @Router /api/v1/announcements/{id}/history [get]
func (h *AuditHandler) AnnouncementHistory(c *gin.Context) {
	page, pageSize := parsePagination(c, announcementMaxPageSize)

	entries, total, err := h.auditService.AnnouncementHistory(
		c.Request.Context(),
		c.Param("id"),
		c.Query("action"),
		page,
		pageSize,
	)
	if err != nil {
		handleAnnouncementServiceError(c, err)
		return
	}
	response.Paginated(c, entries, page, pageSize, total)
}
