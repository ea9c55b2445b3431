package api

import (
	"github.com/gin-gonic/gin"

	v1 "internship-hub/internal/api/v1"
)

// V1Services groups the handlers' service dependencies. Nil members leave
// their routes unregistered.
type V1Services struct {
	Announcements v1.AnnouncementService
	Notifications v1.NotificationService
	Audit         v1.AuditService
}

func RegisterV1Routes(router gin.IRouter, services V1Services) *gin.RouterGroup {
	apiV1 := router.Group("/api/v1")
	if services.Announcements != nil {
		v1.RegisterAnnouncementRoutes(apiV1, services.Announcements)
	}
	if services.Notifications != nil {
		v1.RegisterNotificationRoutes(apiV1, services.Notifications)
	}
	if services.Audit != nil {
		v1.RegisterAuditRoutes(apiV1, services.Audit)
	}
	return apiV1
}
