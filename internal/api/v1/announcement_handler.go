package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"internship-hub/internal/api/middleware"
	"internship-hub/internal/api/response"
	inputsanitize "internship-hub/internal/api/sanitize"
	"internship-hub/internal/model"
	"internship-hub/internal/service"
)

const (
	announcementWriteLimit  = 30
	announcementWriteWindow = time.Minute
)

type AnnouncementService interface {
	Create(ctx context.Context, operatorID string, req service.AnnouncementRequest) (*model.Announcement, error)
	Update(ctx context.Context, operatorID, announcementID string, req service.AnnouncementRequest) (*model.Announcement, error)
	Delete(ctx context.Context, operatorID, announcementID string) error
	GetByID(ctx context.Context, announcementID string) (*model.Announcement, error)
	List(ctx context.Context, page, pageSize int) ([]*model.Announcement, int64, error)
}

type AnnouncementHandler struct {
	announcementService AnnouncementService
}

type announcementRequest struct {
	Title       string   `json:"title" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	StartTime   string   `json:"start_time" binding:"required"`
	EndTime     string   `json:"end_time" binding:"required"`
	IsPublished bool     `json:"is_published"`
	TargetRoles []string `json:"target_roles"`
}

func NewAnnouncementHandler(announcementService AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{
		announcementService: announcementService,
	}
}

func RegisterAnnouncementRoutes(group *gin.RouterGroup, announcementService AnnouncementService) {
	if announcementService == nil {
		return
	}

	handler := NewAnnouncementHandler(announcementService)
	ann := group.Group("/announcements")
	ann.Use(middleware.JWTAuth())

	ann.GET("", handler.List)
	ann.GET("/:id", handler.GetByID)

	write := ann.Group("")
	write.Use(
		middleware.RequireRole(managerRoles...),
		middleware.RateLimit("announcement:{user_id}", announcementWriteLimit, announcementWriteWindow),
	)
	write.POST("", handler.Create)
	write.PUT("/:id", handler.Update)
	write.DELETE("/:id", handler.Delete)
}

// List
// @Summary List announcements
// @Tags announcement
// @Produce json
// @Param page query int false "page"
// @Param page_size query int false "page size"
// @Success 200 {object} response.Response
// @Router /api/v1/announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	page, pageSize := parsePagination(c, announcementMaxPageSize)

	items, total, err := h.announcementService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		handleAnnouncementServiceError(c, err)
		return
	}
	response.Paginated(c, items, page, pageSize, total)
}

// GetByID
// @Summary Get announcement
// @Tags announcement
// @Produce json
// @Param id path string true "id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/announcements/{id} [get]
func (h *AnnouncementHandler) GetByID(c *gin.Context) {
	item, err := h.announcementService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleAnnouncementServiceError(c, err)
		return
	}
	response.Success(c, item)
}

// Create
// @Summary Create announcement
// @Tags announcement
// @Accept json
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	item, err := h.announcementService.Create(c.Request.Context(), claims.UserID, req.toService())
	if err != nil {
		handleAnnouncementServiceError(c, err)
		return
	}

	response.Success(c, item)
}

// Update
// @Summary Replace announcement
// @Tags announcement
// @Accept json
// @Produce json
// @Param id path string true "id"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
		return
	}

	item, err := h.announcementService.Update(c.Request.Context(), claims.UserID, c.Param("id"), req.toService())
	if err != nil {
		handleAnnouncementServiceError(c, err)
		return
	}

	response.Success(c, item)
}

// Delete
// @Summary Delete announcement
// @Tags announcement
// @Produce json
// @Param id path string true "id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	if err := h.announcementService.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		handleAnnouncementServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

func (r announcementRequest) toService() service.AnnouncementRequest {
	return service.AnnouncementRequest{
		Title:       inputsanitize.Text(r.Title),
		Content:     inputsanitize.Markdown(r.Content),
		StartTime:   strings.TrimSpace(r.StartTime),
		EndTime:     strings.TrimSpace(r.EndTime),
		IsPublished: r.IsPublished,
		TargetRoles: inputsanitize.StringSlice(r.TargetRoles),
	}
}

func handleAnnouncementServiceError(c *gin.Context, err error) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		response.Invalid(c, validation.Field, validation.Error())
	case errors.Is(err, service.ErrAnnouncementNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAnnouncementNotFound, "announcement not found")
	case errors.Is(err, service.ErrInvalidAnnouncementReq),
		errors.Is(err, service.ErrInvalidUserID):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidInput, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}

var managerRoles = []string{
	string(model.UserRoleAdmin),
	string(model.UserRoleTeacher),
	string(model.UserRoleDirector),
}

const (
	defaultPageSize         = 20
	announcementMaxPageSize = 200
	notificationMaxPageSize = 100
)

// parsePagination reads page and page_size with the bounds the services apply.
func parsePagination(c *gin.Context, maxPageSize int) (int, int) {
	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func parseIntOrDefault(raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}
