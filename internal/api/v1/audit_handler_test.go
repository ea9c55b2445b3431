package v1

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"internship-hub/internal/api/middleware"
	"internship-hub/internal/model"
	"internship-hub/internal/service"
)

type stubAuditService struct {
	historyFn func(id, action string, page, pageSize int) ([]*model.AuditLog, int64, error)
}

func (s *stubAuditService) AnnouncementHistory(_ context.Context, id, action string, page, pageSize int) ([]*model.AuditLog, int64, error) {
	return s.historyFn(id, action, page, pageSize)
}

func newAuditTestRouter(claims *middleware.Claims, svc AuditService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set("claims", claims)
		}
		c.Next()
	})
	RegisterAuditRoutes(router.Group("/api/v1"), svc)
	return router
}

func TestAnnouncementHistory_ForwardsQuery(t *testing.T) {
	t.Parallel()

	stub := &stubAuditService{
		historyFn: func(id, action string, page, pageSize int) ([]*model.AuditLog, int64, error) {
			if id != "abc" || action != "update" || page != 2 || pageSize != 5 {
				t.Fatalf("unexpected args: %s %s %d %d", id, action, page, pageSize)
			}
			return []*model.AuditLog{{ID: 7, Action: "announcement.update"}}, 6, nil
		},
	}

	router := newAuditTestRouter(teacherClaims(), stub)
	rec, resp := performJSONRequest(t, router, http.MethodGet, "/api/v1/announcements/abc/history?action=update&page=2&page_size=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.Pagination == nil || resp.Pagination.Total != 6 {
		t.Fatalf("unexpected pagination: %+v", resp.Pagination)
	}
}

func TestAnnouncementHistory_StudentForbidden(t *testing.T) {
	t.Parallel()

	stub := &stubAuditService{
		historyFn: func(string, string, int, int) ([]*model.AuditLog, int64, error) {
			t.Fatal("service must not be called")
			return nil, 0, nil
		},
	}

	router := newAuditTestRouter(&middleware.Claims{UserID: "u", Role: "student"}, stub)
	rec, _ := performJSONRequest(t, router, http.MethodGet, "/api/v1/announcements/abc/history", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAnnouncementHistory_InvalidID(t *testing.T) {
	t.Parallel()

	stub := &stubAuditService{
		historyFn: func(string, string, int, int) ([]*model.AuditLog, int64, error) {
			return nil, 0, &service.ValidationError{Field: "id", Message: "invalid announcement id"}
		},
	}

	router := newAuditTestRouter(teacherClaims(), stub)
	rec, _ := performJSONRequest(t, router, http.MethodGet, "/api/v1/announcements/zzz/history", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	stub.historyFn = func(string, string, int, int) ([]*model.AuditLog, int64, error) {
		return nil, 0, errors.New("db down")
	}
	rec, _ = performJSONRequest(t, router, http.MethodGet, "/api/v1/announcements/zzz/history", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
