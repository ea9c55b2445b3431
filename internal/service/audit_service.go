package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"internship-hub/internal/model"
	"internship-hub/internal/repository"
)

const (
	auditListDefaultPage = 1
	auditListDefaultSize = 20
	auditListMaxPageSize = 200
)

var ErrInvalidAuditInput = errors.New("invalid audit input")

// AuditService reads back the change trail written by the lifecycle API.
type AuditService struct {
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// AnnouncementHistory lists create/update/delete entries of one announcement,
// newest first. Entries of deleted announcements remain readable.
func (s *AuditService) AnnouncementHistory(
	ctx context.Context,
	announcementID string,
	action string,
	page, pageSize int,
) ([]*model.AuditLog, int64, error) {
	if s.auditRepo == nil {
		return nil, 0, errors.New("audit repository is nil")
	}

	id, err := parseAnnouncementID(announcementID)
	if err != nil {
		return nil, 0, err
	}

	page, pageSize = normalizeAuditPagination(page, pageSize)
	resourceType := model.AuditResourceAnnouncement
	resourceID := id.String()
	filter := repository.AuditListFilter{
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
		Pagination: repository.Pagination{
			Limit:  int32(pageSize),              // #nosec G115 -- bounded by auditListMaxPageSize.
			Offset: int32((page - 1) * pageSize), // #nosec G115 -- page is caller-bounded.
		},
	}
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		if !strings.HasPrefix(trimmed, model.AuditResourceAnnouncement+".") {
			trimmed = model.AuditResourceAnnouncement + "." + trimmed
		}
		filter.Action = &trimmed
	}

	entries, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("list announcement history failed", zap.String("announcement_id", resourceID), zap.Error(err))
		return nil, 0, wrapStorage("list announcement history", err)
	}
	total, err := s.auditRepo.Count(ctx, filter)
	if err != nil {
		s.logger.Error("count announcement history failed", zap.String("announcement_id", resourceID), zap.Error(err))
		return nil, 0, wrapStorage("count announcement history", err)
	}

	return entries, total, nil
}

func normalizeAuditPagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = auditListDefaultPage
	}
	if pageSize <= 0 {
		pageSize = auditListDefaultSize
	}
	if pageSize > auditListMaxPageSize {
		pageSize = auditListMaxPageSize
	}
	return page, pageSize
}
