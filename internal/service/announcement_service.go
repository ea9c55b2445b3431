package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/internal/content"
	"internship-hub/internal/model"
	"internship-hub/internal/repository"
	"internship-hub/pkg/clock"
)

const (
	announcementListDefaultPage = 1
	announcementListDefaultSize = 20
	announcementListMaxPageSize = 200

	// maxTitleRunes keeps "notice: " + title within the 255-character
	// notification title column.
	maxTitleRunes = 255 - len(reminderTitlePrefix)

	detachedWorkTimeout = 2 * time.Minute
)

type AnnouncementRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	IsPublished bool     `json:"is_published"`
	TargetRoles []string `json:"target_roles"`
}

type AnnouncementOptions struct {
	// ScanOnRead runs the activation and reminder scans before List and GetByID.
	ScanOnRead bool
}

type AnnouncementService struct {
	announcements repository.AnnouncementRepository
	auditRepo     repository.AuditRepository
	resolver      AudienceResolver
	fanout        *FanoutService
	reconciler    *ReconcileService
	normalizer    *content.Normalizer
	clock         clock.Clock
	options       AnnouncementOptions
	logger        *zap.Logger
}

func NewAnnouncementService(
	announcements repository.AnnouncementRepository,
	auditRepo repository.AuditRepository,
	resolver AudienceResolver,
	fanout *FanoutService,
	reconciler *ReconcileService,
	clk clock.Clock,
	options AnnouncementOptions,
	logger *zap.Logger,
) *AnnouncementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New(time.UTC)
	}

	return &AnnouncementService{
		announcements: announcements,
		auditRepo:     auditRepo,
		resolver:      resolver,
		fanout:        fanout,
		reconciler:    reconciler,
		normalizer:    content.NewNormalizer(clk.Location()),
		clock:         clk,
		options:       options,
		logger:        logger,
	}
}

func (s *AnnouncementService) Create(
	ctx context.Context,
	operatorID string,
	req AnnouncementRequest,
) (*model.Announcement, error) {
	operatorUUID, err := uuid.Parse(strings.TrimSpace(operatorID))
	if err != nil {
		return nil, ErrInvalidUserID
	}

	now := s.clock.Now()
	item, err := s.buildAnnouncement(req)
	if err != nil {
		return nil, err
	}
	item.ID = uuid.New()
	item.CreatedBy = operatorUUID
	item.CreatedAt = now.UTC()
	item.UpdatedAt = item.CreatedAt

	status := item.StatusAt(now)
	if !model.CanTransition(model.AnnouncementStatusDraft, status) {
		return nil, newValidationError("end_time", "cannot publish an announcement whose end time has passed")
	}

	if err := s.announcements.Create(ctx, item); err != nil {
		s.logger.Error("create announcement failed", zap.String("announcement_id", item.ID.String()), zap.Error(err))
		return nil, wrapStorage("create announcement", err)
	}
	item.Status = status

	s.writeAudit(ctx, &operatorUUID, model.AuditActionAnnouncementCreate, item.ID.String(), nil, auditSnapshot(item))
	s.publishIfActive(ctx, item)

	return item, nil
}

func (s *AnnouncementService) Update(
	ctx context.Context,
	operatorID string,
	announcementID string,
	req AnnouncementRequest,
) (*model.Announcement, error) {
	operatorUUID, err := uuid.Parse(strings.TrimSpace(operatorID))
	if err != nil {
		return nil, ErrInvalidUserID
	}
	id, err := parseAnnouncementID(announcementID)
	if err != nil {
		return nil, err
	}

	current, err := s.getByUUID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	next, err := s.buildAnnouncement(req)
	if err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = now.UTC()

	status := next.StatusAt(now)
	if !model.CanTransition(current.StatusAt(now), status) {
		return nil, newValidationError("end_time", "cannot publish an announcement whose end time has passed")
	}

	if err := s.announcements.Update(ctx, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		s.logger.Error("update announcement failed", zap.String("announcement_id", id.String()), zap.Error(err))
		return nil, wrapStorage("update announcement", err)
	}
	next.Status = status

	s.writeAudit(ctx, &operatorUUID, model.AuditActionAnnouncementUpdate, id.String(), auditSnapshot(current), auditSnapshot(next))
	s.publishIfActive(ctx, next)

	return next, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, operatorID string, announcementID string) error {
	operatorUUID, err := uuid.Parse(strings.TrimSpace(operatorID))
	if err != nil {
		return ErrInvalidUserID
	}
	id, err := parseAnnouncementID(announcementID)
	if err != nil {
		return err
	}

	current, err := s.getByUUID(ctx, id)
	if err != nil {
		return err
	}

	links := []string{
		model.AnnouncementLink(id),
		model.ReminderLink(id, model.ReminderKindDeadline),
	}
	if err := s.announcements.Delete(ctx, id, links); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAnnouncementNotFound
		}
		s.logger.Error("delete announcement failed", zap.String("announcement_id", id.String()), zap.Error(err))
		return wrapStorage("delete announcement", err)
	}

	s.writeAudit(ctx, &operatorUUID, model.AuditActionAnnouncementDelete, id.String(), auditSnapshot(current), nil)
	return nil
}

func (s *AnnouncementService) GetByID(ctx context.Context, announcementID string) (*model.Announcement, error) {
	id, err := parseAnnouncementID(announcementID)
	if err != nil {
		return nil, err
	}

	s.scan(ctx)
	item, err := s.getByUUID(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Status = item.StatusAt(s.clock.Now())
	return item, nil
}

func (s *AnnouncementService) List(
	ctx context.Context,
	page, pageSize int,
) ([]*model.Announcement, int64, error) {
	page, pageSize = normalizeAnnouncementPagination(page, pageSize)

	s.scan(ctx)

	items, err := s.announcements.List(ctx, repository.Pagination{
		Limit:  int32(pageSize),
		Offset: int32((page - 1) * pageSize),
	})
	if err != nil {
		return nil, 0, wrapStorage("list announcements", err)
	}
	total, err := s.announcements.Count(ctx)
	if err != nil {
		return nil, 0, wrapStorage("count announcements", err)
	}

	now := s.clock.Now()
	for _, item := range items {
		item.Status = item.StatusAt(now)
	}
	return items, total, nil
}

// scan runs reconciliation inline; failures are logged and never fail the read.
func (s *AnnouncementService) scan(ctx context.Context) {
	if !s.options.ScanOnRead || s.reconciler == nil {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()

	if err := s.reconciler.Run(ctx); err != nil {
		s.logger.Warn("scan on read failed", zap.Error(err))
	}
}

// detach bounds work that must finish even if the caller goes away.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), detachedWorkTimeout)
}

func (s *AnnouncementService) publishIfActive(ctx context.Context, item *model.Announcement) {
	if item.Status != model.AnnouncementStatusActive || s.fanout == nil || s.resolver == nil {
		return
	}

	ctx, cancel := detach(ctx)
	defer cancel()

	recipients, err := s.resolver.Resolve(ctx, item.TargetRoles)
	if err != nil {
		s.logger.Error("resolve audience failed",
			zap.String("announcement_id", item.ID.String()),
			zap.Error(err),
		)
		return
	}

	if err := s.fanout.Publish(ctx, fanoutSourceLifecycle, announcementNotice(item), recipients); err != nil {
		var partial *PartialFanoutError
		if errors.As(err, &partial) {
			s.logger.Warn("partial fan-out",
				zap.String("announcement_id", item.ID.String()),
				zap.Int("failed", len(partial.Failed)),
				zap.Int("total", partial.Total),
				zap.Error(partial.Err),
			)
			return
		}
		s.logger.Error("fan-out failed", zap.String("announcement_id", item.ID.String()), zap.Error(err))
	}
}

func (s *AnnouncementService) getByUUID(ctx context.Context, id uuid.UUID) (*model.Announcement, error) {
	item, err := s.announcements.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, wrapStorage("find announcement", err)
	}
	return item, nil
}

func (s *AnnouncementService) buildAnnouncement(req AnnouncementRequest) (*model.Announcement, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newValidationError("title", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		return nil, newValidationError("title", fmt.Sprintf("title must be at most %d characters", maxTitleRunes))
	}
	body := strings.TrimSpace(req.Content)
	if body == "" {
		return nil, newValidationError("content", "content is required")
	}

	loc := s.clock.Location()
	startTime, err := clock.Parse(req.StartTime, loc)
	if err != nil {
		return nil, newValidationError("start_time", "start_time must look like 2006-01-02 15:04")
	}
	endTime, err := clock.Parse(req.EndTime, loc)
	if err != nil {
		return nil, newValidationError("end_time", "end_time must look like 2006-01-02 15:04")
	}
	if !endTime.After(startTime) {
		return nil, newValidationError("end_time", "end_time must be after start_time")
	}

	return &model.Announcement{
		Title:       title,
		Content:     s.normalizer.Normalize(body, &endTime),
		StartTime:   startTime.UTC(),
		EndTime:     endTime.UTC(),
		IsPublished: req.IsPublished,
		TargetRoles: parseRoles(req.TargetRoles),
	}, nil
}

// parseRoles keeps the operator's list as given, minus blanks and repeats.
// Unknown roles are filtered at resolve time.
func parseRoles(raw []string) []model.UserRole {
	seen := make(map[string]struct{}, len(raw))
	out := make([]model.UserRole, 0, len(raw))
	for _, item := range raw {
		role := strings.ToLower(strings.TrimSpace(item))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, model.UserRole(role))
	}
	return out
}

func parseAnnouncementID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, newValidationError("id", "invalid announcement id")
	}
	return id, nil
}

func normalizeAnnouncementPagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = announcementListDefaultPage
	}
	if pageSize <= 0 {
		pageSize = announcementListDefaultSize
	}
	if pageSize > announcementListMaxPageSize {
		pageSize = announcementListMaxPageSize
	}
	return page, pageSize
}

func auditSnapshot(item *model.Announcement) map[string]interface{} {
	roles := make([]string, 0, len(item.TargetRoles))
	for _, role := range item.TargetRoles {
		roles = append(roles, string(role))
	}

	return map[string]interface{}{
		"title":        item.Title,
		"is_published": item.IsPublished,
		"start_time":   item.StartTime.UTC().Format(time.RFC3339),
		"end_time":     item.EndTime.UTC().Format(time.RFC3339),
		"target_roles": roles,
	}
}

func (s *AnnouncementService) writeAudit(
	ctx context.Context,
	userID *uuid.UUID,
	action, resourceID string,
	oldValue, newValue map[string]interface{},
) {
	if s.auditRepo == nil {
		return
	}

	resourceType := model.AuditResourceAnnouncement
	if err := s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
		OldValue:     oldValue,
		NewValue:     newValue,
		CreatedAt:    s.clock.Now().UTC(),
	}); err != nil {
		s.logger.Warn("write audit log failed", zap.String("action", action), zap.Error(err))
	}
}
