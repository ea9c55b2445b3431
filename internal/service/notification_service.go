package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/internal/model"
	"internship-hub/internal/repository"
)

const (
	notificationListDefaultSize = 20
	notificationListMaxPageSize = 100
)

// NotificationService is the recipient-facing read surface over the
// notification store.
type NotificationService struct {
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

func NewNotificationService(notifications repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotificationService{
		notifications: notifications,
		logger:        logger,
	}
}

func (s *NotificationService) ListMine(
	ctx context.Context,
	userID string,
	unreadOnly bool,
	page, pageSize int,
) ([]*model.Notification, int64, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, 0, ErrInvalidUserID
	}

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = notificationListDefaultSize
	}
	if pageSize > notificationListMaxPageSize {
		pageSize = notificationListMaxPageSize
	}

	filter := repository.NotificationListFilter{
		UserID:     uid,
		UnreadOnly: unreadOnly,
		Pagination: repository.Pagination{
			Limit:  int32(pageSize),
			Offset: int32((page - 1) * pageSize),
		},
	}

	items, err := s.notifications.ListByUser(ctx, filter)
	if err != nil {
		return nil, 0, wrapStorage("list notifications", err)
	}
	total, err := s.notifications.CountByUser(ctx, filter)
	if err != nil {
		return nil, 0, wrapStorage("count notifications", err)
	}

	return items, total, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return ErrInvalidUserID
	}
	id, err := uuid.Parse(strings.TrimSpace(notificationID))
	if err != nil {
		return ErrNotificationNotFound
	}

	if err := s.notifications.MarkRead(ctx, uid, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return wrapStorage("mark notification read", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return 0, ErrInvalidUserID
	}

	updated, err := s.notifications.MarkAllRead(ctx, uid)
	if err != nil {
		return 0, wrapStorage("mark all notifications read", err)
	}

	s.logger.Debug("notifications marked read", zap.String("user_id", uid.String()), zap.Int64("count", updated))
	return updated, nil
}
