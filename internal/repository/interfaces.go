package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"internship-hub/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type AuditListFilter struct {
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	ResourceType *string    `json:"resource_type,omitempty"`
	ResourceID   *string    `json:"resource_id,omitempty"`
	Action       *string    `json:"action,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Pagination   Pagination `json:"pagination"`
}

type NotificationListFilter struct {
	UserID     uuid.UUID  `json:"user_id"`
	UnreadOnly bool       `json:"unread_only"`
	Pagination Pagination `json:"pagination"`
}

type AnnouncementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Announcement, error)
	Create(ctx context.Context, item *model.Announcement) error
	Update(ctx context.Context, item *model.Announcement) error
	// Delete removes the announcement together with its notifications and
	// reminder claims in one transaction.
	Delete(ctx context.Context, id uuid.UUID, linkURLs []string) error
	List(ctx context.Context, page Pagination) ([]*model.Announcement, error)
	Count(ctx context.Context) (int64, error)
	// ListPendingActivation returns published announcements whose window
	// contains now and that have no notification under their canonical link.
	ListPendingActivation(ctx context.Context, now time.Time) ([]*model.Announcement, error)
	// ListEndingBetween returns published announcements with from <= end_time <= to.
	ListEndingBetween(ctx context.Context, from, to time.Time) ([]*model.Announcement, error)
}

type NotificationRepository interface {
	// Upsert writes one row per (user_id, link_url); an existing row is
	// refreshed and marked unread.
	Upsert(ctx context.Context, item *model.Notification) error
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	ListByUser(ctx context.Context, filter NotificationListFilter) ([]*model.Notification, error)
	CountByUser(ctx context.Context, filter NotificationListFilter) (int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ReminderRepository interface {
	// Claim records the reminder and reports whether this caller owns it.
	Claim(ctx context.Context, announcementID uuid.UUID, kind model.ReminderKind, firedAt time.Time) (bool, error)
	Release(ctx context.Context, announcementID uuid.UUID, kind model.ReminderKind) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	ListAllIDs(ctx context.Context) ([]uuid.UUID, error)
	ListIDsByRoles(ctx context.Context, roles []model.UserRole) ([]uuid.UUID, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filter AuditListFilter) ([]*model.AuditLog, error)
	Count(ctx context.Context, filter AuditListFilter) (int64, error)
}
