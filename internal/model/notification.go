package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationCategory string

const (
	NotificationCategoryAnnouncement NotificationCategory = "announcement"
	NotificationCategoryResume       NotificationCategory = "resume"
	NotificationCategoryRanking      NotificationCategory = "ranking"
)

type ReminderKind string

const ReminderKindDeadline ReminderKind = "deadline"

type Notification struct {
	ID             uuid.UUID            `db:"id" json:"id"`
	UserID         uuid.UUID            `db:"user_id" json:"user_id"`
	AnnouncementID *uuid.UUID           `db:"announcement_id" json:"announcement_id,omitempty"`
	Title          string               `db:"title" json:"title"`
	Message        string               `db:"message" json:"message"`
	Category       NotificationCategory `db:"category" json:"category"`
	LinkURL        string               `db:"link_url" json:"link_url"`
	IsRead         bool                 `db:"is_read" json:"is_read"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
}
