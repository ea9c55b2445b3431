package model

import (
	"time"

	"github.com/google/uuid"
)

type AnnouncementStatus string

const (
	AnnouncementStatusDraft     AnnouncementStatus = "draft"
	AnnouncementStatusScheduled AnnouncementStatus = "scheduled"
	AnnouncementStatusActive    AnnouncementStatus = "active"
	AnnouncementStatusExpired   AnnouncementStatus = "expired"
)

type Announcement struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	Title       string             `db:"title" json:"title"`
	Content     string             `db:"content" json:"content"`
	StartTime   time.Time          `db:"start_time" json:"start_time"`
	EndTime     time.Time          `db:"end_time" json:"end_time"`
	IsPublished bool               `db:"is_published" json:"is_published"`
	TargetRoles []UserRole         `db:"target_roles" json:"target_roles"`
	CreatedBy   uuid.UUID          `db:"created_by" json:"created_by"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
	Status      AnnouncementStatus `db:"-" json:"status"`
}

// StatusAt derives the lifecycle state from the publish flag and the window.
func (a *Announcement) StatusAt(now time.Time) AnnouncementStatus {
	switch {
	case a == nil || !a.IsPublished:
		return AnnouncementStatusDraft
	case !a.EndTime.IsZero() && !a.EndTime.After(now):
		return AnnouncementStatusExpired
	case a.StartTime.After(now):
		return AnnouncementStatusScheduled
	default:
		return AnnouncementStatusActive
	}
}

// CanTransition reports whether an edit may move an announcement from one
// state to another. Publishing an announcement whose window has already
// closed is the only rejected move; every other edit is allowed.
func CanTransition(from, to AnnouncementStatus) bool {
	if to == AnnouncementStatusExpired && from == AnnouncementStatusDraft {
		return false
	}
	return true
}

// AnnouncementLink is the canonical notification link for an announcement.
func AnnouncementLink(id uuid.UUID) string {
	return "/announcements/" + id.String()
}

// ReminderLink is the link of the one-time pre-expiry reminder.
func ReminderLink(id uuid.UUID, kind ReminderKind) string {
	return AnnouncementLink(id) + "?reminder=" + string(kind)
}
