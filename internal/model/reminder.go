package model

import (
	"time"

	"github.com/google/uuid"
)

type AnnouncementReminder struct {
	AnnouncementID uuid.UUID    `db:"announcement_id" json:"announcement_id"`
	Kind           ReminderKind `db:"kind" json:"kind"`
	FiredAt        time.Time    `db:"fired_at" json:"fired_at"`
}
