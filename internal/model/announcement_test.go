package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAnnouncementStatusAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name      string
		published bool
		start     time.Time
		end       time.Time
		want      AnnouncementStatus
	}{
		{"draft", false, now.Add(-time.Hour), now.Add(time.Hour), AnnouncementStatusDraft},
		{"scheduled", true, now.Add(time.Second), now.Add(time.Hour), AnnouncementStatusScheduled},
		{"active at start", true, now, now.Add(time.Hour), AnnouncementStatusActive},
		{"expired at end", true, now.Add(-time.Hour), now, AnnouncementStatusExpired},
	}

	for _, tc := range cases {
		item := &Announcement{IsPublished: tc.published, StartTime: tc.start, EndTime: tc.end}
		if got := item.StatusAt(now); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	if CanTransition(AnnouncementStatusDraft, AnnouncementStatusExpired) {
		t.Fatal("publishing a closed announcement must be rejected")
	}
	if !CanTransition(AnnouncementStatusExpired, AnnouncementStatusExpired) {
		t.Fatal("editing an expired announcement must be allowed")
	}
	if !CanTransition(AnnouncementStatusActive, AnnouncementStatusDraft) {
		t.Fatal("unpublishing must be allowed")
	}
}

func TestLinks(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("5b0c9d3e-7f44-4c1e-9a0b-2d8e6f1a3c55")
	if got := AnnouncementLink(id); got != "/announcements/5b0c9d3e-7f44-4c1e-9a0b-2d8e6f1a3c55" {
		t.Fatalf("unexpected link: %s", got)
	}
	if got := ReminderLink(id, ReminderKindDeadline); got != "/announcements/5b0c9d3e-7f44-4c1e-9a0b-2d8e6f1a3c55?reminder=deadline" {
		t.Fatalf("unexpected reminder link: %s", got)
	}
}
