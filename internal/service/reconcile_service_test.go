package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"internship-hub/internal/model"
)

func seedPublished(t *testing.T, h *harness, start, end time.Duration) *model.Announcement {
	t.Helper()

	now := h.clock.Now()
	item := &model.Announcement{
		ID:          uuid.New(),
		Title:       "Seeded " + uuid.NewString()[:6],
		Content:     "Body",
		StartTime:   now.Add(start).UTC(),
		EndTime:     now.Add(end).UTC(),
		IsPublished: true,
		TargetRoles: []model.UserRole{model.UserRoleStudent},
		CreatedAt:   now.UTC(),
	}
	if err := (fakeAnnouncementRepo{store: h.store}).Create(context.Background(), item); err != nil {
		t.Fatalf("seed announcement: %v", err)
	}
	return item
}

func TestActivateDue_ConcurrentRunsDoNotDuplicate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	item := seedPublished(t, h, -time.Minute, 72*time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.reconciler.ActivateDue(context.Background()); err != nil {
				t.Errorf("ActivateDue returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	assertRecipients(t, h.store.notificationsByLink(model.AnnouncementLink(item.ID)), h.allUsers())
}

func TestActivateDue_SkipsUnstartedAndExpired(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	seedPublished(t, h, time.Hour, 2*time.Hour)
	seedPublished(t, h, -2*time.Hour, -time.Hour)

	activated, err := h.reconciler.ActivateDue(context.Background())
	if err != nil {
		t.Fatalf("ActivateDue returned error: %v", err)
	}
	if activated != 0 || h.store.notificationCount() != 0 {
		t.Fatalf("expected nothing activated, got %d (%d rows)", activated, h.store.notificationCount())
	}
}

func TestRemindExpiring_WindowBounds(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	inside := seedPublished(t, h, -time.Hour, 24*time.Hour)
	outside := seedPublished(t, h, -time.Hour, 25*time.Hour)

	reminded, err := h.reconciler.RemindExpiring(context.Background())
	if err != nil {
		t.Fatalf("RemindExpiring returned error: %v", err)
	}
	if reminded != 1 {
		t.Fatalf("expected one reminder, got %d", reminded)
	}
	if got := len(h.store.notificationsByLink(model.ReminderLink(inside.ID, model.ReminderKindDeadline))); got != len(h.allUsers()) {
		t.Fatalf("expected reminder for every user, got %d", got)
	}
	if got := len(h.store.notificationsByLink(model.ReminderLink(outside.ID, model.ReminderKindDeadline))); got != 0 {
		t.Fatalf("expected no reminder outside window, got %d", got)
	}
}

func TestRemindExpiring_SkipsExistingReminderTitle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	item := seedPublished(t, h, -time.Hour, time.Hour)

	if err := (fakeNotificationRepo{store: h.store}).Upsert(context.Background(), &model.Notification{
		UserID:  h.students[0],
		Title:   "notice: " + item.Title,
		Message: "legacy",
		LinkURL: "/legacy",
	}); err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	reminded, err := h.reconciler.RemindExpiring(context.Background())
	if err != nil {
		t.Fatalf("RemindExpiring returned error: %v", err)
	}
	if reminded != 0 || len(h.store.reminders) != 0 {
		t.Fatalf("expected reminder skipped, got %d (claims=%d)", reminded, len(h.store.reminders))
	}
}

func TestRemindExpiring_ReleasesClaimWhenAudienceFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	item := seedPublished(t, h, -time.Hour, time.Hour)
	h.store.failUsers = errStoreDown

	if _, err := h.reconciler.RemindExpiring(context.Background()); err == nil {
		t.Fatal("expected error when audience cannot be resolved")
	}
	if len(h.store.reminders) != 0 {
		t.Fatalf("expected claim released, got %d", len(h.store.reminders))
	}

	h.store.failUsers = nil
	reminded, err := h.reconciler.RemindExpiring(context.Background())
	if err != nil {
		t.Fatalf("RemindExpiring returned error: %v", err)
	}
	if reminded != 1 {
		t.Fatalf("expected reminder on retry, got %d", reminded)
	}
	if got := len(h.store.notificationsByLink(model.ReminderLink(item.ID, model.ReminderKindDeadline))); got != len(h.allUsers()) {
		t.Fatalf("expected reminder rows for every user, got %d", got)
	}
}

func TestRemindExpiring_ReleasesClaimWhenEveryWriteFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	item := seedPublished(t, h, -time.Hour, time.Hour)
	for _, id := range h.allUsers() {
		h.store.failUpsertFor[id] = true
	}

	reminded, err := h.reconciler.RemindExpiring(context.Background())
	if err == nil {
		t.Fatal("expected error when no reminder row could be written")
	}
	if reminded != 0 || len(h.store.reminders) != 0 {
		t.Fatalf("expected claim released, got reminded=%d claims=%d", reminded, len(h.store.reminders))
	}

	h.store.failUpsertFor = make(map[uuid.UUID]bool)
	reminded, err = h.reconciler.RemindExpiring(context.Background())
	if err != nil {
		t.Fatalf("RemindExpiring returned error: %v", err)
	}
	if reminded != 1 {
		t.Fatalf("expected reminder on retry, got %d", reminded)
	}
	assertRecipients(t, h.store.notificationsByLink(model.ReminderLink(item.ID, model.ReminderKindDeadline)), h.allUsers())
}

func TestActivateDue_RetriesWhenEveryWriteFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	item := seedPublished(t, h, -time.Minute, 72*time.Hour)
	for _, id := range h.allUsers() {
		h.store.failUpsertFor[id] = true
	}

	activated, err := h.reconciler.ActivateDue(context.Background())
	if err == nil || activated != 0 {
		t.Fatalf("expected failed activation, got %d %v", activated, err)
	}

	h.store.failUpsertFor = make(map[uuid.UUID]bool)
	if _, err := h.reconciler.ActivateDue(context.Background()); err != nil {
		t.Fatalf("ActivateDue returned error: %v", err)
	}
	assertRecipients(t, h.store.notificationsByLink(model.AnnouncementLink(item.ID)), h.allUsers())
}

func TestRemindExpiring_ConcurrentRunsFireOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	item := seedPublished(t, h, -time.Hour, time.Hour)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := h.reconciler.RemindExpiring(context.Background())
			if err != nil {
				t.Errorf("RemindExpiring returned error: %v", err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 1 {
		t.Fatalf("expected exactly one reminder run to fire, got %d", total)
	}
	assertRecipients(t, h.store.notificationsByLink(model.ReminderLink(item.ID, model.ReminderKindDeadline)), h.allUsers())
}

func TestRun_JoinsScannerErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	seedPublished(t, h, -time.Hour, time.Hour)
	h.store.failUsers = errStoreDown

	if err := h.reconciler.Run(context.Background()); err == nil {
		t.Fatal("expected joined error")
	}
	if h.store.notificationCount() != 0 {
		t.Fatalf("expected no rows, got %d", h.store.notificationCount())
	}
}
