package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"internship-hub/internal/model"
)

func TestNotificationService_ReadFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	ctx := context.Background()
	repo := fakeNotificationRepo{store: h.store}
	svc := NewNotificationService(repo, nil)
	user := h.students[0]

	for i, link := range []string{"/announcements/a", "/announcements/b"} {
		if err := repo.Upsert(ctx, &model.Notification{
			UserID:    user,
			Title:     link,
			Message:   "m",
			Category:  model.NotificationCategoryAnnouncement,
			LinkURL:   link,
			CreatedAt: h.clock.Now().Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("seed notification: %v", err)
		}
	}

	items, total, err := svc.ListMine(ctx, user.String(), true, 1, 10)
	if err != nil {
		t.Fatalf("ListMine returned error: %v", err)
	}
	if total != 2 || len(items) != 2 || items[0].LinkURL != "/announcements/b" {
		t.Fatalf("unexpected list: total=%d items=%+v", total, items)
	}

	if err := svc.MarkRead(ctx, h.students[1].String(), items[0].ID.String()); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound for another user, got %v", err)
	}
	if err := svc.MarkRead(ctx, user.String(), items[0].ID.String()); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}

	_, unread, err := svc.ListMine(ctx, user.String(), true, 1, 10)
	if err != nil || unread != 1 {
		t.Fatalf("expected one unread, got %d (err=%v)", unread, err)
	}

	updated, err := svc.MarkAllRead(ctx, user.String())
	if err != nil || updated != 1 {
		t.Fatalf("expected one row marked, got %d (err=%v)", updated, err)
	}
}

func TestNotificationService_InvalidIDs(t *testing.T) {
	t.Parallel()

	svc := NewNotificationService(fakeNotificationRepo{store: newMemStore()}, nil)
	if _, _, err := svc.ListMine(context.Background(), "bad", false, 1, 10); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
	if err := svc.MarkRead(context.Background(), uuid.NewString(), "bad"); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
}
