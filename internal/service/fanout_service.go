package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/internal/content"
	"internship-hub/internal/metrics"
	"internship-hub/internal/model"
	"internship-hub/internal/repository"
	"internship-hub/pkg/clock"
)

const (
	fanoutSourceLifecycle  = "lifecycle"
	fanoutSourceActivation = "activation"
	fanoutSourceReminder   = "reminder"
)

// Notice is one logical notification sent to many recipients under a
// single link.
type Notice struct {
	AnnouncementID *uuid.UUID
	Title          string
	Body           string
	LinkURL        string
	Category       model.NotificationCategory
}

type FanoutService struct {
	notifications repository.NotificationRepository
	clock         clock.Clock
	logger        *zap.Logger
}

func NewFanoutService(
	notifications repository.NotificationRepository,
	clk clock.Clock,
	logger *zap.Logger,
) *FanoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New(time.UTC)
	}

	return &FanoutService{
		notifications: notifications,
		clock:         clk,
		logger:        logger,
	}
}

// Publish upserts the notice for every recipient. A failed write does not
// stop the loop; failures come back as a *PartialFanoutError. A context that
// is already done writes nothing.
func (s *FanoutService) Publish(ctx context.Context, source string, notice Notice, recipients []uuid.UUID) error {
	if s.notifications == nil {
		return errors.New("notification repository is nil")
	}

	start := time.Now()
	defer func() {
		metrics.ObserveFanoutDuration(source, time.Since(start))
	}()

	category := notice.Category
	if category == "" {
		category = DeriveCategory(notice.Title, notice.Body)
	}
	message := content.TruncateMessage(content.PlainText(notice.Body))
	now := s.clock.Now().UTC()

	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		failed  []string
		lastErr error
	)
	for _, userID := range recipients {
		err := s.notifications.Upsert(ctx, &model.Notification{
			UserID:         userID,
			AnnouncementID: notice.AnnouncementID,
			Title:          notice.Title,
			Message:        message,
			Category:       category,
			LinkURL:        notice.LinkURL,
			CreatedAt:      now,
		})
		if err != nil {
			failed = append(failed, userID.String())
			lastErr = err
			s.logger.Warn("notification upsert failed",
				zap.String("user_id", userID.String()),
				zap.String("link_url", notice.LinkURL),
				zap.Error(err),
			)
		}
	}

	metrics.AddNotificationUpserts(string(category), len(recipients)-len(failed))
	metrics.AddNotificationUpsertErrors(len(failed))

	if len(failed) > 0 {
		return &PartialFanoutError{
			LinkURL: notice.LinkURL,
			Failed:  failed,
			Total:   len(recipients),
			Err:     lastErr,
		}
	}

	s.logger.Debug("notice fanned out",
		zap.String("source", source),
		zap.String("link_url", notice.LinkURL),
		zap.Int("recipients", len(recipients)),
	)
	return nil
}

// DeriveCategory scans title and body, preferring ranking over resume.
func DeriveCategory(title, body string) model.NotificationCategory {
	text := strings.ToLower(title + " " + body)
	switch {
	case strings.Contains(text, "ranking"):
		return model.NotificationCategoryRanking
	case strings.Contains(text, "resume"):
		return model.NotificationCategoryResume
	default:
		return model.NotificationCategoryAnnouncement
	}
}

func announcementNotice(item *model.Announcement) Notice {
	id := item.ID
	return Notice{
		AnnouncementID: &id,
		Title:          item.Title,
		Body:           item.Content,
		LinkURL:        model.AnnouncementLink(item.ID),
	}
}
