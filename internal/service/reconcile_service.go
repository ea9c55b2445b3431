package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/internal/metrics"
	"internship-hub/internal/model"
	"internship-hub/internal/repository"
	"internship-hub/pkg/clock"
)

const (
	DeferredAudienceAll      = "all"
	DeferredAudienceOriginal = "original"

	DefaultReminderWindow = 24 * time.Hour

	reminderTitlePrefix = "notice: "
	reminderBodyPrefix  = "content will end at "

	scannerActivation = "activation"
	scannerReminder   = "reminder"
)

type AudienceResolver interface {
	Resolve(ctx context.Context, roles []model.UserRole) ([]uuid.UUID, error)
}

type ReconcileOptions struct {
	// DeferredAudience selects who receives scanner-driven notices:
	// "all" users or the announcement's stored target roles ("original").
	DeferredAudience string
	ReminderWindow   time.Duration
}

// ReconcileService runs the activation and deadline-reminder scans.
// Both are safe to run concurrently with each other and with themselves.
type ReconcileService struct {
	announcements repository.AnnouncementRepository
	notifications repository.NotificationRepository
	reminders     repository.ReminderRepository
	resolver      AudienceResolver
	fanout        *FanoutService
	clock         clock.Clock
	options       ReconcileOptions
	logger        *zap.Logger
}

func NewReconcileService(
	announcements repository.AnnouncementRepository,
	notifications repository.NotificationRepository,
	reminders repository.ReminderRepository,
	resolver AudienceResolver,
	fanout *FanoutService,
	clk clock.Clock,
	options ReconcileOptions,
	logger *zap.Logger,
) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New(time.UTC)
	}
	if options.DeferredAudience != DeferredAudienceOriginal {
		options.DeferredAudience = DeferredAudienceAll
	}
	if options.ReminderWindow <= 0 {
		options.ReminderWindow = DefaultReminderWindow
	}

	return &ReconcileService{
		announcements: announcements,
		notifications: notifications,
		reminders:     reminders,
		resolver:      resolver,
		fanout:        fanout,
		clock:         clk,
		options:       options,
		logger:        logger,
	}
}

// Run executes both scans and joins their errors.
func (s *ReconcileService) Run(ctx context.Context) error {
	_, activateErr := s.ActivateDue(ctx)
	_, remindErr := s.RemindExpiring(ctx)
	return errors.Join(activateErr, remindErr)
}

// ActivateDue fans out published announcements whose window has opened and
// that have no notification under their canonical link yet.
func (s *ReconcileService) ActivateDue(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveScanDuration(scannerActivation, time.Since(start))
	}()

	now := s.clock.Now()
	items, err := s.announcements.ListPendingActivation(ctx, now)
	if err != nil {
		metrics.IncScanError(scannerActivation)
		return 0, wrapStorage("list pending activation", err)
	}

	activated := 0
	var errs []error
	for _, item := range items {
		recipients, err := s.resolver.Resolve(ctx, s.deferredRoles(item))
		if err != nil {
			metrics.IncScanError(scannerActivation)
			errs = append(errs, wrapStorage("resolve audience", err))
			continue
		}

		err = s.fanout.Publish(ctx, fanoutSourceActivation, announcementNotice(item), recipients)
		if err != nil && !s.tolerate(err, item.ID) {
			metrics.IncScanError(scannerActivation)
			errs = append(errs, err)
			continue
		}

		activated++
		s.logger.Info("announcement activated",
			zap.String("announcement_id", item.ID.String()),
			zap.Int("recipients", len(recipients)),
		)
	}

	metrics.AddScanActions(scannerActivation, activated)
	return activated, errors.Join(errs...)
}

// RemindExpiring sends the one-time reminder for published announcements
// ending within the reminder window.
func (s *ReconcileService) RemindExpiring(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveScanDuration(scannerReminder, time.Since(start))
	}()

	now := s.clock.Now()
	items, err := s.announcements.ListEndingBetween(ctx, now, now.Add(s.options.ReminderWindow))
	if err != nil {
		metrics.IncScanError(scannerReminder)
		return 0, wrapStorage("list ending announcements", err)
	}

	reminded := 0
	var errs []error
	for _, item := range items {
		ok, err := s.remind(ctx, item, now)
		if err != nil {
			metrics.IncScanError(scannerReminder)
			errs = append(errs, err)
			continue
		}
		if ok {
			reminded++
		}
	}

	metrics.AddScanActions(scannerReminder, reminded)
	return reminded, errors.Join(errs...)
}

func (s *ReconcileService) remind(ctx context.Context, item *model.Announcement, now time.Time) (bool, error) {
	title := reminderTitlePrefix + item.Title

	exists, err := s.notifications.ExistsByTitle(ctx, title)
	if err != nil {
		return false, wrapStorage("check reminder title", err)
	}
	if exists {
		return false, nil
	}

	claimed, err := s.reminders.Claim(ctx, item.ID, model.ReminderKindDeadline, now.UTC())
	if err != nil {
		return false, wrapStorage("claim reminder", err)
	}
	if !claimed {
		return false, nil
	}

	recipients, err := s.resolver.Resolve(ctx, s.deferredRoles(item))
	if err != nil {
		s.releaseClaim(ctx, item.ID)
		return false, wrapStorage("resolve audience", err)
	}

	id := item.ID
	notice := Notice{
		AnnouncementID: &id,
		Title:          title,
		Body:           reminderBodyPrefix + clock.Format(item.EndTime, s.clock.Location()),
		LinkURL:        model.ReminderLink(item.ID, model.ReminderKindDeadline),
		Category:       DeriveCategory(item.Title, item.Content),
	}
	if err := s.fanout.Publish(ctx, fanoutSourceReminder, notice, recipients); err != nil && !s.tolerate(err, item.ID) {
		s.releaseClaim(ctx, item.ID)
		return false, err
	}

	s.logger.Info("deadline reminder sent",
		zap.String("announcement_id", item.ID.String()),
		zap.Int("recipients", len(recipients)),
	)
	return true, nil
}

// releaseClaim lets the next run retry a reminder that reached nobody.
func (s *ReconcileService) releaseClaim(ctx context.Context, announcementID uuid.UUID) {
	err := s.reminders.Release(context.WithoutCancel(ctx), announcementID, model.ReminderKindDeadline)
	if err != nil {
		s.logger.Error("release reminder claim failed",
			zap.String("announcement_id", announcementID.String()),
			zap.Error(err),
		)
	}
}

func (s *ReconcileService) deferredRoles(item *model.Announcement) []model.UserRole {
	if s.options.DeferredAudience == DeferredAudienceOriginal {
		return item.TargetRoles
	}
	return nil
}

// tolerate logs a partial fan-out and reports whether err was one. A fan-out
// where every write failed is not partial.
func (s *ReconcileService) tolerate(err error, announcementID uuid.UUID) bool {
	var partial *PartialFanoutError
	if !errors.As(err, &partial) || len(partial.Failed) >= partial.Total {
		return false
	}

	s.logger.Warn("partial fan-out",
		zap.String("announcement_id", announcementID.String()),
		zap.String("link_url", partial.LinkURL),
		zap.Int("failed", len(partial.Failed)),
		zap.Int("total", partial.Total),
		zap.Error(partial.Err),
	)
	return true
}
