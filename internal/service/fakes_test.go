package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/internal/audience"
	"internship-hub/internal/model"
	"internship-hub/internal/repository"
	"internship-hub/pkg/clock"
)

var errStoreDown = errors.New("store unavailable")

type notificationKey struct {
	userID  uuid.UUID
	linkURL string
}

type reminderKey struct {
	announcementID uuid.UUID
	kind           model.ReminderKind
}

// memStore mirrors the relational uniqueness rules: one notification per
// (user_id, link_url) and one reminder per (announcement_id, kind).
type memStore struct {
	mu            sync.Mutex
	users         []*model.User
	announcements map[uuid.UUID]*model.Announcement
	notifications map[notificationKey]*model.Notification
	reminders     map[reminderKey]time.Time
	audits        []*model.AuditLog

	failUpsertFor map[uuid.UUID]bool
	failCreate    error
	failUsers     error
	upsertCalls   int
	afterUpsert   func(calls int)
}

func newMemStore() *memStore {
	return &memStore{
		announcements: make(map[uuid.UUID]*model.Announcement),
		notifications: make(map[notificationKey]*model.Notification),
		reminders:     make(map[reminderKey]time.Time),
		failUpsertFor: make(map[uuid.UUID]bool),
	}
}

func (m *memStore) addUser(role model.UserRole) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := &model.User{ID: uuid.New(), Username: string(role) + "-" + uuid.NewString()[:8], Role: role}
	m.users = append(m.users, user)
	return user.ID
}

func (m *memStore) notificationsByLink(link string) []*model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Notification, 0)
	for key, item := range m.notifications {
		if key.linkURL == link {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out
}

func (m *memStore) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

type fakeAnnouncementRepo struct{ store *memStore }

func (r fakeAnnouncementRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Announcement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.announcements[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (r fakeAnnouncementRepo) Create(_ context.Context, item *model.Announcement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.failCreate != nil {
		return r.store.failCreate
	}
	copied := *item
	r.store.announcements[item.ID] = &copied
	return nil
}

func (r fakeAnnouncementRepo) Update(_ context.Context, item *model.Announcement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.announcements[item.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *item
	r.store.announcements[item.ID] = &copied
	return nil
}

func (r fakeAnnouncementRepo) Delete(_ context.Context, id uuid.UUID, linkURLs []string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.announcements[id]; !ok {
		return repository.ErrNotFound
	}

	links := make(map[string]struct{}, len(linkURLs))
	for _, link := range linkURLs {
		links[link] = struct{}{}
	}
	for key, item := range r.store.notifications {
		_, byLink := links[key.linkURL]
		if byLink || (item.AnnouncementID != nil && *item.AnnouncementID == id) {
			delete(r.store.notifications, key)
		}
	}
	for key := range r.store.reminders {
		if key.announcementID == id {
			delete(r.store.reminders, key)
		}
	}
	delete(r.store.announcements, id)
	return nil
}

func (r fakeAnnouncementRepo) List(_ context.Context, page repository.Pagination) ([]*model.Announcement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]*model.Announcement, 0, len(r.store.announcements))
	for _, item := range r.store.announcements {
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	start := int(page.Offset)
	if start > len(items) {
		start = len(items)
	}
	end := start + int(page.Limit)
	if page.Limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

func (r fakeAnnouncementRepo) Count(context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.announcements)), nil
}

func (r fakeAnnouncementRepo) ListPendingActivation(_ context.Context, now time.Time) ([]*model.Announcement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	notified := make(map[string]struct{})
	for key := range r.store.notifications {
		notified[key.linkURL] = struct{}{}
	}

	items := make([]*model.Announcement, 0)
	for _, item := range r.store.announcements {
		if !item.IsPublished || item.StartTime.After(now) || !item.EndTime.After(now) {
			continue
		}
		if _, ok := notified[model.AnnouncementLink(item.ID)]; ok {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	return items, nil
}

func (r fakeAnnouncementRepo) ListEndingBetween(_ context.Context, from, to time.Time) ([]*model.Announcement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]*model.Announcement, 0)
	for _, item := range r.store.announcements {
		if !item.IsPublished || item.EndTime.Before(from) || item.EndTime.After(to) {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	return items, nil
}

type fakeNotificationRepo struct{ store *memStore }

func (r fakeNotificationRepo) Upsert(ctx context.Context, item *model.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.upsertCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.store.failUpsertFor[item.UserID] {
		return errStoreDown
	}
	if r.store.afterUpsert != nil {
		defer r.store.afterUpsert(r.store.upsertCalls)
	}

	key := notificationKey{userID: item.UserID, linkURL: item.LinkURL}
	if existing, ok := r.store.notifications[key]; ok {
		existing.Title = item.Title
		existing.Message = item.Message
		existing.Category = item.Category
		existing.AnnouncementID = item.AnnouncementID
		existing.IsRead = false
		existing.CreatedAt = item.CreatedAt
		item.ID = existing.ID
		return nil
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	copied := *item
	copied.IsRead = false
	r.store.notifications[key] = &copied
	return nil
}

func (r fakeNotificationRepo) ExistsByTitle(_ context.Context, title string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, item := range r.store.notifications {
		if item.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeNotificationRepo) ListByUser(_ context.Context, filter repository.NotificationListFilter) ([]*model.Notification, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	items := make([]*model.Notification, 0)
	for key, item := range r.store.notifications {
		if key.userID != filter.UserID || (filter.UnreadOnly && item.IsRead) {
			continue
		}
		copied := *item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (r fakeNotificationRepo) CountByUser(ctx context.Context, filter repository.NotificationListFilter) (int64, error) {
	items, err := r.ListByUser(ctx, filter)
	return int64(len(items)), err
}

func (r fakeNotificationRepo) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for key, item := range r.store.notifications {
		if key.userID == userID && item.ID == id {
			item.IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r fakeNotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var updated int64
	for key, item := range r.store.notifications {
		if key.userID == userID && !item.IsRead {
			item.IsRead = true
			updated++
		}
	}
	return updated, nil
}

type fakeReminderRepo struct{ store *memStore }

func (r fakeReminderRepo) Claim(_ context.Context, announcementID uuid.UUID, kind model.ReminderKind, firedAt time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := reminderKey{announcementID: announcementID, kind: kind}
	if _, ok := r.store.reminders[key]; ok {
		return false, nil
	}
	r.store.reminders[key] = firedAt
	return true, nil
}

func (r fakeReminderRepo) Release(_ context.Context, announcementID uuid.UUID, kind model.ReminderKind) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.reminders, reminderKey{announcementID: announcementID, kind: kind})
	return nil
}

type fakeUserRepo struct{ store *memStore }

func (r fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, user := range r.store.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	copied := *user
	r.store.users = append(r.store.users, &copied)
	return nil
}

func (r fakeUserRepo) ListAllIDs(context.Context) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.failUsers != nil {
		return nil, r.store.failUsers
	}
	ids := make([]uuid.UUID, 0, len(r.store.users))
	for _, user := range r.store.users {
		ids = append(ids, user.ID)
	}
	return ids, nil
}

func (r fakeUserRepo) ListIDsByRoles(_ context.Context, roles []model.UserRole) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.failUsers != nil {
		return nil, r.store.failUsers
	}
	wanted := make(map[model.UserRole]struct{}, len(roles))
	for _, role := range roles {
		wanted[role] = struct{}{}
	}
	ids := make([]uuid.UUID, 0)
	for _, user := range r.store.users {
		if _, ok := wanted[user.Role]; ok {
			ids = append(ids, user.ID)
		}
	}
	return ids, nil
}

type fakeAuditRepo struct{ store *memStore }

func (r fakeAuditRepo) Create(_ context.Context, log *model.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.audits = append(r.store.audits, log)
	return nil
}

func (r fakeAuditRepo) List(_ context.Context, filter repository.AuditListFilter) ([]*model.AuditLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	matched := r.matching(filter)
	start := int(filter.Pagination.Offset)
	if start > len(matched) {
		return []*model.AuditLog{}, nil
	}
	end := len(matched)
	if filter.Pagination.Limit > 0 && start+int(filter.Pagination.Limit) < end {
		end = start + int(filter.Pagination.Limit)
	}
	return matched[start:end], nil
}

func (r fakeAuditRepo) Count(_ context.Context, filter repository.AuditListFilter) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.matching(filter))), nil
}

// matching returns filtered entries newest first; callers hold the lock.
func (r fakeAuditRepo) matching(filter repository.AuditListFilter) []*model.AuditLog {
	out := make([]*model.AuditLog, 0, len(r.store.audits))
	for i := len(r.store.audits) - 1; i >= 0; i-- {
		entry := r.store.audits[i]
		if filter.ResourceType != nil && (entry.ResourceType == nil || *entry.ResourceType != *filter.ResourceType) {
			continue
		}
		if filter.ResourceID != nil && (entry.ResourceID == nil || *entry.ResourceID != *filter.ResourceID) {
			continue
		}
		if filter.Action != nil && entry.Action != *filter.Action {
			continue
		}
		out = append(out, entry)
	}
	return out
}

var testLocation = time.FixedZone("CST", 8*3600)

type harness struct {
	store      *memStore
	clock      *clock.Fake
	fanout     *FanoutService
	reconciler *ReconcileService
	svc        *AnnouncementService
	operator   string
	students   []uuid.UUID
	tas        []uuid.UUID
	others     []uuid.UUID
}

type harnessOptions struct {
	deferredAudience string
	scanOnRead       *bool
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	store := newMemStore()
	h := &harness{
		store:    store,
		clock:    clock.NewFake(time.Date(2026, 5, 1, 9, 0, 0, 0, testLocation)),
		operator: uuid.NewString(),
	}
	h.students = []uuid.UUID{store.addUser(model.UserRoleStudent), store.addUser(model.UserRoleStudent)}
	h.tas = []uuid.UUID{store.addUser(model.UserRoleTA)}
	h.others = []uuid.UUID{store.addUser(model.UserRoleVendor), store.addUser(model.UserRoleAdmin)}

	logger := zap.NewNop()
	resolver := audience.NewResolver(fakeUserRepo{store: store}, logger)
	h.fanout = NewFanoutService(fakeNotificationRepo{store: store}, h.clock, logger)
	h.reconciler = NewReconcileService(
		fakeAnnouncementRepo{store: store},
		fakeNotificationRepo{store: store},
		fakeReminderRepo{store: store},
		resolver,
		h.fanout,
		h.clock,
		ReconcileOptions{DeferredAudience: opts.deferredAudience},
		logger,
	)

	scanOnRead := true
	if opts.scanOnRead != nil {
		scanOnRead = *opts.scanOnRead
	}
	h.svc = NewAnnouncementService(
		fakeAnnouncementRepo{store: store},
		fakeAuditRepo{store: store},
		resolver,
		h.fanout,
		h.reconciler,
		h.clock,
		AnnouncementOptions{ScanOnRead: scanOnRead},
		logger,
	)
	return h
}

func (h *harness) allUsers() []uuid.UUID {
	out := append([]uuid.UUID{}, h.students...)
	out = append(out, h.tas...)
	return append(out, h.others...)
}

func (h *harness) at(offset time.Duration) string {
	return h.clock.Now().Add(offset).In(testLocation).Format(clock.DisplayLayout)
}

func recipientsOf(items []*model.Notification) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		out[item.UserID] = true
	}
	return out
}

func assertRecipients(t *testing.T, items []*model.Notification, want []uuid.UUID) {
	t.Helper()

	got := recipientsOf(items)
	if len(items) != len(want) || len(got) != len(want) {
		t.Fatalf("expected %d recipients, got %d rows for %d users", len(want), len(items), len(got))
	}
	for _, id := range want {
		if !got[id] {
			t.Fatalf("expected recipient %s to be notified", id)
		}
	}
}
