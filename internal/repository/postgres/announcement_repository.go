package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"internship-hub/internal/model"
	"internship-hub/internal/repository"
)

type announcementRepository struct {
	pool *pgxpool.Pool
}

func NewAnnouncementRepository(pool *pgxpool.Pool) repository.AnnouncementRepository {
	return &announcementRepository{pool: pool}
}

var _ repository.AnnouncementRepository = (*announcementRepository)(nil)

const announcementColumns = `
	id,
	title,
	content,
	start_time,
	end_time,
	is_published,
	target_roles,
	created_by,
	created_at,
	updated_at
`

func (r *announcementRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1`
	item, err := scanAnnouncement(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *announcementRepository) Create(ctx context.Context, item *model.Announcement) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	query := `
		INSERT INTO announcements (
			id, title, content, start_time, end_time,
			is_published, target_roles, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		item.ID,
		item.Title,
		item.Content,
		item.StartTime,
		item.EndTime,
		item.IsPublished,
		rolesToStrings(item.TargetRoles),
		item.CreatedBy,
		item.CreatedAt,
		item.UpdatedAt,
	)
	return err
}

func (r *announcementRepository) Update(ctx context.Context, item *model.Announcement) error {
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE announcements
		   SET title = $2,
		       content = $3,
		       start_time = $4,
		       end_time = $5,
		       is_published = $6,
		       target_roles = $7,
		       updated_at = $8
		 WHERE id = $1
	`

	tag, err := r.pool.Exec(
		ctx,
		query,
		item.ID,
		item.Title,
		item.Content,
		item.StartTime,
		item.EndTime,
		item.IsPublished,
		rolesToStrings(item.TargetRoles),
		item.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *announcementRepository) Delete(ctx context.Context, id uuid.UUID, linkURLs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(
		ctx,
		`DELETE FROM notifications WHERE announcement_id = $1 OR link_url = ANY($2)`,
		id,
		linkURLs,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM announcement_reminders WHERE announcement_id = $1`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if err := ensureAffected(tag); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *announcementRepository) List(ctx context.Context, page repository.Pagination) ([]*model.Announcement, error) {
	limit, offset := normalizePagination(page)

	query := `SELECT ` + announcementColumns + `
		FROM announcements
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	return r.queryAnnouncements(ctx, query, limit, offset)
}

func (r *announcementRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM announcements`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *announcementRepository) ListPendingActivation(ctx context.Context, now time.Time) ([]*model.Announcement, error) {
	query := `SELECT ` + announcementColumns + `
		FROM announcements a
		WHERE a.is_published = TRUE
		  AND a.start_time <= $1
		  AND a.end_time > $1
		  AND NOT EXISTS (
		      SELECT 1 FROM notifications n
		       WHERE n.link_url = '/announcements/' || a.id::text
		  )
		ORDER BY a.start_time, a.id`

	return r.queryAnnouncements(ctx, query, now)
}

func (r *announcementRepository) ListEndingBetween(ctx context.Context, from, to time.Time) ([]*model.Announcement, error) {
	query := `SELECT ` + announcementColumns + `
		FROM announcements
		WHERE is_published = TRUE
		  AND end_time >= $1
		  AND end_time <= $2
		ORDER BY end_time, id`

	return r.queryAnnouncements(ctx, query, from, to)
}

func (r *announcementRepository) queryAnnouncements(ctx context.Context, query string, args ...any) ([]*model.Announcement, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*model.Announcement, 0, 16)
	for rows.Next() {
		item, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func scanAnnouncement(src scanTarget) (*model.Announcement, error) {
	item := &model.Announcement{}
	var roles []string

	err := src.Scan(
		&item.ID,
		&item.Title,
		&item.Content,
		&item.StartTime,
		&item.EndTime,
		&item.IsPublished,
		&roles,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.TargetRoles = make([]model.UserRole, 0, len(roles))
	for _, role := range roles {
		item.TargetRoles = append(item.TargetRoles, model.UserRole(role))
	}
	return item, nil
}

func rolesToStrings(roles []model.UserRole) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}
