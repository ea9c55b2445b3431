package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"internship-hub/internal/model"
	"internship-hub/internal/repository"
)

type notificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) repository.NotificationRepository {
	return &notificationRepository{pool: pool}
}

var _ repository.NotificationRepository = (*notificationRepository)(nil)

const notificationColumns = `
	id,
	user_id,
	announcement_id,
	title,
	message,
	category,
	link_url,
	is_read,
	created_at
`

func (r *notificationRepository) Upsert(ctx context.Context, item *model.Notification) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (
			id, user_id, announcement_id, title, message,
			category, link_url, is_read, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
		ON CONFLICT (user_id, link_url) DO UPDATE
		   SET title = EXCLUDED.title,
		       message = EXCLUDED.message,
		       category = EXCLUDED.category,
		       announcement_id = EXCLUDED.announcement_id,
		       is_read = FALSE,
		       created_at = EXCLUDED.created_at
		RETURNING id
	`

	return r.pool.QueryRow(
		ctx,
		query,
		item.ID,
		item.UserID,
		item.AnnouncementID,
		item.Title,
		item.Message,
		string(item.Category),
		item.LinkURL,
		item.CreatedAt,
	).Scan(&item.ID)
}

func (r *notificationRepository) ExistsByTitle(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM notifications WHERE title = $1)`, title).Scan(&exists)
	return exists, err
}

func (r *notificationRepository) ListByUser(ctx context.Context, filter repository.NotificationListFilter) ([]*model.Notification, error) {
	limit, offset := normalizePagination(filter.Pagination)
	where, args := notificationWhere(filter)

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM notifications WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		notificationColumns,
		where,
		len(args)-1,
		len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*model.Notification, 0, limit)
	for rows.Next() {
		item, err := scanNotification(rows)
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

func (r *notificationRepository) CountByUser(ctx context.Context, filter repository.NotificationListFilter) (int64, error) {
	where, args := notificationWhere(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func notificationWhere(filter repository.NotificationListFilter) (string, []any) {
	where := "user_id = $1"
	if filter.UnreadOnly {
		where += " AND is_read = FALSE"
	}
	return where, []any{filter.UserID}
}

func scanNotification(src scanTarget) (*model.Notification, error) {
	item := &model.Notification{}
	var category string

	err := src.Scan(
		&item.ID,
		&item.UserID,
		&item.AnnouncementID,
		&item.Title,
		&item.Message,
		&category,
		&item.LinkURL,
		&item.IsRead,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Category = model.NotificationCategory(category)
	return item, nil
}
