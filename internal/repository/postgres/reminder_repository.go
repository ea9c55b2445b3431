package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"internship-hub/internal/model"
	"internship-hub/internal/repository"
)

type reminderRepository struct {
	pool *pgxpool.Pool
}

func NewReminderRepository(pool *pgxpool.Pool) repository.ReminderRepository {
	return &reminderRepository{pool: pool}
}

var _ repository.ReminderRepository = (*reminderRepository)(nil)

func (r *reminderRepository) Claim(
	ctx context.Context,
	announcementID uuid.UUID,
	kind model.ReminderKind,
	firedAt time.Time,
) (bool, error) {
	tag, err := r.pool.Exec(
		ctx,
		`INSERT INTO announcement_reminders (announcement_id, kind, fired_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (announcement_id, kind) DO NOTHING`,
		announcementID,
		string(kind),
		firedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *reminderRepository) Release(ctx context.Context, announcementID uuid.UUID, kind model.ReminderKind) error {
	_, err := r.pool.Exec(
		ctx,
		`DELETE FROM announcement_reminders WHERE announcement_id = $1 AND kind = $2`,
		announcementID,
		string(kind),
	)
	return err
}
