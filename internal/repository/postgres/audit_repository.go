package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"internship-hub/internal/model"
	"internship-hub/internal/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

var _ repository.AuditRepository = (*auditRepository)(nil)

const auditColumns = `
	id,
	user_id,
	action,
	resource_type,
	resource_id,
	old_value,
	new_value,
	ip_address,
	user_agent,
	created_at
`

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	oldValue, err := encodeJSONMap(entry.OldValue)
	if err != nil {
		return err
	}
	newValue, err := encodeJSONMap(entry.NewValue)
	if err != nil {
		return err
	}

	return r.pool.QueryRow(
		ctx,
		`INSERT INTO audit_logs (
			user_id, action, resource_type, resource_id,
			old_value, new_value, ip_address, user_agent, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		entry.UserID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		oldValue,
		newValue,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditListFilter) ([]*model.AuditLog, error) {
	limit, offset := normalizePagination(filter.Pagination)
	where, args := auditWhere(filter)

	args = append(args, limit, offset)
	query := fmt.Sprintf(
		"SELECT %s FROM audit_logs%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		auditColumns, where, len(args)-1, len(args),
	)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*model.AuditLog, 0, limit)
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *auditRepository) Count(ctx context.Context, filter repository.AuditListFilter) (int64, error) {
	where, args := auditWhere(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func auditWhere(filter repository.AuditListFilter) (string, []any) {
	args := make([]any, 0, 8)
	conditions := make([]string, 0, 6)

	add := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s $%d", column, len(args)))
	}

	if filter.UserID != nil {
		add("user_id =", *filter.UserID)
	}
	if filter.ResourceType != nil {
		add("resource_type =", *filter.ResourceType)
	}
	if filter.ResourceID != nil {
		add("resource_id =", *filter.ResourceID)
	}
	if filter.Action != nil {
		add("action =", *filter.Action)
	}
	if filter.StartTime != nil {
		add("created_at >=", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add("created_at <=", *filter.EndTime)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanAuditLog(src scanTarget) (*model.AuditLog, error) {
	entry := &model.AuditLog{}
	var oldValueRaw []byte
	var newValueRaw []byte

	err := src.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Action,
		&entry.ResourceType,
		&entry.ResourceID,
		&oldValueRaw,
		&newValueRaw,
		&entry.IPAddress,
		&entry.UserAgent,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if entry.OldValue, err = decodeJSONMap(oldValueRaw); err != nil {
		return nil, err
	}
	if entry.NewValue, err = decodeJSONMap(newValueRaw); err != nil {
		return nil, err
	}

	return entry, nil
}
