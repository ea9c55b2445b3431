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

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

var _ repository.UserRepository = (*userRepository)(nil)

type scanTarget interface {
	Scan(dest ...any) error
}

const userColumns = `
	id,
	username,
	email,
	role,
	created_at
`

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, username, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.Email, string(user.Role), user.CreatedAt)
	return mapUniqueViolation(err)
}

func (r *userRepository) ListAllIDs(ctx context.Context) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `SELECT id FROM users ORDER BY id`)
}

func (r *userRepository) ListIDsByRoles(ctx context.Context, roles []model.UserRole) ([]uuid.UUID, error) {
	if len(roles) == 0 {
		return []uuid.UUID{}, nil
	}

	values := make([]string, 0, len(roles))
	for _, role := range roles {
		values = append(values, string(role))
	}

	return r.collectIDs(ctx, `SELECT DISTINCT id FROM users WHERE role = ANY($1) ORDER BY id`, values)
}

func (r *userRepository) collectIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, 64)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func scanUser(src scanTarget) (*model.User, error) {
	user := &model.User{}
	var role string

	err := src.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&role,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = model.UserRole(role)
	return user, nil
}
