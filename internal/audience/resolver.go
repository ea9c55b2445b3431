package audience

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"internship-hub/internal/model"
	"internship-hub/internal/repository"
)

// Resolver turns a target-role list into the set of recipient user ids.
type Resolver struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewResolver(users repository.UserRepository, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		users:  users,
		logger: logger,
	}
}

// FilterRoles drops unknown roles and always adds the teaching-assistant
// role. An empty input stays empty so callers can tell "everyone" apart.
func FilterRoles(roles []model.UserRole) []model.UserRole {
	if len(roles) == 0 {
		return nil
	}

	seen := make(map[model.UserRole]struct{}, len(roles)+1)
	out := make([]model.UserRole, 0, len(roles)+1)
	for _, role := range roles {
		if !role.Valid() {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	if _, ok := seen[model.UserRoleTA]; !ok {
		out = append(out, model.UserRoleTA)
	}

	return out
}

// Resolve returns the deduplicated recipients. No roles means every user;
// a list that filters down to only the forced ta role yields the ta users.
func (r *Resolver) Resolve(ctx context.Context, roles []model.UserRole) ([]uuid.UUID, error) {
	if r.users == nil {
		return nil, fmt.Errorf("user repository is nil")
	}

	var (
		ids []uuid.UUID
		err error
	)

	filtered := FilterRoles(roles)
	if len(filtered) == 0 {
		ids, err = r.users.ListAllIDs(ctx)
	} else {
		for _, role := range roles {
			if !role.Valid() {
				r.logger.Debug("dropping unknown audience role", zap.String("role", string(role)))
			}
		}
		ids, err = r.users.ListIDsByRoles(ctx, filtered)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve audience: %w", err)
	}

	return dedupe(ids), nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
