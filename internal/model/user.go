package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleStudent      UserRole = "student"
	UserRoleTeacher      UserRole = "teacher"
	UserRoleDirector     UserRole = "director"
	UserRoleTA           UserRole = "ta"
	UserRoleAdmin        UserRole = "admin"
	UserRoleVendor       UserRole = "vendor"
	UserRoleClassTeacher UserRole = "class_teacher"
)

var knownRoles = map[UserRole]struct{}{
	UserRoleStudent:      {},
	UserRoleTeacher:      {},
	UserRoleDirector:     {},
	UserRoleTA:           {},
	UserRoleAdmin:        {},
	UserRoleVendor:       {},
	UserRoleClassTeacher: {},
}

func (r UserRole) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Role      UserRole  `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
