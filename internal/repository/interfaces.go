package repository

import (
	"context"
	"time"

	"github.com/iliyamo/membership-service/internal/model"
)

// UserStore is the user persistence boundary. Soft-deleted users are
// invisible through every method.
type UserStore interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	// GetByUsernameOrEmail resolves a login identifier that may be either
	// a username or an email address.
	GetByUsernameOrEmail(ctx context.Context, login string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create inserts the user and fills in its ID.
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u *model.User) error
	UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error
	// GetUserRoles returns the names of the user's active roles.
	GetUserRoles(ctx context.Context, userID uint64) ([]string, error)
	// GetUserPermissions returns the deduplicated union of permission
	// names granted through the user's active roles.
	GetUserPermissions(ctx context.Context, userID uint64) ([]string, error)
}

// TokenStore persists refresh tokens. Implementations receive the raw token
// value and are responsible for digesting it at rest.
type TokenStore interface {
	Create(ctx context.Context, t *model.RefreshToken) error
	// GetByToken looks up a token by its raw value regardless of state;
	// ErrNotFound when no such token was ever issued.
	GetByToken(ctx context.Context, raw string) (*model.RefreshToken, error)
	// Revoke atomically marks a live token revoked and reports whether
	// this call was the one that transitioned it. Concurrent revocations
	// of the same token see true exactly once.
	Revoke(ctx context.Context, raw string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
	GetActiveForUser(ctx context.Context, userID uint64) ([]model.RefreshToken, error)
	// DeleteForUser removes every token row of the user (cascade on
	// account deletion).
	DeleteForUser(ctx context.Context, userID uint64) error
}

// RoleStore persists roles.
type RoleStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Role, error)
	GetByName(ctx context.Context, name string) (*model.Role, error)
	GetAll(ctx context.Context) ([]model.Role, error)
	Create(ctx context.Context, r *model.Role) error
	Update(ctx context.Context, r *model.Role) error
	Delete(ctx context.Context, id uint64) error
}

// PermissionStore persists permissions.
type PermissionStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Permission, error)
	GetByName(ctx context.Context, name string) (*model.Permission, error)
	GetAll(ctx context.Context) ([]model.Permission, error)
	Create(ctx context.Context, p *model.Permission) error
	Update(ctx context.Context, p *model.Permission) error
	Delete(ctx context.Context, id uint64) error
}

// UserRoleStore persists the users<->roles junction.
type UserRoleStore interface {
	Exists(ctx context.Context, userID, roleID uint64) (bool, error)
	Create(ctx context.Context, ur *model.UserRole) error
	GetByUserID(ctx context.Context, userID uint64) ([]model.UserRole, error)
	Delete(ctx context.Context, id uint64) error
	DeleteForUser(ctx context.Context, userID uint64) error
	DeleteForRole(ctx context.Context, roleID uint64) error
}

// RolePermissionStore persists the roles<->permissions junction.
type RolePermissionStore interface {
	Exists(ctx context.Context, roleID, permissionID uint64) (bool, error)
	Create(ctx context.Context, rp *model.RolePermission) error
	GetByRoleID(ctx context.Context, roleID uint64) ([]model.RolePermission, error)
	Delete(ctx context.Context, id uint64) error
	DeleteForRole(ctx context.Context, roleID uint64) error
}

// ActivityStore persists the authentication audit trail.
type ActivityStore interface {
	Create(ctx context.Context, a *model.UserActivity) error
	GetForUser(ctx context.Context, userID uint64, limit int) ([]model.UserActivity, error)
}
