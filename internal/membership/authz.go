package membership

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/membership-service/internal/model"
	"github.com/iliyamo/membership-service/internal/repository"
)

// Authz resolves the role<->permission and user<->role relations. Effective
// permissions are the union over a user's active roles with duplicates
// collapsed; insertion order is irrelevant.
type Authz struct {
	users     repository.UserStore
	roles     repository.RoleStore
	perms     repository.PermissionStore
	userRoles repository.UserRoleStore
	rolePerms repository.RolePermissionStore
}

// NewAuthz wires the authorization model over the repository boundary.
func NewAuthz(users repository.UserStore, roles repository.RoleStore,
	perms repository.PermissionStore, userRoles repository.UserRoleStore,
	rolePerms repository.RolePermissionStore) *Authz {
	return &Authz{users: users, roles: roles, perms: perms,
		userRoles: userRoles, rolePerms: rolePerms}
}

// GetUserRoles returns the names of the user's active roles.
func (a *Authz) GetUserRoles(ctx context.Context, userID uint64) ([]string, error) {
	return a.users.GetUserRoles(ctx, userID)
}

// GetUserPermissions returns the deduplicated union of permission names
// across all of the user's active roles.
func (a *Authz) GetUserPermissions(ctx context.Context, userID uint64) ([]string, error) {
	return a.users.GetUserPermissions(ctx, userID)
}

// HasPermission reports whether the user holds the named permission through
// any active role.
func (a *Authz) HasPermission(ctx context.Context, userID uint64, permission string) (bool, error) {
	perms, err := a.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

// IsInRole reports whether the user holds the named active role.
func (a *Authz) IsInRole(ctx context.Context, userID uint64, role string) (bool, error) {
	roles, err := a.GetUserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r == role {
			return true, nil
		}
	}
	return false, nil
}

// AssignRoleToUser links a role to a user. Assigning an already-held role is
// a no-op, not an error; the concurrent-insert race collapses to the same
// outcome.
func (a *Authz) AssignRoleToUser(ctx context.Context, userID, roleID uint64) error {
	exists, err := a.userRoles.Exists(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = a.userRoles.Create(ctx, &model.UserRole{
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}

// RemoveRoleFromUser unlinks a role from a user. The bool reports whether a
// link existed; removing an unassigned role is a no-match, not a failure.
func (a *Authz) RemoveRoleFromUser(ctx context.Context, userID, roleID uint64) (bool, error) {
	entries, err := a.userRoles.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.RoleID == roleID {
			if err := a.userRoles.Delete(ctx, e.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// AssignPermissionToRole links a permission to a role, idempotently.
func (a *Authz) AssignPermissionToRole(ctx context.Context, roleID, permissionID uint64) error {
	exists, err := a.rolePerms.Exists(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = a.rolePerms.Create(ctx, &model.RolePermission{
		RoleID:       roleID,
		PermissionID: permissionID,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}

// RemovePermissionFromRole unlinks a permission from a role. The bool
// reports whether a link existed.
func (a *Authz) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uint64) (bool, error) {
	entries, err := a.rolePerms.GetByRoleID(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.PermissionID == permissionID {
			if err := a.rolePerms.Delete(ctx, e.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Role and permission CRUD pass-throughs used by the admin boundary.

func (a *Authz) RoleByID(ctx context.Context, id uint64) (*model.Role, error) {
	return a.roles.GetByID(ctx, id)
}

func (a *Authz) RoleByName(ctx context.Context, name string) (*model.Role, error) {
	return a.roles.GetByName(ctx, name)
}

func (a *Authz) Roles(ctx context.Context) ([]model.Role, error) {
	return a.roles.GetAll(ctx)
}

func (a *Authz) CreateRole(ctx context.Context, r *model.Role) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return a.roles.Create(ctx, r)
}

func (a *Authz) UpdateRole(ctx context.Context, r *model.Role) error {
	return a.roles.Update(ctx, r)
}

func (a *Authz) DeleteRole(ctx context.Context, id uint64) error {
	return a.roles.Delete(ctx, id)
}

func (a *Authz) PermissionByID(ctx context.Context, id uint64) (*model.Permission, error) {
	return a.perms.GetByID(ctx, id)
}

func (a *Authz) PermissionByName(ctx context.Context, name string) (*model.Permission, error) {
	return a.perms.GetByName(ctx, name)
}

func (a *Authz) Permissions(ctx context.Context) ([]model.Permission, error) {
	return a.perms.GetAll(ctx)
}

func (a *Authz) CreatePermission(ctx context.Context, p *model.Permission) error {
	return a.perms.Create(ctx, p)
}

func (a *Authz) DeletePermission(ctx context.Context, id uint64) error {
	return a.perms.Delete(ctx, id)
}
