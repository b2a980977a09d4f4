package membership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/membership-service/internal/model"
	"github.com/iliyamo/membership-service/internal/repository"
	"github.com/iliyamo/membership-service/internal/repository/memory"
)

func newAuthzEnv(t *testing.T) (*Authz, *memory.Stores, uint64) {
	t.Helper()
	stores := memory.New()
	a := NewAuthz(stores.Users, stores.Roles, stores.Permissions,
		stores.UserRoles, stores.RolePermissions)
	u := &model.User{Username: "alice", Email: "alice@x.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, stores.Users.Create(context.Background(), u))
	return a, stores, u.ID
}

func TestAssignRoleIdempotent(t *testing.T) {
	a, _, userID := newAuthzEnv(t)
	ctx := context.Background()

	role := &model.Role{Name: "editor", IsActive: true}
	require.NoError(t, a.CreateRole(ctx, role))

	require.NoError(t, a.AssignRoleToUser(ctx, userID, role.ID))
	require.NoError(t, a.AssignRoleToUser(ctx, userID, role.ID))

	roles, err := a.GetUserRoles(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, roles)
}

func TestRemoveRoleReportsNoMatch(t *testing.T) {
	a, _, userID := newAuthzEnv(t)
	ctx := context.Background()

	role := &model.Role{Name: "editor", IsActive: true}
	require.NoError(t, a.CreateRole(ctx, role))

	removed, err := a.RemoveRoleFromUser(ctx, userID, role.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, a.AssignRoleToUser(ctx, userID, role.ID))
	removed, err = a.RemoveRoleFromUser(ctx, userID, role.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestPermissionUnionAcrossRoles(t *testing.T) {
	a, _, userID := newAuthzEnv(t)
	ctx := context.Background()

	shared := &model.Permission{Name: "docs.read", IsActive: true}
	only := &model.Permission{Name: "docs.write", IsActive: true}
	require.NoError(t, a.CreatePermission(ctx, shared))
	require.NoError(t, a.CreatePermission(ctx, only))

	reader := &model.Role{Name: "reader", IsActive: true}
	writer := &model.Role{Name: "writer", IsActive: true}
	require.NoError(t, a.CreateRole(ctx, reader))
	require.NoError(t, a.CreateRole(ctx, writer))

	require.NoError(t, a.AssignPermissionToRole(ctx, reader.ID, shared.ID))
	require.NoError(t, a.AssignPermissionToRole(ctx, writer.ID, shared.ID))
	require.NoError(t, a.AssignPermissionToRole(ctx, writer.ID, only.ID))

	require.NoError(t, a.AssignRoleToUser(ctx, userID, reader.ID))
	require.NoError(t, a.AssignRoleToUser(ctx, userID, writer.ID))

	perms, err := a.GetUserPermissions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs.read", "docs.write"}, perms)

	ok, err := a.HasPermission(ctx, userID, "docs.read")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = a.HasPermission(ctx, userID, "docs.delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssignPermissionIdempotent(t *testing.T) {
	a, stores, _ := newAuthzEnv(t)
	ctx := context.Background()

	perm := &model.Permission{Name: "docs.read", IsActive: true}
	require.NoError(t, a.CreatePermission(ctx, perm))
	role := &model.Role{Name: "reader", IsActive: true}
	require.NoError(t, a.CreateRole(ctx, role))

	require.NoError(t, a.AssignPermissionToRole(ctx, role.ID, perm.ID))
	require.NoError(t, a.AssignPermissionToRole(ctx, role.ID, perm.ID))

	links, err := stores.RolePermissions.GetByRoleID(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)

	removed, err := a.RemovePermissionFromRole(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = a.RemovePermissionFromRole(ctx, role.ID, perm.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeleteRoleCascades(t *testing.T) {
	a, stores, userID := newAuthzEnv(t)
	ctx := context.Background()

	role := &model.Role{Name: "editor", IsActive: true}
	require.NoError(t, a.CreateRole(ctx, role))
	perm := &model.Permission{Name: "docs.write", IsActive: true}
	require.NoError(t, a.CreatePermission(ctx, perm))
	require.NoError(t, a.AssignPermissionToRole(ctx, role.ID, perm.ID))
	require.NoError(t, a.AssignRoleToUser(ctx, userID, role.ID))

	require.NoError(t, a.DeleteRole(ctx, role.ID))

	_, err := a.RoleByID(ctx, role.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	roles, err := a.GetUserRoles(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, roles)

	links, err := stores.RolePermissions.GetByRoleID(ctx, role.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestRoleLookups(t *testing.T) {
	a, _, _ := newAuthzEnv(t)
	ctx := context.Background()

	role := &model.Role{Name: "editor", Description: "can edit", IsActive: true}
	require.NoError(t, a.CreateRole(ctx, role))
	assert.False(t, role.CreatedAt.IsZero())
	assert.True(t, role.CreatedAt.Before(time.Now().UTC().Add(time.Second)))

	byName, err := a.RoleByName(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, role.ID, byName.ID)

	_, err = a.RoleByName(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := a.Roles(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
