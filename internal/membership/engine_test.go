package membership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/membership-service/internal/auth"
	"github.com/iliyamo/membership-service/internal/model"
	"github.com/iliyamo/membership-service/internal/queue"
	"github.com/iliyamo/membership-service/internal/repository/memory"
)

type testEnv struct {
	engine *Engine
	stores *memory.Stores
	authz  *Authz
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stores := memory.New()
	authz := NewAuthz(stores.Users, stores.Roles, stores.Permissions,
		stores.UserRoles, stores.RolePermissions)
	signer := auth.NewSigner("0123456789abcdef0123456789abcdef",
		"membership-service", "membership-clients", 60)
	engine := NewEngine(stores.Users, stores.Tokens, authz,
		signer, auth.NewHasher(4), auth.DefaultPasswordPolicy(),
		DefaultOptions(), nil, nil)
	return &testEnv{engine: engine, stores: stores, authz: authz}
}

func (env *testEnv) register(t *testing.T, username, email, password string) AuthResult {
	t.Helper()
	res := env.engine.Register(context.Background(), RegisterInput{
		Username: username, Email: email, Password: password,
	})
	require.True(t, res.Success, "register %s: %v", username, res.Errors)
	return res
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	res := env.engine.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "alice@x.com", Password: "Weak1!",
	})
	assert.False(t, res.Success)
	assert.Equal(t, CodePasswordInvalid, res.Message)
	assert.Contains(t, res.Errors, auth.CodePasswordTooShort)
	assert.Empty(t, res.AccessToken)

	// No user may exist after a failed registration.
	exists, err := env.stores.Users.ExistsByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Str0ngPass!")

	res := env.engine.Register(context.Background(), RegisterInput{
		Username: "alice", Email: "other@x.com", Password: "Str0ngPass!",
	})
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeUsernameExists}, res.Errors)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Str0ngPass!")

	res := env.engine.Register(context.Background(), RegisterInput{
		Username: "bob", Email: "alice@x.com", Password: "Str0ngPass!",
	})
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeEmailExists}, res.Errors)
}

func TestRegisterWithoutEmail(t *testing.T) {
	env := newTestEnv(t)

	// Email is optional: several accounts may omit it without tripping the
	// uniqueness check.
	first := env.engine.Register(context.Background(), RegisterInput{
		Username: "alice", Password: "Str0ngPass!",
	})
	require.True(t, first.Success, "errors: %v", first.Errors)
	second := env.engine.Register(context.Background(), RegisterInput{
		Username: "bob", Password: "Str0ngPass!",
	})
	require.True(t, second.Success, "errors: %v", second.Errors)

	login := env.engine.Login(context.Background(),
		LoginInput{Login: "bob", Password: "Str0ngPass!"}, "", "")
	assert.True(t, login.Success)
}

func TestRegisterIssuesTokenPair(t *testing.T) {
	env := newTestEnv(t)

	res := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.WithinDuration(t, time.Now().UTC().Add(60*time.Minute), res.ExpiresAt, 5*time.Second)
	require.NotNil(t, res.User)
	assert.Equal(t, "alice", res.User.Username)
}

func TestLoginUniformFailures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Str0ngPass!")

	ctx := context.Background()
	wrongPass := env.engine.Login(ctx, LoginInput{Login: "alice", Password: "wrongpass"}, "", "")
	noUser := env.engine.Login(ctx, LoginInput{Login: "nobody", Password: "Str0ngPass!"}, "", "")

	// Missing user and wrong password must be indistinguishable.
	assert.False(t, wrongPass.Success)
	assert.False(t, noUser.Success)
	assert.Equal(t, wrongPass.Errors, noUser.Errors)
	assert.Equal(t, []string{CodeInvalidCredentials}, wrongPass.Errors)
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Str0ngPass!")

	res := env.engine.Login(context.Background(),
		LoginInput{Login: "alice", Password: "Str0ngPass!"}, "10.0.0.1", "cli/1.0")
	require.True(t, res.Success)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.WithinDuration(t, time.Now().UTC().Add(60*time.Minute), res.ExpiresAt, 5*time.Second)
	require.NotNil(t, res.User)
	assert.NotNil(t, res.User.LastLoginAt, "successful login must stamp last_login_at")

	// Login by email resolves the same account.
	byEmail := env.engine.Login(context.Background(),
		LoginInput{Login: "alice@x.com", Password: "Str0ngPass!"}, "", "")
	assert.True(t, byEmail.Success)
	assert.Equal(t, res.User.ID, byEmail.User.ID)
}

func TestLoginInactiveUser(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	require.True(t, env.engine.DeactivateUser(context.Background(), reg.User.ID).Success)

	res := env.engine.Login(context.Background(),
		LoginInput{Login: "alice", Password: "Str0ngPass!"}, "", "")
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeInvalidCredentials}, res.Errors)
}

func TestRefreshTokenRotation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	login := env.engine.Login(context.Background(),
		LoginInput{Login: "alice", Password: "Str0ngPass!"}, "10.0.0.1", "cli/1.0")
	require.True(t, login.Success)

	ctx := context.Background()
	refreshed := env.engine.RefreshToken(ctx, login.RefreshToken)
	require.True(t, refreshed.Success, "errors: %v", refreshed.Errors)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// Metadata carries forward from the rotated token.
	stored, err := env.stores.Tokens.GetByToken(ctx, refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)
	assert.Equal(t, "cli/1.0", stored.DeviceInfo)

	// Single-use invariant: the old token is dead for good.
	replay := env.engine.RefreshToken(ctx, login.RefreshToken)
	assert.False(t, replay.Success)
	assert.Equal(t, []string{CodeRefreshInvalid}, replay.Errors)

	// The rotated-in token still works exactly once.
	again := env.engine.RefreshToken(ctx, refreshed.RefreshToken)
	assert.True(t, again.Success)
}

func TestRefreshTokenExpired(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	// Plant a token whose lifetime already ran out. It was never revoked,
	// so only the expiry check can reject it.
	raw, err := auth.NewRefreshToken(1)
	require.NoError(t, err)
	require.NoError(t, env.stores.Tokens.Create(ctx, &model.RefreshToken{
		UserID:    reg.User.ID,
		TokenHash: raw.Raw,
		TokenType: "refresh",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
		CreatedAt: time.Now().UTC().Add(-25 * time.Hour),
	}))

	res := env.engine.RefreshToken(ctx, raw.Raw)
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeRefreshInvalid}, res.Errors)
}

func TestRefreshTokenGarbage(t *testing.T) {
	env := newTestEnv(t)
	res := env.engine.RefreshToken(context.Background(), "never-issued")
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeRefreshInvalid}, res.Errors)
}

func TestRefreshReflectsNewRoleGrants(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	role := &model.Role{Name: "admin", IsActive: true}
	require.NoError(t, env.authz.CreateRole(ctx, role))
	perm := &model.Permission{Name: "users.manage", Category: "users", IsActive: true}
	require.NoError(t, env.authz.CreatePermission(ctx, perm))
	require.NoError(t, env.authz.AssignPermissionToRole(ctx, role.ID, perm.ID))
	require.True(t, env.engine.AssignRole(ctx, reg.User.ID, role.ID).Success)

	refreshed := env.engine.RefreshToken(ctx, reg.RefreshToken)
	require.True(t, refreshed.Success)

	signer := auth.NewSigner("0123456789abcdef0123456789abcdef",
		"membership-service", "membership-clients", 60)
	p, err := signer.Validate(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, p.Roles)
	assert.Equal(t, []string{"users.manage"}, p.Permissions)
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	assert.True(t, env.engine.Logout(ctx, reg.RefreshToken).Success)
	// Second logout of the same token still reports success.
	assert.True(t, env.engine.Logout(ctx, reg.RefreshToken).Success)
	// And the token is unusable.
	assert.False(t, env.engine.RefreshToken(ctx, reg.RefreshToken).Success)
}

func TestLogoutAllDevices(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()
	login := env.engine.Login(ctx, LoginInput{Login: "alice", Password: "Str0ngPass!"}, "", "")
	require.True(t, login.Success)

	require.True(t, env.engine.LogoutAllDevices(ctx, reg.User.ID).Success)
	assert.False(t, env.engine.RefreshToken(ctx, reg.RefreshToken).Success)
	assert.False(t, env.engine.RefreshToken(ctx, login.RefreshToken).Success)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	// Wrong current password: nothing changes, sessions survive.
	res := env.engine.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{
		CurrentPassword: "wrongpass", NewPassword: "N3wStrong!",
	})
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeCurrentPasswordInvalid}, res.Errors)
	assert.True(t, env.engine.RefreshToken(ctx, reg.RefreshToken).Success,
		"failed change must not revoke sessions")

	login := env.engine.Login(ctx, LoginInput{Login: "alice", Password: "Str0ngPass!"}, "", "")
	require.True(t, login.Success)

	// Weak new password: full violation list.
	res = env.engine.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{
		CurrentPassword: "Str0ngPass!", NewPassword: "weak",
	})
	assert.False(t, res.Success)
	assert.Equal(t, CodePasswordInvalid, res.Message)
	assert.Len(t, res.Errors, 4) // too short, no uppercase, no digit, no special

	// Valid change: old password dies, every session is revoked.
	res = env.engine.ChangePassword(ctx, reg.User.ID, ChangePasswordInput{
		CurrentPassword: "Str0ngPass!", NewPassword: "N3wStrong!",
	})
	require.True(t, res.Success)
	assert.False(t, env.engine.RefreshToken(ctx, login.RefreshToken).Success,
		"password change must revoke all sessions")
	assert.False(t, env.engine.Login(ctx, LoginInput{Login: "alice", Password: "Str0ngPass!"}, "", "").Success)
	assert.True(t, env.engine.Login(ctx, LoginInput{Login: "alice", Password: "N3wStrong!"}, "", "").Success)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	require.True(t, env.engine.DeactivateUser(ctx, reg.User.ID).Success)
	res := env.engine.RefreshToken(ctx, reg.RefreshToken)
	assert.False(t, res.Success, "deactivation must invalidate live refresh tokens")

	// Reactivation does not resurrect revoked tokens.
	require.True(t, env.engine.ActivateUser(ctx, reg.User.ID).Success)
	assert.False(t, env.engine.RefreshToken(ctx, reg.RefreshToken).Success)
	assert.True(t, env.engine.Login(ctx, LoginInput{Login: "alice", Password: "Str0ngPass!"}, "", "").Success)
}

func TestUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	env.register(t, "bob", "bob@x.com", "Str0ngPass!")
	ctx := context.Background()

	taken := "bob@x.com"
	res := env.engine.UpdateUser(ctx, reg.User.ID, UpdateUserInput{Email: &taken})
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeEmailExists}, res.Errors)

	fresh := "alice@y.com"
	first := "Alice"
	res = env.engine.UpdateUser(ctx, reg.User.ID, UpdateUserInput{Email: &fresh, FirstName: &first})
	require.True(t, res.Success)
	assert.Equal(t, "alice@y.com", res.Data.Email)
	assert.Equal(t, "Alice", res.Data.FirstName)
}

func TestUpdateUserNotFound(t *testing.T) {
	env := newTestEnv(t)
	res := env.engine.UpdateUser(context.Background(), 9999, UpdateUserInput{})
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeUserNotFound}, res.Errors)
}

func TestRoleAssignmentFlow(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	role := &model.Role{Name: "editor", IsActive: true}
	require.NoError(t, env.authz.CreateRole(ctx, role))

	assert.True(t, env.engine.AssignRole(ctx, reg.User.ID, role.ID).Success)
	// Idempotent: assigning again is still a success.
	assert.True(t, env.engine.AssignRole(ctx, reg.User.ID, role.ID).Success)

	roles := env.engine.GetUserRoles(ctx, reg.User.ID)
	require.True(t, roles.Success)
	assert.Equal(t, []string{"editor"}, roles.Data)

	inRole := env.engine.IsInRole(ctx, reg.User.ID, "editor")
	require.True(t, inRole.Success)
	assert.True(t, inRole.Data)

	removed := env.engine.RemoveRole(ctx, reg.User.ID, role.ID)
	assert.True(t, removed.Success)
	// Removing again reports no-match, not a crash.
	again := env.engine.RemoveRole(ctx, reg.User.ID, role.ID)
	assert.False(t, again.Success)
	assert.Equal(t, []string{CodeRoleNotAssigned}, again.Errors)
}

func TestAssignRoleUnknownTargets(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	res := env.engine.AssignRole(ctx, 9999, 1)
	assert.Equal(t, []string{CodeUserNotFound}, res.Errors)

	res = env.engine.AssignRole(ctx, reg.User.ID, 9999)
	assert.Equal(t, []string{CodeRoleNotFound}, res.Errors)
}

func TestEffectivePermissionsDeduplicated(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	perm := &model.Permission{Name: "reports.read", Category: "reports", IsActive: true}
	require.NoError(t, env.authz.CreatePermission(ctx, perm))

	// Two roles granting the same permission yield a single entry.
	for _, name := range []string{"analyst", "manager"} {
		role := &model.Role{Name: name, IsActive: true}
		require.NoError(t, env.authz.CreateRole(ctx, role))
		require.NoError(t, env.authz.AssignPermissionToRole(ctx, role.ID, perm.ID))
		require.True(t, env.engine.AssignRole(ctx, reg.User.ID, role.ID).Success)
	}

	perms := env.engine.GetUserPermissions(ctx, reg.User.ID)
	require.True(t, perms.Success)
	assert.Equal(t, []string{"reports.read"}, perms.Data)

	has := env.engine.HasPermission(ctx, reg.User.ID, "reports.read")
	require.True(t, has.Success)
	assert.True(t, has.Data)
}

func TestInactiveRoleGrantsNothing(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t, "alice", "alice@x.com", "Str0ngPass!")
	ctx := context.Background()

	role := &model.Role{Name: "dormant", IsActive: false}
	require.NoError(t, env.authz.CreateRole(ctx, role))
	perm := &model.Permission{Name: "secrets.read", IsActive: true}
	require.NoError(t, env.authz.CreatePermission(ctx, perm))
	require.NoError(t, env.authz.AssignPermissionToRole(ctx, role.ID, perm.ID))
	require.True(t, env.engine.AssignRole(ctx, reg.User.ID, role.ID).Success)

	roles := env.engine.GetUserRoles(ctx, reg.User.ID)
	require.True(t, roles.Success)
	assert.Empty(t, roles.Data)

	perms := env.engine.GetUserPermissions(ctx, reg.User.ID)
	require.True(t, perms.Success)
	assert.Empty(t, perms.Data)
}

// capturePublisher records events for assertions.
type capturePublisher struct{ events []queue.ActivityEvent }

func (p *capturePublisher) PublishActivity(_ context.Context, ev queue.ActivityEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func TestActivityEventsPublished(t *testing.T) {
	stores := memory.New()
	authz := NewAuthz(stores.Users, stores.Roles, stores.Permissions,
		stores.UserRoles, stores.RolePermissions)
	signer := auth.NewSigner("0123456789abcdef0123456789abcdef",
		"membership-service", "membership-clients", 60)
	pub := &capturePublisher{}
	engine := NewEngine(stores.Users, stores.Tokens, authz,
		signer, auth.NewHasher(4), auth.DefaultPasswordPolicy(),
		DefaultOptions(), nil, pub)

	ctx := context.Background()
	reg := engine.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "Str0ngPass!"})
	require.True(t, reg.Success)
	require.False(t, engine.Login(ctx, LoginInput{Login: "alice", Password: "nope"}, "10.0.0.1", "").Success)
	require.True(t, engine.Login(ctx, LoginInput{Login: "alice", Password: "Str0ngPass!"}, "10.0.0.1", "").Success)

	require.Len(t, pub.events, 3)
	assert.Equal(t, model.ActivityRegister, pub.events[0].ActivityType)
	assert.Equal(t, model.ActivityLoginFailed, pub.events[1].ActivityType)
	assert.False(t, pub.events[1].IsSuccessful)
	assert.Equal(t, model.ActivityLogin, pub.events[2].ActivityType)
	assert.True(t, pub.events[2].IsSuccessful)
}

// blockedGuard always reports a lockout.
type blockedGuard struct{}

func (blockedGuard) Check(context.Context, string, string) error         { return ErrLoginBlocked }
func (blockedGuard) RecordFailure(context.Context, string, string) error { return nil }
func (blockedGuard) Reset(context.Context, string, string) error         { return nil }

func TestLoginGuardBlocks(t *testing.T) {
	stores := memory.New()
	authz := NewAuthz(stores.Users, stores.Roles, stores.Permissions,
		stores.UserRoles, stores.RolePermissions)
	signer := auth.NewSigner("0123456789abcdef0123456789abcdef",
		"membership-service", "membership-clients", 60)
	engine := NewEngine(stores.Users, stores.Tokens, authz,
		signer, auth.NewHasher(4), auth.DefaultPasswordPolicy(),
		DefaultOptions(), blockedGuard{}, nil)

	ctx := context.Background()
	require.True(t, engine.Register(ctx, RegisterInput{
		Username: "alice", Email: "alice@x.com", Password: "Str0ngPass!",
	}).Success)

	res := engine.Login(ctx, LoginInput{Login: "alice", Password: "Str0ngPass!"}, "10.0.0.1", "")
	assert.False(t, res.Success)
	assert.Equal(t, []string{CodeLoginBlocked}, res.Errors)
}
