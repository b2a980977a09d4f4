package membership

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/membership-service/internal/auth"
	"github.com/iliyamo/membership-service/internal/model"
	"github.com/iliyamo/membership-service/internal/queue"
	"github.com/iliyamo/membership-service/internal/repository"
)

// Options is the user-policy configuration consumed by the engine. The
// values are loaded once at startup and never mutated afterwards.
type Options struct {
	RequireUniqueEmail       bool
	RequireEmailConfirmation bool
	RequirePhoneConfirmation bool
	RefreshTokenExpiryDays   int
}

// DefaultOptions mirrors the documented defaults.
func DefaultOptions() Options {
	return Options{
		RequireUniqueEmail:     true,
		RefreshTokenExpiryDays: 30,
	}
}

// ActivityPublisher receives audit events. Publishing is best-effort: a
// failed publish never fails the operation that produced the event.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, ev queue.ActivityEvent) error
}

// Engine orchestrates the membership flows over the repository boundary.
// Every public operation returns a uniform envelope and never lets an
// internal fault escape to the caller.
type Engine struct {
	users     repository.UserStore
	tokens    repository.TokenStore
	authz     *Authz
	signer    *auth.Signer
	hasher    *auth.Hasher
	policy    auth.PasswordPolicy
	opts      Options
	guard     LoginGuard        // optional
	publisher ActivityPublisher // optional
}

// NewEngine assembles the engine. guard and publisher may be nil, which
// disables lockout enforcement and audit publishing respectively.
func NewEngine(users repository.UserStore, tokens repository.TokenStore, authz *Authz,
	signer *auth.Signer, hasher *auth.Hasher, policy auth.PasswordPolicy,
	opts Options, guard LoginGuard, publisher ActivityPublisher) *Engine {
	if opts.RefreshTokenExpiryDays <= 0 {
		opts.RefreshTokenExpiryDays = 30
	}
	return &Engine{
		users: users, tokens: tokens, authz: authz,
		signer: signer, hasher: hasher, policy: policy,
		opts: opts, guard: guard, publisher: publisher,
	}
}

// Authz exposes the authorization model for boundaries that talk to it
// directly (admin role/permission management).
func (e *Engine) Authz() *Authz { return e.authz }

// recoverAuth converts a panic into the generic system-error result.
// The real cause is logged; the caller only ever sees the uniform envelope.
func recoverAuth(res *AuthResult, message string) {
	if r := recover(); r != nil {
		log.Printf("membership: recovered panic: %v", r)
		*res = authFail(message, CodeSystemError)
	}
}

func recoverResult[T any](res *Result[T], message string) {
	if r := recover(); r != nil {
		log.Printf("membership: recovered panic: %v", r)
		*res = Fail[T](message, CodeSystemError)
	}
}

// Register validates the password against the policy, enforces username and
// email uniqueness, creates the user and immediately issues a token pair. A
// fresh user holds no roles, so the first access token carries empty
// role/permission claims.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (res AuthResult) {
	defer recoverAuth(&res, CodeRegisterFailed)

	if violations := e.policy.Validate(in.Password); len(violations) > 0 {
		return authFail(CodePasswordInvalid, violations...)
	}

	exists, err := e.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return authFail(CodeRegisterFailed, CodeSystemError)
	}
	if exists {
		return authFail(CodeRegisterFailed, CodeUsernameExists)
	}

	if e.opts.RequireUniqueEmail && in.Email != "" {
		exists, err = e.users.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return authFail(CodeRegisterFailed, CodeSystemError)
		}
		if exists {
			return authFail(CodeRegisterFailed, CodeEmailExists)
		}
	}

	hash, err := e.hasher.Hash(in.Password)
	if err != nil {
		return authFail(CodeRegisterFailed, CodeSystemError)
	}

	user := &model.User{
		Username:             in.Username,
		Email:                in.Email,
		PasswordHash:         hash,
		FirstName:            in.FirstName,
		LastName:             in.LastName,
		PhoneNumber:          in.PhoneNumber,
		IsActive:             true,
		EmailConfirmed:       !e.opts.RequireEmailConfirmation,
		PhoneNumberConfirmed: !e.opts.RequirePhoneConfirmation,
		CreatedAt:            time.Now().UTC(),
	}
	if err := e.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists):
			return authFail(CodeRegisterFailed, CodeUsernameExists)
		case errors.Is(err, repository.ErrEmailExists):
			return authFail(CodeRegisterFailed, CodeEmailExists)
		}
		return authFail(CodeRegisterFailed, CodeSystemError)
	}

	res, err = e.issueTokens(ctx, user, "", "", CodeRegisterSuccess)
	if err != nil {
		return authFail(CodeRegisterFailed, CodeSystemError)
	}
	e.publish(ctx, queue.ActivityEvent{
		UserID: user.ID, ActivityType: model.ActivityRegister,
		Username: user.Username, IsSuccessful: true, OccurredAt: time.Now().UTC(),
	})
	return res
}

// Login verifies credentials and issues a token pair. A missing user, an
// inactive account and a wrong password all produce the same
// invalid-credentials failure so callers cannot probe for usernames.
func (e *Engine) Login(ctx context.Context, in LoginInput, ip, deviceInfo string) (res AuthResult) {
	defer recoverAuth(&res, CodeLoginFailed)

	if e.guard != nil {
		if err := e.guard.Check(ctx, in.Login, ip); errors.Is(err, ErrLoginBlocked) {
			return authFail(CodeLoginFailed, CodeLoginBlocked)
		}
	}

	user, err := e.users.GetByUsernameOrEmail(ctx, in.Login)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return authFail(CodeLoginFailed, CodeSystemError)
	}
	if user == nil || !user.IsActive || !e.hasher.Verify(in.Password, user.PasswordHash) {
		if e.guard != nil {
			_ = e.guard.RecordFailure(ctx, in.Login, ip)
		}
		e.publish(ctx, queue.ActivityEvent{
			ActivityType: model.ActivityLoginFailed, Username: in.Login,
			IPAddress: ip, DeviceInfo: deviceInfo, OccurredAt: time.Now().UTC(),
		})
		return authFail(CodeLoginFailed, CodeInvalidCredentials)
	}

	if e.guard != nil {
		_ = e.guard.Reset(ctx, in.Login, ip)
	}

	now := time.Now().UTC()
	if err := e.users.UpdateLastLogin(ctx, user.ID, now); err == nil {
		user.LastLoginAt = &now
	}

	res, err = e.issueTokens(ctx, user, ip, deviceInfo, CodeLoginSuccess)
	if err != nil {
		return authFail(CodeLoginFailed, CodeSystemError)
	}
	e.publish(ctx, queue.ActivityEvent{
		UserID: user.ID, ActivityType: model.ActivityLogin, Username: user.Username,
		IPAddress: ip, DeviceInfo: deviceInfo, IsSuccessful: true, OccurredAt: now,
	})
	return res
}

// RefreshToken exchanges a live refresh token for a fresh pair. The
// presented token is revoked first via the store's compare-and-revoke, so
// of N concurrent exchanges exactly one succeeds and the rest observe the
// uniform invalid result. Roles and permissions are re-resolved so grants
// made since the last issuance appear in the new access token; device and
// IP metadata carry forward from the rotated token.
func (e *Engine) RefreshToken(ctx context.Context, refreshToken string) (res AuthResult) {
	defer recoverAuth(&res, CodeRefreshFailed)

	stored, err := e.tokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return authFail(CodeRefreshFailed, CodeRefreshInvalid)
		}
		return authFail(CodeRefreshFailed, CodeSystemError)
	}
	if !stored.Live(time.Now().UTC()) {
		return authFail(CodeRefreshFailed, CodeRefreshInvalid)
	}

	user, err := e.users.GetByID(ctx, stored.UserID)
	if err != nil || !user.IsActive {
		return authFail(CodeRefreshFailed, CodeRefreshInvalid)
	}

	// Rotation pivot: whoever revokes the live row wins the exchange.
	revoked, err := e.tokens.Revoke(ctx, refreshToken)
	if err != nil {
		return authFail(CodeRefreshFailed, CodeSystemError)
	}
	if !revoked {
		return authFail(CodeRefreshFailed, CodeRefreshInvalid)
	}

	res, err = e.issueTokens(ctx, user, stored.IPAddress, stored.DeviceInfo, CodeRefreshSuccess)
	if err != nil {
		return authFail(CodeRefreshFailed, CodeSystemError)
	}
	e.publish(ctx, queue.ActivityEvent{
		UserID: user.ID, ActivityType: model.ActivityTokenRefresh, Username: user.Username,
		IPAddress: stored.IPAddress, DeviceInfo: stored.DeviceInfo,
		IsSuccessful: true, OccurredAt: time.Now().UTC(),
	})
	return res
}

// issueTokens resolves the user's current roles and permissions, signs an
// access token and persists a fresh refresh token.
func (e *Engine) issueTokens(ctx context.Context, user *model.User, ip, deviceInfo, message string) (AuthResult, error) {
	roles, err := e.authz.GetUserRoles(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	permissions, err := e.authz.GetUserPermissions(ctx, user.ID)
	if err != nil {
		return AuthResult{}, err
	}

	accessToken, expiresAt, err := e.signer.AccessToken(user, roles, permissions)
	if err != nil {
		return AuthResult{}, err
	}
	refresh, err := auth.NewRefreshToken(e.opts.RefreshTokenExpiryDays)
	if err != nil {
		return AuthResult{}, err
	}
	if err := e.tokens.Create(ctx, &model.RefreshToken{
		UserID:     user.ID,
		TokenHash:  refresh.Raw, // digested by the store
		TokenType:  "refresh",
		ExpiresAt:  refresh.Exp,
		DeviceInfo: deviceInfo,
		IPAddress:  ip,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		Success:      true,
		AccessToken:  accessToken,
		RefreshToken: refresh.Raw,
		ExpiresAt:    expiresAt,
		User:         profileOf(user),
		Message:      message,
	}, nil
}

// Logout revokes the single matching refresh token. Revoking a token that
// is already gone still succeeds; logout is idempotent.
func (e *Engine) Logout(ctx context.Context, refreshToken string) (res Result[struct{}]) {
	defer recoverResult(&res, CodeLogoutFailed)

	stored, err := e.tokens.GetByToken(ctx, refreshToken)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Fail[struct{}](CodeLogoutFailed, CodeSystemError)
	}
	if _, err := e.tokens.Revoke(ctx, refreshToken); err != nil {
		return Fail[struct{}](CodeLogoutFailed, CodeSystemError)
	}
	if stored != nil {
		e.publish(ctx, queue.ActivityEvent{
			UserID: stored.UserID, ActivityType: model.ActivityLogout,
			IPAddress: stored.IPAddress, DeviceInfo: stored.DeviceInfo,
			IsSuccessful: true, OccurredAt: time.Now().UTC(),
		})
	}
	return Ok(struct{}{}, CodeLogoutSuccess)
}

// LogoutAllDevices revokes every live refresh token of the user.
func (e *Engine) LogoutAllDevices(ctx context.Context, userID uint64) (res Result[struct{}]) {
	defer recoverResult(&res, CodeLogoutFailed)

	if err := e.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return Fail[struct{}](CodeLogoutFailed, CodeSystemError)
	}
	e.publish(ctx, queue.ActivityEvent{
		UserID: userID, ActivityType: model.ActivityLogoutAll,
		IsSuccessful: true, OccurredAt: time.Now().UTC(),
	})
	return Ok(struct{}{}, CodeLogoutSuccess)
}

// GetUser returns the profile projection of a user.
func (e *Engine) GetUser(ctx context.Context, userID uint64) (res Result[*UserProfile]) {
	defer recoverResult(&res, CodeSystemError)

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[*UserProfile](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[*UserProfile](CodeSystemError, CodeSystemError)
	}
	return Ok(profileOf(user), "")
}

// ChangePassword verifies the current password, validates the replacement
// against the policy, stores the new hash and revokes every session.
// Session invalidation on password change is mandatory, not optional.
func (e *Engine) ChangePassword(ctx context.Context, userID uint64, in ChangePasswordInput) (res Result[struct{}]) {
	defer recoverResult(&res, CodeSystemError)

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[struct{}](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}

	if !e.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return Fail[struct{}](CodeCurrentPasswordInvalid, CodeCurrentPasswordInvalid)
	}
	if violations := e.policy.Validate(in.NewPassword); len(violations) > 0 {
		return Fail[struct{}](CodePasswordInvalid, violations...)
	}

	hash, err := e.hasher.Hash(in.NewPassword)
	if err != nil {
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	now := time.Now().UTC()
	user.PasswordHash = hash
	user.UpdatedAt = &now
	if err := e.users.Update(ctx, user); err != nil {
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	if err := e.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	e.publish(ctx, queue.ActivityEvent{
		UserID: userID, ActivityType: model.ActivityPasswordChange,
		Username: user.Username, IsSuccessful: true, OccurredAt: now,
	})
	return Ok(struct{}{}, CodePasswordChanged)
}

// UpdateUser patches profile fields. Changing the email re-checks
// uniqueness and resets the confirmation flag.
func (e *Engine) UpdateUser(ctx context.Context, userID uint64, in UpdateUserInput) (res Result[*UserProfile]) {
	defer recoverResult(&res, CodeSystemError)

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[*UserProfile](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[*UserProfile](CodeSystemError, CodeSystemError)
	}

	if in.Email != nil && *in.Email != user.Email {
		if e.opts.RequireUniqueEmail && *in.Email != "" {
			exists, err := e.users.ExistsByEmail(ctx, *in.Email)
			if err != nil {
				return Fail[*UserProfile](CodeSystemError, CodeSystemError)
			}
			if exists {
				return Fail[*UserProfile](CodeEmailExists, CodeEmailExists)
			}
		}
		user.Email = *in.Email
		user.EmailConfirmed = !e.opts.RequireEmailConfirmation
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.PhoneNumber != nil && *in.PhoneNumber != user.PhoneNumber {
		user.PhoneNumber = *in.PhoneNumber
		user.PhoneNumberConfirmed = !e.opts.RequirePhoneConfirmation
	}
	now := time.Now().UTC()
	user.UpdatedAt = &now

	if err := e.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Fail[*UserProfile](CodeEmailExists, CodeEmailExists)
		}
		return Fail[*UserProfile](CodeSystemError, CodeSystemError)
	}
	return Ok(profileOf(user), CodeUserUpdated)
}

// DeactivateUser disables the account and revokes every live session.
func (e *Engine) DeactivateUser(ctx context.Context, userID uint64) (res Result[struct{}]) {
	defer recoverResult(&res, CodeSystemError)

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[struct{}](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	now := time.Now().UTC()
	user.IsActive = false
	user.UpdatedAt = &now
	if err := e.users.Update(ctx, user); err != nil {
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	if err := e.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	e.publish(ctx, queue.ActivityEvent{
		UserID: userID, ActivityType: model.ActivityDeactivate,
		Username: user.Username, IsSuccessful: true, OccurredAt: now,
	})
	return Ok(struct{}{}, CodeUserDeactivated)
}

// ActivateUser re-enables the account. Previously revoked sessions stay
// revoked; the user has to log in again.
func (e *Engine) ActivateUser(ctx context.Context, userID uint64) (res Result[struct{}]) {
	defer recoverResult(&res, CodeSystemError)

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[struct{}](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	now := time.Now().UTC()
	user.IsActive = true
	user.UpdatedAt = &now
	if err := e.users.Update(ctx, user); err != nil {
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	return Ok(struct{}{}, CodeUserActivated)
}

// AssignRole grants a role to an existing user, idempotently.
func (e *Engine) AssignRole(ctx context.Context, userID, roleID uint64) (res Result[struct{}]) {
	defer recoverResult(&res, CodeSystemError)

	if _, err := e.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[struct{}](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	if _, err := e.authz.RoleByID(ctx, roleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[struct{}](CodeRoleNotFound, CodeRoleNotFound)
		}
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	if err := e.authz.AssignRoleToUser(ctx, userID, roleID); err != nil {
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	return Ok(struct{}{}, CodeRoleAssigned)
}

// RemoveRole revokes a role from a user. Removing an unassigned role is a
// no-match condition, not a failure.
func (e *Engine) RemoveRole(ctx context.Context, userID, roleID uint64) (res Result[struct{}]) {
	defer recoverResult(&res, CodeSystemError)

	if _, err := e.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[struct{}](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	removed, err := e.authz.RemoveRoleFromUser(ctx, userID, roleID)
	if err != nil {
		return Fail[struct{}](CodeSystemError, CodeSystemError)
	}
	if !removed {
		return Fail[struct{}](CodeRoleNotAssigned, CodeRoleNotAssigned)
	}
	return Ok(struct{}{}, CodeRoleRemoved)
}

// GetUserRoles lists the user's active role names.
func (e *Engine) GetUserRoles(ctx context.Context, userID uint64) (res Result[[]string]) {
	defer recoverResult(&res, CodeSystemError)

	if _, err := e.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[[]string](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[[]string](CodeSystemError, CodeSystemError)
	}
	roles, err := e.authz.GetUserRoles(ctx, userID)
	if err != nil {
		return Fail[[]string](CodeSystemError, CodeSystemError)
	}
	return Ok(roles, "")
}

// GetUserPermissions lists the user's effective permission names.
func (e *Engine) GetUserPermissions(ctx context.Context, userID uint64) (res Result[[]string]) {
	defer recoverResult(&res, CodeSystemError)

	if _, err := e.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Fail[[]string](CodeUserNotFound, CodeUserNotFound)
		}
		return Fail[[]string](CodeSystemError, CodeSystemError)
	}
	permissions, err := e.authz.GetUserPermissions(ctx, userID)
	if err != nil {
		return Fail[[]string](CodeSystemError, CodeSystemError)
	}
	return Ok(permissions, "")
}

// HasPermission reports whether the user currently holds the permission.
func (e *Engine) HasPermission(ctx context.Context, userID uint64, permission string) (res Result[bool]) {
	defer recoverResult(&res, CodeSystemError)

	ok, err := e.authz.HasPermission(ctx, userID, permission)
	if err != nil {
		return Fail[bool](CodeSystemError, CodeSystemError)
	}
	return Ok(ok, "")
}

// IsInRole reports whether the user currently holds the role.
func (e *Engine) IsInRole(ctx context.Context, userID uint64, role string) (res Result[bool]) {
	defer recoverResult(&res, CodeSystemError)

	ok, err := e.authz.IsInRole(ctx, userID, role)
	if err != nil {
		return Fail[bool](CodeSystemError, CodeSystemError)
	}
	return Ok(ok, "")
}

func (e *Engine) publish(ctx context.Context, ev queue.ActivityEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishActivity(ctx, ev); err != nil {
		log.Printf("membership: publish activity failed: %v", err)
	}
}
