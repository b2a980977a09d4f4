package membership

// Stable message and error codes emitted by the engine. The core never
// produces user-facing prose; Describe provides an English fallback for
// boundaries that have no message catalog of their own.
const (
	CodeSystemError = "system.error"

	CodeRegisterSuccess = "register.success"
	CodeRegisterFailed  = "register.failed"
	CodeLoginSuccess    = "login.success"
	CodeLoginFailed     = "login.failed"
	CodeRefreshSuccess  = "refresh.success"
	CodeRefreshFailed   = "refresh.failed"
	CodeLogoutSuccess   = "logout.success"
	CodeLogoutFailed    = "logout.failed"

	CodeInvalidCredentials = "auth.invalid_credentials"
	CodeLoginBlocked       = "auth.login_blocked"
	CodeRefreshInvalid     = "auth.refresh_invalid"

	CodePasswordInvalid        = "password.invalid"
	CodeCurrentPasswordInvalid = "password.current_invalid"
	CodePasswordChanged        = "password.changed"

	CodeUserNotFound    = "user.not_found"
	CodeUsernameExists  = "user.username_exists"
	CodeEmailExists     = "user.email_exists"
	CodeUserUpdated     = "user.updated"
	CodeUserDeactivated = "user.deactivated"
	CodeUserActivated   = "user.activated"

	CodeRoleNotFound          = "role.not_found"
	CodeRoleAssigned          = "role.assigned"
	CodeRoleRemoved           = "role.removed"
	CodeRoleNotAssigned       = "role.not_assigned"
	CodePermissionNotFound    = "permission.not_found"
	CodePermissionAssigned    = "permission.assigned"
	CodePermissionRemoved     = "permission.removed"
	CodePermissionNotAssigned = "permission.not_assigned"
)

var messages = map[string]string{
	CodeSystemError: "An unexpected error occurred",

	CodeRegisterSuccess: "Registration successful",
	CodeRegisterFailed:  "Registration failed",
	CodeLoginSuccess:    "Login successful",
	CodeLoginFailed:     "Login failed",
	CodeRefreshSuccess:  "Token refreshed successfully",
	CodeRefreshFailed:   "Token refresh failed",
	CodeLogoutSuccess:   "Logout successful",
	CodeLogoutFailed:    "Logout failed",

	CodeInvalidCredentials: "Invalid username or password",
	CodeLoginBlocked:       "Too many failed attempts, try again later",
	CodeRefreshInvalid:     "Invalid or expired refresh token",

	CodePasswordInvalid:        "Password does not satisfy the policy",
	CodeCurrentPasswordInvalid: "Current password is incorrect",
	CodePasswordChanged:        "Password changed successfully",

	CodeUserNotFound:    "User not found",
	CodeUsernameExists:  "Username already exists",
	CodeEmailExists:     "Email already exists",
	CodeUserUpdated:     "User updated successfully",
	CodeUserDeactivated: "User deactivated successfully",
	CodeUserActivated:   "User activated successfully",

	CodeRoleNotFound:          "Role not found",
	CodeRoleAssigned:          "Role assigned",
	CodeRoleRemoved:           "Role removed",
	CodeRoleNotAssigned:       "Role was not assigned",
	CodePermissionNotFound:    "Permission not found",
	CodePermissionAssigned:    "Permission assigned",
	CodePermissionRemoved:     "Permission removed",
	CodePermissionNotAssigned: "Permission was not assigned",

	"password.too_short":         "Password is too short",
	"password.missing_uppercase": "Password needs at least one uppercase letter",
	"password.missing_lowercase": "Password needs at least one lowercase letter",
	"password.missing_digit":     "Password needs at least one digit",
	"password.missing_special":   "Password needs at least one special character",
}

// Describe returns the English text for a code, or the code itself when no
// entry exists so unknown codes stay visible instead of vanishing.
func Describe(code string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return code
}
