package model

import "time"

// Activity type tags recorded in the audit trail.
const (
	ActivityRegister       = "register"
	ActivityLogin          = "login"
	ActivityLoginFailed    = "login_failed"
	ActivityLogout         = "logout"
	ActivityLogoutAll      = "logout_all"
	ActivityTokenRefresh   = "token_refresh"
	ActivityPasswordChange = "password_change"
	ActivityDeactivate     = "deactivate"
)

// UserActivity is one entry of the authentication audit trail, persisted
// asynchronously by the queue consumer.
type UserActivity struct {
	ID           uint64    // user_activities.id
	UserID       uint64    // user_activities.user_id (0 when the subject is unknown)
	ActivityType string    // user_activities.activity_type
	Username     string    // user_activities.username
	IPAddress    string    // user_activities.ip_address
	DeviceInfo   string    // user_activities.device_info
	IsSuccessful bool      // user_activities.is_successful
	Details      string    // user_activities.details
	ActivityAt   time.Time // user_activities.activity_at
}
