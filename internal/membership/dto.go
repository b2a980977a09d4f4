package membership

import (
	"time"

	"github.com/iliyamo/membership-service/internal/model"
)

// RegisterInput carries everything needed to create an account.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
}

// LoginInput carries a login identifier (username or email) and password.
type LoginInput struct {
	Login    string
	Password string
}

// ChangePasswordInput carries the current and the replacement password.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// UpdateUserInput patches profile fields. Nil pointers leave the current
// value untouched.
type UpdateUserInput struct {
	Email       *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
}

// UserProfile is the projection of a user returned to callers. It never
// carries the password hash.
type UserProfile struct {
	ID                   uint64     `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	FirstName            string     `json:"first_name,omitempty"`
	LastName             string     `json:"last_name,omitempty"`
	PhoneNumber          string     `json:"phone_number,omitempty"`
	IsActive             bool       `json:"is_active"`
	EmailConfirmed       bool       `json:"email_confirmed"`
	PhoneNumberConfirmed bool       `json:"phone_confirmed"`
	LastLoginAt          *time.Time `json:"last_login_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

func profileOf(u *model.User) *UserProfile {
	return &UserProfile{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		PhoneNumber:          u.PhoneNumber,
		IsActive:             u.IsActive,
		EmailConfirmed:       u.EmailConfirmed,
		PhoneNumberConfirmed: u.PhoneNumberConfirmed,
		LastLoginAt:          u.LastLoginAt,
		CreatedAt:            u.CreatedAt,
	}
}
