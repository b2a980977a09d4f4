package model

import "time"

// User represents an account record as stored in the `users` table.
// The password is never stored in plain text; only the bcrypt hash is
// persisted. Handlers define separate response types with JSON tags, so
// none are declared here.
//
// Fields:
//
//	ID                   – primary key identifier of the user.
//	Username             – unique login name.
//	Email                – email address (unique when the policy requires it).
//	PasswordHash         – bcrypt hashed password.
//	FirstName/LastName   – optional profile names.
//	PhoneNumber          – optional phone number.
//	IsActive             – inactive accounts cannot log in and hold no live sessions.
//	IsVerified           – whether the account passed identity verification.
//	EmailConfirmed       – whether the email address was confirmed.
//	PhoneNumberConfirmed – whether the phone number was confirmed.
//	LastLoginAt          – timestamp of the most recent successful login.
//	CreatedAt/UpdatedAt  – row timestamps.
//	DeletedAt            – soft-delete marker; a deleted user behaves as missing.
type User struct {
	ID                   uint64     // users.id
	Username             string     // users.username
	Email                string     // users.email
	PasswordHash         string     // users.password_hash
	FirstName            string     // users.first_name
	LastName             string     // users.last_name
	PhoneNumber          string     // users.phone_number
	IsActive             bool       // users.is_active
	IsVerified           bool       // users.is_verified
	EmailConfirmed       bool       // users.email_confirmed
	PhoneNumberConfirmed bool       // users.phone_confirmed
	LastLoginAt          *time.Time // users.last_login_at (nullable)
	CreatedAt            time.Time  // users.created_at
	UpdatedAt            *time.Time // users.updated_at (nullable)
	DeletedAt            *time.Time // users.deleted_at (nullable)
}

// Role is a named, independently activatable grouping of permissions.
type Role struct {
	ID          uint64    // roles.id
	Name        string    // roles.name (unique)
	Description string    // roles.description
	IsActive    bool      // roles.is_active
	CreatedAt   time.Time // roles.created_at
}

// Permission is a named capability that roles grant to their members.
type Permission struct {
	ID          uint64 // permissions.id
	Name        string // permissions.name (unique)
	Description string // permissions.description
	Category    string // permissions.category
	IsActive    bool   // permissions.is_active
}

// UserRole is the users<->roles junction row, unique on (UserID, RoleID).
type UserRole struct {
	ID         uint64    // user_roles.id
	UserID     uint64    // user_roles.user_id
	RoleID     uint64    // user_roles.role_id
	AssignedAt time.Time // user_roles.assigned_at
}

// RolePermission is the roles<->permissions junction row, unique on
// (RoleID, PermissionID).
type RolePermission struct {
	ID           uint64 // role_permissions.id
	RoleID       uint64 // role_permissions.role_id
	PermissionID uint64 // role_permissions.permission_id
}
