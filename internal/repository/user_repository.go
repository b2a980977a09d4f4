package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/membership-service/internal/model"
)

// UserRepo is the MySQL implementation of UserStore.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, username, email, password_hash, first_name, last_name,
phone_number, is_active, is_verified, email_confirmed, phone_confirmed,
last_login_at, created_at, updated_at, deleted_at`

// nullIfEmpty maps an absent email to NULL so the unique index ignores it;
// a NOT NULL column would collapse every email-less user onto the empty
// string and the second one would collide.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	var email sql.NullString
	err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.IsActive, &u.IsVerified, &u.EmailConfirmed, &u.PhoneNumberConfirmed,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	return &u, nil
}

// GetByID fetches a user by id. Soft-deleted rows are treated as missing.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND deleted_at IS NULL LIMIT 1", id))
}

// GetByUsernameOrEmail resolves a login identifier against both unique columns.
func (r *UserRepo) GetByUsernameOrEmail(ctx context.Context, login string) (*model.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE (username=? OR email=?) AND deleted_at IS NULL LIMIT 1",
		login, login))
}

func (r *UserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE username=? AND deleted_at IS NULL", username).Scan(&n)
	return n > 0, err
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM users WHERE email=? AND deleted_at IS NULL", email).Scan(&n)
	return n > 0, err
}

// Create inserts the user and fills in its generated ID. Unique violations
// map to the matching sentinel by inspecting the key name in the driver
// error (MySQL error 1062).
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = strings.ToLower(strings.TrimSpace(u.Username))
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users
		 (username, email, password_hash, first_name, last_name, phone_number,
		  is_active, is_verified, email_confirmed, phone_confirmed, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.Username, nullIfEmpty(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber,
		u.IsActive, u.IsVerified, u.EmailConfirmed, u.PhoneNumberConfirmed, u.CreatedAt)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "1062") {
			if strings.Contains(msg, "email") {
				return ErrEmailExists
			}
			return ErrUsernameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// Update persists every mutable field of the user.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email=?, password_hash=?, first_name=?, last_name=?,
		 phone_number=?, is_active=?, is_verified=?, email_confirmed=?,
		 phone_confirmed=?, updated_at=?, deleted_at=?
		 WHERE id=? AND deleted_at IS NULL`,
		nullIfEmpty(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber,
		u.IsActive, u.IsVerified, u.EmailConfirmed, u.PhoneNumberConfirmed,
		u.UpdatedAt, u.DeletedAt, u.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at=? WHERE id=?", at, id)
	return err
}

// GetUserRoles returns the names of the user's active roles.
func (r *UserRepo) GetUserRoles(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.name FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id=? AND r.is_active=1
		 ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetUserPermissions returns the deduplicated union of permission names
// granted through the user's active roles. DISTINCT collapses permissions
// reachable via multiple roles.
func (r *UserRepo) GetUserPermissions(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT p.name FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 JOIN roles r ON r.id = rp.role_id
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id=? AND r.is_active=1 AND p.is_active=1
		 ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
