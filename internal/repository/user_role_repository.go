package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/membership-service/internal/model"
)

// UserRoleRepo is the MySQL implementation of UserRoleStore.
type UserRoleRepo struct{ DB *sql.DB }

func NewUserRoleRepo(db *sql.DB) *UserRoleRepo { return &UserRoleRepo{DB: db} }

func (s *UserRoleRepo) Exists(ctx context.Context, userID, roleID uint64) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM user_roles WHERE user_id=? AND role_id=?", userID, roleID).Scan(&n)
	return n > 0, err
}

func (s *UserRoleRepo) Create(ctx context.Context, ur *model.UserRole) error {
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role_id, assigned_at) VALUES (?,?,?)",
		ur.UserID, ur.RoleID, ur.AssignedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ur.ID = uint64(id)
	return nil
}

func (s *UserRoleRepo) GetByUserID(ctx context.Context, userID uint64) ([]model.UserRole, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, user_id, role_id, assigned_at FROM user_roles WHERE user_id=?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UserRole
	for rows.Next() {
		var ur model.UserRole
		if err := rows.Scan(&ur.ID, &ur.UserID, &ur.RoleID, &ur.AssignedAt); err != nil {
			return nil, err
		}
		out = append(out, ur)
	}
	return out, rows.Err()
}

func (s *UserRoleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM user_roles WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *UserRoleRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", userID)
	return err
}

func (s *UserRoleRepo) DeleteForRole(ctx context.Context, roleID uint64) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM user_roles WHERE role_id=?", roleID)
	return err
}
