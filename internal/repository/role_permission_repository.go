package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/membership-service/internal/model"
)

// RolePermissionRepo is the MySQL implementation of RolePermissionStore.
type RolePermissionRepo struct{ DB *sql.DB }

func NewRolePermissionRepo(db *sql.DB) *RolePermissionRepo { return &RolePermissionRepo{DB: db} }

func (s *RolePermissionRepo) Exists(ctx context.Context, roleID, permissionID uint64) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM role_permissions WHERE role_id=? AND permission_id=?",
		roleID, permissionID).Scan(&n)
	return n > 0, err
}

func (s *RolePermissionRepo) Create(ctx context.Context, rp *model.RolePermission) error {
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO role_permissions (role_id, permission_id) VALUES (?,?)",
		rp.RoleID, rp.PermissionID)
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
	rp.ID = uint64(id)
	return nil
}

func (s *RolePermissionRepo) GetByRoleID(ctx context.Context, roleID uint64) ([]model.RolePermission, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, role_id, permission_id FROM role_permissions WHERE role_id=?", roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RolePermission
	for rows.Next() {
		var rp model.RolePermission
		if err := rows.Scan(&rp.ID, &rp.RoleID, &rp.PermissionID); err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

func (s *RolePermissionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := s.DB.ExecContext(ctx, "DELETE FROM role_permissions WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (s *RolePermissionRepo) DeleteForRole(ctx context.Context, roleID uint64) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id=?", roleID)
	return err
}
