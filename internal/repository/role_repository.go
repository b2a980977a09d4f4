package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/membership-service/internal/model"
)

// RoleRepo is the MySQL implementation of RoleStore.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

func scanRole(row *sql.Row) (*model.Role, error) {
	var r model.Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoleRepo) GetByID(ctx context.Context, id uint64) (*model.Role, error) {
	return scanRole(s.DB.QueryRowContext(ctx,
		"SELECT id, name, description, is_active, created_at FROM roles WHERE id=? LIMIT 1", id))
}

func (s *RoleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	return scanRole(s.DB.QueryRowContext(ctx,
		"SELECT id, name, description, is_active, created_at FROM roles WHERE name=? LIMIT 1", name))
}

func (s *RoleRepo) GetAll(ctx context.Context) ([]model.Role, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, name, description, is_active, created_at FROM roles ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Role
	for rows.Next() {
		var r model.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RoleRepo) Create(ctx context.Context, r *model.Role) error {
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO roles (name, description, is_active, created_at) VALUES (?,?,?,?)",
		r.Name, r.Description, r.IsActive, r.CreatedAt)
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
	r.ID = uint64(id)
	return nil
}

func (s *RoleRepo) Update(ctx context.Context, r *model.Role) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, description=?, is_active=? WHERE id=?",
		r.Name, r.Description, r.IsActive, r.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// Delete removes the role together with its junction rows. The cascade is
// explicit: no schema-level ON DELETE is assumed.
func (s *RoleRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE role_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
