package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/membership-service/internal/model"
)

// PermissionRepo is the MySQL implementation of PermissionStore.
type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

func scanPermission(row *sql.Row) (*model.Permission, error) {
	var p model.Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PermissionRepo) GetByID(ctx context.Context, id uint64) (*model.Permission, error) {
	return scanPermission(s.DB.QueryRowContext(ctx,
		"SELECT id, name, description, category, is_active FROM permissions WHERE id=? LIMIT 1", id))
}

func (s *PermissionRepo) GetByName(ctx context.Context, name string) (*model.Permission, error) {
	return scanPermission(s.DB.QueryRowContext(ctx,
		"SELECT id, name, description, category, is_active FROM permissions WHERE name=? LIMIT 1", name))
}

func (s *PermissionRepo) GetAll(ctx context.Context) ([]model.Permission, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, name, description, category, is_active FROM permissions ORDER BY category, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Permission
	for rows.Next() {
		var p model.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.IsActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PermissionRepo) Create(ctx context.Context, p *model.Permission) error {
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO permissions (name, description, category, is_active) VALUES (?,?,?,?)",
		p.Name, p.Description, p.Category, p.IsActive)
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
	p.ID = uint64(id)
	return nil
}

func (s *PermissionRepo) Update(ctx context.Context, p *model.Permission) error {
	res, err := s.DB.ExecContext(ctx,
		"UPDATE permissions SET name=?, description=?, category=?, is_active=? WHERE id=?",
		p.Name, p.Description, p.Category, p.IsActive, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

// Delete removes the permission together with its role links.
func (s *PermissionRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM role_permissions WHERE permission_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM permissions WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
