package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/membership-service/internal/model"
)

// ActivityRepo is the MySQL implementation of ActivityStore. Rows are
// written by the queue consumer, never on the request path.
type ActivityRepo struct{ DB *sql.DB }

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{DB: db} }

func (s *ActivityRepo) Create(ctx context.Context, a *model.UserActivity) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO user_activities
		 (user_id, activity_type, username, ip_address, device_info, is_successful, details, activity_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		a.UserID, a.ActivityType, a.Username, a.IPAddress, a.DeviceInfo,
		a.IsSuccessful, a.Details, a.ActivityAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (s *ActivityRepo) GetForUser(ctx context.Context, userID uint64, limit int) ([]model.UserActivity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_id, activity_type, username, ip_address, device_info,
		        is_successful, details, activity_at
		 FROM user_activities WHERE user_id=?
		 ORDER BY activity_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UserActivity
	for rows.Next() {
		var a model.UserActivity
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.Username, &a.IPAddress,
			&a.DeviceInfo, &a.IsSuccessful, &a.Details, &a.ActivityAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
