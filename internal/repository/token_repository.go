package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/membership-service/internal/auth"
	"github.com/iliyamo/membership-service/internal/model"
)

// TokenRepo is the MySQL implementation of TokenStore. Raw token values are
// digested before touching the database; only SHA-256 hex digests are
// stored in the token_hash column.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a refresh token row. t.TokenHash must already hold the raw
// value; it is replaced by the digest before insert so the caller never has
// to care about the at-rest form.
func (r *TokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	t.TokenHash = auth.DigestToken(t.TokenHash)
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens
		 (user_id, token_hash, token_type, expires_at, device_info, ip_address, created_at)
		 VALUES (?,?,?,?,?,?,?)`,
		t.UserID, t.TokenHash, t.TokenType, t.ExpiresAt, t.DeviceInfo, t.IPAddress, t.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByToken looks up a token row by raw value, regardless of its state.
func (r *TokenRepo) GetByToken(ctx context.Context, raw string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, token_hash, token_type, expires_at, revoked_at,
		        device_info, ip_address, created_at
		 FROM refresh_tokens WHERE token_hash=? LIMIT 1`,
		auth.DigestToken(raw)).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.TokenType, &t.ExpiresAt, &t.RevokedAt,
		&t.DeviceInfo, &t.IPAddress, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Revoke marks a live token revoked. The UPDATE is guarded on the row still
// being live, so of N concurrent revocations exactly one observes an
// affected row; that guarantee is what makes refresh rotation single-use.
func (r *TokenRepo) Revoke(ctx context.Context, raw string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP()
		 WHERE token_hash=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		auth.DigestToken(raw))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeAllForUser revokes every live token of the user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// GetActiveForUser lists the user's live tokens, newest first.
func (r *TokenRepo) GetActiveForUser(ctx context.Context, userID uint64) ([]model.RefreshToken, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, token_hash, token_type, expires_at, revoked_at,
		        device_info, ip_address, created_at
		 FROM refresh_tokens
		 WHERE user_id=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RefreshToken
	for rows.Next() {
		var t model.RefreshToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.TokenType, &t.ExpiresAt,
			&t.RevokedAt, &t.DeviceInfo, &t.IPAddress, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteForUser removes every token row of the user.
func (r *TokenRepo) DeleteForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE user_id=?", userID)
	return err
}
