package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table. Each token
// belongs to a user and carries expiry and revocation metadata plus the
// device/IP it was issued to. The plain token value is never stored; only
// its SHA-256 hex digest.
//
// A token is live when RevokedAt is null and ExpiresAt lies in the future.
// Every other state is terminal: revocation and expiry are never undone and
// a dead token is never reissued as valid.
type RefreshToken struct {
	ID         uint64     // refresh_tokens.id
	UserID     uint64     // refresh_tokens.user_id
	TokenHash  string     // refresh_tokens.token_hash (SHA-256 hex of the raw value)
	TokenType  string     // refresh_tokens.token_type (e.g. "refresh")
	ExpiresAt  time.Time  // refresh_tokens.expires_at
	RevokedAt  *time.Time // refresh_tokens.revoked_at (nullable)
	DeviceInfo string     // refresh_tokens.device_info
	IPAddress  string     // refresh_tokens.ip_address
	CreatedAt  time.Time  // refresh_tokens.created_at
}

// Live reports whether the token can still be exchanged at the given instant.
func (t *RefreshToken) Live(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
