package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/membership-service/internal/model"
)

// ErrInvalidToken is the uniform failure for any access token that does not
// fully validate: bad signature, wrong issuer or audience, expired, or
// malformed. Callers never learn which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Principal is the resolved identity carried by a valid access token. It is
// passed explicitly through the call chain instead of being pulled from an
// ambient request context.
type Principal struct {
	UserID      uint64
	Username    string
	Email       string
	TokenID     string
	Roles       []string
	Permissions []string
}

// HasPermission reports whether the principal carries the named permission.
func (p *Principal) HasPermission(name string) bool {
	for _, v := range p.Permissions {
		if v == name {
			return true
		}
	}
	return false
}

// InRole reports whether the principal carries the named role.
func (p *Principal) InRole(name string) bool {
	for _, v := range p.Roles {
		if v == name {
			return true
		}
	}
	return false
}

// Signer issues and validates HS256 access tokens and generates opaque
// refresh tokens. The secret, issuer and audience are loaded once at startup
// and never change afterwards.
type Signer struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

// NewSigner builds a Signer. accessTTLMin is the access token lifetime in
// minutes (60 when zero or negative).
func NewSigner(secret, issuer, audience string, accessTTLMin int) *Signer {
	if accessTTLMin <= 0 {
		accessTTLMin = 60
	}
	return &Signer{
		secret:    []byte(secret),
		issuer:    issuer,
		audience:  audience,
		accessTTL: time.Duration(accessTTLMin) * time.Minute,
	}
}

// AccessToken issues a signed JWT for the user carrying one claim entry per
// role and per permission. The jti claim is a fresh UUID so two tokens for
// the same user are never ambiguous.
func (s *Signer) AccessToken(u *model.User, roles, permissions []string) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(s.accessTTL)
	if roles == nil {
		roles = []string{}
	}
	if permissions == nil {
		permissions = []string{}
	}
	claims := jwt.MapClaims{
		"sub":         strconv.FormatUint(u.ID, 10),
		"name":        u.Username,
		"email":       u.Email,
		"jti":         uuid.NewString(),
		"iat":         now.Unix(),
		"exp":         expiresAt.Unix(),
		"iss":         s.issuer,
		"aud":         s.audience,
		"roles":       roles,
		"permissions": permissions,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate checks signature, issuer, audience and lifetime (zero clock-skew
// tolerance) and returns the resolved principal. Every failure mode yields
// ErrInvalidToken; a partially trusted claim set is never returned.
func (s *Signer) Validate(token string) (*Principal, error) {
	parsed, err := jwt.Parse(token,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	uid, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || uid == 0 {
		return nil, ErrInvalidToken
	}
	p := &Principal{UserID: uid}
	p.Username, _ = claims["name"].(string)
	p.Email, _ = claims["email"].(string)
	p.TokenID, _ = claims["jti"].(string)
	p.Roles = stringList(claims["roles"])
	p.Permissions = stringList(claims["permissions"])
	return p, nil
}

// Expiration returns the exp claim of the token without verifying the
// signature. It is intended for diagnostics on tokens this process issued.
func (s *Signer) Expiration(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, ErrInvalidToken
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrInvalidToken
	}
	return exp.Time, nil
}

func stringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// OpaqueToken is a freshly generated refresh token together with its expiry.
// The raw value goes back to the client; only its digest is persisted.
type OpaqueToken struct {
	Raw string
	Exp time.Time
}

// NewRefreshToken returns a cryptographically random opaque token valid for
// ttlDays. The value carries no structure; its only semantics come from the
// stored token record.
func NewRefreshToken(ttlDays int) (OpaqueToken, error) {
	buf := make([]byte, 48)
	if _, err := rand.Read(buf); err != nil {
		return OpaqueToken{}, err
	}
	return OpaqueToken{
		Raw: hex.EncodeToString(buf),
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// DigestToken returns the SHA-256 hex digest of a raw refresh token. Storing
// only the digest keeps a leaked database from yielding usable sessions.
func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
