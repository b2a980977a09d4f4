package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/membership-service/internal/model"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "membership-service"
	testAudience = "membership-clients"
)

func testUser() *model.User {
	return &model.User{ID: 42, Username: "alice", Email: "alice@x.com", IsActive: true}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	s := NewSigner(testSecret, testIssuer, testAudience, 60)

	token, exp, err := s.AccessToken(testUser(), []string{"admin", "editor"}, []string{"users.read", "users.write"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().UTC().Add(60*time.Minute), exp, 5*time.Second)

	p, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.UserID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "alice@x.com", p.Email)
	assert.NotEmpty(t, p.TokenID)
	assert.Equal(t, []string{"admin", "editor"}, p.Roles)
	assert.Equal(t, []string{"users.read", "users.write"}, p.Permissions)
	assert.True(t, p.HasPermission("users.read"))
	assert.False(t, p.HasPermission("users.delete"))
	assert.True(t, p.InRole("admin"))
	assert.False(t, p.InRole("owner"))
}

func TestUniqueTokenIDs(t *testing.T) {
	s := NewSigner(testSecret, testIssuer, testAudience, 60)

	t1, _, err := s.AccessToken(testUser(), nil, nil)
	require.NoError(t, err)
	t2, _, err := s.AccessToken(testUser(), nil, nil)
	require.NoError(t, err)

	p1, err := s.Validate(t1)
	require.NoError(t, err)
	p2, err := s.Validate(t2)
	require.NoError(t, err)
	assert.NotEqual(t, p1.TokenID, p2.TokenID)
}

func TestValidateRejectsUniformly(t *testing.T) {
	s := NewSigner(testSecret, testIssuer, testAudience, 60)
	token, _, err := s.AccessToken(testUser(), nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		signer *Signer
		token  string
	}{
		{"garbage token", s, "not.a.jwt"},
		{"empty token", s, ""},
		{"wrong secret", NewSigner("another-secret-another-secret-00", testIssuer, testAudience, 60), token},
		{"wrong issuer", NewSigner(testSecret, "someone-else", testAudience, 60), token},
		{"wrong audience", NewSigner(testSecret, testIssuer, "other-clients", 60), token},
		{"tampered payload", s, token[:len(token)-6] + "aaaaaa"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.signer.Validate(tt.token)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestExpiration(t *testing.T) {
	s := NewSigner(testSecret, testIssuer, testAudience, 1)
	token, _, err := s.AccessToken(testUser(), nil, nil)
	require.NoError(t, err)

	exp, err := s.Expiration(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Minute), exp, 5*time.Second)

	_, err = s.Expiration("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewRefreshToken(t *testing.T) {
	tok, err := NewRefreshToken(30)
	require.NoError(t, err)
	assert.Len(t, tok.Raw, 96, "48 random bytes hex-encoded")
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), tok.Exp, 5*time.Second)

	other, err := NewRefreshToken(30)
	require.NoError(t, err)
	assert.NotEqual(t, tok.Raw, other.Raw)

	// The raw value must not parse as a JWT.
	s := NewSigner(testSecret, testIssuer, testAudience, 60)
	_, err = s.Validate(tok.Raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDigestToken(t *testing.T) {
	d1 := DigestToken("abc")
	d2 := DigestToken("abc")
	d3 := DigestToken("abd")
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.Len(t, d1, 64)
}
