package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordPolicyValidate(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		want     []string
	}{
		{
			name:     "satisfies every rule",
			password: "Sup3rSecret!",
			want:     nil,
		},
		{
			name:     "too short but otherwise fine",
			password: "Weak1!a",
			want:     []string{CodePasswordTooShort},
		},
		{
			name:     "reports every violated rule at once",
			password: "abc",
			want: []string{
				CodePasswordTooShort,
				CodePasswordNoUppercase,
				CodePasswordNoDigit,
				CodePasswordNoSpecial,
			},
		},
		{
			name:     "empty password violates all rules",
			password: "",
			want: []string{
				CodePasswordTooShort,
				CodePasswordNoUppercase,
				CodePasswordNoLowercase,
				CodePasswordNoDigit,
				CodePasswordNoSpecial,
			},
		},
		{
			name:     "missing special character only",
			password: "Abcdefg1",
			want:     []string{CodePasswordNoSpecial},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Validate(tt.password))
		})
	}
}

func TestPasswordPolicyDisabledRules(t *testing.T) {
	policy := PasswordPolicy{MinimumLength: 4}
	assert.Empty(t, policy.Validate("aaaa"), "only length is enforced when flags are off")
	assert.Equal(t, []string{CodePasswordTooShort}, policy.Validate("aa"))
}

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcryptTestCost)

	hash, err := h.Hash("Sup3rSecret!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotContains(t, hash, "Sup3rSecret!")

	assert.True(t, h.Verify("Sup3rSecret!", hash))
	assert.False(t, h.Verify("Sup3rSecret?", hash), "single character mutation must fail")
	assert.False(t, h.Verify("", hash))
}

func TestHasherUniqueSalts(t *testing.T) {
	h := NewHasher(bcryptTestCost)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "each hash must carry a fresh salt")
}

func TestVerifyGarbageHash(t *testing.T) {
	h := NewHasher(bcryptTestCost)

	assert.NotPanics(t, func() {
		assert.False(t, h.Verify("whatever", "not-a-bcrypt-hash"))
		assert.False(t, h.Verify("whatever", ""))
		assert.False(t, h.Verify("whatever", "$2a$garbage"))
	})
}

// bcryptTestCost keeps hashing fast in tests while staying a valid cost.
const bcryptTestCost = 4
