// Package auth implements the credential primitives of the membership core:
// password policy enforcement, bcrypt hashing and signed token issuance.
package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Stable password violation codes. The core reports codes, not prose; the
// boundary layer owns rendering them into user-facing messages.
const (
	CodePasswordTooShort    = "password.too_short"
	CodePasswordNoUppercase = "password.missing_uppercase"
	CodePasswordNoLowercase = "password.missing_lowercase"
	CodePasswordNoDigit     = "password.missing_digit"
	CodePasswordNoSpecial   = "password.missing_special"
)

// PasswordPolicy configures the strength rules applied to new passwords.
// All requirement flags default to on; DefaultPasswordPolicy mirrors that.
type PasswordPolicy struct {
	MinimumLength           int
	RequireUppercase        bool
	RequireLowercase        bool
	RequireDigit            bool
	RequireSpecialCharacter bool
}

// DefaultPasswordPolicy returns the policy used when nothing is configured.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinimumLength:           8,
		RequireUppercase:        true,
		RequireLowercase:        true,
		RequireDigit:            true,
		RequireSpecialCharacter: true,
	}
}

// Validate checks the password against every enabled rule and returns one
// code per violated rule. It never stops at the first failure; callers need
// the complete list to surface all issues at once. An empty slice means the
// password satisfies the policy.
func (p PasswordPolicy) Validate(password string) []string {
	var violations []string

	runes := []rune(password)
	if len(runes) < p.MinimumLength {
		violations = append(violations, CodePasswordTooShort)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if p.RequireUppercase && !hasUpper {
		violations = append(violations, CodePasswordNoUppercase)
	}
	if p.RequireLowercase && !hasLower {
		violations = append(violations, CodePasswordNoLowercase)
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, CodePasswordNoDigit)
	}
	if p.RequireSpecialCharacter && !hasSpecial {
		violations = append(violations, CodePasswordNoSpecial)
	}
	return violations
}

// Hasher computes and verifies salted bcrypt password hashes. bcrypt embeds
// a fresh random salt in every hash, so identical passwords never produce
// identical hashes.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs below the
// bcrypt minimum fall back to a cost of 12.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = 12
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of the password. This is intentionally
// CPU-bound; callers must invoke it from a request goroutine, never from a
// shared dispatch loop.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether the password matches the stored hash. Malformed
// hash input is treated as a mismatch, never as a fault.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
