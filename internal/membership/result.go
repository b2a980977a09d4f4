// Package membership implements the authentication/session lifecycle
// engine: registration, credential verification, token issuance, refresh
// rotation and the role/permission authorization model. All durable state
// lives behind the repository interfaces; the engine itself holds no
// mutable state and is safe for concurrent use.
package membership

import "time"

// Result is the uniform envelope returned by every non-auth engine
// operation. Message and Errors carry stable codes (see codes.go); the
// boundary layer owns turning codes into user-facing text.
type Result[T any] struct {
	Success bool     `json:"success"`
	Data    T        `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// Ok builds a successful result.
func Ok[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Data: data, Message: message}
}

// Fail builds a failed result with one or more error codes.
func Fail[T any](message string, errs ...string) Result[T] {
	return Result[T]{Success: false, Message: message, Errors: errs}
}

// AuthResult is the envelope returned by the token-issuing operations
// (Register, Login, RefreshToken).
type AuthResult struct {
	Success      bool         `json:"success"`
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time    `json:"expires_at,omitempty"`
	User         *UserProfile `json:"user,omitempty"`
	Message      string       `json:"message,omitempty"`
	Errors       []string     `json:"errors,omitempty"`
}

func authFail(message string, errs ...string) AuthResult {
	return AuthResult{Success: false, Message: message, Errors: errs}
}
