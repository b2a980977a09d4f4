// Package repository defines the persistence boundary of the membership
// core: store interfaces consumed by the engine plus their MySQL
// implementations. Sentinel errors let higher layers distinguish failure
// scenarios without inspecting driver-specific errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist (or is
// soft-deleted). The engine maps it to a not-found result.
var ErrNotFound = errors.New("not found")

// ErrUsernameExists is returned by user creation when the username is taken.
var ErrUsernameExists = errors.New("username already exists")

// ErrEmailExists is returned by user creation or update when the email is
// taken and uniqueness is enforced.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when inserting a junction row that already
// exists. Callers treating assignment as idempotent check existence first;
// this covers the race where two assignments collide.
var ErrDuplicate = errors.New("duplicate entry")
