package domain

import "errors"

// Sentinel errors for the application.
//
// Mutations raise these synchronously. Read queries never do; an
// unauthenticated or unauthorized reader gets an empty result instead.
var (
	// ErrNotAuthenticated means no verified caller identity was presented.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUserNotFound means the identity was verified but no matching user
	// row exists (e.g. a provisioning race or a deactivated account).
	ErrUserNotFound = errors.New("user not found")
	// ErrAccessDenied means the caller is known but not authorized for the
	// target resource (wrong foundation, not a participant). Lookups on a
	// missing conversation surface as this too.
	ErrAccessDenied = errors.New("access denied")

	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")
)
