package service

import "errors"

var (
	// ErrNotFound indicates the referenced entity does not exist. It takes
	// precedence over ErrForbidden: callers never learn whether an
	// inaccessible id exists.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the entity exists but the actor lacks rights.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation indicates bad input, rejected before any mutation.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidCredentials covers failed logins and dead session tokens.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
