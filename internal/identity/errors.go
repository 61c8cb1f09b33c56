package identity

import "errors"

var (
	// ErrUnauthorized represents missing or unverifiable authentication tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the verified subject is not an administrator.
	ErrForbidden = errors.New("forbidden")
)
