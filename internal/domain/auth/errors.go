package auth

import "errors"

var (
	// ErrEmailExists indicates a duplicate email address.
	ErrEmailExists = errors.New("email already exists")
	// ErrUserNotFound is returned when an update targets a missing account.
	ErrUserNotFound = errors.New("user not found")
)
