package auth

import "errors"

var (
	// ErrAlreadyCompleted represents a second callback delivery for the
	// same login attempt. The first delivery wins; later ones get this
	// error and cause no provider traffic.
	ErrAlreadyCompleted = errors.New("login callback already completed")

	// ErrNilParameter represents an unexpected nil parameter.
	ErrNilParameter = errors.New("nil parameter")
)
