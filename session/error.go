package session

import "errors"

var (
	// ErrKeyNotFound represents a storage key with no stored value.
	ErrKeyNotFound = errors.New("key not found in storage")

	// ErrNoSession represents a load with no persisted session.
	ErrNoSession = errors.New("no stored session")

	// ErrNoLoginAttempt represents a callback arriving with no pending
	// login attempt, which covers both a stray callback and a replayed
	// one (the attempt is cleared on first use).
	ErrNoLoginAttempt = errors.New("no pending login attempt")

	// ErrNilParameter represents an unexpected nil parameter.
	ErrNilParameter = errors.New("nil parameter")

	// ErrInvalidParameter represents an invalid parameter error.
	ErrInvalidParameter = errors.New("invalid parameter")
)
