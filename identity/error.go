package identity

import "errors"

var (
	// ErrClaimDecode represents a token payload whose claims could not
	// be decoded. Callers treat this as non-fatal for role derivation:
	// the user is still authenticated even when role claims are
	// unreadable.
	ErrClaimDecode = errors.New("unable to decode token claims")

	// ErrInvalidParameter represents an invalid parameter error.
	ErrInvalidParameter = errors.New("invalid parameter")
)
