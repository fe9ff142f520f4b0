package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrInvalidCACert              = errors.New("invalid CA certificate")
	ErrIDGeneratorFailed          = errors.New("id generation failed")
	ErrDiscovery                  = errors.New("provider discovery failed")
	ErrUnsupportedChallengeMethod = errors.New("unsupported challenge method")
	ErrMissingAuthCode            = errors.New("authorization code is missing")
	ErrStateMismatch              = errors.New("authentication state and response state are not equal")
	ErrTokenExchange              = errors.New("token exchange failed")
	ErrMissingIDToken             = errors.New("id_token is missing")
	ErrMissingAccessToken         = errors.New("access_token is missing")
	ErrEndSessionUnsupported      = errors.New("end session endpoint is not supported")
	ErrLoginFailed                = errors.New("login failed")
	ErrUserInfoFailed             = errors.New("user info failed")
)
