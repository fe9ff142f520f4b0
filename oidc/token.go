package oidc

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTokenExpirySkew defines a default time skew when checking a Token's
// expiration.
const DefaultTokenExpirySkew = 10 * time.Second

// Token represents the result of a successful authorization code exchange:
// an oidc id_token, an oauth2 access_token, and an optional oauth2
// refresh_token (including the access_token expiry).  The set is treated as
// a single unit: a Token without an access_token is not Valid.
type Token struct {
	access  AccessToken
	id      IDToken
	refresh RefreshToken
	expiry  time.Time
}

// NewToken creates a new Token from an id_token and its oauth2 exchange
// response.  The id_token is required; the refresh_token and the
// access_token expiry are optional, since some providers do not return them.
func NewToken(id IDToken, t *oauth2.Token) (*Token, error) {
	const op = "oidc.NewToken"
	if id == "" {
		return nil, fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if t == nil {
		return nil, fmt.Errorf("%s: oauth2 token is nil: %w", op, ErrNilParameter)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: access_token is empty: %w", op, ErrMissingAccessToken)
	}
	return &Token{
		id:      id,
		access:  AccessToken(t.AccessToken),
		refresh: RefreshToken(t.RefreshToken),
		expiry:  t.Expiry,
	}, nil
}

// RestoreToken recreates a Token from its persisted parts, which is how a
// session store rebuilds the set after a restart.  It applies the same
// validation as NewToken.
func RestoreToken(access AccessToken, id IDToken, refresh RefreshToken, expiry time.Time) (*Token, error) {
	const op = "oidc.RestoreToken"
	if access == "" {
		return nil, fmt.Errorf("%s: access_token is empty: %w", op, ErrMissingAccessToken)
	}
	return &Token{
		access:  access,
		id:      id,
		refresh: refresh,
		expiry:  expiry,
	}, nil
}

func (t *Token) AccessToken() AccessToken   { return t.access }  // AccessToken returns the bearer credential
func (t *Token) IDToken() IDToken           { return t.id }      // IDToken returns the id_token
func (t *Token) RefreshToken() RefreshToken { return t.refresh } // RefreshToken returns the optional refresh_token
func (t *Token) Expiry() time.Time          { return t.expiry }  // Expiry returns the access_token expiry, zero if unknown

// Expired returns true if the token's access_token has expired.  A zero
// expiry means the provider did not report one and the token is treated as
// not expired.  Supports the WithExpirySkew option and if none is provided
// it will use the DefaultTokenExpirySkew.
func (t *Token) Expired(opt ...Option) bool {
	if t.expiry.IsZero() {
		return false
	}
	opts := getTokenOpts(opt...)
	return t.expiry.Round(0).Before(time.Now().Add(opts.withExpirySkew))
}

// Valid returns true when the token holds a usable bearer credential.
func (t *Token) Valid() bool {
	if t == nil {
		return false
	}
	if t.access == "" {
		return false
	}
	return !t.Expired()
}

// StaticTokenSource returns an oauth2.TokenSource for the token's
// access_token, suitable for userinfo requests and downstream API calls.
func (t *Token) StaticTokenSource() oauth2.TokenSource {
	if t == nil {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: string(t.access),
		Expiry:      t.expiry,
	})
}

// tokenOptions is the set of available options for Token functions
type tokenOptions struct {
	withExpirySkew time.Duration
}

// tokenDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func tokenDefaults() tokenOptions {
	return tokenOptions{
		withExpirySkew: DefaultTokenExpirySkew,
	}
}

// getTokenOpts gets the token defaults and applies the opt overrides passed
// in
func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
