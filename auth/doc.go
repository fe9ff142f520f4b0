// Package auth orchestrates the authorization code login flow end to
// end: BeginLogin resolves provider metadata, mints the PKCE verifier
// (and a state token only when the provider has not advertised PKCE
// support), records the attempt and returns the authorization URL;
// CompleteLogin consumes the provider callback exactly once, exchanges
// the code, derives the application user and persists the session.
package auth
