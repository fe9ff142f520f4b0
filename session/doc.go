// Package session persists the authenticated session across process
// restarts: the token set, the derived user and the in-flight login
// attempt (state and PKCE verifier). Persistence goes through the
// Storage capability interface so the same Store works over process
// memory, a file or the operating system keyring.
package session
