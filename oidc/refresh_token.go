package oidc

import "encoding/json"

// RefreshToken is the optional oauth refresh_token some providers return
// alongside the access_token.  The console stores it with the session but
// never prints it: String and MarshalJSON redact the value.
type RefreshToken string

// RedactedRefreshToken is the redacted form of a refresh_token.
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String implements the Stringer interface and redacts the token.
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// MarshalJSON implements the json.Marshaler interface and redacts the token.
func (t RefreshToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedRefreshToken)
}
