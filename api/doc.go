// Package api provides the HTTP client used to call the console's
// business endpoints. The client attaches the stored session's bearer
// token to every request and evicts the session when the backend says
// the token is no longer good.
package api
