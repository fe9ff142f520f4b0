package callback

import (
	"net/http"

	"github.com/Aadarsha3/cms-test/auth"
)

// SuccessResponseFunc is called with the completed login so the caller
// can respond to the browser, typically with a redirect into the
// application.
type SuccessResponseFunc func(result *auth.Result, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is called when the login could not be completed.
// authenErr is non-nil when the provider itself reported the failure
// via error parameters on the redirect; e carries the local failure
// otherwise. Implementations should not leak either to the browser
// beyond a generic failure indicator.
type ErrorResponseFunc func(authenErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse is the provider's authentication error response
// carried on the redirect (RFC 6749 section 4.1.2.1).
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}
