package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Aadarsha3/cms-test/auth"
)

// AuthCode creates an http.HandlerFunc for the authorization code
// callback. The flow does the protocol work (one-shot latch, state
// check, token exchange, identity derivation, session persistence);
// the handler only translates the HTTP request into a flow call and
// the outcome into one of the response funcs.
//
// The ctx passed in is the handler's lifetime context, not a
// per-request one, so shutting it down stops in-flight exchanges.
func AuthCode(ctx context.Context, f *auth.Flow, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	if f == nil {
		return nil, fmt.Errorf("%s: missing flow: %w", op, auth.ErrNilParameter)
	}
	if sFn == nil {
		return nil, fmt.Errorf("%s: missing success response func: %w", op, auth.ErrNilParameter)
	}
	if eFn == nil {
		return nil, fmt.Errorf("%s: missing error response func: %w", op, auth.ErrNilParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		result, err := f.CompleteLogin(ctx, req.URL)
		if err != nil {
			var authenErr *AuthenErrorResponse
			q := req.URL.Query()
			if e := q.Get("error"); e != "" {
				authenErr = &AuthenErrorResponse{
					Error:       e,
					Description: q.Get("error_description"),
					Uri:         q.Get("error_uri"),
				}
			}
			eFn(authenErr, err, w, req)
			return
		}
		sFn(result, w, req)
	}, nil
}
