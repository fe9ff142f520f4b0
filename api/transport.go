package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Aadarsha3/cms-test/session"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
)

// ErrNilParameter represents an unexpected nil parameter.
var ErrNilParameter = errors.New("nil parameter")

// UnauthorizedFunc is notified after a request came back 401 and the
// local session was cleared, so the application can send the user
// back through login.
type UnauthorizedFunc func(ctx context.Context)

// Transport is an http.RoundTripper that attaches the stored bearer
// token and clears the session on a 401 response. Requests without a
// stored session go out unauthenticated rather than failing, since
// some endpoints are public.
type Transport struct {
	base           http.RoundTripper
	store          *session.Store
	onUnauthorized UnauthorizedFunc
	logger         hclog.Logger
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport creates a Transport over the session store.
//
// Supported options: WithBase, WithOnUnauthorized, WithTransportLogger.
func NewTransport(store *session.Store, opt ...Option) (*Transport, error) {
	const op = "api.NewTransport"
	if store == nil {
		return nil, fmt.Errorf("%s: missing session store: %w", op, ErrNilParameter)
	}
	opts := getOpts(opt...)
	base := opts.withBase
	if base == nil {
		base = cleanhttp.DefaultPooledTransport()
	}
	return &Transport{
		base:           base,
		store:          store,
		onUnauthorized: opts.withOnUnauthorized,
		logger:         opts.withLogger,
	}, nil
}

// NewClient creates an http.Client whose transport is a NewTransport.
func NewClient(store *session.Store, opt ...Option) (*http.Client, error) {
	t, err := NewTransport(store, opt...)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: t}, nil
}

// RoundTrip satisfies the http.RoundTripper interface.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	// RoundTrippers must not mutate the caller's request
	req = req.Clone(ctx)
	if tok, _, err := t.store.Load(ctx); err == nil {
		req.Header.Set("Authorization", "Bearer "+string(tok.AccessToken()))
	} else if !errors.Is(err, session.ErrNoSession) {
		t.log().Warn("unable to load session for request", "error", err)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if _, err := t.store.Clear(ctx); err != nil {
			t.log().Warn("unable to clear rejected session", "error", err)
		}
		if t.onUnauthorized != nil {
			t.onUnauthorized(ctx)
		}
	}
	return resp, nil
}

func (t *Transport) log() hclog.Logger {
	if t.logger == nil {
		return hclog.NewNullLogger()
	}
	return t.logger
}

// Option configures a Transport.
type Option func(interface{})

type options struct {
	withBase           http.RoundTripper
	withOnUnauthorized UnauthorizedFunc
	withLogger         hclog.Logger
}

func getOpts(opt ...Option) options {
	var opts options
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithBase sets the underlying RoundTripper. Defaults to
// cleanhttp.DefaultPooledTransport.
func WithBase(rt http.RoundTripper) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withBase = rt
		}
	}
}

// WithOnUnauthorized sets the 401 notification callback.
func WithOnUnauthorized(fn UnauthorizedFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withOnUnauthorized = fn
		}
	}
}

// WithTransportLogger provides an optional logger for non-fatal
// storage failures.
func WithTransportLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withLogger = l
		}
	}
}
