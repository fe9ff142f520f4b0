package auth

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/Aadarsha3/cms-test/identity"
	"github.com/Aadarsha3/cms-test/oidc"
	"github.com/Aadarsha3/cms-test/session"
	"github.com/hashicorp/go-hclog"
)

// Result is a completed login: the exchanged token set and the user
// derived from its claims. The same values are persisted to the
// session store before Result is returned.
type Result struct {
	Token *oidc.Token
	User  identity.AuthUser
}

// Flow drives one login at a time against a provider. A Flow is safe
// for concurrent use; concurrent callback deliveries race on an
// atomic latch and exactly one proceeds to the token exchange.
type Flow struct {
	provider *oidc.Provider
	store    *session.Store
	logger   hclog.Logger

	// completed is the one-shot callback latch. BeginLogin re-arms it.
	completed atomic.Bool
}

// NewFlow creates a Flow over the given provider and session store.
//
// Supported options: WithFlowLogger.
func NewFlow(p *oidc.Provider, store *session.Store, opt ...oidc.Option) (*Flow, error) {
	const op = "auth.NewFlow"
	if p == nil {
		return nil, fmt.Errorf("%s: missing provider: %w", op, ErrNilParameter)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: missing session store: %w", op, ErrNilParameter)
	}
	opts := getFlowOpts(opt...)
	return &Flow{
		provider: p,
		store:    store,
		logger:   opts.withLogger,
	}, nil
}

// BeginLogin starts a login attempt and returns the authorization URL
// to send the browser to. PKCE is always used. A state token is only
// minted when the provider's discovery document does not advertise
// S256 support, where it serves as the CSRF check the verifier would
// otherwise provide. The attempt is persisted before the URL is
// returned so the callback can never arrive ahead of its verifier.
func (f *Flow) BeginLogin(ctx context.Context) (string, error) {
	const op = "auth.(Flow).BeginLogin"

	md, err := f.provider.Metadata(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	v, err := oidc.NewCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var state string
	if !md.SupportsPKCE {
		state, err = oidc.NewID(oidc.WithPrefix("st"))
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := f.store.PutLoginAttempt(ctx, state, v.Verifier()); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	authURL, err := f.provider.AuthURL(ctx, v, state)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	f.completed.Store(false)
	f.log().Debug("login attempt started", "with_state", state != "")
	return authURL, nil
}

// CompleteLogin consumes the provider callback. currentURL is the
// full URL the browser was redirected back to. The first invocation
// per attempt wins; any later one returns ErrAlreadyCompleted without
// contacting the provider. A state mismatch aborts before the token
// exchange. Unreadable role claims downgrade to the default role
// instead of failing the login.
func (f *Flow) CompleteLogin(ctx context.Context, currentURL *url.URL) (*Result, error) {
	const op = "auth.(Flow).CompleteLogin"
	if currentURL == nil {
		return nil, fmt.Errorf("%s: missing current URL: %w", op, ErrNilParameter)
	}
	if !f.completed.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%s: %w", op, ErrAlreadyCompleted)
	}

	q := currentURL.Query()
	if e := q.Get("error"); e != "" {
		// consume the attempt so its verifier cannot be replayed
		if _, _, err := f.store.TakeLoginAttempt(ctx); err != nil {
			f.log().Debug("no login attempt to discard", "error", err)
		}
		return nil, fmt.Errorf("%s: provider returned %q (%s): %w", op, e, q.Get("error_description"), oidc.ErrLoginFailed)
	}
	code := q.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%s: %w", op, oidc.ErrMissingAuthCode)
	}

	state, verifier, err := f.store.TakeLoginAttempt(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if state != "" && state != q.Get("state") {
		return nil, fmt.Errorf("%s: %w", op, oidc.ErrStateMismatch)
	}

	t, err := f.provider.Exchange(ctx, verifier, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := f.deriveUser(t)
	if err := f.store.Save(ctx, t, user); err != nil {
		// the user is authenticated either way; they just will not
		// survive a restart
		f.log().Warn("unable to persist session", "error", err)
	}
	return &Result{Token: t, User: user}, nil
}

// deriveUser decodes claims from both tokens. Role claims come from
// the access token, which is where providers put authorization data.
// Profile claims come from the ID token.
func (f *Flow) deriveUser(t *oidc.Token) identity.AuthUser {
	roleClaims, err := identity.DecodeClaims(string(t.AccessToken()))
	if err != nil {
		// opaque access tokens are valid; roles fall back to the
		// ID token's claims
		f.log().Debug("access token carries no readable claims", "error", err)
	}
	profileClaims, err := identity.DecodeClaims(string(t.IDToken()))
	if err != nil {
		f.log().Warn("unable to decode ID token claims", "error", err)
	}
	if roleClaims == nil {
		roleClaims = profileClaims
	}
	return identity.DeriveUser(profileClaims, roleClaims, f.provider.Config().ClientID)
}

func (f *Flow) log() hclog.Logger {
	if f.logger == nil {
		return hclog.NewNullLogger()
	}
	return f.logger
}

type flowOptions struct {
	withLogger hclog.Logger
}

func getFlowOpts(opt ...oidc.Option) flowOptions {
	opts := flowOptions{}
	oidc.ApplyOpts(&opts, opt...)
	return opts
}

// WithFlowLogger provides an optional logger for flow events.
func WithFlowLogger(l hclog.Logger) oidc.Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok {
			o.withLogger = l
		}
	}
}
