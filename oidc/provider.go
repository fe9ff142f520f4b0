package oidc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/Aadarsha3/cms-test/oidc/internal/strutils"
)

// ProviderMetadata is the subset of the provider's discovery document the
// console cares about.  It is immutable once resolved: the Provider caches
// it for its lifetime and a fresh Provider (or Reset) re-resolves.
type ProviderMetadata struct {
	// Issuer is the provider's issuer identifier, which must match the
	// configured issuer.
	Issuer string `json:"issuer"`

	// AuthorizationEndpoint is where the user's browser is sent to
	// authenticate.
	AuthorizationEndpoint string `json:"authorization_endpoint"`

	// TokenEndpoint is where authorization codes are exchanged for tokens.
	TokenEndpoint string `json:"token_endpoint"`

	// UserInfoEndpoint is the optional userinfo endpoint.
	UserInfoEndpoint string `json:"userinfo_endpoint,omitempty"`

	// EndSessionEndpoint is the optional RP-initiated logout endpoint.
	EndSessionEndpoint string `json:"end_session_endpoint,omitempty"`

	// IDTokenSigningAlgs are the signing algorithms the provider supports for
	// id_tokens.
	IDTokenSigningAlgs []string `json:"id_token_signing_alg_values_supported,omitempty"`

	// CodeChallengeMethods are the PKCE challenge methods the provider
	// advertises support for.  An empty list means support cannot be
	// confirmed, not that PKCE will be rejected: PKCE parameters are
	// backward compatible and ignored by providers that don't support them.
	CodeChallengeMethods []string `json:"code_challenge_methods_supported,omitempty"`

	// SupportsPKCE is true when the provider advertises the S256 challenge
	// method.
	SupportsPKCE bool `json:"-"`
}

// Provider provides integration with an OIDC provider using the typical
// 3-legged authorization code flow with PKCE.
//
// Provider resolves the provider's discovery document lazily and exactly once
// per Provider lifetime: concurrent callers of Metadata collapse into a
// single underlying fetch and all observe the same resolved value.  Failed
// resolutions are not cached.
type Provider struct {
	config *Config
	client *http.Client

	mu       sync.Mutex
	provider *oidc.Provider
	metadata *ProviderMetadata

	// backgroundCtx is the context used by the provider for background
	// activities like refreshing JWKs key sets.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates a Provider for the OIDC authorization code flow.  No
// network request is made here: discovery happens on first use (see
// Metadata).
//
// See Provider.Done() which must be called to release provider resources.
func NewProvider(c *Config) (*Provider, error) {
	const op = "oidc.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Provider{
		config:              c,
		client:              client,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// Config returns the provider's local configuration.
func (p *Provider) Config() *Config { return p.config }

// Metadata returns the provider's resolved discovery metadata, performing
// the one-time discovery request on first use.  It is idempotent and safe to
// call concurrently before the first resolution completes: later callers
// wait on the same resolution rather than issuing duplicate requests.
//
// Failures wrap ErrDiscovery and must be surfaced as "cannot start login";
// they are not cached, so a later call may retry.
func (p *Provider) Metadata(ctx context.Context) (*ProviderMetadata, error) {
	const op = "Provider.Metadata"
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.metadata != nil {
		md := *p.metadata
		return &md, nil
	}

	provider, err := oidc.NewProvider(HTTPClientContext(ctx, p.client), p.config.Issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to resolve provider %s: %w", op, p.config.Issuer, ErrDiscovery)
	}
	var md ProviderMetadata
	if err := provider.Claims(&md); err != nil {
		return nil, fmt.Errorf("%s: malformed discovery document: %w", op, ErrDiscovery)
	}
	md.SupportsPKCE = strutils.StrListContains(md.CodeChallengeMethods, string(S256))

	p.provider = provider
	p.metadata = &md

	cp := md
	return &cp, nil
}

// Reset clears the cached discovery metadata, so the next call re-resolves.
// It exists for tests and long-lived processes that need to pick up provider
// changes; normal logins never need it.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.provider = nil
	p.metadata = nil
}

// AuthURL will generate the URL the caller should navigate the user to in
// order to kick off the authorization code flow.  The PKCE challenge (never
// the verifier) is always included; state should be empty when the resolved
// metadata confirms PKCE support and non-empty otherwise, and AuthURL will
// omit the state parameter when it's empty.
//
// The URL carries: response_type=code, client_id, redirect_uri, the
// requested scopes (with "openid" always included), code_challenge,
// code_challenge_method and conditionally state.
func (p *Provider) AuthURL(ctx context.Context, v CodeVerifier, state string) (string, error) {
	const op = "Provider.AuthURL"
	if v == nil {
		return "", fmt.Errorf("%s: code verifier is nil: %w", op, ErrNilParameter)
	}
	md, err := p.Metadata(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	// Add the "openid" scope, which is a required scope for oidc flows
	scopes := append([]string{oidc.ScopeOpenID}, p.config.Scopes...)

	oauth2Config := oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  p.config.RedirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  md.AuthorizationEndpoint,
			TokenURL: md.TokenEndpoint,
		},
	}
	authCodeOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", v.Challenge()),
		oauth2.SetAuthURLParam("code_challenge_method", string(v.Method())),
	}
	return oauth2Config.AuthCodeURL(state, authCodeOpts...), nil
}

// Exchange will request tokens from the provider's token endpoint, using the
// authorization code returned in the callback and the code verifier (never
// the challenge) that was retained across the redirect round-trip.  This is
// the single network call that converts a one-time code into durable tokens.
//
// Authorization codes are single-use: failed exchanges wrap ErrTokenExchange
// and must not be retried.
func (p *Provider) Exchange(ctx context.Context, verifier string, authorizationCode string) (*Token, error) {
	const op = "Provider.Exchange"
	if verifier == "" {
		return nil, fmt.Errorf("%s: code verifier is empty: %w", op, ErrInvalidParameter)
	}
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAuthCode)
	}
	md, err := p.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	scopes := append([]string{oidc.ScopeOpenID}, p.config.Scopes...)
	oauth2Config := oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  p.config.RedirectURL,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  md.AuthorizationEndpoint,
			TokenURL: md.TokenEndpoint,
		},
	}

	oidcCtx := HTTPClientContext(ctx, p.client)
	oauth2Token, err := oauth2Config.Exchange(oidcCtx, authorizationCode,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code with provider: %v: %w", op, err, ErrTokenExchange)
	}

	idToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("%s: id_token is missing from auth code exchange: %w", op, ErrMissingIDToken)
	}
	t, err := NewToken(IDToken(idToken), oauth2Token)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create new token: %w", op, err)
	}
	return t, nil
}

// UserInfo gets the UserInfo claims from the provider using the token
// produced by the tokenSource.
func (p *Provider) UserInfo(ctx context.Context, tokenSource oauth2.TokenSource, claims interface{}) error {
	const op = "Provider.UserInfo"
	if tokenSource == nil {
		return fmt.Errorf("%s: token source is nil: %w", op, ErrNilParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	if _, err := p.Metadata(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.mu.Lock()
	provider := p.provider
	p.mu.Unlock()

	oidcCtx := HTTPClientContext(ctx, p.client)
	userinfo, err := provider.UserInfo(oidcCtx, tokenSource)
	if err != nil {
		return fmt.Errorf("%s: provider UserInfo request failed: %v: %w", op, err, ErrUserInfoFailed)
	}
	if err := userinfo.Claims(claims); err != nil {
		return fmt.Errorf("%s: failed to get UserInfo claims: %w", op, err)
	}
	return nil
}

// LogoutURL builds a best-effort RP-initiated logout URL from the provider's
// end_session_endpoint, using the id_token as a hint.  Callers must treat
// failures as advisory only: local session clearing never depends on this.
func (p *Provider) LogoutURL(ctx context.Context, idTokenHint IDToken, postLogoutRedirectURL string) (string, error) {
	const op = "Provider.LogoutURL"
	md, err := p.Metadata(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if md.EndSessionEndpoint == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEndSessionUnsupported)
	}
	u, err := url.Parse(md.EndSessionEndpoint)
	if err != nil {
		return "", fmt.Errorf("%s: end session endpoint is invalid: %w", op, err)
	}
	q := u.Query()
	q.Set("client_id", p.config.ClientID)
	if idTokenHint != "" {
		q.Set("id_token_hint", string(idTokenHint))
	}
	if postLogoutRedirectURL != "" {
		q.Set("post_logout_redirect_uri", postLogoutRedirectURL)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
