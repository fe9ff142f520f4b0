package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Aadarsha3/cms-test/identity"
	"github.com/Aadarsha3/cms-test/oidc"
	"github.com/hashicorp/go-hclog"
)

// LogoutURLFunc builds a provider end-session URL for Clear. It
// matches the signature of oidc.(Provider).LogoutURL.
type LogoutURLFunc func(ctx context.Context, idTokenHint oidc.IDToken, postLogoutRedirectURL string) (string, error)

// Store persists the session and the in-flight login attempt over a
// Storage backend. Raw token strings only ever travel between the
// Store and its Storage; everywhere else tokens stay behind their
// redacted types.
type Store struct {
	// mu guards the read-then-clear of the login attempt so a
	// replayed callback cannot take the same attempt twice.
	mu sync.Mutex

	storage            Storage
	logger             hclog.Logger
	logoutURL          LogoutURLFunc
	postLogoutRedirect string
}

// NewStore creates a Store over the given storage.
//
// Supported options: WithStoreLogger, WithLogoutURL.
func NewStore(storage Storage, opt ...oidc.Option) (*Store, error) {
	const op = "session.NewStore"
	if storage == nil {
		return nil, fmt.Errorf("%s: missing storage: %w", op, ErrNilParameter)
	}
	opts := getStoreOpts(opt...)
	return &Store{
		storage:            storage,
		logger:             opts.withLogger,
		logoutURL:          opts.withLogoutURL,
		postLogoutRedirect: opts.withPostLogoutRedirect,
	}, nil
}

// storedTokens is the persisted shape of an oidc.Token. The redacted
// token types marshal to placeholders, so persistence reads the raw
// strings through the accessors instead.
type storedTokens struct {
	AccessToken  string    `json:"access_token"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Save persists the token set and the derived user, replacing any
// previous session wholesale.
func (s *Store) Save(ctx context.Context, t *oidc.Token, user identity.AuthUser) error {
	const op = "session.(Store).Save"
	if t == nil {
		return fmt.Errorf("%s: missing token: %w", op, ErrNilParameter)
	}
	rawTokens, err := json.Marshal(storedTokens{
		AccessToken:  string(t.AccessToken()),
		IDToken:      string(t.IDToken()),
		RefreshToken: string(t.RefreshToken()),
		Expiry:       t.Expiry(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.storage.Set(ctx, KeyTokens, string(rawTokens)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.storage.Set(ctx, KeyUser, string(rawUser)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Load rebuilds the persisted session. It returns ErrNoSession when
// no session is stored.
func (s *Store) Load(ctx context.Context) (*oidc.Token, identity.AuthUser, error) {
	const op = "session.(Store).Load"
	var user identity.AuthUser

	rawTokens, err := s.storage.Get(ctx, KeyTokens)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, user, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	if err != nil {
		return nil, user, fmt.Errorf("%s: %w", op, err)
	}
	var stored storedTokens
	if err := json.Unmarshal([]byte(rawTokens), &stored); err != nil {
		return nil, user, fmt.Errorf("%s: corrupt token record: %w", op, err)
	}
	if stored.AccessToken == "" {
		// the token set is a unit; without a bearer credential there is
		// no session to restore
		return nil, user, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	t, err := oidc.RestoreToken(
		oidc.AccessToken(stored.AccessToken),
		oidc.IDToken(stored.IDToken),
		oidc.RefreshToken(stored.RefreshToken),
		stored.Expiry,
	)
	if err != nil {
		return nil, user, fmt.Errorf("%s: %w", op, err)
	}

	rawUser, err := s.storage.Get(ctx, KeyUser)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, user, fmt.Errorf("%s: %w", op, ErrNoSession)
	}
	if err != nil {
		return nil, user, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return nil, user, fmt.Errorf("%s: corrupt user record: %w", op, err)
	}
	return t, user, nil
}

// PutLoginAttempt records the in-flight login attempt before the
// browser is redirected to the provider. state may be empty when the
// provider's PKCE support makes a separate CSRF token redundant.
func (s *Store) PutLoginAttempt(ctx context.Context, state string, verifier string) error {
	const op = "session.(Store).PutLoginAttempt"
	if verifier == "" {
		return fmt.Errorf("%s: missing verifier: %w", op, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Set(ctx, KeyVerifier, verifier); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if state == "" {
		if err := s.storage.Remove(ctx, KeyState); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
	if err := s.storage.Set(ctx, KeyState, state); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// TakeLoginAttempt returns the pending attempt and clears it in the
// same critical section, so the attempt can be consumed at most once.
// It returns ErrNoLoginAttempt when nothing is pending.
func (s *Store) TakeLoginAttempt(ctx context.Context) (state string, verifier string, err error) {
	const op = "session.(Store).TakeLoginAttempt"
	s.mu.Lock()
	defer s.mu.Unlock()

	verifier, err = s.storage.Get(ctx, KeyVerifier)
	if errors.Is(err, ErrKeyNotFound) {
		return "", "", fmt.Errorf("%s: %w", op, ErrNoLoginAttempt)
	}
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	state, err = s.storage.Get(ctx, KeyState)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.storage.Remove(ctx, KeyVerifier); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.storage.Remove(ctx, KeyState); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return state, verifier, nil
}

// Clear wipes the local session and, when a LogoutURLFunc is
// configured, returns the provider end-session URL the caller should
// send the browser to. Building that URL is best effort: a provider
// without an end-session endpoint, or a failure building the URL,
// never blocks the local wipe.
func (s *Store) Clear(ctx context.Context) (string, error) {
	const op = "session.(Store).Clear"

	var logoutURL string
	if s.logoutURL != nil {
		var hint oidc.IDToken
		if t, _, err := s.Load(ctx); err == nil {
			hint = t.IDToken()
		}
		url, err := s.logoutURL(ctx, hint, s.postLogoutRedirect)
		switch {
		case err != nil:
			s.log().Warn("provider logout unavailable", "error", err)
		default:
			logoutURL = url
		}
	}

	// every key gets a removal attempt even when an earlier one fails;
	// a partial wipe must never leave the verifier or state behind
	var firstErr error
	for _, key := range []string{KeyTokens, KeyUser, KeyState, KeyVerifier} {
		if err := s.storage.Remove(ctx, key); err != nil {
			s.log().Warn("unable to remove session key", "key", key, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: removing %q: %w", op, key, err)
			}
		}
	}
	return logoutURL, firstErr
}

func (s *Store) log() hclog.Logger {
	if s.logger == nil {
		return hclog.NewNullLogger()
	}
	return s.logger
}

type storeOptions struct {
	withLogger             hclog.Logger
	withLogoutURL          LogoutURLFunc
	withPostLogoutRedirect string
}

func storeDefaults() storeOptions {
	return storeOptions{}
}

func getStoreOpts(opt ...oidc.Option) storeOptions {
	opts := storeDefaults()
	oidc.ApplyOpts(&opts, opt...)
	return opts
}

// WithStoreLogger provides an optional logger for non-fatal events,
// like a provider logout that could not be arranged.
func WithStoreLogger(l hclog.Logger) oidc.Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok {
			o.withLogger = l
		}
	}
}

// WithLogoutURL wires provider logout into Clear. fn is typically
// oidc.(Provider).LogoutURL and postLogoutRedirectURL is where the
// provider should send the browser afterwards.
func WithLogoutURL(fn LogoutURLFunc, postLogoutRedirectURL string) oidc.Option {
	return func(o interface{}) {
		if o, ok := o.(*storeOptions); ok {
			o.withLogoutURL = fn
			o.withPostLogoutRedirect = postLogoutRedirectURL
		}
	}
}
