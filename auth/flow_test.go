package auth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/Aadarsha3/cms-test/identity"
	"github.com/Aadarsha3/cms-test/oidc"
	"github.com/Aadarsha3/cms-test/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedirectURL = "http://localhost:8080/oauth2/callback"

type testHarness struct {
	tp      *oidc.TestProvider
	flow    *Flow
	store   *session.Store
	storage *session.MemoryStorage
}

func testFlow(t *testing.T) *testHarness {
	t.Helper()
	require := require.New(t)

	tp := oidc.StartTestProvider(t)
	tp.SetClientCreds("console-client", "")
	tp.SetExpectedAuthCode("test-code")
	tp.SetAllowedRedirectURIs([]string{testRedirectURL})

	cfg, err := oidc.NewConfig(tp.Addr(), "console-client", "", []oidc.Alg{oidc.ES256},
		testRedirectURL, oidc.WithProviderCA(tp.CACert()))
	require.NoError(err)
	p, err := oidc.NewProvider(cfg)
	require.NoError(err)
	t.Cleanup(p.Done)

	storage := session.NewMemoryStorage()
	store, err := session.NewStore(storage)
	require.NoError(err)
	f, err := NewFlow(p, store)
	require.NoError(err)

	return &testHarness{tp: tp, flow: f, store: store, storage: storage}
}

// begin runs BeginLogin and arms the stub provider with the challenge
// the flow generated, the way a real provider learns it from the
// authorization request.
func (h *testHarness) begin(t *testing.T, ctx context.Context) *url.URL {
	t.Helper()
	require := require.New(t)
	authURL, err := h.flow.BeginLogin(ctx)
	require.NoError(err)
	u, err := url.Parse(authURL)
	require.NoError(err)
	require.NotEmpty(u.Query().Get("code_challenge"))
	h.tp.SetExpectedChallenge(u.Query().Get("code_challenge"))
	return u
}

func callbackURL(t *testing.T, rawQuery string) *url.URL {
	t.Helper()
	u, err := url.Parse(testRedirectURL + "?" + rawQuery)
	require.NoError(t, err)
	return u
}

func TestNewFlow(t *testing.T) {
	require := require.New(t)
	_, err := NewFlow(nil, nil)
	require.Error(err)
	require.True(errors.Is(err, ErrNilParameter))
}

func TestFlow_BeginLogin(t *testing.T) {
	ctx := context.Background()
	t.Run("pkce-provider-gets-no-state", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		h := testFlow(t)

		u := h.begin(t, ctx)
		q := u.Query()
		assert.False(q.Has("state"))
		assert.Equal("S256", q.Get("code_challenge_method"))

		// the verifier is on disk before the browser leaves
		state, verifier, err := h.store.TakeLoginAttempt(ctx)
		require.NoError(err)
		assert.Empty(state)
		assert.NotEmpty(verifier)
	})
	t.Run("non-pkce-provider-gets-state", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		h := testFlow(t)
		h.tp.SetSupportsPKCE(false)

		u := h.begin(t, ctx)
		q := u.Query()
		assert.NotEmpty(q.Get("state"))
		// PKCE is still sent even when the provider does not advertise it
		assert.NotEmpty(q.Get("code_challenge"))

		state, _, err := h.store.TakeLoginAttempt(ctx)
		require.NoError(err)
		assert.Equal(q.Get("state"), state)
	})
	t.Run("fresh-verifier-per-attempt", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)

		first := h.begin(t, ctx).Query().Get("code_challenge")
		second := h.begin(t, ctx).Query().Get("code_challenge")
		require.NotEqual(first, second)
	})
}

func TestFlow_CompleteLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("basics", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		h := testFlow(t)
		h.tp.SetCustomClaims(map[string]interface{}{
			"realm_access": map[string]interface{}{
				"roles": []string{"admin", "student"},
			},
		})
		h.begin(t, ctx)

		got, err := h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
		require.NoError(err)
		assert.True(got.Token.Valid())
		assert.Equal("oidc|student-emily", got.User.ID)
		assert.Equal("OIDC_oidc|stu", got.User.UserID)
		assert.Equal("Emily Parker", got.User.Name)
		assert.Equal("emily.parker@college.edu", got.User.Email)
		assert.Equal(identity.RoleAdmin, got.User.Role)
		assert.Equal(identity.DefaultDepartment, got.User.Department)

		// session persisted for the next process start
		_, storedUser, err := h.store.Load(ctx)
		require.NoError(err)
		assert.Equal(got.User, storedUser)
	})
	t.Run("no-role-claims-default-to-student", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.begin(t, ctx)

		got, err := h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
		require.NoError(err)
		require.Equal(identity.DefaultRole, got.User.Role)
	})
	t.Run("second-delivery-rejected", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.begin(t, ctx)

		_, err := h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
		require.NoError(err)
		tokenRequests := h.tp.TokenRequestCount()

		_, err = h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
		require.Error(err)
		require.True(errors.Is(err, ErrAlreadyCompleted))
		require.Equal(tokenRequests, h.tp.TokenRequestCount())
	})
	t.Run("concurrent-deliveries-one-winner", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.begin(t, ctx)

		const deliveries = 8
		errs := make([]error, deliveries)
		var wg sync.WaitGroup
		for i := 0; i < deliveries; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
			}(i)
		}
		wg.Wait()

		var succeeded int
		for _, err := range errs {
			if err == nil {
				succeeded++
			}
		}
		require.Equal(1, succeeded)
		require.Equal(1, h.tp.TokenRequestCount())
	})
	t.Run("state-mismatch-aborts-before-exchange", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.tp.SetSupportsPKCE(false)
		h.begin(t, ctx)

		_, err := h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code&state=st_forged"))
		require.Error(err)
		require.True(errors.Is(err, oidc.ErrStateMismatch))
		require.Equal(0, h.tp.TokenRequestCount())
	})
	t.Run("matching-state-proceeds", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.tp.SetSupportsPKCE(false)
		u := h.begin(t, ctx)

		got, err := h.flow.CompleteLogin(ctx,
			callbackURL(t, "code=test-code&state="+url.QueryEscape(u.Query().Get("state"))))
		require.NoError(err)
		require.True(got.Token.Valid())
	})
	t.Run("provider-error-param", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.begin(t, ctx)

		_, err := h.flow.CompleteLogin(ctx,
			callbackURL(t, "error=access_denied&error_description=user+cancelled"))
		require.Error(err)
		require.True(errors.Is(err, oidc.ErrLoginFailed))
		require.Equal(0, h.tp.TokenRequestCount())

		// the attempt is discarded with the failure
		_, _, err = h.store.TakeLoginAttempt(ctx)
		require.True(errors.Is(err, session.ErrNoLoginAttempt))
	})
	t.Run("missing-code", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.begin(t, ctx)

		_, err := h.flow.CompleteLogin(ctx, callbackURL(t, "foo=bar"))
		require.Error(err)
		require.True(errors.Is(err, oidc.ErrMissingAuthCode))
	})
	t.Run("callback-without-attempt", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)

		_, err := h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
		require.Error(err)
		require.True(errors.Is(err, session.ErrNoLoginAttempt))
	})
	t.Run("wrong-code-is-terminal", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.begin(t, ctx)

		_, err := h.flow.CompleteLogin(ctx, callbackURL(t, "code=stale-code"))
		require.Error(err)
		require.True(errors.Is(err, oidc.ErrTokenExchange))

		// terminal per attempt: the latch stays consumed
		_, err = h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
		require.True(errors.Is(err, ErrAlreadyCompleted))
	})
	t.Run("relogin-after-success", func(t *testing.T) {
		require := require.New(t)
		h := testFlow(t)
		h.begin(t, ctx)
		_, err := h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
		require.NoError(err)

		// a new BeginLogin re-arms the latch
		h.begin(t, ctx)
		got, err := h.flow.CompleteLogin(ctx, callbackURL(t, "code=test-code"))
		require.NoError(err)
		require.True(got.Token.Valid())
	})
}
