package oidc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestNewToken(t *testing.T) {
	t.Run("basics", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		expiry := time.Now().Add(1 * time.Minute)
		got, err := NewToken("test-id-token", &oauth2.Token{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			Expiry:       expiry,
		})
		require.NoError(err)
		assert.Equal(IDToken("test-id-token"), got.IDToken())
		assert.Equal(AccessToken("test-access-token"), got.AccessToken())
		assert.Equal(RefreshToken("test-refresh-token"), got.RefreshToken())
		assert.Equal(expiry, got.Expiry())
		assert.True(got.Valid())
	})
	t.Run("missing-id-token", func(t *testing.T) {
		require := require.New(t)
		_, err := NewToken("", &oauth2.Token{AccessToken: "test-access-token"})
		require.Error(err)
		require.True(errors.Is(err, ErrInvalidParameter))
	})
	t.Run("missing-access-token", func(t *testing.T) {
		require := require.New(t)
		_, err := NewToken("test-id-token", &oauth2.Token{})
		require.Error(err)
		require.True(errors.Is(err, ErrMissingAccessToken))
	})
	t.Run("nil-oauth2-token", func(t *testing.T) {
		require := require.New(t)
		_, err := NewToken("test-id-token", nil)
		require.Error(err)
		require.True(errors.Is(err, ErrNilParameter))
	})
}

func TestRestoreToken(t *testing.T) {
	t.Run("round-trip", func(t *testing.T) {
		require := require.New(t)
		expiry := time.Now().Add(1 * time.Minute)
		orig, err := NewToken("test-id-token", &oauth2.Token{
			AccessToken: "test-access-token",
			Expiry:      expiry,
		})
		require.NoError(err)
		got, err := RestoreToken(orig.AccessToken(), orig.IDToken(), orig.RefreshToken(), orig.Expiry())
		require.NoError(err)
		require.Equal(orig, got)
	})
	t.Run("empty-access-token-is-not-a-session", func(t *testing.T) {
		require := require.New(t)
		_, err := RestoreToken("", "test-id-token", "", time.Time{})
		require.Error(err)
		require.True(errors.Is(err, ErrMissingAccessToken))
	})
}

func TestToken_Expired(t *testing.T) {
	t.Run("not-expired", func(t *testing.T) {
		require := require.New(t)
		tk, err := RestoreToken("test-access-token", "", "", time.Now().Add(1*time.Minute))
		require.NoError(err)
		require.False(tk.Expired())
		require.True(tk.Valid())
	})
	t.Run("expired", func(t *testing.T) {
		require := require.New(t)
		tk, err := RestoreToken("test-access-token", "", "", time.Now().Add(-1*time.Minute))
		require.NoError(err)
		require.True(tk.Expired())
		require.False(tk.Valid())
	})
	t.Run("zero-expiry-means-unknown", func(t *testing.T) {
		require := require.New(t)
		tk, err := RestoreToken("test-access-token", "", "", time.Time{})
		require.NoError(err)
		require.False(tk.Expired())
		require.True(tk.Valid())
	})
	t.Run("expiry-skew", func(t *testing.T) {
		require := require.New(t)
		tk, err := RestoreToken("test-access-token", "", "", time.Now().Add(5*time.Second))
		require.NoError(err)
		require.True(tk.Expired()) // within the default 10s skew
		require.False(tk.Expired(WithExpirySkew(0)))
	})
}

func TestToken_redaction(t *testing.T) {
	require := require.New(t)
	require.Equal(RedactedAccessToken, AccessToken("secret").String())
	require.Equal(RedactedRefreshToken, RefreshToken("secret").String())
	require.Equal(RedactedIDToken, IDToken("secret").String())
}

func TestToken_StaticTokenSource(t *testing.T) {
	require := require.New(t)
	tk, err := RestoreToken("test-access-token", "", "", time.Now().Add(1*time.Minute))
	require.NoError(err)
	src := tk.StaticTokenSource()
	require.NotNil(src)
	got, err := src.Token()
	require.NoError(err)
	require.Equal("test-access-token", got.AccessToken)
}
