package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testStorages(t *testing.T) map[string]Storage {
	t.Helper()
	file, err := NewFileStorage(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	keyring.MockInit()
	return map[string]Storage{
		"memory":  NewMemoryStorage(),
		"file":    file,
		"keyring": NewKeyringStorage("college-console-test"),
	}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()
	for name, storage := range testStorages(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("set-get", func(t *testing.T) {
				require := require.New(t)
				require.NoError(storage.Set(ctx, KeyState, "st_abc"))
				got, err := storage.Get(ctx, KeyState)
				require.NoError(err)
				require.Equal("st_abc", got)
			})
			t.Run("overwrite", func(t *testing.T) {
				require := require.New(t)
				require.NoError(storage.Set(ctx, KeyVerifier, "first"))
				require.NoError(storage.Set(ctx, KeyVerifier, "second"))
				got, err := storage.Get(ctx, KeyVerifier)
				require.NoError(err)
				require.Equal("second", got)
			})
			t.Run("missing-key", func(t *testing.T) {
				require := require.New(t)
				_, err := storage.Get(ctx, "auth:missing")
				require.Error(err)
				require.True(errors.Is(err, ErrKeyNotFound))
			})
			t.Run("remove", func(t *testing.T) {
				require := require.New(t)
				require.NoError(storage.Set(ctx, KeyUser, "{}"))
				require.NoError(storage.Remove(ctx, KeyUser))
				_, err := storage.Get(ctx, KeyUser)
				require.True(errors.Is(err, ErrKeyNotFound))
			})
			t.Run("remove-absent-is-not-an-error", func(t *testing.T) {
				require.NoError(t, storage.Remove(ctx, "auth:missing"))
			})
		})
	}
}

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	t.Run("missing-path", func(t *testing.T) {
		require := require.New(t)
		_, err := NewFileStorage("")
		require.Error(err)
		require.True(errors.Is(err, ErrInvalidParameter))
	})
	t.Run("owner-only-permissions", func(t *testing.T) {
		require := require.New(t)
		path := filepath.Join(t.TempDir(), "session.json")
		s, err := NewFileStorage(path)
		require.NoError(err)
		require.NoError(s.Set(ctx, KeyTokens, "{}"))
		info, err := os.Stat(path)
		require.NoError(err)
		require.Equal(os.FileMode(0o600), info.Mode().Perm())
	})
	t.Run("survives-reopen", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		path := filepath.Join(t.TempDir(), "session.json")
		first, err := NewFileStorage(path)
		require.NoError(err)
		require.NoError(first.Set(ctx, KeyUser, `{"id":"abc"}`))

		second, err := NewFileStorage(path)
		require.NoError(err)
		got, err := second.Get(ctx, KeyUser)
		require.NoError(err)
		assert.Equal(`{"id":"abc"}`, got)
	})
	t.Run("corrupt-file", func(t *testing.T) {
		require := require.New(t)
		path := filepath.Join(t.TempDir(), "session.json")
		require.NoError(os.WriteFile(path, []byte("not-json"), 0o600))
		s, err := NewFileStorage(path)
		require.NoError(err)
		_, err = s.Get(ctx, KeyUser)
		require.Error(err)
	})
}
