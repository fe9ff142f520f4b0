package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveUser(t *testing.T) {
	const clientID = "console-client"

	t.Run("basics", func(t *testing.T) {
		assert := assert.New(t)
		profile := Claims{
			"sub":     "oidc|student-emily",
			"name":    "Emily Chen",
			"email":   "emily@college.edu",
			"picture": "https://id.college.edu/avatars/emily.png",
		}
		roles := Claims{
			"realm_access": map[string]interface{}{
				"roles": []interface{}{"admin", "student"},
			},
		}

		got := DeriveUser(profile, roles, clientID)
		assert.Equal("oidc|student-emily", got.ID)
		assert.Equal("OIDC_oidc|stu", got.UserID)
		assert.Equal("Emily Chen", got.Name)
		assert.Equal("emily@college.edu", got.Email)
		assert.Equal(RoleAdmin, got.Role)
		assert.Equal(DefaultDepartment, got.Department)
		assert.Equal("https://id.college.edu/avatars/emily.png", got.AvatarURL)
	})
	t.Run("no-recognized-role-defaults-to-student", func(t *testing.T) {
		got := DeriveUser(Claims{"sub": "abc12345"}, Claims{"scope": "openid"}, clientID)
		require.Equal(t, DefaultRole, got.Role)
	})
	t.Run("empty-name-skipped", func(t *testing.T) {
		got := DeriveUser(Claims{
			"name":               "",
			"preferred_username": "jdoe",
			"email":              "j@x.com",
		}, nil, clientID)
		require.Equal(t, "jdoe", got.Name)
	})
	t.Run("name-falls-back-to-email", func(t *testing.T) {
		got := DeriveUser(Claims{"email": "j@x.com"}, nil, clientID)
		require.Equal(t, "j@x.com", got.Name)
	})
	t.Run("placeholder-name", func(t *testing.T) {
		got := DeriveUser(Claims{"sub": "abc"}, nil, clientID)
		require.Equal(t, DefaultDisplayName, got.Name)
	})
	t.Run("short-subject-kept-whole", func(t *testing.T) {
		got := DeriveUser(Claims{"sub": "abc"}, nil, clientID)
		require.Equal(t, "OIDC_abc", got.UserID)
	})
	t.Run("nil-claims", func(t *testing.T) {
		assert := assert.New(t)
		got := DeriveUser(nil, nil, clientID)
		assert.Equal("unknown", got.ID)
		assert.Equal("OIDC_USER", got.UserID)
		assert.Equal(DefaultDisplayName, got.Name)
		assert.Equal("unknown@example.com", got.Email)
		assert.Equal(DefaultRole, got.Role)
		assert.Equal(DefaultDepartment, got.Department)
		assert.Empty(got.AvatarURL)
	})
}
