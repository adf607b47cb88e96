package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	auth "github.com/Tanmay4803/LeanCircle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarInitials(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"Peter Quill", "PQ"},
		{"Peter Jason Quill", "PJ"},
		{"peter", "P"},
		{"  gamora   zen whoberi  ", "GZ"},
		{"", ""},
		{"X Æ", "XÆ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.AvatarInitials(tt.name))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", auth.NormalizeEmail("  User@Example.COM "))
	assert.Equal(t, "", auth.NormalizeEmail("   "))
}

func TestUser_ChangedPasswordAfter(t *testing.T) {
	t.Run("false when password never changed", func(t *testing.T) {
		user := &auth.User{}
		assert.False(t, user.ChangedPasswordAfter(time.Now()))
	})

	t.Run("true for tokens issued before the change", func(t *testing.T) {
		changed := time.Now()
		user := &auth.User{PasswordChangedAt: &changed}

		assert.True(t, user.ChangedPasswordAfter(changed.Add(-5*time.Second)))
	})

	t.Run("false for tokens issued after the change", func(t *testing.T) {
		changed := time.Now()
		user := &auth.User{PasswordChangedAt: &changed}

		assert.False(t, user.ChangedPasswordAfter(changed.Add(5*time.Second)))
	})

	t.Run("second granularity matches JWT iat resolution", func(t *testing.T) {
		changed := time.Unix(1700000000, 500_000_000)
		user := &auth.User{PasswordChangedAt: &changed}

		// Same unix second, different sub-second offsets
		assert.False(t, user.ChangedPasswordAfter(time.Unix(1700000000, 0)))
	})
}

func TestUser_HasLiveRefreshToken(t *testing.T) {
	now := time.Now()

	t.Run("false without a stored token", func(t *testing.T) {
		user := &auth.User{}
		assert.False(t, user.HasLiveRefreshToken(now))
	})

	t.Run("false without an expiry", func(t *testing.T) {
		user := &auth.User{RefreshToken: "token"}
		assert.False(t, user.HasLiveRefreshToken(now))
	})

	t.Run("true before the expiry", func(t *testing.T) {
		expires := now.Add(time.Hour)
		user := &auth.User{RefreshToken: "token", RefreshTokenExpiresAt: &expires}
		assert.True(t, user.HasLiveRefreshToken(now))
	})

	t.Run("false after the expiry", func(t *testing.T) {
		expires := now.Add(-time.Hour)
		user := &auth.User{RefreshToken: "token", RefreshTokenExpiresAt: &expires}
		assert.False(t, user.HasLiveRefreshToken(now))
	})
}

func TestUser_Sanitize(t *testing.T) {
	user := &auth.User{
		ID:                 newRandomID(),
		Name:               "Peter Quill",
		Email:              "quill@example.com",
		Role:               auth.RoleManager,
		Status:             auth.UserStatusActive,
		PasswordHash:       "$2a$12$secret",
		RefreshToken:       "refresh-token",
		PasswordResetToken: "reset-hash",
	}

	summary := user.Sanitize()

	assert.Equal(t, user.ID, summary.ID)
	assert.Equal(t, "Peter Quill", summary.Name)
	assert.Equal(t, auth.RoleManager, summary.Role)
	assert.Equal(t, "PQ", summary.Avatar)

	// No credential or token material survives the projection
	raw, err := json.Marshal(summary)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "refresh-token")
	assert.NotContains(t, string(raw), "reset-hash")
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	user := &auth.User{
		ID:                 newRandomID(),
		Name:               "Peter Quill",
		Email:              "quill@example.com",
		PasswordHash:       "$2a$12$secret",
		RefreshToken:       "refresh-token",
		PasswordResetToken: "reset-hash",
	}

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "refresh-token")
	assert.NotContains(t, string(raw), "reset-hash")
}

func TestUser_Defaults(t *testing.T) {
	user := &auth.User{Name: "Peter Quill"}

	user.EnsureRole()
	user.EnsureStatus()
	user.EnsureAvatar()

	assert.Equal(t, auth.RoleEmployee, user.Role)
	assert.Equal(t, auth.UserStatusActive, user.Status)
	assert.Equal(t, "PQ", user.Avatar)
}

func TestUser_Identity(t *testing.T) {
	user := &auth.User{
		ID:    newRandomID(),
		Name:  "Peter Quill",
		Email: "quill@example.com",
		Role:  auth.RoleAdministrator,
	}

	identity := user.Identity()

	assert.Equal(t, user.ID.String(), identity.ID())
	assert.Equal(t, "Peter Quill", identity.Name())
	assert.Equal(t, "quill@example.com", identity.Email())
	assert.Equal(t, "Administrator", identity.Role())
}
