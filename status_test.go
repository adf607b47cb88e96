package auth_test

import (
	"testing"

	auth "github.com/Tanmay4803/LeanCircle"
	"github.com/stretchr/testify/assert"
)

func TestUserStatus_IsValid(t *testing.T) {
	tests := []struct {
		status   auth.UserStatus
		expected bool
	}{
		{auth.UserStatusPending, true},
		{auth.UserStatusActive, true},
		{auth.UserStatusSuspended, true},
		{auth.UserStatusInactive, true},
		{auth.UserStatus("Frozen"), false},
		{auth.UserStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsValid())
		})
	}
}

func TestUserStatus_CanAuthenticate(t *testing.T) {
	assert.True(t, auth.UserStatusActive.CanAuthenticate())
	assert.False(t, auth.UserStatusPending.CanAuthenticate())
	assert.False(t, auth.UserStatusSuspended.CanAuthenticate())
	assert.False(t, auth.UserStatusInactive.CanAuthenticate())
}

func TestParseStatus(t *testing.T) {
	status, ok := auth.ParseStatus("Suspended")
	assert.True(t, ok)
	assert.Equal(t, auth.UserStatusSuspended, status)

	_, ok = auth.ParseStatus("suspended")
	assert.False(t, ok)
}
