package auth_test

import (
	"errors"
	"testing"

	auth "github.com/Tanmay4803/LeanCircle"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured token expired error",
			err:      auth.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "Legacy token expired error (string match)",
			err:      errors.New("some wrapper: token is expired"),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      auth.ErrIdentityNotFound,
			expected: false,
		},
		{
			name:     "Different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := auth.IsTokenExpiredError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured malformed error",
			err:      auth.ErrTokenMalformed,
			expected: true,
		},
		{
			name:     "Legacy malformed error (string match)",
			err:      errors.New("token is malformed"),
			expected: true,
		},
		{
			name:     "Legacy missing JWT error (string match)",
			err:      errors.New("missing or malformed JWT"),
			expected: true,
		},
		{
			name:     "Different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := auth.IsMalformedError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStructuredErrorProperties(t *testing.T) {
	t.Run("ErrIdentityNotFound", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryNotFound, auth.ErrIdentityNotFound.Category)
		assert.Equal(t, "identity not found", auth.ErrIdentityNotFound.Message)
	})

	t.Run("ErrMismatchedHashAndPassword", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrMismatchedHashAndPassword.Category)
		assert.Equal(t, auth.TextCodeInvalidCreds, auth.ErrMismatchedHashAndPassword.TextCode)
		assert.Equal(t, "the credentials provided are invalid", auth.ErrMismatchedHashAndPassword.Message)
	})

	t.Run("ErrTokenExpired", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrTokenExpired.Category)
		assert.Equal(t, auth.TextCodeTokenExpired, auth.ErrTokenExpired.TextCode)
	})

	t.Run("ErrTokenRevoked", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrTokenRevoked.Category)
		assert.Equal(t, auth.TextCodeTokenRevoked, auth.ErrTokenRevoked.TextCode)
	})

	t.Run("ErrRefreshTokenExpired", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrRefreshTokenExpired.Category)
		assert.Equal(t, auth.TextCodeRefreshExpired, auth.ErrRefreshTokenExpired.TextCode)
	})

	t.Run("ErrStaleToken", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrStaleToken.Category)
		assert.Equal(t, auth.TextCodeStaleToken, auth.ErrStaleToken.TextCode)
	})

	t.Run("ErrAccountInactive", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrAccountInactive.Category)
		assert.Equal(t, auth.TextCodeAccountInactive, auth.ErrAccountInactive.TextCode)
	})

	t.Run("ErrResetTokenInvalid", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrResetTokenInvalid.Category)
		assert.Equal(t, auth.TextCodeResetTokenInvalid, auth.ErrResetTokenInvalid.TextCode)
	})

	t.Run("ErrForbiddenRole", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuthz, auth.ErrForbiddenRole.Category)
		assert.Equal(t, auth.TextCodeForbidden, auth.ErrForbiddenRole.TextCode)
	})

	t.Run("ErrUnableToDecodeSession", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrUnableToDecodeSession.Category)
		assert.Equal(t, auth.TextCodeSessionDecodeError, auth.ErrUnableToDecodeSession.TextCode)
	})

	t.Run("ErrUnableToParseData", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryBadInput, auth.ErrUnableToParseData.Category)
		assert.Equal(t, auth.TextCodeDataParseError, auth.ErrUnableToParseData.TextCode)
	})

	t.Run("ErrNoEmptyString", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryValidation, auth.ErrNoEmptyString.Category)
		assert.Equal(t, auth.TextCodeEmptyPassword, auth.ErrNoEmptyString.TextCode)
	})
}
