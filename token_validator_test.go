package auth_test

import (
	"testing"

	auth "github.com/Tanmay4803/LeanCircle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValidatorFunc(t *testing.T) {
	t.Run("adapts a function", func(t *testing.T) {
		validator := auth.TokenValidatorFunc(func(tokenString string) (auth.AuthClaims, error) {
			return &auth.JWTClaims{UID: "user-123"}, nil
		})

		claims, err := validator.Validate("any-token")

		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())
	})

	t.Run("nil func fails closed", func(t *testing.T) {
		var validator auth.TokenValidatorFunc

		claims, err := validator.Validate("any-token")

		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}

func TestMultiTokenValidator(t *testing.T) {
	cfg := newTestConfig()
	current := auth.NewTokenService(cfg)

	rotatedCfg := newTestConfig()
	rotatedCfg.signingKey = "previous-signing-key"
	previous := auth.NewTokenService(rotatedCfg)

	identity := &MockIdentity{}
	identity.On("ID").Return("user-123")
	identity.On("Email").Return("user@example.com")
	identity.On("Role").Return("Employee")

	t.Run("accepts tokens from any configured validator", func(t *testing.T) {
		validator := auth.NewMultiTokenValidator(
			auth.TokenValidatorFunc(current.ValidateAccessToken),
			auth.TokenValidatorFunc(previous.ValidateAccessToken),
		)

		currentToken, err := current.IssueAccessToken(identity)
		require.NoError(t, err)
		previousToken, err := previous.IssueAccessToken(identity)
		require.NoError(t, err)

		claims, err := validator.Validate(currentToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())

		// Tokens signed with the rotated-out key still verify during the
		// rotation window.
		claims, err = validator.Validate(previousToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID())
	})

	t.Run("rejects tokens no validator accepts", func(t *testing.T) {
		validator := auth.NewMultiTokenValidator(
			auth.TokenValidatorFunc(current.ValidateAccessToken),
			auth.TokenValidatorFunc(previous.ValidateAccessToken),
		)

		claims, err := validator.Validate("not.a.token")

		assert.Error(t, err)
		assert.Nil(t, claims)
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("expired tokens do not fall through", func(t *testing.T) {
		calls := 0
		validator := auth.NewMultiTokenValidator(
			auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
				return nil, auth.ErrTokenExpired
			}),
			auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
				calls++
				return &auth.JWTClaims{}, nil
			}),
		)

		_, err := validator.Validate("expired-token")

		assert.ErrorIs(t, err, auth.ErrTokenExpired)
		assert.Zero(t, calls)
	})

	t.Run("empty validator list fails closed", func(t *testing.T) {
		validator := auth.NewMultiTokenValidator()

		claims, err := validator.Validate("any-token")

		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}
