package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService mints and validates the three token kinds used by the
// session lifecycle: access JWTs, refresh JWTs, and password reset tokens.
type TokenService interface {
	IssueAccessToken(identity Identity) (string, error)
	IssueRefreshToken(identity Identity) (string, time.Time, error)
	ValidateAccessToken(tokenString string) (AuthClaims, error)
	ValidateRefreshToken(tokenString string) (*RefreshClaims, error)
	NewPasswordResetToken() (*PasswordResetToken, error)
}

// PasswordResetToken carries the one-time plaintext together with the hash
// and expiry that get persisted. The plaintext is never stored.
type PasswordResetToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey        []byte
	refreshSigningKey []byte
	accessTTL         time.Duration
	refreshTTL        time.Duration
	resetTTL          time.Duration
	issuer            string
	audience          jwt.ClaimStrings
	logger            Logger
	now               func() time.Time
}

// TokenServiceOption customizes token service construction
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenServiceClock injects a custom clock (useful for tests)
func WithTokenServiceClock(clock func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenServiceLogger overrides the default logger
func WithTokenServiceLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance. The refresh signing
// key is configured independently from the access key so the two token
// populations can be rotated or revoked separately.
func NewTokenService(cfg Config, opts ...TokenServiceOption) TokenService {
	ts := &TokenServiceImpl{
		signingKey:        []byte(cfg.GetSigningKey()),
		refreshSigningKey: []byte(cfg.GetRefreshSigningKey()),
		accessTTL:         cfg.GetAccessTokenTTL(),
		refreshTTL:        cfg.GetRefreshTokenTTL(),
		resetTTL:          cfg.GetResetTokenTTL(),
		issuer:            cfg.GetIssuer(),
		audience:          cfg.GetAudience(),
		logger:            defLogger{},
		now:               time.Now,
	}

	if ts.accessTTL <= 0 {
		ts.accessTTL = 15 * time.Minute
	}
	if ts.refreshTTL <= 0 {
		ts.refreshTTL = 720 * time.Hour
	}
	if ts.resetTTL <= 0 {
		ts.resetTTL = 10 * time.Minute
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// IssueAccessToken creates a short lived JWT carrying the identity's id,
// email, and role
func (ts *TokenServiceImpl) IssueAccessToken(identity Identity) (string, error) {
	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserRole:  identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.signClaims(claims, ts.signingKey)
}

// IssueRefreshToken creates a long lived JWT signed with the refresh key.
// It returns the expiry so callers can persist it next to the token.
func (ts *TokenServiceImpl) IssueRefreshToken(identity Identity) (string, time.Time, error) {
	now := ts.now()
	expiresAt := now.Add(ts.refreshTTL)

	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID: identity.ID(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	signed, err := ts.signClaims(claims, ts.refreshSigningKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func (ts *TokenServiceImpl) signClaims(claims jwt.Claims, key []byte) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// ValidateAccessToken parses and validates a token string, returning
// structured claims
func (ts *TokenServiceImpl) ValidateAccessToken(tokenString string) (AuthClaims, error) {
	token, err := ts.parse(tokenString, &JWTClaims{}, ts.signingKey)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToDecodeSession
}

// ValidateRefreshToken verifies the cryptographic integrity of a refresh
// token. Callers still have to compare the token against the one stored on
// the user row; a superseded token passes this check but is revoked.
func (ts *TokenServiceImpl) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := ts.parse(tokenString, &RefreshClaims{}, ts.refreshSigningKey)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*RefreshClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode refresh claims")
	return nil, ErrUnableToDecodeSession
}

func (ts *TokenServiceImpl) parse(tokenString string, claims jwt.Claims, key []byte) (*jwt.Token, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	return token, nil
}

// NewPasswordResetToken mints a random reset token. The plaintext goes back
// to the caller exactly once; only the hash and expiry get persisted.
func (ts *TokenServiceImpl) NewPasswordResetToken() (*PasswordResetToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate reset token")
	}

	plaintext := hex.EncodeToString(buf)

	hash, err := HashResetToken(plaintext)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash reset token")
	}

	return &PasswordResetToken{
		Plaintext: plaintext,
		Hash:      hash,
		ExpiresAt: ts.now().Add(ts.resetTTL),
	}, nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = newTokenID()
	}
}
