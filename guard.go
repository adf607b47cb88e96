package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"

	"github.com/Tanmay4803/LeanCircle/middleware/jwtware"
)

// Guard is the request-level authentication gate. Beyond validating the JWT
// it reloads the identity on every request so revoked accounts and stale
// tokens are rejected even while the token itself is still valid.
type Guard struct {
	cfg       Config
	repo      RepositoryManager
	validator TokenValidator
	logger    Logger
}

// GuardOption customizes guard construction
type GuardOption func(*Guard)

// WithGuardLogger overrides the default logger
func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGuardTokenValidator replaces the access token validator, e.g. with a
// MultiTokenValidator during signing key rotation.
func WithGuardTokenValidator(v TokenValidator) GuardOption {
	return func(g *Guard) {
		if v != nil {
			g.validator = v
		}
	}
}

// NewGuard creates a Guard validating tokens with the given service
func NewGuard(repo RepositoryManager, tokens TokenService, cfg Config, opts ...GuardOption) *Guard {
	g := &Guard{
		cfg:       cfg,
		repo:      repo,
		validator: TokenValidatorFunc(tokens.ValidateAccessToken),
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Authenticate rejects requests without a valid access token belonging to a
// live, active identity. On success the claims live under the configured
// context key and the loaded user under CurrentUserKey.
func (g *Guard) Authenticate() fiber.Handler {
	return jwtware.New(g.middlewareConfig(false))
}

// Optional behaves like Authenticate but proceeds anonymously on any
// failure instead of rejecting the request.
func (g *Guard) Optional() fiber.Handler {
	return jwtware.New(g.middlewareConfig(true))
}

// RequireRoles composes on top of Authenticate: requests whose identity does
// not hold one of the given roles are rejected with a forbidden error.
func (g *Guard) RequireRoles(roles ...UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromFiber(c, g.cfg.GetContextKey())
		if !ok {
			return respondError(c, g.logger, ErrUnableToDecodeSession)
		}

		for _, role := range roles {
			if claims.HasRole(string(role)) {
				return c.Next()
			}
		}

		return respondError(c, g.logger, ErrForbiddenRole.WithMetadata(map[string]any{
			"role": claims.Role(),
		}))
	}
}

func (g *Guard) middlewareConfig(optional bool) jwtware.Config {
	return jwtware.Config{
		TokenValidator: tokenValidatorAdapter{validator: g.validator},
		ContextKey:     g.cfg.GetContextKey(),
		TokenLookup:    g.cfg.GetTokenLookup(),
		AuthScheme:     g.cfg.GetAuthScheme(),
		SigningKey: jwtware.SigningKey{
			JWTAlg: "HS256",
			Key:    []byte(g.cfg.GetSigningKey()),
		},
		ValidationListeners: []jwtware.ValidationListener{
			g.loadIdentity,
		},
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if authClaims, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(ctx, authClaims)
			}
			return ctx
		},
		ErrorHandler: g.errorHandler(optional),
	}
}

// loadIdentity enforces the stateful half of the guard: the subject must
// still exist, must be active, and must not have changed their password
// after the token was issued.
func (g *Guard) loadIdentity(c *fiber.Ctx, claims jwtware.AuthClaims) error {
	user, err := g.repo.Users().GetByID(c.UserContext(), claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load identity")
	}

	user.EnsureStatus()
	if !user.Status.CanAuthenticate() {
		return ErrAccountInactive.WithMetadata(map[string]any{
			"status": user.Status,
		})
	}

	if authClaims, ok := claims.(AuthClaims); ok {
		if user.ChangedPasswordAfter(authClaims.IssuedAt()) {
			return ErrStaleToken
		}
	}

	c.Locals(CurrentUserKey, user)
	c.SetUserContext(WithContext(c.UserContext(), user))

	return nil
}

func (g *Guard) errorHandler(optional bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if optional {
			return c.Next()
		}

		if err.Error() == jwtware.ErrJWTMissingOrMalformed.Error() {
			err = ErrTokenMalformed
		}

		return respondError(c, g.logger, err)
	}
}

type tokenValidatorAdapter struct {
	validator TokenValidator
}

func (a tokenValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := a.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
