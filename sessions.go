package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrEmailTaken is returned when registering an email that already exists.
// Treated as invalid input rather than a conflict so it surfaces as a 400
// like any other bad registration payload.
var ErrEmailTaken = goerrors.New("email is already registered", goerrors.CategoryValidation).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeBadRequest)

// RegisterInput carries the attributes for a new account. Role is only
// honored from trusted callers (provisioning, admin tooling); the public
// registration endpoint never forwards one, so self-registered accounts
// always start as Employee.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     UserRole
}

// AuthPayload is returned by every flow that establishes a session
type AuthPayload struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	User         *UserSummary `json:"user"`
}

// ResetRequest is the outcome of a forgot-password flow. AccountFound is
// never surfaced to API clients; it only tells trusted callers (mailers,
// tests) whether a token was actually minted.
type ResetRequest struct {
	Token        string
	ExpiresAt    time.Time
	AccountFound bool
}

// SessionManager orchestrates the session lifecycle flows on top of the
// token service and the users repository.
type SessionManager struct {
	repo     RepositoryManager
	tokens   TokenService
	cfg      Config
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// SessionManagerOption customizes session manager construction
type SessionManagerOption func(*SessionManager)

// WithSessionLogger overrides the default logger
func WithSessionLogger(logger Logger) SessionManagerOption {
	return func(s *SessionManager) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionActivitySink sets the sink receiving login/logout/reset events
func WithSessionActivitySink(sink ActivitySink) SessionManagerOption {
	return func(s *SessionManager) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithSessionClock injects a custom clock (useful for tests)
func WithSessionClock(clock func() time.Time) SessionManagerOption {
	return func(s *SessionManager) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewSessionManager creates a SessionManager
func NewSessionManager(repo RepositoryManager, tokens TokenService, cfg Config, opts ...SessionManagerOption) *SessionManager {
	s := &SessionManager{
		repo:     repo,
		tokens:   tokens,
		cfg:      cfg,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Register creates a new account and logs it in
func (s *SessionManager) Register(ctx context.Context, input RegisterInput) (*AuthPayload, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during registration")
	default:
		return s.register(ctx, input)
	}
}

func (s *SessionManager) register(ctx context.Context, input RegisterInput) (*AuthPayload, error) {
	if err := s.checkPasswordPolicy(input.Password); err != nil {
		return nil, err
	}

	email := NormalizeEmail(input.Email)

	if _, err := s.repo.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken.WithMetadata(map[string]any{
			"email": email,
		})
	} else if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Name:         input.Name,
		Email:        email,
		Phone:        input.Phone,
		PasswordHash: hash,
		Role:         input.Role,
	}

	var payload *AuthPayload

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if user, err = s.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create user")
		}

		payload, err = s.issueSessionTx(ctx, tx, user)
		return err
	})

	if err != nil {
		return nil, normalizeRichError(err, "user registration failed")
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID.String(),
	})

	return payload, nil
}

// Login verifies credentials and establishes a session, rotating the stored
// refresh token.
func (s *SessionManager) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during login")
	default:
		return s.login(ctx, email, password)
	}
}

func (s *SessionManager) login(ctx context.Context, email, password string) (*AuthPayload, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// Same error as a bad password so responses do not reveal
			// whether the account exists.
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	// Verify the password before looking at status so a caller without the
	// credentials cannot learn that an account is suspended or inactive.
	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			UserID:    user.ID.String(),
		})
		return nil, err
	}

	user.EnsureStatus()
	if !user.Status.CanAuthenticate() {
		return nil, ErrAccountInactive.WithMetadata(map[string]any{
			"status": user.Status,
		})
	}

	var payload *AuthPayload

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().TrackSuccessfulLoginTx(ctx, tx, user); err != nil {
			return err
		}
		payload, err = s.issueSessionTx(ctx, tx, user)
		return err
	})

	if err != nil {
		return nil, normalizeRichError(err, "login failed")
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
	})

	return payload, nil
}

// Refresh exchanges a live refresh token for a fresh token pair. The
// presented token must match the stored one; anything older has been
// rotated out and counts as revoked.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (*AuthPayload, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during token refresh")
	default:
		return s.refresh(ctx, refreshToken)
	}
}

func (s *SessionManager) refresh(ctx context.Context, refreshToken string) (*AuthPayload, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		if IsTokenExpiredError(err) {
			return nil, ErrRefreshTokenExpired
		}
		return nil, err
	}

	user, err := s.repo.Users().GetByID(ctx, claims.UserID())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrTokenRevoked
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	user.EnsureStatus()
	if !user.Status.CanAuthenticate() {
		return nil, ErrAccountInactive.WithMetadata(map[string]any{
			"status": user.Status,
		})
	}

	if user.RefreshToken != refreshToken {
		return nil, ErrTokenRevoked
	}

	if !user.HasLiveRefreshToken(s.now()) {
		return nil, ErrRefreshTokenExpired
	}

	if user.ChangedPasswordAfter(claims.IssuedAt()) {
		return nil, ErrStaleToken
	}

	var payload *AuthPayload

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		payload, err = s.issueSessionTx(ctx, tx, user)
		return err
	})

	if err != nil {
		return nil, normalizeRichError(err, "token refresh failed")
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		UserID:    user.ID.String(),
	})

	return payload, nil
}

// Logout revokes the user's refresh token. Outstanding access tokens stay
// valid until they expire.
func (s *SessionManager) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Users().ClearRefreshToken(ctx, userID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear refresh token")
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    userID.String(),
	})

	return nil
}

// ForgotPassword mints a password reset token for the account, when one
// exists. The returned ResetRequest carries the one-time plaintext; callers
// must respond identically whether or not the account was found.
func (s *SessionManager) ForgotPassword(ctx context.Context, email string) (*ResetRequest, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset request")
	default:
		return s.forgotPassword(ctx, email)
	}
}

func (s *SessionManager) forgotPassword(ctx context.Context, email string) (*ResetRequest, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return &ResetRequest{AccountFound: false}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	reset, err := s.tokens.NewPasswordResetToken()
	if err != nil {
		return nil, err
	}

	if err := s.repo.Users().StoreResetToken(ctx, user.ID, reset.Hash, reset.ExpiresAt); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset token")
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequest,
		UserID:    user.ID.String(),
	})

	return &ResetRequest{
		Token:        reset.Plaintext,
		ExpiresAt:    reset.ExpiresAt,
		AccountFound: true,
	}, nil
}

// ResetPassword consumes a reset token and sets the new password. The token
// is single use: the update clears it together with the live refresh token,
// and password_changed_at invalidates all outstanding access tokens.
func (s *SessionManager) ResetPassword(ctx context.Context, token, newPassword string) (*AuthPayload, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset")
	default:
		return s.resetPassword(ctx, token, newPassword)
	}
}

func (s *SessionManager) resetPassword(ctx context.Context, token, newPassword string) (*AuthPayload, error) {
	if err := s.checkPasswordPolicy(newPassword); err != nil {
		return nil, err
	}

	if token == "" {
		return nil, ErrResetTokenInvalid
	}

	// Stored tokens are bcrypt hashes, so we cannot look the token up by
	// value; compare against every unexpired candidate instead.
	candidates, err := s.repo.Users().FindWithActiveResetTokens(ctx, s.now())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load reset candidates")
	}

	var user *User
	for _, candidate := range candidates {
		if err := CompareResetTokenAndHash(token, candidate.PasswordResetToken); err == nil {
			user = candidate
			break
		}
	}

	if user == nil {
		return nil, ErrResetTokenInvalid
	}

	payload, err := s.changePasswordHash(ctx, user, newPassword)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		UserID:    user.ID.String(),
	})

	return payload, nil
}

// ChangePassword updates the password of an authenticated user after
// verifying the current one.
func (s *SessionManager) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (*AuthPayload, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password change")
	default:
		return s.changePassword(ctx, userID, currentPassword, newPassword)
	}
}

func (s *SessionManager) changePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (*AuthPayload, error) {
	if err := s.checkPasswordPolicy(newPassword); err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if err := ComparePasswordAndHash(currentPassword, user.PasswordHash); err != nil {
		return nil, err
	}

	payload, err := s.changePasswordHash(ctx, user, newPassword)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChangeSuccess,
		UserID:    user.ID.String(),
	})

	return payload, nil
}

// CurrentUser loads the full user record for an authenticated subject
func (s *SessionManager) CurrentUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

// changePasswordHash persists the new hash and establishes a fresh session
// in a single transaction.
func (s *SessionManager) changePasswordHash(ctx context.Context, user *User, newPassword string) (*AuthPayload, error) {
	hash, err := HashPassword(newPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	// Stamp the change one second in the past so the tokens minted below,
	// issued within the same wall-clock second, do not read as stale.
	changedAt := s.now().Add(-time.Second)

	var payload *AuthPayload

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().UpdatePasswordTx(ctx, tx, user.ID, hash, changedAt); err != nil {
			return err
		}

		user.PasswordHash = hash
		user.PasswordChangedAt = &changedAt

		payload, err = s.issueSessionTx(ctx, tx, user)
		return err
	})

	if err != nil {
		return nil, normalizeRichError(err, "password update failed")
	}

	return payload, nil
}

// issueSessionTx mints a token pair and persists the refresh token,
// rotating out whatever was stored before.
func (s *SessionManager) issueSessionTx(ctx context.Context, tx bun.Tx, user *User) (*AuthPayload, error) {
	identity := user.Identity()

	accessToken, err := s.tokens.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}

	refreshToken, expiresAt, err := s.tokens.IssueRefreshToken(identity)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Users().StoreRefreshTokenTx(ctx, tx, user.ID, refreshToken, expiresAt); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store refresh token")
	}

	user.RefreshToken = refreshToken
	user.RefreshTokenExpiresAt = &expiresAt

	return &AuthPayload{
		Token:        accessToken,
		RefreshToken: refreshToken,
		User:         user.Sanitize(),
	}, nil
}

func (s *SessionManager) checkPasswordPolicy(password string) error {
	if password == "" {
		return ErrNoEmptyString
	}

	minLength := s.cfg.GetMinPasswordLength()
	if minLength <= 0 {
		minLength = 6
	}

	if len(password) < minLength {
		return goerrors.New(
			fmt.Sprintf("password must be at least %d characters", minLength),
			goerrors.CategoryValidation,
		).WithTextCode("PASSWORD_TOO_SHORT").WithCode(goerrors.CodeBadRequest)
	}

	return nil
}

func (s *SessionManager) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{ID: event.UserID, Type: "user"}
	}

	sink := normalizeActivitySink(s.activity)
	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("session activity sink error: %v", err)
	}
}

func normalizeRichError(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
