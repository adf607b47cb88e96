package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	auth "github.com/Tanmay4803/LeanCircle"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockIdentity implements auth.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// testLogger is a no-op logger for tests that don't assert on logging
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testConfig implements auth.Config
type testConfig struct {
	signingKey        string
	refreshSigningKey string
	accessTTL         time.Duration
	refreshTTL        time.Duration
	resetTTL          time.Duration
	contextKey        string
	tokenLookup       string
	authScheme        string
	issuer            string
	audience          []string
	minPasswordLength int
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:        "test-signing-key",
		refreshSigningKey: "test-refresh-signing-key",
		issuer:            "test-issuer",
	}
}

func (c *testConfig) GetSigningKey() string        { return c.signingKey }
func (c *testConfig) GetRefreshSigningKey() string { return c.refreshSigningKey }
func (c *testConfig) GetAccessTokenTTL() time.Duration {
	return c.accessTTL
}
func (c *testConfig) GetRefreshTokenTTL() time.Duration {
	return c.refreshTTL
}
func (c *testConfig) GetResetTokenTTL() time.Duration {
	return c.resetTTL
}
func (c *testConfig) GetContextKey() string {
	if c.contextKey == "" {
		return "user"
	}
	return c.contextKey
}
func (c *testConfig) GetTokenLookup() string    { return c.tokenLookup }
func (c *testConfig) GetAuthScheme() string     { return c.authScheme }
func (c *testConfig) GetIssuer() string         { return c.issuer }
func (c *testConfig) GetAudience() []string     { return c.audience }
func (c *testConfig) GetMinPasswordLength() int { return c.minPasswordLength }

// fakeUsers is an in-memory Users store. Reads return copies so state only
// changes through the store methods, mirroring how a real database behaves.
type fakeUsers struct {
	auth.Users
	mu   sync.Mutex
	rows map[uuid.UUID]auth.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		rows: map[uuid.UUID]auth.User{},
	}
}

func (f *fakeUsers) add(user *auth.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[user.ID] = *user
}

func (f *fakeUsers) snapshot(id uuid.UUID) (auth.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	return row, ok
}

func (f *fakeUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.NewRecordNotFound()
	}

	row, ok := f.snapshot(uid)
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return &row, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	return f.GetByEmailTx(ctx, nil, email, criteria...)
}

func (f *fakeUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	normalized := auth.NormalizeEmail(email)

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range f.rows {
		if row.Email == normalized {
			row := row
			return &row, nil
		}
	}

	return nil, repository.NewRecordNotFound()
}

func (f *fakeUsers) Create(ctx context.Context, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	return f.CreateTx(ctx, nil, record, criteria...)
}

func (f *fakeUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	record.EnsureRole()
	record.EnsureStatus()
	record.EnsureAvatar()
	record.Email = auth.NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := time.Now()
	record.CreatedAt = &now

	f.add(record)

	return record, nil
}

func (f *fakeUsers) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	return f.TrackSuccessfulLoginTx(ctx, nil, user)
}

func (f *fakeUsers) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *auth.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[user.ID]
	if !ok {
		return repository.NewRecordNotFound()
	}

	now := time.Now()
	row.LastSignInAt = &now
	f.rows[user.ID] = row

	return nil
}

func (f *fakeUsers) StoreRefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	return f.StoreRefreshTokenTx(ctx, nil, id, token, expiresAt)
}

func (f *fakeUsers) StoreRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	row.RefreshToken = token
	row.RefreshTokenExpiresAt = &expiresAt
	f.rows[id] = row

	return nil
}

func (f *fakeUsers) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return f.ClearRefreshTokenTx(ctx, nil, id)
}

func (f *fakeUsers) ClearRefreshTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	row.RefreshToken = ""
	row.RefreshTokenExpiresAt = nil
	f.rows[id] = row

	return nil
}

func (f *fakeUsers) StoreResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return f.StoreResetTokenTx(ctx, nil, id, tokenHash, expiresAt)
}

func (f *fakeUsers) StoreResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	row.PasswordResetToken = tokenHash
	row.PasswordResetExpiresAt = &expiresAt
	f.rows[id] = row

	return nil
}

func (f *fakeUsers) FindWithActiveResetTokens(ctx context.Context, now time.Time) ([]*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records := []*auth.User{}
	for _, row := range f.rows {
		if row.PasswordResetToken == "" || row.PasswordResetExpiresAt == nil {
			continue
		}
		if row.PasswordResetExpiresAt.After(now) {
			row := row
			records = append(records, &row)
		}
	}

	return records, nil
}

func (f *fakeUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	return f.UpdatePasswordTx(ctx, nil, id, passwordHash, changedAt)
}

func (f *fakeUsers) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	row.PasswordHash = passwordHash
	row.PasswordChangedAt = &changedAt
	row.PasswordResetToken = ""
	row.PasswordResetExpiresAt = nil
	row.RefreshToken = ""
	row.RefreshTokenExpiresAt = nil
	f.rows[id] = row

	return nil
}

func (f *fakeUsers) UpdateStatus(ctx context.Context, id uuid.UUID, status auth.UserStatus, opts ...auth.StatusUpdateOption) (*auth.User, error) {
	return f.UpdateStatusTx(ctx, nil, id, status, opts...)
}

func (f *fakeUsers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status auth.UserStatus, opts ...auth.StatusUpdateOption) (*auth.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}

	record := &auth.User{
		ID:          id,
		Status:      status,
		SuspendedAt: row.SuspendedAt,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	row.Status = record.Status
	row.SuspendedAt = record.SuspendedAt
	f.rows[id] = row

	row = f.rows[id]
	return &row, nil
}

// fakeRepo implements auth.RepositoryManager on top of fakeUsers
type fakeRepo struct {
	users *fakeUsers
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: newFakeUsers()}
}

func (r *fakeRepo) Validate() error {
	return nil
}

func (r *fakeRepo) MustValidate() {}

func (r *fakeRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (r *fakeRepo) Users() auth.Users {
	return r.users
}

func newRandomID() uuid.UUID {
	return uuid.New()
}

// capturingSink records activity events for assertions
type capturingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *capturingSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *capturingSink) eventTypes() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]auth.ActivityEventType, 0, len(s.events))
	for _, event := range s.events {
		types = append(types, event.EventType)
	}
	return types
}
