package approval_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	approval "github.com/goliatone/go-user-approval"
	"github.com/goliatone/go-user-approval/actiontoken"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockStatusStore implements approval.StatusStore
type MockStatusStore struct {
	mock.Mock
}

func (m *MockStatusStore) Get(ctx context.Context, userID uuid.UUID) (*approval.StatusRecord, bool, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*approval.StatusRecord)
	return record, args.Bool(1), args.Error(2)
}

func (m *MockStatusStore) GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*approval.StatusRecord, bool, error) {
	args := m.Called(ctx, tx, userID)
	record, _ := args.Get(0).(*approval.StatusRecord)
	return record, args.Bool(1), args.Error(2)
}

func (m *MockStatusStore) Set(ctx context.Context, userID uuid.UUID, status approval.Status, verifiedBy uuid.UUID) error {
	args := m.Called(ctx, userID, status, verifiedBy)
	return args.Error(0)
}

func (m *MockStatusStore) SetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, status approval.Status, verifiedBy uuid.UUID) error {
	args := m.Called(ctx, tx, userID, status, verifiedBy)
	return args.Error(0)
}

// MockUsers implements approval.Users. The embedded repository interface
// covers the methods no test exercises.
type MockUsers struct {
	mock.Mock
	repository.Repository[*approval.User]
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*approval.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*approval.User)
	return user, args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *approval.User) (*approval.User, error) {
	args := m.Called(ctx, user)
	record, _ := args.Get(0).(*approval.User)
	return record, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *approval.User) (*approval.User, error) {
	args := m.Called(ctx, tx, user)
	record, _ := args.Get(0).(*approval.User)
	return record, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *approval.User, criteria ...repository.InsertCriteria) (*approval.User, error) {
	args := m.Called(ctx, record)
	created, _ := args.Get(0).(*approval.User)
	return created, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *approval.User, criteria ...repository.InsertCriteria) (*approval.User, error) {
	args := m.Called(ctx, tx, record)
	created, _ := args.Get(0).(*approval.User)
	return created, args.Error(1)
}

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *approval.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *approval.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSucccessfulLogin(ctx context.Context, user *approval.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSucccessfulLoginTx(ctx context.Context, tx bun.IDB, user *approval.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

// MockPasswordResets implements the password resets repository
type MockPasswordResets struct {
	mock.Mock
	repository.Repository[*approval.PasswordReset]
}

func (m *MockPasswordResets) CreateTx(ctx context.Context, tx bun.IDB, record *approval.PasswordReset, criteria ...repository.InsertCriteria) (*approval.PasswordReset, error) {
	args := m.Called(ctx, tx, record)
	created, _ := args.Get(0).(*approval.PasswordReset)
	return created, args.Error(1)
}

// testRepoManager implements approval.RepositoryManager over mocks. RunInTx
// invokes the callback with a zero transaction since the mocks never touch
// the database.
type testRepoManager struct {
	users    *MockUsers
	resets   *MockPasswordResets
	statuses approval.StatusStore
}

func newTestRepoManager() *testRepoManager {
	return &testRepoManager{
		users:    &MockUsers{},
		resets:   &MockPasswordResets{},
		statuses: &MockStatusStore{},
	}
}

func (m *testRepoManager) Validate() error { return nil }
func (m *testRepoManager) MustValidate()   {}

func (m *testRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *testRepoManager) Users() approval.Users { return m.users }

func (m *testRepoManager) PasswordResets() repository.Repository[*approval.PasswordReset] {
	return m.resets
}

func (m *testRepoManager) Statuses() approval.StatusStore { return m.statuses }

// MockNotifier implements approval.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRegistered(ctx context.Context, user *approval.User, adminOnly bool) error {
	args := m.Called(ctx, user, adminOnly)
	return args.Error(0)
}

func (m *MockNotifier) NotifyApproved(ctx context.Context, user *approval.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockNotifier) NotifyBlocked(ctx context.Context, user *approval.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockMailer implements approval.Mailer and records what it sent
type MockMailer struct {
	mock.Mock
	Sent []approval.EmailMessage
}

func (m *MockMailer) Send(ctx context.Context, msg approval.EmailMessage) error {
	m.Sent = append(m.Sent, msg)
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockTokenValidator implements approval.TransitionTokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) Validate(token string, kind actiontoken.Kind, actorID string) error {
	args := m.Called(token, kind, actorID)
	return args.Error(0)
}

// MockIdentityProvider implements approval.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (approval.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(approval.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (approval.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(approval.Identity)
	return identity, args.Error(1)
}

// TestIdentity is a status aware identity fixture
type TestIdentity struct {
	id       string
	username string
	email    string
	role     string
	status   approval.Status
}

func (t TestIdentity) ID() string              { return t.id }
func (t TestIdentity) Username() string        { return t.username }
func (t TestIdentity) Email() string           { return t.email }
func (t TestIdentity) Role() string            { return t.role }
func (t TestIdentity) Status() approval.Status { return t.status }

// capturingSink records every activity event it sees
type capturingSink struct {
	events []approval.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt approval.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

type mockConfig struct {
	signingKey      string
	tokenExpiration int
	issuer          string
	audience        []string
}

func newMockConfig() mockConfig {
	return mockConfig{
		signingKey:      "test-signing-key",
		tokenExpiration: 24,
		issuer:          "go-user-approval-test",
		audience:        []string{"test"},
	}
}

func (c mockConfig) GetSigningKey() string   { return c.signingKey }
func (c mockConfig) GetTokenExpiration() int { return c.tokenExpiration }
func (c mockConfig) GetIssuer() string       { return c.issuer }
func (c mockConfig) GetAudience() []string   { return c.audience }

func timePtr(t time.Time) *time.Time { return &t }

func repositoryNotFound() error { return repository.NewRecordNotFound() }
