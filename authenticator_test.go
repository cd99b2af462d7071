package approval_test

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	approval "github.com/goliatone/go-user-approval"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentityWithStatus(status approval.Status) TestIdentity {
	return TestIdentity{
		id:       uuid.NewString(),
		username: "pepe",
		email:    "pepe@example.com",
		role:     approval.RoleGuest,
		status:   status,
	}
}

func parseTestToken(t *testing.T, token string, cfg mockConfig) *approval.JWTClaims {
	t.Helper()

	claims := &approval.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return []byte(cfg.GetSigningKey()), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims
}

func TestLoginApprovedAccountMintsToken(t *testing.T) {
	provider := new(MockIdentityProvider)
	cfg := newMockConfig()
	sink := &capturingSink{}
	identity := testIdentityWithStatus(approval.StatusApproved)

	provider.On("VerifyIdentity", context.Background(), identity.email, "password123").
		Return(identity, nil).Once()

	authenticator := approval.NewAuthenticator(provider, cfg).WithActivitySink(sink)

	token, err := authenticator.Login(context.Background(), identity.email, "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims := parseTestToken(t, token, cfg)
	assert.Equal(t, identity.id, claims.UID)
	assert.Equal(t, approval.RoleGuest, claims.UserRole)
	assert.Equal(t, approval.StatusApproved, claims.Status)
	assert.Equal(t, cfg.GetIssuer(), claims.Issuer)

	require.Len(t, sink.events, 1)
	assert.Equal(t, approval.ActivityEventLoginSuccess, sink.events[0].EventType)
	provider.AssertExpectations(t)
}

func TestLoginPendingAccountDenied(t *testing.T) {
	provider := new(MockIdentityProvider)
	sink := &capturingSink{}
	identity := testIdentityWithStatus(approval.StatusPending)

	provider.On("VerifyIdentity", context.Background(), identity.email, "password123").
		Return(identity, nil).Once()

	authenticator := approval.NewAuthenticator(provider, newMockConfig()).WithActivitySink(sink)

	token, err := authenticator.Login(context.Background(), identity.email, "password123")
	require.ErrorIs(t, err, approval.ErrPendingApproval)
	assert.Empty(t, token)

	require.Len(t, sink.events, 1)
	assert.Equal(t, approval.ActivityEventLoginFailure, sink.events[0].EventType)
}

func TestLoginBlockedAccountDenied(t *testing.T) {
	provider := new(MockIdentityProvider)
	identity := testIdentityWithStatus(approval.StatusBlocked)

	provider.On("VerifyIdentity", context.Background(), identity.email, "password123").
		Return(identity, nil).Once()

	authenticator := approval.NewAuthenticator(provider, newMockConfig())

	token, err := authenticator.Login(context.Background(), identity.email, "password123")
	require.ErrorIs(t, err, approval.ErrBlockedAccess)
	assert.Empty(t, token)
}

func TestLoginEmptyStatusDeniesAsPending(t *testing.T) {
	// a status aware identity with no status resolves to pending, never to
	// an open door
	provider := new(MockIdentityProvider)
	identity := testIdentityWithStatus("")

	provider.On("VerifyIdentity", context.Background(), identity.email, "password123").
		Return(identity, nil).Once()

	authenticator := approval.NewAuthenticator(provider, newMockConfig())

	_, err := authenticator.Login(context.Background(), identity.email, "password123")
	require.ErrorIs(t, err, approval.ErrPendingApproval)
}

func TestLoginPreApprovedAccountMintsToken(t *testing.T) {
	provider := new(MockIdentityProvider)
	cfg := newMockConfig()
	identity := testIdentityWithStatus(approval.StatusPreApproved)
	identity.role = approval.RoleAdmin

	provider.On("VerifyIdentity", context.Background(), identity.email, "password123").
		Return(identity, nil).Once()

	authenticator := approval.NewAuthenticator(provider, cfg)

	token, err := authenticator.Login(context.Background(), identity.email, "password123")
	require.NoError(t, err)

	claims := parseTestToken(t, token, cfg)
	assert.Equal(t, approval.StatusPreApproved, claims.Status)
}

func TestLoginBadCredentialsBeforeStatus(t *testing.T) {
	// credential failures surface as-is, the account status is never leaked
	provider := new(MockIdentityProvider)
	sink := &capturingSink{}

	provider.On("VerifyIdentity", context.Background(), "pepe@example.com", "wrong").
		Return(nil, approval.ErrMismatchedHashAndPassword).Once()

	authenticator := approval.NewAuthenticator(provider, newMockConfig()).WithActivitySink(sink)

	_, err := authenticator.Login(context.Background(), "pepe@example.com", "wrong")
	require.ErrorIs(t, err, approval.ErrMismatchedHashAndPassword)

	require.Len(t, sink.events, 1)
	assert.Equal(t, approval.ActivityEventLoginFailure, sink.events[0].EventType)
}

func TestLoginNilIdentity(t *testing.T) {
	provider := new(MockIdentityProvider)

	provider.On("VerifyIdentity", context.Background(), "pepe@example.com", "password123").
		Return(nil, nil).Once()

	authenticator := approval.NewAuthenticator(provider, newMockConfig())

	_, err := authenticator.Login(context.Background(), "pepe@example.com", "password123")
	require.ErrorIs(t, err, approval.ErrIdentityNotFound)
}
