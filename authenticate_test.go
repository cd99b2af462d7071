package approval_test

import (
	"context"
	"errors"
	"testing"

	approval "github.com/goliatone/go-user-approval"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGateFixture() (*approval.Gate, *MockStatusStore, *MockUsers, *capturingSink) {
	store := &MockStatusStore{}
	users := &MockUsers{}
	sink := &capturingSink{}
	policy := approval.NewRolePolicy()
	machine := approval.NewStateMachine(store, policy)
	gate := approval.NewGate(machine, policy, users).WithActivitySink(sink)
	return gate, store, users, sink
}

func TestCheckLoginPendingAccountIsDenied(t *testing.T) {
	gate, store, _, sink := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleGuest}

	store.On("Get", mock.Anything, user.ID).Return(nil, false, nil).Once()

	err := gate.CheckLogin(context.Background(), user)
	require.Error(t, err)
	assert.ErrorIs(t, err, approval.ErrPendingApproval)

	require.Len(t, sink.events, 1)
	assert.Equal(t, approval.ActivityEventLoginDenied, sink.events[0].EventType)
	store.AssertExpectations(t)
}

func TestCheckLoginBlockedAccountIsDenied(t *testing.T) {
	gate, store, _, _ := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleGuest}

	store.On("Get", mock.Anything, user.ID).
		Return(&approval.StatusRecord{UserID: user.ID, Status: approval.StatusBlocked}, true, nil).Once()

	err := gate.CheckLogin(context.Background(), user)
	require.Error(t, err)
	assert.ErrorIs(t, err, approval.ErrBlockedAccess)
	store.AssertExpectations(t)
}

func TestCheckLoginApprovedAccountPasses(t *testing.T) {
	gate, store, _, sink := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleGuest}

	store.On("Get", mock.Anything, user.ID).
		Return(&approval.StatusRecord{UserID: user.ID, Status: approval.StatusApproved}, true, nil).Once()

	require.NoError(t, gate.CheckLogin(context.Background(), user))
	assert.Empty(t, sink.events)
	store.AssertExpectations(t)
}

func TestCheckLoginNonSubjectBypassesStatusLookup(t *testing.T) {
	gate, store, _, _ := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleOwner}

	require.NoError(t, gate.CheckLogin(context.Background(), user))
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestCheckLoginUnknownStoredValueDeniesAsPending(t *testing.T) {
	gate, store, _, _ := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleGuest}

	store.On("Get", mock.Anything, user.ID).
		Return(&approval.StatusRecord{UserID: user.ID, Status: approval.Status("corrupted")}, true, nil).Once()

	err := gate.CheckLogin(context.Background(), user)
	assert.ErrorIs(t, err, approval.ErrPendingApproval)
}

func TestCheckResetPreservesPriorError(t *testing.T) {
	gate, _, users, _ := newGateFixture()
	prior := errors.New("upstream failure")

	err := gate.CheckReset(context.Background(), prior, "someone@example.com")
	assert.Same(t, prior, err)
	users.AssertNotCalled(t, "GetByIdentifier", mock.Anything, mock.Anything)
}

func TestCheckResetUnknownIdentifierPassesThrough(t *testing.T) {
	gate, _, users, _ := newGateFixture()

	users.On("GetByIdentifier", mock.Anything, "ghost@example.com").
		Return(nil, errors.New("not found")).Once()

	require.NoError(t, gate.CheckReset(context.Background(), nil, "ghost@example.com"))
	users.AssertExpectations(t)
}

func TestCheckResetNonApprovedSubjectIsDenied(t *testing.T) {
	gate, store, users, sink := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleGuest, Email: "pending@example.com"}

	users.On("GetByIdentifier", mock.Anything, user.Email).Return(user, nil).Once()
	store.On("Get", mock.Anything, user.ID).Return(nil, false, nil).Once()

	err := gate.CheckReset(context.Background(), nil, user.Email)
	require.Error(t, err)
	assert.ErrorIs(t, err, approval.ErrUnapprovedUser)

	require.Len(t, sink.events, 1)
	assert.Equal(t, approval.ActivityEventResetDenied, sink.events[0].EventType)
}

func TestCheckResetBlockedSubjectGetsSameGenericDenial(t *testing.T) {
	gate, store, users, _ := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleGuest, Email: "blocked@example.com"}

	users.On("GetByIdentifier", mock.Anything, user.Email).Return(user, nil).Once()
	store.On("Get", mock.Anything, user.ID).
		Return(&approval.StatusRecord{UserID: user.ID, Status: approval.StatusBlocked}, true, nil).Once()

	err := gate.CheckReset(context.Background(), nil, user.Email)
	assert.ErrorIs(t, err, approval.ErrUnapprovedUser)
}

func TestCheckResetApprovedSubjectPasses(t *testing.T) {
	gate, store, users, _ := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleGuest, Email: "ok@example.com"}

	users.On("GetByIdentifier", mock.Anything, user.Email).Return(user, nil).Once()
	store.On("Get", mock.Anything, user.ID).
		Return(&approval.StatusRecord{UserID: user.ID, Status: approval.StatusApproved}, true, nil).Once()

	require.NoError(t, gate.CheckReset(context.Background(), nil, user.Email))
}

func TestCheckResetNonSubjectPassesThrough(t *testing.T) {
	gate, store, users, _ := newGateFixture()
	user := &approval.User{ID: uuid.New(), Role: approval.RoleAdmin, Email: "admin@example.com"}

	users.On("GetByIdentifier", mock.Anything, user.Email).Return(user, nil).Once()

	require.NoError(t, gate.CheckReset(context.Background(), nil, user.Email))
	store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
