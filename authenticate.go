package approval

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// UserResolver looks up an account by id, email, or username. Satisfied by
// the Users repository.
type UserResolver interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
}

// Gate converts an account's effective status into allow/deny decisions at
// the two authentication enforcement points: post-credential login and
// password reset initiation. It never writes status.
type Gate struct {
	machine      StateMachine
	policy       *RolePolicy
	users        UserResolver
	logger       Logger
	provider     LoggerProvider
	activitySink ActivitySink
}

// NewGate creates an authentication gate.
func NewGate(machine StateMachine, policy *RolePolicy, users UserResolver) *Gate {
	loggerProvider, logger := ResolveLogger("approval.gate", nil, nil)
	return &Gate{
		machine:      machine,
		policy:       policy,
		users:        users,
		logger:       logger,
		provider:     loggerProvider,
		activitySink: noopActivitySink{},
	}
}

func (g *Gate) WithLogger(l Logger) *Gate {
	g.provider, g.logger = ResolveLogger("approval.gate", g.provider, l)
	return g
}

// WithLoggerProvider overrides the logger provider used by the gate.
func (g *Gate) WithLoggerProvider(provider LoggerProvider) *Gate {
	g.provider, g.logger = ResolveLogger("approval.gate", provider, g.logger)
	return g
}

// WithActivitySink configures an ActivitySink for denial events.
func (g *Gate) WithActivitySink(sink ActivitySink) *Gate {
	g.activitySink = normalizeActivitySink(sink)
	return g
}

// CheckLogin runs after credential verification succeeded. Non subject
// accounts pass through untouched. Subject accounts pass only when
// approved: blocked accounts are denied with blocked_access and everything
// else, including unrecognized stored values, is denied with
// pending_approval.
func (g *Gate) CheckLogin(ctx context.Context, user *User) error {
	if user == nil || !g.policy.IsSubject(user) {
		return nil
	}

	status, err := g.machine.EffectiveStatus(ctx, user)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to resolve account status")
	}

	if err := statusAuthError(status); err != nil {
		g.recordDenial(ctx, ActivityEventLoginDenied, user, status, err)
		return err
	}

	return nil
}

// CheckReset runs on password reset initiation. It only acts when no prior
// error exists in the chain. Unresolved identifiers and non subject
// accounts leave the request untouched; subject accounts that are not
// approved are denied with unapproved_user.
func (g *Gate) CheckReset(ctx context.Context, prior error, identifier string) error {
	if prior != nil {
		return prior
	}

	user, err := g.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		// unresolved accounts proceed unmodified, the host surfaces its
		// own not-found behavior
		return nil
	}

	if !g.policy.IsSubject(user) {
		return nil
	}

	status, err := g.machine.EffectiveStatus(ctx, user)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to resolve account status")
	}

	if status != StatusApproved {
		g.recordDenial(ctx, ActivityEventResetDenied, user, status, ErrUnapprovedUser)
		return ErrUnapprovedUser
	}

	return nil
}

func (g *Gate) recordDenial(ctx context.Context, eventType ActivityEventType, user *User, status Status, cause error) {
	g.logger.Warn("request denied by account status", "user_id", user.ID.String(), "status", status)

	sink := normalizeActivitySink(g.activitySink)
	if err := sink.Record(ctx, ActivityEvent{
		EventType:  eventType,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		FromStatus: status,
		Metadata: map[string]any{
			"error": cause.Error(),
		},
	}); err != nil {
		g.logger.Warn("activity sink record error: %v", err)
	}
}

// statusAuthError maps an effective status to the login denial it causes, or
// nil when login may proceed. The default branch is deliberate: any status
// this package does not recognize denies as pending.
func statusAuthError(status Status) error {
	switch status {
	case StatusPreApproved, StatusApproved:
		return nil
	case StatusBlocked:
		return ErrBlockedAccess
	default:
		return ErrPendingApproval
	}
}
