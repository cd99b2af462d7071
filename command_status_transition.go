package approval

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-user-approval/actiontoken"
)

// StatusTransitionMessage is an administrator's request to approve or block
// a subject account.
type StatusTransitionMessage struct {
	ActorID string `json:"actor_id"`
	UserID  string `json:"user_id"`
	Status  Status `json:"status"`
	Token   string `json:"token"`
}

func (e StatusTransitionMessage) Type() string { return "user.status_transition" }

// TransitionTokenValidator validates the anti-replay token bound to a
// transition kind. Satisfied by actiontoken.Service.
type TransitionTokenValidator interface {
	Validate(token string, kind actiontoken.Kind, actorID string) error
}

// StatusTransitionHandler is the only writer of approval status after
// registration. Every failed precondition is a silent no-op: the request
// simply has no effect, which is the deliberate fail-closed policy of the
// admin action endpoint.
type StatusTransitionHandler struct {
	users        UserResolver
	machine      StateMachine
	policy       *RolePolicy
	authorizer   Authorizer
	tokens       TransitionTokenValidator
	notifier     Notifier
	activitySink ActivitySink
	logger       Logger
	provider     LoggerProvider
}

// StatusTransitionOption customizes handler construction.
type StatusTransitionOption func(*StatusTransitionHandler)

// WithTransitionNotifier sets the notifier dispatching transition emails.
func WithTransitionNotifier(notifier Notifier) StatusTransitionOption {
	return func(h *StatusTransitionHandler) {
		h.notifier = normalizeNotifier(notifier)
	}
}

// WithTransitionActivitySink sets the sink receiving rejection events.
func WithTransitionActivitySink(sink ActivitySink) StatusTransitionOption {
	return func(h *StatusTransitionHandler) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

// WithTransitionLogger overrides the handler logger.
func WithTransitionLogger(logger Logger) StatusTransitionOption {
	return func(h *StatusTransitionHandler) {
		h.provider, h.logger = ResolveLogger("approval.transition", h.provider, logger)
	}
}

// NewStatusTransitionHandler wires the transition endpoint.
func NewStatusTransitionHandler(
	users UserResolver,
	machine StateMachine,
	policy *RolePolicy,
	authorizer Authorizer,
	tokens TransitionTokenValidator,
	opts ...StatusTransitionOption,
) *StatusTransitionHandler {
	loggerProvider, logger := ResolveLogger("approval.transition", nil, nil)
	h := &StatusTransitionHandler{
		users:        users,
		machine:      machine,
		policy:       policy,
		authorizer:   authorizer,
		tokens:       tokens,
		notifier:     noopNotifier{},
		activitySink: noopActivitySink{},
		logger:       logger,
		provider:     loggerProvider,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

func (h *StatusTransitionHandler) Execute(ctx context.Context, event StatusTransitionMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during status transition",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *StatusTransitionHandler) execute(ctx context.Context, event StatusTransitionMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if !event.Status.IsStored() {
		h.reject(ctx, event, "requested status is not a transition target")
		return nil
	}

	user, err := h.users.GetByIdentifier(ctx, event.UserID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.reject(ctx, event, "target account not found")
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for status transition")
	}

	if !h.policy.IsSubject(user) {
		h.reject(ctx, event, "target account is exempt from approval")
		return nil
	}

	if h.authorizer == nil || !h.authorizer.CanManageUsers(ctx, event.ActorID) {
		h.reject(ctx, event, "actor cannot manage users")
		return nil
	}

	if err := h.tokens.Validate(event.Token, tokenKindFor(event.Status), event.ActorID); err != nil {
		h.reject(ctx, event, "invalid transition token")
		return nil
	}

	actor := ActorRef{ID: event.ActorID, Type: "admin"}

	applied, err := h.machine.Transition(ctx, actor, user, event.Status)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply status transition")
	}

	// duplicate submission, e.g. a page refresh: nothing to notify
	if !applied {
		return nil
	}

	h.notify(ctx, event.Status, user)

	return nil
}

func (h *StatusTransitionHandler) notify(ctx context.Context, status Status, user *User) {
	var err error
	switch status {
	case StatusApproved:
		err = h.notifier.NotifyApproved(ctx, user)
	case StatusBlocked:
		err = h.notifier.NotifyBlocked(ctx, user)
	}

	if err == nil {
		return
	}

	h.logger.Warn("transition notification failed", "user_id", user.ID.String(), "status", status, "error", err)

	sink := normalizeActivitySink(h.activitySink)
	_ = sink.Record(ctx, ActivityEvent{
		EventType: ActivityEventNotificationFailure,
		UserID:    user.ID.String(),
		ToStatus:  status,
		Metadata:  map[string]any{"error": err.Error()},
	})
}

// reject records why a transition had no effect. The caller still observes a
// silent no-op.
func (h *StatusTransitionHandler) reject(ctx context.Context, event StatusTransitionMessage, reason string) {
	h.logger.Warn("status transition rejected", "user_id", event.UserID, "actor_id", event.ActorID, "reason", reason)

	sink := normalizeActivitySink(h.activitySink)
	if err := sink.Record(ctx, ActivityEvent{
		EventType: ActivityEventTransitionRejected,
		Actor:     ActorRef{ID: event.ActorID, Type: "admin"},
		UserID:    event.UserID,
		ToStatus:  event.Status,
		Metadata:  map[string]any{"reason": reason},
	}); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}
}

func tokenKindFor(status Status) actiontoken.Kind {
	if status == StatusBlocked {
		return actiontoken.KindBlock
	}
	return actiontoken.KindApprove
}
