package approval

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates the account and dispatches the registration
// notifications. A subject account starts pending by omission: no status row
// is written here, only the administrator is told to review it.
type RegisterUserHandler struct {
	repo         RepositoryManager
	policy       *RolePolicy
	notifier     Notifier
	activitySink ActivitySink
	logger       Logger
	provider     LoggerProvider
}

// RegisterUserOption customizes handler construction.
type RegisterUserOption func(*RegisterUserHandler)

// WithRegisterNotifier sets the notifier dispatching registration emails.
func WithRegisterNotifier(notifier Notifier) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.notifier = normalizeNotifier(notifier)
	}
}

// WithRegisterActivitySink sets the sink receiving registration events.
func WithRegisterActivitySink(sink ActivitySink) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.activitySink = normalizeActivitySink(sink)
	}
}

// WithRegisterLogger overrides the handler logger.
func WithRegisterLogger(logger Logger) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.provider, h.logger = ResolveLogger("approval.register", h.provider, logger)
	}
}

// NewRegisterUserHandler wires the registration command.
func NewRegisterUserHandler(repo RepositoryManager, policy *RolePolicy, opts ...RegisterUserOption) *RegisterUserHandler {
	loggerProvider, logger := ResolveLogger("approval.register", nil, nil)
	h := &RegisterUserHandler{
		repo:         repo,
		policy:       policy,
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

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Role = event.Role
		user.Username = getUsername(event.Username, event.Email)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	adminOnly := h.policy.IsSubject(user)

	if err := h.notifier.NotifyRegistered(ctx, user, adminOnly); err != nil {
		// the account exists either way, do not fail registration over mail
		h.logger.Warn("registration notification failed", "user_id", user.ID.String(), "error", err)
	}

	sink := normalizeActivitySink(h.activitySink)
	if err := sink.Record(ctx, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"role":           user.Role,
			"needs_approval": adminOnly,
			"username":       user.Username,
		},
	}); err != nil {
		h.logger.Warn("activity sink record error: %v", err)
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
