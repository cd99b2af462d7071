package approval

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Stage      string `json:"stage" example:"show-reset" doc:"Password reset stage."`
	Session    string `json:"session" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Reset password session token"`
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Customer email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	Reset   *PasswordReset
	Stage   string
	Success bool
}

// InitializePasswordResetHandler starts a password reset. Accounts that are
// not approved cannot reset their password; unknown emails fall through to
// the verification stage so the endpoint does not reveal which accounts
// exist.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	gate     *Gate
	mailer   Mailer
	logger   Logger
	provider LoggerProvider
}

// PasswordResetOption customizes handler construction.
type PasswordResetOption func(*InitializePasswordResetHandler)

// WithResetGate installs the approval gate consulted before a reset is
// created.
func WithResetGate(gate *Gate) PasswordResetOption {
	return func(h *InitializePasswordResetHandler) {
		h.gate = gate
	}
}

// WithResetMailer sets the transport for the reset link email.
func WithResetMailer(mailer Mailer) PasswordResetOption {
	return func(h *InitializePasswordResetHandler) {
		h.mailer = mailer
	}
}

// WithResetLogger overrides the handler logger.
func WithResetLogger(logger Logger) PasswordResetOption {
	return func(h *InitializePasswordResetHandler) {
		h.provider, h.logger = ResolveLogger("approval.reset", h.provider, logger)
	}
}

// NewInitializePasswordResetHandler wires the reset initialization command.
func NewInitializePasswordResetHandler(repo RepositoryManager, opts ...PasswordResetOption) *InitializePasswordResetHandler {
	loggerProvider, logger := ResolveLogger("approval.reset", nil, nil)
	h := &InitializePasswordResetHandler{
		repo:     repo,
		logger:   logger,
		provider: loggerProvider,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	user := &User{}
	reset := &PasswordReset{}
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Stage != ResetInit {
		return goerrors.New("unknown or invalid stage for password reset initialization", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"stage": event.Stage})
	}

	if h.gate != nil {
		if err := h.gate.CheckReset(ctx, nil, event.Email); err != nil {
			return err
		}
	}

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// retrieve the user
		user, err = h.repo.Users().GetByIdentifier(ctx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				resp.Stage = AccountVerification
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		reset.UserID = &user.ID
		reset.Email = event.Email
		reset.Status = ResetRequestedStatus
		if createdReset, err := h.repo.PasswordResets().CreateTx(ctx, tx, reset); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
		} else {
			resp.Reset = createdReset
		}

		resp.Stage = AccountVerification
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if resp.Reset != nil && h.mailer != nil {
		msg := EmailMessage{
			To:      resp.Reset.Email,
			Subject: "Password Reset",
			Body:    "To reset your password, visit: /password-reset/" + resp.Reset.ID.String(),
		}
		if err := h.mailer.Send(ctx, msg); err != nil {
			h.logger.Warn("password reset notification failed", "email", resp.Reset.Email, "error", err)
		}
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
