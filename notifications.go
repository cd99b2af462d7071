package approval

import (
	"context"
	"fmt"
)

// NotificationKind names the outbound notification extension points.
type NotificationKind string

const (
	// NotificationNewUserAdmin tells the administrator a new account needs review.
	NotificationNewUserAdmin NotificationKind = "new_user_admin"
	// NotificationNewUser sends the account details to the new user.
	NotificationNewUser NotificationKind = "new_user"
	// NotificationApproved re-sends the account details with approved framing.
	NotificationApproved NotificationKind = "approved"
	// NotificationBlocked tells the user their access was denied.
	NotificationBlocked NotificationKind = "blocked"
)

// EmailMessage is the outbound notification payload handed to the Mailer.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
	Headers map[string]string
}

// Mailer is the host's mail transport. This package never sends mail itself.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, msg EmailMessage) error

// Send implements Mailer.
func (f MailerFunc) Send(ctx context.Context, msg EmailMessage) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

// EmailDecorator lets the host adjust a composed message per notification
// kind before dispatch.
type EmailDecorator func(msg EmailMessage, user *User) EmailMessage

// Notifier dispatches the approval lifecycle notifications.
type Notifier interface {
	// NotifyRegistered fires once on account creation. When adminOnly is
	// true only the administrator is notified and the account stays
	// pending by omission.
	NotifyRegistered(ctx context.Context, user *User, adminOnly bool) error
	// NotifyApproved re-dispatches the account notification to the now
	// approved user.
	NotifyApproved(ctx context.Context, user *User) error
	// NotifyBlocked tells the user their access was denied.
	NotifyBlocked(ctx context.Context, user *User) error
}

// EmailNotifier composes and dispatches the lifecycle emails through the
// host Mailer.
type EmailNotifier struct {
	mailer     Mailer
	policy     *RolePolicy
	siteName   string
	adminEmail string
	decorators map[NotificationKind]EmailDecorator
	logger     Logger
	provider   LoggerProvider
}

var _ Notifier = (*EmailNotifier)(nil)

// EmailNotifierOption customizes notifier construction.
type EmailNotifierOption func(*EmailNotifier)

// WithSiteName sets the site title used in subjects and bodies.
func WithSiteName(name string) EmailNotifierOption {
	return func(n *EmailNotifier) {
		if name != "" {
			n.siteName = name
		}
	}
}

// WithAdminEmail sets the administrator recipient for new account notices.
func WithAdminEmail(email string) EmailNotifierOption {
	return func(n *EmailNotifier) {
		if email != "" {
			n.adminEmail = email
		}
	}
}

// WithEmailDecorator installs a per-kind decorator applied before dispatch.
func WithEmailDecorator(kind NotificationKind, decorator EmailDecorator) EmailNotifierOption {
	return func(n *EmailNotifier) {
		if decorator == nil {
			return
		}
		if n.decorators == nil {
			n.decorators = map[NotificationKind]EmailDecorator{}
		}
		n.decorators[kind] = decorator
	}
}

// WithNotifierLogger overrides the notifier logger.
func WithNotifierLogger(logger Logger) EmailNotifierOption {
	return func(n *EmailNotifier) {
		n.provider, n.logger = ResolveLogger("approval.notifier", n.provider, logger)
	}
}

// NewEmailNotifier creates a notifier over the given mailer.
func NewEmailNotifier(mailer Mailer, policy *RolePolicy, opts ...EmailNotifierOption) *EmailNotifier {
	loggerProvider, logger := ResolveLogger("approval.notifier", nil, nil)
	n := &EmailNotifier{
		mailer:   mailer,
		policy:   policy,
		siteName: "this site",
		logger:   logger,
		provider: loggerProvider,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}

	return n
}

func (n *EmailNotifier) NotifyRegistered(ctx context.Context, user *User, adminOnly bool) error {
	if err := n.dispatch(ctx, NotificationNewUserAdmin, user, n.composeNewUserAdmin(user)); err != nil {
		return err
	}

	if adminOnly {
		return nil
	}

	return n.dispatch(ctx, NotificationNewUser, user, n.composeNewUser(user))
}

func (n *EmailNotifier) NotifyApproved(ctx context.Context, user *User) error {
	msg := n.composeNewUser(user)
	msg.Subject = fmt.Sprintf("[%s] Login Details [Account Approved]", n.siteName)
	msg.Body = fmt.Sprintf("You have been approved to access %s\r\n\r\n%s", n.siteName, msg.Body)

	return n.dispatch(ctx, NotificationApproved, user, msg)
}

func (n *EmailNotifier) NotifyBlocked(ctx context.Context, user *User) error {
	msg := EmailMessage{
		To:      user.Email,
		Subject: fmt.Sprintf("[%s] Account Blocked.", n.siteName),
		Body:    fmt.Sprintf("You have been denied access to %s.", n.siteName),
	}

	return n.dispatch(ctx, NotificationBlocked, user, msg)
}

func (n *EmailNotifier) composeNewUserAdmin(user *User) EmailMessage {
	body := fmt.Sprintf("New %s registration on your site %s:", n.policy.RoleLabel(user.Role), n.siteName)
	body += "\r\n\r\n"
	body += fmt.Sprintf("Username: %s", user.Username)
	body += "\r\n\r\n"
	body += fmt.Sprintf("Email: %s", user.Email)
	body += "\r\n"

	return EmailMessage{
		To:      n.adminEmail,
		Subject: fmt.Sprintf("[%s] New User Registration", n.siteName),
		Body:    body,
	}
}

func (n *EmailNotifier) composeNewUser(user *User) EmailMessage {
	body := fmt.Sprintf("Username: %s", user.Username)
	body += "\r\n\r\n"
	body += "To set your password, visit the password reset page."
	body += "\r\n"

	return EmailMessage{
		To:      user.Email,
		Subject: fmt.Sprintf("[%s] Login Details", n.siteName),
		Body:    body,
	}
}

func (n *EmailNotifier) dispatch(ctx context.Context, kind NotificationKind, user *User, msg EmailMessage) error {
	if decorator, ok := n.decorators[kind]; ok && decorator != nil {
		msg = decorator(msg, user)
	}

	if msg.To == "" {
		n.logger.Warn("notification skipped, no recipient", "kind", kind)
		return nil
	}

	return n.mailer.Send(ctx, msg)
}

type noopNotifier struct{}

func (noopNotifier) NotifyRegistered(context.Context, *User, bool) error { return nil }
func (noopNotifier) NotifyApproved(context.Context, *User) error         { return nil }
func (noopNotifier) NotifyBlocked(context.Context, *User) error          { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// RegisteredUserMessage is the host-facing confirmation shown to a subject
// account after registration, replacing the default registered message.
func RegisteredUserMessage() string {
	return "An email has been sent to the site administrator for account verification. " +
		"You will receive an email once your account is reviewed. Thanks for your patience."
}
