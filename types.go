package approval

import (
	"context"
	"fmt"
)

// Logger is the logging contract used across the module.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider resolves scoped loggers by component name.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// ResolveLogger resolves a scoped logger from the given provider, falling
// back to the given logger (or the package default) when the provider has
// nothing for the name.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if logger == nil {
		logger = defLogger{}
	}

	if provider == nil {
		provider = staticLoggerProvider{logger: logger}
	}

	if resolved := provider.GetLogger(name); resolved != nil {
		return provider, resolved
	}

	return staticLoggerProvider{logger: logger}, logger
}

type staticLoggerProvider struct {
	logger Logger
}

func (p staticLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
}

// Authorizer exposes the host's capability checks. The transition endpoint
// requires the manage-users capability on the acting administrator.
type Authorizer interface {
	CanManageUsers(ctx context.Context, actorID string) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, actorID string) bool

// CanManageUsers implements Authorizer.
func (f AuthorizerFunc) CanManageUsers(ctx context.Context, actorID string) bool {
	if f == nil {
		return false
	}
	return f(ctx, actorID)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] APPROVAL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] APPROVAL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] APPROVAL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] APPROVAL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
