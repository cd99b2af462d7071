package approval

import (
	"fmt"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/goliatone/go-user-approval/actiontoken"
)

// TransitionTokenIssuer mints the single use token embedded in an action
// link. Satisfied by actiontoken.Service.
type TransitionTokenIssuer interface {
	Issue(kind actiontoken.Kind, actorID string) (string, error)
}

// ActorResolver extracts the acting administrator's id from the request
// context. The host's auth middleware decides where that lives.
type ActorResolver func(c router.Context) string

func defaultActorResolver(c router.Context) string {
	if v := c.Locals("uid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RegisterStatusActionRoutes mounts the admin status action endpoint.
func RegisterStatusActionRoutes[T any](app router.Router[T], opts ...StatusActionControllerOption) {
	controller := NewStatusActionController(opts...)

	app.
		Get(controller.Routes.Action, controller.StatusUpdate).
		SetName("user-status.get")
}

type StatusActionControllerRoutes struct {
	Action  string
	Listing string
}

// StatusActionController serves the approve/block links an administrator
// clicks from the user listing. The endpoint always redirects back to the
// listing; a rejected request leaves no other trace in the response.
type StatusActionController struct {
	Logger  Logger
	Handler *StatusTransitionHandler
	Tokens  TransitionTokenIssuer
	Routes  *StatusActionControllerRoutes
	Actor   ActorResolver
}

type StatusActionControllerOption func(*StatusActionController) *StatusActionController

// WithStatusActionHandler sets the transition command handler.
func WithStatusActionHandler(handler *StatusTransitionHandler) StatusActionControllerOption {
	return func(c *StatusActionController) *StatusActionController {
		c.Handler = handler
		return c
	}
}

// WithStatusActionTokens sets the token issuer used to build action links.
func WithStatusActionTokens(tokens TransitionTokenIssuer) StatusActionControllerOption {
	return func(c *StatusActionController) *StatusActionController {
		c.Tokens = tokens
		return c
	}
}

// WithStatusActionRoutes overrides the default route paths.
func WithStatusActionRoutes(routes *StatusActionControllerRoutes) StatusActionControllerOption {
	return func(c *StatusActionController) *StatusActionController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// WithStatusActionActorResolver overrides how the acting admin is resolved.
func WithStatusActionActorResolver(resolver ActorResolver) StatusActionControllerOption {
	return func(c *StatusActionController) *StatusActionController {
		if resolver != nil {
			c.Actor = resolver
		}
		return c
	}
}

// WithStatusActionLogger overrides the controller logger.
func WithStatusActionLogger(logger Logger) StatusActionControllerOption {
	return func(c *StatusActionController) *StatusActionController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func NewStatusActionController(opts ...StatusActionControllerOption) *StatusActionController {
	c := &StatusActionController{
		Logger: defLogger{},
		Actor:  defaultActorResolver,
		Routes: &StatusActionControllerRoutes{
			Action:  "/admin/users/status",
			Listing: "/admin/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Handler == nil {
		panic("Missing StatusTransitionHandler in status action controller...")
	}

	if c.Tokens == nil {
		panic("Missing TransitionTokenIssuer in status action controller...")
	}

	return c
}

// StatusUpdateRequest is the action link query payload.
type StatusUpdateRequest struct {
	UserID string `query:"user" json:"user"`
	Status string `query:"status" json:"status"`
	Token  string `query:"token" json:"token"`
}

// Validate will run validation rules
func (r StatusUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.UserID,
			validation.Required,
			is.UUID,
		),
		validation.Field(
			&r.Status,
			validation.Required,
			validation.In(
				string(StatusApproved),
				string(StatusBlocked),
			),
		),
		validation.Field(
			&r.Token,
			validation.Required,
		),
	)
}

func (a *StatusActionController) StatusUpdate(ctx router.Context) error {
	payload := StatusUpdateRequest{
		UserID: ctx.Query("user"),
		Status: ctx.Query("status"),
		Token:  ctx.Query("token"),
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Warn("status update invalid payload", "error", err)
		return ctx.Redirect(a.Routes.Listing, router.StatusSeeOther)
	}

	status, _ := ParseStatus(payload.Status)

	msg := StatusTransitionMessage{
		ActorID: a.Actor(ctx),
		UserID:  payload.UserID,
		Status:  status,
		Token:   payload.Token,
	}

	if err := a.Handler.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("status update error", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error updating user status",
		}).Redirect(a.Routes.Listing, router.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": fmt.Sprintf("User status set to %s", StatusLabel(status)),
	}).Redirect(a.Routes.Listing, router.StatusSeeOther)
}

// ActionLink is a row action an administrator can take on one account.
type ActionLink struct {
	Label  string
	Status Status
	URL    string
}

// ActionLinks builds the approve/block links for a user row. The action
// matching the account's stored status is omitted, mirroring what the row
// already shows.
func (a *StatusActionController) ActionLinks(actorID string, user *User, stored Status) ([]ActionLink, error) {
	if user == nil {
		return nil, ErrIdentityNotFound
	}

	links := make([]ActionLink, 0, 2)

	for _, target := range []Status{StatusApproved, StatusBlocked} {
		if target == stored {
			continue
		}

		token, err := a.Tokens.Issue(tokenKindFor(target), actorID)
		if err != nil {
			return nil, err
		}

		q := url.Values{}
		q.Set("user", user.ID.String())
		q.Set("status", string(target))
		q.Set("token", token)

		links = append(links, ActionLink{
			Label:  StatusLabel(target),
			Status: target,
			URL:    fmt.Sprintf("%s?%s", a.Routes.Action, q.Encode()),
		})
	}

	return links, nil
}
