package approval

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found")

// ErrNoEmptyString guards password hashing against empty input
var ErrNoEmptyString = errors.New("password cannot be an empty string")

// ErrMismatchedHashAndPassword is returned for failed credential checks
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrTooManyLoginAttempts is returned when an account is cooling down
var ErrTooManyLoginAttempts = errors.New("too many login attempts")

const (
	textCodePendingApproval   = "pending_approval"
	textCodeBlockedAccess     = "blocked_access"
	textCodeUnapprovedUser    = "unapproved_user"
	textCodeInvalidTransition = "invalid_status_transition"
)

// ErrPendingApproval denies login for subject accounts that have not been
// approved yet. Unknown stored values collapse into this denial.
var ErrPendingApproval = goerrors.New("your account is still pending approval", goerrors.CategoryAuth).
	WithTextCode(textCodePendingApproval)

// ErrBlockedAccess denies login for blocked accounts.
var ErrBlockedAccess = goerrors.New("your account access has been blocked to this site", goerrors.CategoryAuth).
	WithTextCode(textCodeBlockedAccess)

// ErrUnapprovedUser denies password reset initiation for subject accounts
// that are not approved.
var ErrUnapprovedUser = goerrors.New("your account is not active", goerrors.CategoryAuth).
	WithTextCode(textCodeUnapprovedUser)

// ErrInvalidTransition is returned when a requested status change is not a
// persistable transition target.
var ErrInvalidTransition = goerrors.New("invalid approval status transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)
