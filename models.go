package approval

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest is a guest role (ie. view)
	RoleGuest UserRole = "guest"
	// RoleMember us a member (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is an admin role (i.e. view, edit, create)
	RoleAdmin UserRole = "admin"
	// RoleOwner is an admin role (i.e. view, edit, create, delete)
	RoleOwner UserRole = "owner"
)

// Status is the approval status enforced for an account.
type Status string

const (
	// StatusPreApproved is derived for accounts outside the subject role.
	// It is never written to storage.
	StatusPreApproved Status = "pre-approved"
	// StatusPending is the implicit status of a subject account with no
	// stored value.
	StatusPending Status = "pending"
	// StatusApproved is a persisted status written by a transition.
	StatusApproved Status = "approved"
	// StatusBlocked is a persisted status written by a transition.
	StatusBlocked Status = "blocked"
)

// IsStored reports whether the status is one of the two persisted values.
func (s Status) IsStored() bool {
	return s == StatusApproved || s == StatusBlocked
}

// Normalize collapses any unrecognized stored value into pending. Unknown
// values must never resolve to approved.
func (s Status) Normalize() Status {
	switch s {
	case StatusPreApproved, StatusApproved, StatusBlocked:
		return s
	default:
		return StatusPending
	}
}

// StatusLabel returns the display label for a status, defaulting to the
// pending label for empty or unknown values. The fallback is display-only
// and does not recognize the value: ParseStatus still reports such values
// as unrecognized.
func StatusLabel(s Status) string {
	if label, ok := StatusLabels()[s]; ok {
		return label
	}
	return StatusLabels()[StatusPending]
}

// StatusLabels returns display labels for every observable status.
func StatusLabels() map[Status]string {
	return map[Status]string{
		StatusPreApproved: "Pre Approved",
		StatusPending:     "Pending",
		StatusApproved:    "Approve",
		StatusBlocked:     "Block",
	}
}

// ParseStatus parses a raw string into a Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	switch s {
	case StatusPreApproved, StatusPending, StatusApproved, StatusBlocked:
		return s, true
	default:
		return s, false
	}
}

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole       `bun:"user_role,notnull" json:"user_role,omitempty"`
	FirstName      string         `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"password_hash,omitempty"`
	EmailValidated bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]interface{})
	}
	u.Metadata[key] = val
	return u
}

// StatusRecord is the stored approval status for a subject account. Absence
// of a record means the account is pending.
type StatusRecord struct {
	bun.BaseModel `bun:"table:user_approval_statuses,alias:uas"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	Status        Status     `bun:"status,notnull" json:"status,omitempty"`
	VerifiedBy    uuid.UUID  `bun:"verified_by,type:uuid" json:"verified_by,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// PasswordResetStep step on password reset
type PasswordResetStep = string

const (
	// ResetUnknown is the unknown status
	ResetUnknown PasswordResetStep = "unknown"
	// ResetInit is the initial step
	ResetInit PasswordResetStep = "show-reset"
	// AccountVerification notifiction sent
	AccountVerification PasswordResetStep = "email-sent"
)

const (
	// ResetRequestedStatus is the requested status
	ResetRequestedStatus = "requested"
	// ResetChangedStatus is the changed status
	ResetChangedStatus = "changed"
)

// PasswordReset tracks a reset request initiated by a user.
type PasswordReset struct {
	bun.BaseModel `bun:"table:password_reset,alias:pwdr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Status        string     `bun:"status,notnull" json:"status,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
