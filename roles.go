package approval

import "sort"

// SubjectRoleResolver lets the host override the configured subject role per
// resolution. It receives the configured role and returns the effective one.
type SubjectRoleResolver func(configured UserRole) UserRole

// RolePolicy decides which accounts are subject to approval. Accounts whose
// role is not the subject role are permanently exempt (pre-approved).
type RolePolicy struct {
	subjectRole UserRole
	roleLabels  map[UserRole]string
	resolver    SubjectRoleResolver
}

// RolePolicyOption customizes role policy construction.
type RolePolicyOption func(*RolePolicy)

// WithSubjectRole sets the role that requires approval.
func WithSubjectRole(role UserRole) RolePolicyOption {
	return func(p *RolePolicy) {
		if role != "" {
			p.subjectRole = role
		}
	}
}

// WithRoleLabels sets the known role display labels.
func WithRoleLabels(labels map[UserRole]string) RolePolicyOption {
	return func(p *RolePolicy) {
		if len(labels) > 0 {
			p.roleLabels = labels
		}
	}
}

// WithSubjectRoleResolver installs a resolver that can override the
// configured subject role.
func WithSubjectRoleResolver(resolver SubjectRoleResolver) RolePolicyOption {
	return func(p *RolePolicy) {
		if resolver != nil {
			p.resolver = resolver
		}
	}
}

// NewRolePolicy creates a role policy. New registrations default to RoleGuest
// so that is the default subject role.
func NewRolePolicy(opts ...RolePolicyOption) *RolePolicy {
	p := &RolePolicy{
		subjectRole: RoleGuest,
		roleLabels: map[UserRole]string{
			RoleGuest:  "Guest",
			RoleMember: "Member",
			RoleAdmin:  "Admin",
			RoleOwner:  "Owner",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// SubjectRole returns the role currently requiring approval.
func (p *RolePolicy) SubjectRole() UserRole {
	if p.resolver != nil {
		if role := p.resolver(p.subjectRole); role != "" {
			return role
		}
	}
	return p.subjectRole
}

// IsSubject reports whether the account is subject to the approval policy.
func (p *RolePolicy) IsSubject(user *User) bool {
	if user == nil {
		return false
	}
	return user.Role == p.SubjectRole()
}

// IsSubjectRole reports whether the given role is the subject role.
func (p *RolePolicy) IsSubjectRole(role UserRole) bool {
	return role == p.SubjectRole()
}

// PreApprovedRoles returns all known roles except the subject role. Used to
// build list filter predicates, never for enforcement.
func (p *RolePolicy) PreApprovedRoles() []UserRole {
	subject := p.SubjectRole()
	roles := make([]UserRole, 0, len(p.roleLabels))
	for role := range p.roleLabels {
		if role == subject {
			continue
		}
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// RoleLabel returns the display label for a role, falling back to the role
// value itself.
func (p *RolePolicy) RoleLabel(role UserRole) string {
	if label, ok := p.roleLabels[role]; ok {
		return label
	}
	return string(role)
}
