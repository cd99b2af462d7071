package approval_test

import (
	"testing"

	approval "github.com/goliatone/go-user-approval"
	"github.com/stretchr/testify/assert"
)

func TestRolePolicyDefaultsToGuestSubject(t *testing.T) {
	policy := approval.NewRolePolicy()

	assert.Equal(t, approval.RoleGuest, policy.SubjectRole())
	assert.True(t, policy.IsSubject(&approval.User{Role: approval.RoleGuest}))
	assert.False(t, policy.IsSubject(&approval.User{Role: approval.RoleAdmin}))
	assert.False(t, policy.IsSubject(nil))
}

func TestRolePolicyCustomSubjectRole(t *testing.T) {
	policy := approval.NewRolePolicy(approval.WithSubjectRole(approval.RoleMember))

	assert.True(t, policy.IsSubjectRole(approval.RoleMember))
	assert.False(t, policy.IsSubjectRole(approval.RoleGuest))
}

func TestRolePolicyResolverOverridesConfiguredRole(t *testing.T) {
	policy := approval.NewRolePolicy(
		approval.WithSubjectRoleResolver(func(configured approval.UserRole) approval.UserRole {
			return approval.RoleMember
		}),
	)

	assert.Equal(t, approval.RoleMember, policy.SubjectRole())
	assert.True(t, policy.IsSubject(&approval.User{Role: approval.RoleMember}))
	assert.False(t, policy.IsSubject(&approval.User{Role: approval.RoleGuest}))
}

func TestRolePolicyPreApprovedRolesExcludesSubject(t *testing.T) {
	policy := approval.NewRolePolicy()

	roles := policy.PreApprovedRoles()
	assert.Equal(t, []approval.UserRole{approval.RoleAdmin, approval.RoleMember, approval.RoleOwner}, roles)
}

func TestRolePolicyRoleLabelFallsBackToValue(t *testing.T) {
	policy := approval.NewRolePolicy()

	assert.Equal(t, "Guest", policy.RoleLabel(approval.RoleGuest))
	assert.Equal(t, "contributor", policy.RoleLabel("contributor"))
}
