package auth_test

import (
	"testing"

	auth "github.com/Tanmay4803/LeanCircle"
	"github.com/stretchr/testify/assert"
)

func TestUserRole_IsValid(t *testing.T) {
	tests := []struct {
		role     auth.UserRole
		expected bool
	}{
		{auth.RoleEmployee, true},
		{auth.RoleManager, true},
		{auth.RoleHRManager, true},
		{auth.RoleAdministrator, true},
		{auth.UserRole("Intern"), false},
		{auth.UserRole(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.IsValid())
		})
	}
}

func TestUserRole_IsAtLeast(t *testing.T) {
	assert.True(t, auth.RoleAdministrator.IsAtLeast(auth.RoleEmployee))
	assert.True(t, auth.RoleAdministrator.IsAtLeast(auth.RoleAdministrator))
	assert.True(t, auth.RoleHRManager.IsAtLeast(auth.RoleManager))
	assert.True(t, auth.RoleManager.IsAtLeast(auth.RoleEmployee))
	assert.False(t, auth.RoleEmployee.IsAtLeast(auth.RoleManager))
	assert.False(t, auth.RoleManager.IsAtLeast(auth.RoleHRManager))

	// Unknown roles never satisfy any requirement
	assert.False(t, auth.UserRole("Intern").IsAtLeast(auth.RoleEmployee))
	assert.False(t, auth.RoleEmployee.IsAtLeast(auth.UserRole("Intern")))
}

func TestUserRole_CanManagePeople(t *testing.T) {
	assert.False(t, auth.RoleEmployee.CanManagePeople())
	assert.True(t, auth.RoleManager.CanManagePeople())
	assert.True(t, auth.RoleHRManager.CanManagePeople())
	assert.True(t, auth.RoleAdministrator.CanManagePeople())
}

func TestGetAllRoles(t *testing.T) {
	roles := auth.GetAllRoles()

	assert.Equal(t, []auth.UserRole{
		auth.RoleEmployee,
		auth.RoleManager,
		auth.RoleHRManager,
		auth.RoleAdministrator,
	}, roles)
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole("HR Manager")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleHRManager, role)

	_, ok = auth.ParseRole("hr manager")
	assert.False(t, ok)

	_, ok = auth.ParseRole("")
	assert.False(t, ok)
}
