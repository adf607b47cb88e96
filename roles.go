package auth

// UserRole is the user's role
type UserRole string

const (
	// RoleEmployee is the default role (self-service access)
	RoleEmployee UserRole = "Employee"
	// RoleManager can act on direct reports
	RoleManager UserRole = "Manager"
	// RoleHRManager can act on the whole workforce
	RoleHRManager UserRole = "HR Manager"
	// RoleAdministrator has unrestricted access
	RoleAdministrator UserRole = "Administrator"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleHRManager, RoleAdministrator:
		return true
	default:
		return false
	}
}

// String satisfies fmt.Stringer
func (r UserRole) String() string {
	return string(r)
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleEmployee:      0,
		RoleManager:       1,
		RoleHRManager:     2,
		RoleAdministrator: 3,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// CanManagePeople reports whether the role can act on other users' records
func (r UserRole) CanManagePeople() bool {
	return r.IsAtLeast(RoleManager)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleEmployee,
		RoleManager,
		RoleHRManager,
		RoleAdministrator,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}
