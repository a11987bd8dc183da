package crew

// UserRole is the user's role
type UserRole string

const (
	// RoleCreator is the single system operator
	RoleCreator UserRole = "CREATOR"
	// RoleOwner is the company owner (L1)
	RoleOwner UserRole = "ADMIN_L1"
	// RoleDeputy is a company deputy (L2) with a configurable permission set
	RoleDeputy UserRole = "ADMIN_L2"
	// RoleMember is workforce, office staff or talent
	RoleMember UserRole = "USER"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleCreator, RoleOwner, RoleDeputy, RoleMember:
		return true
	default:
		return false
	}
}

// IsOwnerScope reports whether the role has full authority inside a company
func (r UserRole) IsOwnerScope() bool {
	return r == RoleCreator || r == RoleOwner
}

// IsAdmin reports whether the role is any admin tier
func (r UserRole) IsAdmin() bool {
	return r == RoleCreator || r == RoleOwner || r == RoleDeputy
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleMember:  0,
		RoleDeputy:  1,
		RoleOwner:   2,
		RoleCreator: 3,
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

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// Permission is a deputy capability grant
type Permission string

const (
	PermApproveStaff     Permission = "APPROVE_STAFF"
	PermApproveTransfers Permission = "APPROVE_TRANSFERS"
	PermManageFinance    Permission = "MANAGE_FINANCE"
	PermCreateProject    Permission = "CREATE_PROJECT"
	PermEditUsers        Permission = "EDIT_USERS"
)

// AllPermissions returns every deputy permission
func AllPermissions() []Permission {
	return []Permission{
		PermApproveStaff,
		PermApproveTransfers,
		PermManageFinance,
		PermCreateProject,
		PermEditUsers,
	}
}

// IsValid checks the permission against the known set
func (p Permission) IsValid() bool {
	for _, known := range AllPermissions() {
		if p == known {
			return true
		}
	}
	return false
}
