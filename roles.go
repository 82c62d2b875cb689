package auth

// UserRole is the coarse authorization tag carried by every identity.
type UserRole = string

const (
	// RoleStandard is a regular buyer/seller account.
	RoleStandard UserRole = "standard"
	// RoleAgent is a listing agent (may manage properties and leads).
	RoleAgent UserRole = "agent"
	// RoleAdmin is a back-office administrator.
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleStandard, RoleAgent, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleIsAtLeast checks if a role meets the minimum required level.
func RoleIsAtLeast(r, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleStandard: 0,
		RoleAgent:    1,
		RoleAdmin:    2,
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

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleStandard,
		RoleAgent,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}
