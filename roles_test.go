package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/IsahPhilip/house-unlimited-ng-sub001"
)

func TestIsValidRole(t *testing.T) {
	assert.True(t, auth.IsValidRole(auth.RoleStandard))
	assert.True(t, auth.IsValidRole(auth.RoleAgent))
	assert.True(t, auth.IsValidRole(auth.RoleAdmin))
	assert.False(t, auth.IsValidRole("owner"))
	assert.False(t, auth.IsValidRole(""))
}

func TestRoleIsAtLeast(t *testing.T) {
	tests := []struct {
		role    auth.UserRole
		minRole auth.UserRole
		want    bool
	}{
		{auth.RoleAdmin, auth.RoleStandard, true},
		{auth.RoleAdmin, auth.RoleAgent, true},
		{auth.RoleAdmin, auth.RoleAdmin, true},
		{auth.RoleAgent, auth.RoleStandard, true},
		{auth.RoleAgent, auth.RoleAgent, true},
		{auth.RoleAgent, auth.RoleAdmin, false},
		{auth.RoleStandard, auth.RoleStandard, true},
		{auth.RoleStandard, auth.RoleAgent, false},
		{auth.RoleStandard, auth.RoleAdmin, false},
		{"unknown", auth.RoleStandard, false},
		{auth.RoleAdmin, "unknown", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, auth.RoleIsAtLeast(tt.role, tt.minRole),
			"RoleIsAtLeast(%q, %q)", tt.role, tt.minRole)
	}
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole("agent")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAgent, role)

	_, ok = auth.ParseRole("superuser")
	assert.False(t, ok)
}

func TestGetAllRoles(t *testing.T) {
	roles := auth.GetAllRoles()
	assert.Equal(t, []auth.UserRole{auth.RoleStandard, auth.RoleAgent, auth.RoleAdmin}, roles)
}
