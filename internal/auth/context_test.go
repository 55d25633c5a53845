package auth_test

import (
	"context"
	"testing"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	user := &auth.UserContext{UserID: "l1", Role: domain.RoleLandlord}
	got, ok := auth.FromContext(auth.WithUserContext(context.Background(), user))
	assert.True(t, ok)
	assert.Same(t, user, got)
}

func TestUserContext_ScopeLandlordID(t *testing.T) {
	tests := []struct {
		name string
		user auth.UserContext
		want string
	}{
		{"landlord scopes to self", auth.UserContext{UserID: "l1", Role: domain.RoleLandlord}, "l1"},
		{"staff scopes to employer", auth.UserContext{UserID: "s1", Role: domain.RoleMaintenanceStaff, LandlordID: "l1"}, "l1"},
		{"manager scopes to employer", auth.UserContext{UserID: "m1", Role: domain.RolePropertyManager, LandlordID: "l2"}, "l2"},
		{"tenant has no scope", auth.UserContext{UserID: "t1", Role: domain.RoleTenant, LandlordID: "l1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.ScopeLandlordID())
		})
	}
}

func TestUserContext_CanAccessLandlord(t *testing.T) {
	system := &auth.UserContext{UserID: auth.SystemUserID, Role: domain.RoleSystem}
	assert.True(t, system.CanAccessLandlord("anyone"))

	staff := &auth.UserContext{UserID: "s1", Role: domain.RoleMaintenanceStaff, LandlordID: "l1"}
	assert.True(t, staff.CanAccessLandlord("l1"))
	assert.False(t, staff.CanAccessLandlord("l2"))

	tenant := &auth.UserContext{UserID: "t1", Role: domain.RoleTenant}
	assert.False(t, tenant.CanAccessLandlord(""))
}
