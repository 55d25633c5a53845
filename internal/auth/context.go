package auth

import (
	"context"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
)

// SystemUserID identifies API key callers
const SystemUserID = "system"

// UserContext holds authenticated user information
type UserContext struct {
	UserID string
	Name   string
	Email  string
	Role   domain.UserRole
	// LandlordID is the landlord a staff member works for. Empty for landlords
	// and tenants.
	LandlordID string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRole) bool {
	return u.Role == role
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// IsSystem reports whether the caller authenticated with the API key
func (u *UserContext) IsSystem() bool {
	return u.Role == domain.RoleSystem
}

// IsStaff reports whether the user works requests for a landlord
func (u *UserContext) IsStaff() bool {
	return u.Role.IsStaff()
}

// ScopeLandlordID returns the landlord whose data the user operates on.
// Landlords scope to themselves, staff to their employer. Tenants and the
// system identity have no landlord scope.
func (u *UserContext) ScopeLandlordID() string {
	switch {
	case u.Role == domain.RoleLandlord:
		return u.UserID
	case u.Role.IsStaff():
		return u.LandlordID
	default:
		return ""
	}
}

// CanAccessLandlord checks if the user may see data owned by landlordID
func (u *UserContext) CanAccessLandlord(landlordID string) bool {
	if u.IsSystem() {
		return true
	}
	scope := u.ScopeLandlordID()
	return scope != "" && scope == landlordID
}
