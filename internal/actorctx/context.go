package actorctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role names the privilege level of the authenticated principal.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	default:
		return false
	}
}

// Staff reports whether the role may operate on any order.
func (r Role) Staff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// UserContextKey is the request context key for the authenticated user ID.
type UserContextKey struct{}

// RoleContextKey is the request context key for the authenticated role.
type RoleContextKey struct{}

// WithUserID stores the user ID in the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// WithRole stores the role in the context.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, RoleContextKey{}, role)
}

// UserIDFromContext returns the user ID from context, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	value := ctx.Value(UserContextKey{})
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// RoleFromContext returns the role from context, defaulting to customer.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return RoleCustomer
	}
	if role, ok := ctx.Value(RoleContextKey{}).(Role); ok && role.Valid() {
		return role
	}
	return RoleCustomer
}
