package domain

import (
	"context"
	"errors"
)

// User is the already-authenticated caller of a core operation.
type User struct {
	ID   string
	Role Role
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin may resolve orders and withdrawals and adjust balances.
	RoleAdmin Role = "admin"

	// RoleUser operates on its own balance only.
	RoleUser Role = "user"
)

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// IsAdmin reports whether the role may perform administrative operations.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

type userContextKey struct{}

// ContextWithUser returns a copy of ctx carrying user.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext extracts the authenticated user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey{}).(*User)
	return user, ok && user != nil
}

// ActorFromContext names the caller for CreatedBy fields.
func ActorFromContext(ctx context.Context) string {
	if user, ok := UserFromContext(ctx); ok {
		return user.ID
	}
	return "system"
}
