// Package yaricommon provides shared types and context management for the
// Yari server: the resolved caller identity, role constants, and the
// helpers handlers use to read them off the request context.
package yaricommon

import (
	"context"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// ctxKeyType represents the type for all context keys.
type ctxKeyType string

const (
	ctxUserContextKey ctxKeyType = "YariUserContext"
)

// Role is the coarse role attached to a resolved identity.
type Role string

const (
	RoleUser   Role = "user"
	RoleExpert Role = "expert"
	RoleAdmin  Role = "admin"
)

// UserContext is the identity resolved from a bearer credential. It is the
// only caller state the core trusts; everything else is looked up per
// operation.
type UserContext struct {
	// UserID is the unique identifier for the caller
	UserID uuid.UUID
	// Role is the caller's role as asserted by the identity service
	Role Role
}

// WithUserContext sets the resolved user context on the provided context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, ctxUserContextKey, uc)
}

// GetUserContext retrieves the resolved user context, or nil when the
// request is unauthenticated.
func GetUserContext(ctx context.Context) *UserContext {
	if uc, ok := ctx.Value(ctxUserContextKey).(*UserContext); ok {
		return uc
	}
	return nil
}

// GetUserID returns the caller's user id, or uuid.Nil when unauthenticated.
func GetUserID(ctx context.Context) uuid.UUID {
	if uc := GetUserContext(ctx); uc != nil {
		return uc.UserID
	}
	return uuid.Nil
}
