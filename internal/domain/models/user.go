package models

import (
	"context"

	"github.com/Temutjin2k/taxi-dispatch/internal/domain/types"
)

// User is the authenticated caller extracted from an access token.
type User struct {
	ID       int64          `json:"id"`
	Role     types.UserRole `json:"role"`
	DriverID *int64         `json:"driver_id,omitempty"`
}

func AnonymousUser() *User {
	return &User{Role: types.RoleAnonymous}
}

func (u *User) IsAnonymous() bool {
	return u == nil || u.Role == types.RoleAnonymous
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == types.RoleAdmin
}

type userCtxKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the user stored in ctx or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}
