package domain

import (
	"context"
	"slices"
)

// Identity is the authenticated principal of a single request
type Identity struct {
	User        *User
	Authorities []string
}

// NewIdentity derives authorities from the user's role
func NewIdentity(user *User) *Identity {
	return &Identity{
		User:        user,
		Authorities: []string{user.Role.Authority()},
	}
}

// HasRole reports whether the identity was granted role
func (i *Identity) HasRole(role Role) bool {
	return slices.Contains(i.Authorities, role.Authority())
}

type identityKey struct{}

// WithIdentity stores the authenticated identity in context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext fetches the authenticated identity from context
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}
