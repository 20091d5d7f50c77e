package domain

import (
	"strings"
	"time"
)

// Role is the authorization level of an account
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ProviderGoogle marks accounts linked to a Google identity
const ProviderGoogle = "google"

// unusablePasswordPrefix never appears at the start of a bcrypt hash
const unusablePasswordPrefix = "!"

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Authority returns the granted authority derived from the role
func (r Role) Authority() string {
	return "ROLE_" + string(r)
}

// User represents an account in the system
type User struct {
	ID                string    `json:"id" db:"id"`
	Email             string    `json:"email" db:"email"`
	PasswordHash      string    `json:"-" db:"password_hash"`
	Role              Role      `json:"role" db:"role"`
	IsVerified        bool      `json:"is_verified" db:"is_verified"`
	VerificationToken *string   `json:"-" db:"verification_token"`
	AuthProvider      *string   `json:"auth_provider" db:"auth_provider"`
	ProviderUserID    *string   `json:"-" db:"provider_user_id"`
	RefreshToken      *string   `json:"-" db:"refresh_token"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// IsFederated reports whether the account has an external identity link
func (u *User) IsFederated() bool {
	return u.AuthProvider != nil && *u.AuthProvider != ""
}

// IsFederatedOnly reports whether the account was created through federation
// and has no usable local password.
func (u *User) IsFederatedOnly() bool {
	return u.IsFederated() && HasUnusablePassword(u.PasswordHash)
}

// CanAuthenticate reports whether the account may receive tokens.
// Local accounts must have verified their email first.
func (u *User) CanAuthenticate() bool {
	return u.IsVerified || u.IsFederated()
}

// HasRefreshToken reports whether token is the account's active refresh token
func (u *User) HasRefreshToken(token string) bool {
	return token != "" && u.RefreshToken != nil && *u.RefreshToken == token
}

// LinkProvider attaches an external identity in place
func (u *User) LinkProvider(provider, providerUserID string) {
	u.AuthProvider = &provider
	u.ProviderUserID = &providerUserID
}

// MarkVerified sets the account verified and consumes the verification token
func (u *User) MarkVerified() {
	u.IsVerified = true
	u.VerificationToken = nil
}

// UnusablePassword builds a password placeholder that never matches any input
func UnusablePassword(random string) string {
	return unusablePasswordPrefix + random
}

// HasUnusablePassword reports whether hash is a federation placeholder
func HasUnusablePassword(hash string) bool {
	return hash == "" || strings.HasPrefix(hash, unusablePasswordPrefix)
}
