package domain

import "time"

// TokenType distinguishes access tokens from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims represents verified JWT token claims
type TokenClaims struct {
	ID        string
	Subject   string
	Type      TokenType
	Role      string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair represents a pair of access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// IsExpiredAt reports whether the token is expired at now.
// A token expiring exactly at now is expired.
func (tc TokenClaims) IsExpiredAt(now time.Time) bool {
	return !now.Before(tc.ExpiresAt)
}
