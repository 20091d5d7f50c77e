package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
)

var (
	// ErrWrongTokenType is returned when an access token is presented as refresh token or vice versa
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrMissingSubject is returned when a token carries no subject
	ErrMissingSubject = errors.New("token has no subject")
)

// Claims is the JWT payload of both access and refresh tokens
type Claims struct {
	TokenType domain.TokenType `json:"token_type"`
	Role      string           `json:"role,omitempty"`
	Roles     []string         `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// ClaimSet holds the claims added on top of subject and timestamps
type ClaimSet struct {
	Type  domain.TokenType
	Role  string
	Roles []string
}

// JWTManager manages JWT token operations
type JWTManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// JWTOption configures a JWTManager
type JWTOption func(*JWTManager)

// WithClock overrides the time source used for issuing and verifying tokens
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWTManager) {
		j.now = now
	}
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, accessTokenExpiry, refreshTokenExpiry time.Duration, opts ...JWTOption) *JWTManager {
	j := &JWTManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Issue signs a token for subject that expires ttl from now
func (j *JWTManager) Issue(subject string, set ClaimSet, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}

	now := j.now()
	claims := &Claims{
		TokenType: set.Type,
		Role:      set.Role,
		Roles:     set.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// GenerateAccessToken generates a new access token carrying the user's role
func (j *JWTManager) GenerateAccessToken(user *domain.User) (string, error) {
	return j.Issue(user.Email, ClaimSet{
		Type:  domain.TokenTypeAccess,
		Role:  string(user.Role),
		Roles: []string{string(user.Role)},
	}, j.accessTokenExpiry)
}

// GenerateRefreshToken generates a new refresh token
func (j *JWTManager) GenerateRefreshToken(user *domain.User) (string, error) {
	return j.Issue(user.Email, ClaimSet{Type: domain.TokenTypeRefresh}, j.refreshTokenExpiry)
}

// Verify checks signature and expiry and returns the token claims
func (j *JWTManager) Verify(tokenString string) (*domain.TokenClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	tokenClaims := &domain.TokenClaims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Type:      claims.TokenType,
		Role:      claims.Role,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		tokenClaims.IssuedAt = claims.IssuedAt.Time
	}

	if tokenClaims.IsExpiredAt(j.now()) {
		return nil, fmt.Errorf("token is expired")
	}

	return tokenClaims, nil
}

// ExtractSubject verifies the token and returns its subject
func (j *JWTManager) ExtractSubject(tokenString string) (string, error) {
	claims, err := j.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ValidateAccessToken verifies an access token
func (j *JWTManager) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateType(tokenString, domain.TokenTypeAccess)
}

// ValidateRefreshToken verifies a refresh token
func (j *JWTManager) ValidateRefreshToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateType(tokenString, domain.TokenTypeRefresh)
}

func (j *JWTManager) validateType(tokenString string, want domain.TokenType) (*domain.TokenClaims, error) {
	claims, err := j.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: got %q", ErrWrongTokenType, claims.Type)
	}
	return claims, nil
}

// GetAccessTokenExpiry returns the access token expiry duration in seconds
func (j *JWTManager) GetAccessTokenExpiry() int {
	return int(j.accessTokenExpiry.Seconds())
}

// GetRefreshTokenExpiry returns the refresh token expiry duration in seconds
func (j *JWTManager) GetRefreshTokenExpiry() int {
	return int(j.refreshTokenExpiry.Seconds())
}
