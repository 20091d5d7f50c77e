package service

import (
	"context"

	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/internal/dto"
)

// AuthService defines the session operations of local accounts
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) error
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*AuthResult, error)
	// ResendVerification reports false when the account is unknown or already verified
	ResendVerification(ctx context.Context, email string) (bool, error)
	Logout(ctx context.Context, userID string) error
	// Authenticate resolves an access token to the identity it was issued for
	Authenticate(ctx context.Context, accessToken string) (*domain.Identity, error)
	IssueTokens(ctx context.Context, user *domain.User) (*AuthResult, error)
}

// OAuthService maps external identities onto local accounts
type OAuthService interface {
	FindOrCreateFederatedUser(ctx context.Context, externalID, email, displayName string) (*domain.User, error)
	AuthorizationURL(ctx context.Context) (string, error)
	CompleteAuthorization(ctx context.Context, state, code string) (*AuthResult, error)
	LoginWithIDToken(ctx context.Context, credential string) (*AuthResult, error)
}

// AdminService defines privileged account operations
type AdminService interface {
	RegisterAdmin(ctx context.Context, secret string, req *dto.RegisterRequest) (*domain.User, error)
	UpdateUserRole(ctx context.Context, userID, role string) (*domain.User, error)
}

// Mailer delivers verification emails
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, token string) error
}

// FederationProvider talks to an external identity provider
type FederationProvider interface {
	Name() string
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*domain.FederatedIdentity, error)
	VerifyIDToken(ctx context.Context, idToken string) (*domain.FederatedIdentity, error)
}
