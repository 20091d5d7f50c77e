package repository

import (
	"context"

	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// ConsumeVerificationToken verifies the account holding token and clears
	// the token in one statement. ErrNotFound when no account holds it.
	ConsumeVerificationToken(ctx context.Context, token string) (*domain.User, error)
	// SetVerificationToken replaces the token of an account that is still
	// unverified. ErrNotFound when the account is missing or already verified.
	SetVerificationToken(ctx context.Context, userID, token string) error
	// LinkProvider attaches a provider identity to an account that has none.
	// An unverified account becomes verified and loses its password. Returns
	// the stored account, unchanged when it was already linked.
	LinkProvider(ctx context.Context, userID, provider, subject, unusablePassword string) (*domain.User, error)
	// UpdateRefreshToken replaces the stored refresh token; nil clears it
	UpdateRefreshToken(ctx context.Context, userID string, token *string) error
	UpdateRole(ctx context.Context, userID string, role domain.Role) error
}
