package dto

import (
	"time"

	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
)

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         UserInfo `json:"user"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserResponse represents a user response
type UserResponse struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Role         string  `json:"role"`
	IsVerified   bool    `json:"is_verified"`
	AuthProvider *string `json:"auth_provider"`
	CreatedAt    string  `json:"created_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewAuthResponse builds the body returned after sign-in or refresh
func NewAuthResponse(user *domain.User, tokens domain.TokenPair) AuthResponse {
	return AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
		User: UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Role:  string(user.Role),
		},
	}
}

// NewUserResponse converts a user to its public representation
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Role:         string(user.Role),
		IsVerified:   user.IsVerified,
		AuthProvider: user.AuthProvider,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}
}
