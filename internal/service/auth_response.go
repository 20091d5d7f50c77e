package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
)

// AuthResult is the outcome of a successful sign-in or refresh
type AuthResult struct {
	User             *domain.User
	Tokens           domain.TokenPair
	RefreshExpiresIn int // seconds
}

// IssueTokens signs a fresh access/refresh pair for user and stores the
// refresh token, replacing whatever session was active before.
func (s *authService) IssueTokens(ctx context.Context, user *domain.User) (*AuthResult, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, &refreshToken); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}
	user.RefreshToken = &refreshToken

	return &AuthResult{
		User: user,
		Tokens: domain.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    s.jwtManager.GetAccessTokenExpiry(),
		},
		RefreshExpiresIn: s.jwtManager.GetRefreshTokenExpiry(),
	}, nil
}
