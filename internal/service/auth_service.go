package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/internal/dto"
	"github.com/prperemyshlev/spamdetect-backend/internal/repository"
	"github.com/prperemyshlev/spamdetect-backend/internal/utils"
	"github.com/prperemyshlev/spamdetect-backend/pkg/observability"
	"go.uber.org/zap"
)

// authService implements AuthService interface
type authService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	mailer     Mailer
	metrics    *observability.AuthMetrics
	logger     *zap.Logger
	bcryptCost int
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	jwtManager *utils.JWTManager,
	mailer Mailer,
	metrics *observability.AuthMetrics,
	logger *zap.Logger,
	bcryptCost int,
) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		mailer:     mailer,
		metrics:    metrics,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func validateCredentials(email, password string) error {
	if !utils.ValidateEmail(email) {
		return newValidationError("email", "invalid email format")
	}
	if !utils.ValidatePassword(password) {
		return newValidationError("password", fmt.Sprintf("password must be non-blank and at most %d bytes", utils.MaxPasswordBytes))
	}
	return nil
}

// Register creates an unverified account and sends the verification email.
// The account stays committed when delivery fails so that the email can be resent.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) error {
	email := utils.SanitizeEmail(req.Email)
	if err := validateCredentials(email, req.Password); err != nil {
		s.metrics.RecordRegistration(ctx, observability.ResultFailure)
		return err
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		s.metrics.RecordRegistration(ctx, observability.ResultFailure)
		return ErrDuplicateEmail
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check user existence: %w", err)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return err
	}

	token := utils.GenerateVerificationToken()
	user := &domain.User{
		Email:             email,
		PasswordHash:      passwordHash,
		Role:              domain.RoleUser,
		IsVerified:        false,
		VerificationToken: &token,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.RecordRegistration(ctx, observability.ResultFailure)
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	s.metrics.RecordRegistration(ctx, observability.ResultSuccess)

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Error("failed to send verification email",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrEmailDeliveryFailed, err)
	}

	return nil
}

// VerifyEmail consumes a verification token
func (s *authService) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidToken
	}

	if _, err := s.userRepo.ConsumeVerificationToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to verify user: %w", err)
	}

	return nil
}

// Login authenticates a user by email and password
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error) {
	result, err := s.login(ctx, req)
	if err != nil {
		s.metrics.RecordLogin(ctx, observability.ResultFailure)
		return nil, err
	}
	s.metrics.RecordLogin(ctx, observability.ResultSuccess)
	return result, nil
}

func (s *authService) login(ctx context.Context, req *dto.LoginRequest) (*AuthResult, error) {
	email := utils.SanitizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.CanAuthenticate() {
		return nil, ErrEmailNotVerified
	}

	// Federated-only accounts hold a placeholder that is not a bcrypt hash.
	if domain.HasUnusablePassword(user.PasswordHash) {
		utils.BurnPasswordCheck(req.Password)
		return nil, ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.IssueTokens(ctx, user)
}

// RefreshTokens exchanges the active refresh token for a new pair
func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthResult, error) {
	result, err := s.refresh(ctx, refreshToken)
	if err != nil {
		s.metrics.RecordRefresh(ctx, observability.ResultFailure)
		return nil, err
	}
	s.metrics.RecordRefresh(ctx, observability.ResultSuccess)
	return result, nil
}

func (s *authService) refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.logger.Debug("refresh token rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasRefreshToken(refreshToken) || !user.CanAuthenticate() {
		return nil, ErrInvalidToken
	}

	return s.IssueTokens(ctx, user)
}

// ResendVerification issues a new verification token for an unverified account
func (s *authService) ResendVerification(ctx context.Context, email string) (bool, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsVerified {
		return false, nil
	}

	token := utils.GenerateVerificationToken()
	if err := s.userRepo.SetVerificationToken(ctx, user.ID, token); err != nil {
		// Verified in the meantime.
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to store verification token: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, user.Email, token); err != nil {
		s.logger.Error("failed to resend verification email",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return false, fmt.Errorf("%w: %w", ErrEmailDeliveryFailed, err)
	}

	return true, nil
}

// Logout revokes the stored refresh token
func (s *authService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Authenticate validates an access token and loads its account
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*domain.Identity, error) {
	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.CanAuthenticate() {
		return nil, ErrInvalidToken
	}

	return domain.NewIdentity(user), nil
}
