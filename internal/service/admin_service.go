package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/internal/dto"
	"github.com/prperemyshlev/spamdetect-backend/internal/repository"
	"github.com/prperemyshlev/spamdetect-backend/internal/utils"
	"go.uber.org/zap"
)

// adminService implements AdminService interface
type adminService struct {
	userRepo    repository.UserRepository
	adminSecret string
	bcryptCost  int
	logger      *zap.Logger
}

// NewAdminService creates a new admin service. An empty adminSecret
// disables admin registration.
func NewAdminService(userRepo repository.UserRepository, adminSecret string, bcryptCost int, logger *zap.Logger) AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &adminService{
		userRepo:    userRepo,
		adminSecret: adminSecret,
		bcryptCost:  bcryptCost,
		logger:      logger,
	}
}

// RegisterAdmin creates a verified administrator account
func (s *adminService) RegisterAdmin(ctx context.Context, secret string, req *dto.RegisterRequest) (*domain.User, error) {
	if s.adminSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.adminSecret)) != 1 {
		return nil, ErrForbidden
	}

	email := utils.SanitizeEmail(req.Email)
	if err := validateCredentials(email, req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
		IsVerified:   true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("admin account created", zap.String("user_id", user.ID))
	return user, nil
}

// UpdateUserRole is the only operation that changes an account's role
func (s *adminService) UpdateUserRole(ctx context.Context, userID, role string) (*domain.User, error) {
	parsed, ok := domain.ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}
	if uuid.Validate(userID) != nil {
		return nil, ErrUserNotFound
	}

	if err := s.userRepo.UpdateRole(ctx, userID, parsed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	s.logger.Info("user role updated", zap.String("user_id", userID), zap.String("role", string(parsed)))
	return user, nil
}
