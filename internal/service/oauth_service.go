package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/internal/repository"
	"github.com/prperemyshlev/spamdetect-backend/internal/utils"
	"github.com/prperemyshlev/spamdetect-backend/pkg/observability"
	"go.uber.org/zap"
)

// oauthService implements OAuthService interface
type oauthService struct {
	userRepo    repository.UserRepository
	authService AuthService
	provider    FederationProvider
	states      *OAuthStateStore
	stateTTL    time.Duration
	metrics     *observability.AuthMetrics
	logger      *zap.Logger
}

// NewOAuthService creates a new OAuth service. provider may be nil when
// federation is not configured; FindOrCreateFederatedUser still works then.
func NewOAuthService(
	userRepo repository.UserRepository,
	authService AuthService,
	provider FederationProvider,
	states *OAuthStateStore,
	stateTTL time.Duration,
	metrics *observability.AuthMetrics,
	logger *zap.Logger,
) OAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &oauthService{
		userRepo:    userRepo,
		authService: authService,
		provider:    provider,
		states:      states,
		stateTTL:    stateTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *oauthService) providerName() string {
	if s.provider == nil {
		return domain.ProviderGoogle
	}
	return s.provider.Name()
}

// FindOrCreateFederatedUser resolves an external identity to a local account.
// An unlinked account with the same email is linked in place; otherwise a new
// verified account without a usable password is created.
func (s *oauthService) FindOrCreateFederatedUser(ctx context.Context, externalID, email, displayName string) (*domain.User, error) {
	email = utils.SanitizeEmail(email)
	externalID = strings.TrimSpace(externalID)
	if email == "" {
		return nil, newValidationError("email", "email is required")
	}
	if externalID == "" {
		return nil, newValidationError("external_id", "external id is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.link(ctx, user, externalID)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user = &domain.User{
		Email:        email,
		PasswordHash: domain.UnusablePassword(uuid.NewString()),
		Role:         domain.RoleUser,
		IsVerified:   true,
	}
	user.LinkProvider(s.providerName(), externalID)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			return nil, fmt.Errorf("%w: %s subject is linked to another account", ErrFederationFailed, s.providerName())
		}
		if !errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		// Lost a race with a concurrent sign-up for the same email.
		existing, getErr := s.userRepo.GetByEmail(ctx, email)
		if getErr != nil {
			return nil, fmt.Errorf("failed to get user: %w", getErr)
		}
		return s.link(ctx, existing, externalID)
	}

	s.logger.Info("created federated user",
		zap.String("user_id", user.ID),
		zap.String("provider", s.providerName()),
		zap.String("display_name", displayName),
	)
	return user, nil
}

func (s *oauthService) link(ctx context.Context, user *domain.User, externalID string) (*domain.User, error) {
	if user.IsFederated() {
		return user, nil
	}

	linked, err := s.userRepo.LinkProvider(ctx, user.ID, s.providerName(), externalID, domain.UnusablePassword(uuid.NewString()))
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			return nil, fmt.Errorf("%w: %s subject is linked to another account", ErrFederationFailed, s.providerName())
		}
		return nil, fmt.Errorf("failed to link provider: %w", err)
	}

	s.logger.Info("linked federated identity",
		zap.String("user_id", linked.ID),
		zap.String("provider", s.providerName()),
		zap.Bool("password_revoked", !user.IsVerified),
	)
	return linked, nil
}

// AuthorizationURL starts the browser flow with a fresh single-use state
func (s *oauthService) AuthorizationURL(ctx context.Context) (string, error) {
	if s.provider == nil {
		return "", ErrFederationDisabled
	}

	state := uuid.NewString()
	if err := s.states.Save(ctx, state, s.stateTTL); err != nil {
		return "", err
	}
	return s.provider.AuthCodeURL(state), nil
}

// CompleteAuthorization finishes the browser flow
func (s *oauthService) CompleteAuthorization(ctx context.Context, state, code string) (*AuthResult, error) {
	if s.provider == nil {
		return nil, ErrFederationDisabled
	}

	ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.RecordFederatedLogin(ctx, observability.ResultFailure)
		return nil, ErrInvalidOAuthState
	}

	identity, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.RecordFederatedLogin(ctx, observability.ResultFailure)
		s.logger.Warn("authorization code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFederationFailed, err)
	}

	return s.signIn(ctx, identity)
}

// LoginWithIDToken signs in with an ID token obtained by the frontend
func (s *oauthService) LoginWithIDToken(ctx context.Context, credential string) (*AuthResult, error) {
	if s.provider == nil {
		return nil, ErrFederationDisabled
	}

	identity, err := s.provider.VerifyIDToken(ctx, credential)
	if err != nil {
		s.metrics.RecordFederatedLogin(ctx, observability.ResultFailure)
		s.logger.Warn("id token verification failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFederationFailed, err)
	}

	return s.signIn(ctx, identity)
}

func (s *oauthService) signIn(ctx context.Context, identity *domain.FederatedIdentity) (*AuthResult, error) {
	if !identity.EmailVerified {
		s.metrics.RecordFederatedLogin(ctx, observability.ResultFailure)
		return nil, fmt.Errorf("%w: provider has not verified the email", ErrFederationFailed)
	}

	user, err := s.FindOrCreateFederatedUser(ctx, identity.Subject, identity.Email, identity.Name)
	if err != nil {
		s.metrics.RecordFederatedLogin(ctx, observability.ResultFailure)
		return nil, err
	}

	result, err := s.authService.IssueTokens(ctx, user)
	if err != nil {
		s.metrics.RecordFederatedLogin(ctx, observability.ResultFailure)
		return nil, err
	}

	s.metrics.RecordFederatedLogin(ctx, observability.ResultSuccess)
	return result, nil
}
