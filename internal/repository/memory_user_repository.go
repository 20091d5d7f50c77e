package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
)

// MemoryUserRepository is an in-process UserRepository.
// Every read returns a copy so callers never share state.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

var _ UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository creates an empty in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.VerificationToken = cloneString(u.VerificationToken)
	c.AuthProvider = cloneString(u.AuthProvider)
	c.ProviderUserID = cloneString(u.ProviderUserID)
	c.RefreshToken = cloneString(u.RefreshToken)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func (r *MemoryUserRepository) findLocked(match func(*domain.User) bool) *domain.User {
	for _, u := range r.users {
		if match(u) {
			return u
		}
	}
	return nil
}

// identityTakenLocked mirrors the partial unique index on (auth_provider, provider_user_id).
func (r *MemoryUserRepository) identityTakenLocked(user *domain.User) bool {
	if user.AuthProvider == nil || user.ProviderUserID == nil {
		return false
	}
	return r.findLocked(func(u *domain.User) bool {
		return u.ID != user.ID &&
			u.AuthProvider != nil && *u.AuthProvider == *user.AuthProvider &&
			u.ProviderUserID != nil && *u.ProviderUserID == *user.ProviderUserID
	}) != nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findLocked(func(u *domain.User) bool { return u.Email == user.Email }) != nil {
		return fmt.Errorf("user with email %s already exists: %w", user.Email, ErrDuplicateEmail)
	}
	if r.identityTakenLocked(user) {
		return ErrDuplicateIdentity
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u := r.findLocked(func(u *domain.User) bool { return u.Email == email }); u != nil {
		return cloneUser(u), nil
	}
	return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u, ok := r.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
}

func (r *MemoryUserRepository) ConsumeVerificationToken(_ context.Context, token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.findLocked(func(u *domain.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	})
	if u == nil {
		return nil, fmt.Errorf("user with verification token not found: %w", ErrNotFound)
	}

	u.MarkVerified()
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) SetVerificationToken(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || u.IsVerified {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	u.VerificationToken = &token
	u.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) LinkProvider(_ context.Context, userID, provider, subject, unusablePassword string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}
	if u.AuthProvider != nil {
		return cloneUser(u), nil
	}

	candidate := cloneUser(u)
	candidate.LinkProvider(provider, subject)
	if r.identityTakenLocked(candidate) {
		return nil, ErrDuplicateIdentity
	}

	u.LinkProvider(provider, subject)
	if !u.IsVerified {
		u.PasswordHash = unusablePassword
	}
	u.MarkVerified()
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (r *MemoryUserRepository) UpdateRefreshToken(_ context.Context, userID string, token *string) error {
	return r.mutate(userID, func(u *domain.User) {
		u.RefreshToken = cloneString(token)
	})
}

func (r *MemoryUserRepository) UpdateRole(_ context.Context, userID string, role domain.Role) error {
	return r.mutate(userID, func(u *domain.User) {
		u.Role = role
	})
}

func (r *MemoryUserRepository) mutate(userID string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

// Count returns the number of stored users
func (r *MemoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
