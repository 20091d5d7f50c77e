package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/pkg/database"
)

const userColumns = `id, email, password_hash, role, is_verified, verification_token,
		auth_provider, provider_user_id, refresh_token, created_at, updated_at`

// userRepository implements UserRepository interface
type userRepository struct {
	db *database.Postgres
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Postgres) UserRepository {
	return &userRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var role string
	var verificationToken, authProvider, providerUserID, refreshToken sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.IsVerified,
		&verificationToken,
		&authProvider,
		&providerUserID,
		&refreshToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = domain.Role(role)
	user.VerificationToken = nullableString(verificationToken)
	user.AuthProvider = nullableString(authProvider)
	user.ProviderUserID = nullableString(providerUserID)
	user.RefreshToken = nullableString(refreshToken)

	return user, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

const providerIdentityIndex = "idx_users_provider_identity"

// uniqueViolation translates a unique constraint failure into a repository error.
// It returns nil for any other error.
func uniqueViolation(err error, email string) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	if pqErr.Constraint == providerIdentityIndex {
		return ErrDuplicateIdentity
	}
	return fmt.Errorf("user with email %s already exists: %w", email, ErrDuplicateEmail)
}

// Create creates a new user in the database
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

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
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.IsVerified,
		user.VerificationToken,
		user.AuthProvider,
		user.ProviderUserID,
		user.RefreshToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if dupErr := uniqueViolation(err, user.Email); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

// ConsumeVerificationToken marks the holder of token verified and clears the token
func (r *userRepository) ConsumeVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	query := `
		UPDATE users
		SET is_verified = TRUE, verification_token = NULL, updated_at = $2
		WHERE verification_token = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, token, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with verification token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}

	return user, nil
}

// SetVerificationToken replaces the verification token of an unverified user
func (r *userRepository) SetVerificationToken(ctx context.Context, userID, token string) error {
	query := `
		UPDATE users SET verification_token = $1, updated_at = $2
		WHERE id = $3 AND is_verified = FALSE
	`

	result, err := r.db.DB.ExecContext(ctx, query, token, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
	}

	return expectOneRow(result, userID)
}

// LinkProvider attaches a provider identity to an unlinked user
func (r *userRepository) LinkProvider(ctx context.Context, userID, provider, subject, unusablePassword string) (*domain.User, error) {
	query := `
		UPDATE users
		SET auth_provider = $2,
			provider_user_id = $3,
			password_hash = CASE WHEN is_verified THEN password_hash ELSE $4 END,
			is_verified = TRUE,
			verification_token = NULL,
			updated_at = $5
		WHERE id = $1 AND auth_provider IS NULL
		RETURNING ` + userColumns

	user, err := scanUser(r.db.DB.QueryRowContext(ctx, query, userID, provider, subject, unusablePassword, time.Now()))
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, sql.ErrNoRows):
		// Already linked, or gone.
		return r.GetByID(ctx, userID)
	}

	if dupErr := uniqueViolation(err, ""); dupErr != nil {
		return nil, dupErr
	}
	return nil, fmt.Errorf("failed to link provider: %w", err)
}

// UpdateRefreshToken replaces the stored refresh token
func (r *userRepository) UpdateRefreshToken(ctx context.Context, userID string, token *string) error {
	query := `UPDATE users SET refresh_token = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.DB.ExecContext(ctx, query, token, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}

	return expectOneRow(result, userID)
}

// UpdateRole changes the role of a user
func (r *userRepository) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	query := `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.DB.ExecContext(ctx, query, string(role), time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	return expectOneRow(result, userID)
}

func expectOneRow(result sql.Result, userID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user with id %s not found: %w", userID, ErrNotFound)
	}

	return nil
}
