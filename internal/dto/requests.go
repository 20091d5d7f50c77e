package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest carries a refresh token in the body.
// The refresh_token cookie is used when the body is empty.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ResendVerificationRequest asks for a new verification email
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required"`
}

// GoogleAuthRequest carries a Google ID token obtained by the frontend
type GoogleAuthRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// UpdateRoleRequest changes the role of an account
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}
