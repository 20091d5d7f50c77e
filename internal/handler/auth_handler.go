package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/spamdetect-backend/internal/dto"
	"github.com/prperemyshlev/spamdetect-backend/internal/service"
	"go.uber.org/zap"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService  service.AuthService
	oauthService service.OAuthService
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, oauthService service.OAuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		oauthService: oauthService,
		logger:       logger,
	}
}

func setRefreshCookie(c *gin.Context, result *service.AuthResult) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, result.Tokens.RefreshToken, result.RefreshExpiresIn, refreshCookiePath, "", true, true)
}

func clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", true, true)
}

func (h *AuthHandler) respondTokens(c *gin.Context, result *service.AuthResult) {
	setRefreshCookie(c, result)
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Tokens))
}

// Register handles user registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	err := h.authService.Register(c.Request.Context(), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, dto.SuccessResponse{
			Message: "User registered successfully. Please check your email to verify your account.",
		})
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Email is already in use",
		})
	case errors.Is(err, service.ErrEmailDeliveryFailed):
		h.logger.Error("registration email not delivered", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "Email delivery failed",
			Message: "Account created but the verification email could not be sent. Request a new one.",
		})
	default:
		respondError(c, h.logger, err)
	}
}

// Login handles user login
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondTokens(c, result)
}

// VerifyEmail consumes the token from a verification link
// @Summary Verify email
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/verify [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	err := h.authService.VerifyEmail(c.Request.Context(), c.Query("token"))
	if errors.Is(err, service.ErrInvalidToken) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Invalid or expired verification token",
		})
		return
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Email verified successfully"})
}

// ResendVerification sends a new verification email
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sent, err := h.authService.ResendVerification(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !sent {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Email not found or already verified",
		})
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Verification email sent"})
}

// RefreshToken handles token refresh. The token is read from the body and
// falls back to the refresh_token cookie.
// @Summary Refresh tokens
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		// An empty body leaves the cookie as the only source.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondBindError(c, err)
			return
		}
	}

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		refreshToken, _ = c.Cookie(refreshCookieName)
	}
	if refreshToken == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Bad request",
			Message: "Refresh token is required",
		})
		return
	}

	result, err := h.authService.RefreshTokens(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondTokens(c, result)
}

// GoogleAuth signs in with a Google ID token
func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	var req dto.GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.oauthService.LoginWithIDToken(c.Request.Context(), req.Credential)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondTokens(c, result)
}

// Me returns the authenticated user
// @Summary Get current user profile
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authentication is required",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewUserResponse(identity.User))
}

// Logout revokes the active refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Error:   "Unauthorized",
			Message: "Authentication is required",
		})
		return
	}

	if err := h.authService.Logout(c.Request.Context(), identity.User.ID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	clearRefreshCookie(c)
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Logged out successfully"})
}
