package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/internal/dto"
	"github.com/prperemyshlev/spamdetect-backend/internal/service"
	"go.uber.org/zap"
)

const identityKey = "identity"

// Authenticator resolves an access token to an identity
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// AuthenticationMiddleware establishes the request identity from a bearer
// token. It never rejects a request; RequireAuth and RequireRole do that.
func AuthenticationMiddleware(auth Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); ok {
			c.Next()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		identity, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidToken) {
				logger.Warn("failed to authenticate request", zap.Error(err))
			}
			c.Next()
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// RequireAuth rejects requests without an identity
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authentication is required",
			})
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests whose identity lacks role
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "Unauthorized",
				Message: "Authentication is required",
			})
			return
		}
		if !identity.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse{
				Error:   "Forbidden",
				Message: "Insufficient permissions",
			})
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity established for this request
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(*domain.Identity); ok && identity != nil {
			return identity, true
		}
	}
	return domain.IdentityFromContext(c.Request.Context())
}

func setIdentity(c *gin.Context, identity *domain.Identity) {
	c.Set(identityKey, identity)
	c.Request = c.Request.WithContext(domain.WithIdentity(c.Request.Context(), identity))
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
