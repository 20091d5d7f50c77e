package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/spamdetect-backend/internal/dto"
	"github.com/prperemyshlev/spamdetect-backend/internal/service"
	"go.uber.org/zap"
)

// errorStatus maps service errors to an HTTP status and a short title
func errorStatus(err error) (int, string) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrEmailNotVerified),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrInvalidOAuthState),
		errors.Is(err, service.ErrFederationFailed):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest, "Bad request"
	case errors.Is(err, service.ErrFederationDisabled):
		return http.StatusServiceUnavailable, "Service unavailable"
	case errors.Is(err, service.ErrEmailDeliveryFailed):
		return http.StatusInternalServerError, "Email delivery failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// errorMessage returns the caller-facing message for err.
// Wrapped causes are never exposed.
func errorMessage(err error) string {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	for _, known := range []error{
		service.ErrDuplicateEmail,
		service.ErrInvalidCredentials,
		service.ErrEmailNotVerified,
		service.ErrInvalidToken,
		service.ErrInvalidOAuthState,
		service.ErrFederationFailed,
		service.ErrForbidden,
		service.ErrUserNotFound,
		service.ErrInvalidRole,
		service.ErrFederationDisabled,
		service.ErrEmailDeliveryFailed,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "an unexpected error occurred"
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, title := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, dto.ErrorResponse{
		Error:   title,
		Message: errorMessage(err),
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Validation failed",
		Message: err.Error(),
	})
}
