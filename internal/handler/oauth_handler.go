package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/spamdetect-backend/internal/service"
	"go.uber.org/zap"
)

// OAuthHandler drives the browser redirect flow of federated sign-in
type OAuthHandler struct {
	oauthService service.OAuthService
	successURL   string
	errorURL     string
	logger       *zap.Logger
}

// NewOAuthHandler creates a new OAuth handler. Successful sign-ins redirect
// to successURL with the access token in the query; failures to errorURL.
func NewOAuthHandler(oauthService service.OAuthService, successURL, errorURL string, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		successURL:   successURL,
		errorURL:     errorURL,
		logger:       logger,
	}
}

// Authorize redirects the browser to the provider's consent page
func (h *OAuthHandler) Authorize(c *gin.Context) {
	authURL, err := h.oauthService.AuthorizationURL(c.Request.Context())
	if err != nil {
		h.logger.Warn("failed to start oauth flow", zap.Error(err))
		c.Redirect(http.StatusFound, h.errorURL)
		return
	}

	c.Redirect(http.StatusFound, authURL)
}

// Callback completes the flow started by Authorize
func (h *OAuthHandler) Callback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		h.logger.Info("oauth flow denied by provider", zap.String("error", providerErr))
		c.Redirect(http.StatusFound, h.errorURL)
		return
	}

	result, err := h.oauthService.CompleteAuthorization(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		h.logger.Warn("oauth callback failed", zap.Error(err))
		c.Redirect(http.StatusFound, h.errorURL)
		return
	}

	target, err := withQuery(h.successURL, "token", result.Tokens.AccessToken)
	if err != nil {
		h.logger.Error("invalid frontend redirect url", zap.Error(err))
		c.Redirect(http.StatusFound, h.errorURL)
		return
	}

	setRefreshCookie(c, result)
	c.Redirect(http.StatusFound, target)
}

func withQuery(rawURL, key, value string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
