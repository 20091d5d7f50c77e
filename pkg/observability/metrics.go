package observability

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "spamdetect-backend/auth"

// Outcome labels recorded on auth counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// AuthMetrics groups the counters emitted by the auth services.
type AuthMetrics struct {
	loginAttempts   metric.Int64Counter
	registrations   metric.Int64Counter
	tokenRefreshes  metric.Int64Counter
	federatedLogins metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on the given meter provider.
// A nil provider yields no-op instruments.
func NewAuthMetrics(provider metric.MeterProvider) (*AuthMetrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter(meterName)

	loginAttempts, err := meter.Int64Counter("auth_login_attempts_total",
		metric.WithDescription("Password login attempts by result"))
	if err != nil {
		return nil, err
	}
	registrations, err := meter.Int64Counter("auth_registrations_total",
		metric.WithDescription("Registration attempts by result"))
	if err != nil {
		return nil, err
	}
	tokenRefreshes, err := meter.Int64Counter("auth_token_refreshes_total",
		metric.WithDescription("Refresh token exchanges by result"))
	if err != nil {
		return nil, err
	}
	federatedLogins, err := meter.Int64Counter("auth_federated_logins_total",
		metric.WithDescription("Federated sign-ins by result"))
	if err != nil {
		return nil, err
	}

	return &AuthMetrics{
		loginAttempts:   loginAttempts,
		registrations:   registrations,
		tokenRefreshes:  tokenRefreshes,
		federatedLogins: federatedLogins,
	}, nil
}

// NopAuthMetrics returns metrics backed by no-op instruments.
func NopAuthMetrics() *AuthMetrics {
	m, _ := NewAuthMetrics(noop.NewMeterProvider())
	return m
}

func (m *AuthMetrics) RecordLogin(ctx context.Context, result string) {
	if m == nil {
		return
	}
	record(ctx, m.loginAttempts, result)
}

func (m *AuthMetrics) RecordRegistration(ctx context.Context, result string) {
	if m == nil {
		return
	}
	record(ctx, m.registrations, result)
}

func (m *AuthMetrics) RecordRefresh(ctx context.Context, result string) {
	if m == nil {
		return
	}
	record(ctx, m.tokenRefreshes, result)
}

func (m *AuthMetrics) RecordFederatedLogin(ctx context.Context, result string) {
	if m == nil {
		return
	}
	record(ctx, m.federatedLogins, result)
}

func record(ctx context.Context, counter metric.Int64Counter, result string) {
	if counter == nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// PrometheusHandler returns a Gin handler for Prometheus metrics
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "metrics handler not initialized",
			})
			return
		}
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
