package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/spamdetect-backend/internal/config"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"github.com/prperemyshlev/spamdetect-backend/internal/handler"
	"github.com/prperemyshlev/spamdetect-backend/internal/mailer"
	"github.com/prperemyshlev/spamdetect-backend/internal/repository"
	"github.com/prperemyshlev/spamdetect-backend/internal/service"
	"github.com/prperemyshlev/spamdetect-backend/internal/utils"
	"github.com/prperemyshlev/spamdetect-backend/pkg/database"
	"github.com/prperemyshlev/spamdetect-backend/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	serviceName     = "spamdetect-backend"
	shutdownTimeout = 5 * time.Second
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

// dependencies are the collaborators the HTTP layer is built from
type dependencies struct {
	userRepo       repository.UserRepository
	redis          *database.Redis
	mailer         service.Mailer
	provider       service.FederationProvider
	metrics        *observability.AuthMetrics
	logger         *zap.Logger
	metricsHandler http.Handler
	health         gin.HandlerFunc
	jwtOptions     []utils.JWTOption
}

func NewApp(infra Infrastructure, cfg *config.Config) *App {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	metrics, err := observability.NewAuthMetrics(infra.MeterProvider())
	if err != nil {
		logger.Warn("failed to register auth metrics", zap.Error(err))
		metrics = observability.NopAuthMetrics()
	}

	var provider service.FederationProvider
	if cfg.Google.Enabled() {
		provider = service.NewGoogleProvider(cfg.Google)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET is empty, federated sign-in is disabled")
	}

	router := newRouter(cfg, dependencies{
		userRepo:       repos.User,
		redis:          infra.Redis(),
		mailer:         mailer.New(cfg.Mail, cfg.App.BaseURL, logger),
		provider:       provider,
		metrics:        metrics,
		logger:         logger,
		metricsHandler: infra.MetricsHandler(),
		health:         NewHealthChecker(infra).Handler,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func newRouter(cfg *config.Config, deps dependencies) *gin.Engine {
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
		deps.jwtOptions...,
	)

	rateLimiter := service.NewRateLimiter(deps.redis)

	authService := service.NewAuthService(
		deps.userRepo,
		jwtManager,
		deps.mailer,
		deps.metrics,
		deps.logger,
		cfg.Security.BCryptCost,
	)
	oauthService := service.NewOAuthService(
		deps.userRepo,
		authService,
		deps.provider,
		service.NewOAuthStateStore(deps.redis),
		cfg.Google.StateTTL.Duration,
		deps.metrics,
		deps.logger,
	)
	adminService := service.NewAdminService(deps.userRepo, cfg.App.AdminSecret, cfg.Security.BCryptCost, deps.logger)

	authHandler := handler.NewAuthHandler(authService, oauthService, deps.logger)
	oauthHandler := handler.NewOAuthHandler(oauthService, cfg.App.FrontendRedirectURL, cfg.App.FrontendErrorURL, deps.logger)
	adminHandler := handler.NewAdminHandler(adminService, deps.logger)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		deps.logger.Warn("invalid trusted proxies, forwarding headers are ignored", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(deps.logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))
	router.Use(handler.AuthenticationMiddleware(authService, deps.logger))

	limited := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
		deps.logger,
	)

	router.GET("/metrics", observability.PrometheusHandler(deps.metricsHandler))
	if deps.health != nil {
		router.GET("/health", deps.health)
	}
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	router.GET("/oauth2/authorization/google", oauthHandler.Authorize)
	router.GET("/login/oauth2/code/google", oauthHandler.Callback)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", limited, authHandler.Register)
			auth.POST("/login", limited, authHandler.Login)
			auth.GET("/verify", authHandler.VerifyEmail)
			auth.POST("/resend-verification", limited, authHandler.ResendVerification)
			auth.POST("/refresh-token", authHandler.RefreshToken)
			auth.POST("/google-auth", limited, authHandler.GoogleAuth)
			auth.GET("/me", handler.RequireAuth(), authHandler.Me)
			auth.POST("/logout", handler.RequireAuth(), authHandler.Logout)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/register-admin", limited, adminHandler.RegisterAdmin)
			admin.PUT("/users/:id/role", handler.RequireRole(domain.RoleAdmin), adminHandler.UpdateUserRole)
		}
	}

	return router
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// The server drains first so in-flight requests can still reach storage.
	serverErr := a.server.Shutdown(ctx)
	infraErr := a.infra.Shutdown(ctx)

	if err := errors.Join(serverErr, infraErr); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}
