package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/patricktravel/portal/docs"
	"github.com/patricktravel/portal/internal/api/handler"
	"github.com/patricktravel/portal/internal/api/middleware"
	"github.com/patricktravel/portal/internal/core/ports"
	"github.com/patricktravel/portal/internal/infrastructure/http/handlers"
)

// Dependencies are the collaborators the HTTP layer needs. main builds them
// from configuration; tests pass stubs.
type Dependencies struct {
	Auth         ports.AuthService
	Applications ports.ApplicationService
	Tokens       middleware.TokenVerifier
	Guard        middleware.GuardConfig
	Readiness    []handlers.Dependency
	Logger       zerolog.Logger
	// Metrics receives the HTTP request metrics and backs /metrics. Nil
	// means the process-wide default registry.
	Metrics *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	var (
		promConfig  = echoprometheus.MiddlewareConfig{Subsystem: "portal"}
		promHandler = echoprometheus.HandlerConfig{}
	)
	if deps.Metrics != nil {
		promConfig.Registerer = deps.Metrics
		promHandler.Gatherer = deps.Metrics
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promConfig))
	e.Use(middleware.Guard(deps.Guard, deps.Tokens, deps.Logger))

	// --- Auth API ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	e.POST("/api/auth/register", authHandler.Register)
	e.POST("/api/auth/login", authHandler.Login)
	e.GET("/api/auth/confirm", authHandler.Confirm)
	e.POST("/api/auth/forgot-password", authHandler.ForgotPassword)
	e.POST("/api/auth/reset-password", authHandler.ResetPassword)
	e.GET("/auth/profile", authHandler.Profile)

	// --- Applications (guarded by prefix) ---
	appHandler := handler.NewApplicationHandler(deps.Applications)
	e.POST("/api/applications", appHandler.Submit)
	e.GET("/api/applications/:reference", appHandler.Get)

	// --- Section placeholders ---
	pages := handler.NewPageHandler()
	for _, path := range handler.Sections {
		e.GET(path, pages.Section)
	}

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Readiness...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(promHandler))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
