// Package api wires the HTTP surface: routes, middleware and error rendering.
package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/apilogin/auth-api/docs"
	"github.com/apilogin/auth-api/internal/api/handler"
	"github.com/apilogin/auth-api/internal/api/middleware"
	"github.com/apilogin/auth-api/internal/core/ports"
)

// RouterDeps are the collaborators the HTTP layer needs.
type RouterDeps struct {
	Auth   ports.AuthService
	Tokens ports.TokenService
	// Checks are pinged by the readiness probe, keyed by dependency name.
	Checks map[string]handler.Pinger
	Log    zerolog.Logger
	// Registry receives the HTTP metrics and backs /metrics. Defaults to the
	// process-wide Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "auth",
		Registerer: registerer,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Auth)
	verifyToken := middleware.VerifyToken(deps.Tokens)
	isAdmin := middleware.IsAdmin(deps.Auth)

	// --- Public routes ---
	e.GET("/", handler.Welcome)
	e.POST("/login", authHandler.Login)
	e.POST("/recover-password", authHandler.RecoverPassword)
	e.PUT("/reset-password", authHandler.ResetPassword)

	// --- Authenticated routes ---
	e.PUT("/change-password", authHandler.ChangePassword, verifyToken)

	// --- Administrator routes ---
	admin := e.Group("", verifyToken, isAdmin)
	admin.POST("/register", authHandler.Register)
	admin.DELETE("/delete-user/:user_id", userHandler.Delete)
	admin.PUT("/assign-role", userHandler.AssignRole)
	admin.GET("/list-users", userHandler.List)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

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
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error()
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
