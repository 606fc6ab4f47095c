package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/kitchenhelper/users-service/docs"
	"github.com/kitchenhelper/users-service/internal/api/handler"
	"github.com/kitchenhelper/users-service/internal/api/middleware"
	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
)

// CORSConfig lists what browsers may send cross-origin.
type CORSConfig struct {
	Origins []string
	Methods []string
	Headers []string
}

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Auth     ports.AuthService
	Users    ports.UserService
	Roles    ports.RoleService
	Verifier ports.TokenVerifier

	// HealthChecks are pinged by the readiness probe; nil entries are skipped.
	HealthChecks map[string]handler.DependencyCheck

	RefreshTTL  time.Duration
	CORS        CORSConfig
	ServiceName string
	Logger      zerolog.Logger

	// Registry receives the HTTP metrics and backs /metrics. Defaults to the
	// global Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     deps.CORS.Origins,
		AllowMethods:     deps.CORS.Methods,
		AllowHeaders:     deps.CORS.Headers,
		AllowCredentials: !allowsAnyOrigin(deps.CORS.Origins),
	}))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "users",
		Registerer: registerer,
	}))
	e.Use(middleware.Tracing(deps.ServiceName))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.RefreshTTL)
	userHandler := handler.NewUserHandler(deps.Users)
	roleHandler := handler.NewRoleHandler(deps.Roles)
	authMiddleware := middleware.Auth(deps.Verifier)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	api := e.Group("/api")

	// --- User routes ---
	users := api.Group("/users")
	users.POST("/sign-in", authHandler.SignIn)
	users.POST("/refresh-token", authHandler.RefreshToken)
	users.POST("", userHandler.Register)
	users.GET("", userHandler.List, authMiddleware)
	users.GET("/me/info", userHandler.Me, authMiddleware)
	users.GET("/:id", userHandler.Get, authMiddleware)
	users.PATCH("/:id", userHandler.Update, authMiddleware)
	users.POST("/:id/roles", userHandler.AddRole, authMiddleware, adminOnly)
	users.DELETE("/:id/roles/:role_id", userHandler.RemoveRole, authMiddleware, adminOnly)

	// --- Role routes ---
	roles := api.Group("/roles", authMiddleware, adminOnly)
	roles.GET("", roleHandler.List)
	roles.POST("", roleHandler.Create)

	// --- Docs & metrics ---
	api.GET("/docs/*", echoSwagger.WrapHandler)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?

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
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			switch {
			case v.Status >= http.StatusInternalServerError:
				evt = log.Error().Err(v.Error)
			case v.Status >= http.StatusBadRequest:
				evt = log.Warn()
			}
			evt.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
