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
	"golang.org/x/time/rate"

	_ "github.com/speakup/session-authority/docs"
	"github.com/speakup/session-authority/internal/api/handler"
	"github.com/speakup/session-authority/internal/api/middleware"
	"github.com/speakup/session-authority/internal/core/ports"
)

// AuthService is what the HTTP layer needs from the core: the session
// operations plus access token verification for the Auth middleware.
type AuthService interface {
	ports.AuthService
	middleware.TokenVerifier
}

// Deps carries everything NewRouter wires into the Echo instance.
type Deps struct {
	Auth         AuthService
	AuthHandler  handler.AuthHandlerConfig
	HealthChecks map[string]handler.HealthChecker
	Log          zerolog.Logger

	CORSAllowOrigins []string
	// AuthRateLimit is requests per second per client IP on the public auth
	// routes. Zero disables the limiter.
	AuthRateLimit float64

	// Registerer and Gatherer enable HTTP metrics and GET /metrics when set.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(corsConfig(deps.CORSAllowOrigins)))

	if deps.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:                 "session",
			Subsystem:                 "http",
			Registerer:                deps.Registerer,
			DoNotUseRequestPathFor404: true,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics"
			},
		}))
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	}

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.AuthHandler)
	authMiddleware := middleware.Auth(deps.Auth)

	// --- Auth routes ---
	var limited []echo.MiddlewareFunc
	if deps.AuthRateLimit > 0 {
		limited = append(limited, authRateLimiter(deps.AuthRateLimit))
	}
	e.POST("/register", authHandler.Register, limited...)
	e.POST("/login", authHandler.Login, limited...)
	e.POST("/refresh-token", authHandler.RefreshToken, limited...)
	e.POST("/validate-token", authHandler.ValidateToken, limited...)

	e.POST("/logout", authHandler.Logout, authMiddleware)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.HealthChecks, deps.Log)
	e.GET("/health", healthHandler.Liveness)       // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- API docs ---
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func corsConfig(origins []string) echomiddleware.CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wildcard := len(origins) == 1 && origins[0] == "*"
	return echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		// Credentialed requests carry the refresh cookie; browsers refuse them
		// against a wildcard origin anyway.
		AllowCredentials: !wildcard,
	}
}

func authRateLimiter(perSecond float64) echo.MiddlewareFunc {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
	})
}
