// Package api builds the authority's HTTP surface.
package api

import (
	"net/http"
	"net/netip"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/api/handler"
	"github.com/filecove/filecove/internal/api/middleware"
	"github.com/filecove/filecove/internal/core/service"
)

// RouterConfig carries the authority router's dependencies.
type RouterConfig struct {
	Accounts *service.AccountService
	Verifier *middleware.Verifier
	// TrustedAddress guards the service-to-service membership query.
	TrustedAddress func(netip.Addr) bool
	// AllowedOrigin is the gateway origin browsers call from.
	AllowedOrigin string
	Log           zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("authserver"))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{cfg.AllowedOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAcceptEncoding},
	}))

	authHandler := handler.NewAuthHandler(cfg.Accounts)
	roleHandler := handler.NewRoleHandler(cfg.Accounts)
	healthHandler := handler.NewHealthHandler()

	// --- Account routes (no auth required) ---
	e.POST("/user/login", authHandler.Login)
	e.POST("/user/register", authHandler.Register)

	// --- Role routes ---
	e.GET("/user/:user/is/:role", roleHandler.UserInRole, middleware.TrustedAddress(cfg.TrustedAddress))
	e.PUT("/user/:user/is/:role", roleHandler.Grant, cfg.Verifier.Authenticate())
	e.DELETE("/user/:user/is/:role", roleHandler.Revoke, cfg.Verifier.Authenticate())

	// --- Probes ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
