package filestore

import (
	"net/http"
	"net/netip"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/api"
	"github.com/filecove/filecove/internal/api/handler"
	"github.com/filecove/filecove/internal/api/middleware"
)

// RouterConfig carries the filestore router's dependencies.
type RouterConfig struct {
	Handler        *Handler
	Verifier       *middleware.Verifier
	TrustedAddress func(netip.Addr) bool
	AllowedOrigin  string
	Log            zerolog.Logger
}

// NewRouter builds the filestore's Echo instance.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(cfg.Log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("filestore"))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{cfg.AllowedOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAcceptEncoding},
	}))

	authed := cfg.Verifier.Authenticate()
	trusted := middleware.TrustedAddress(cfg.TrustedAddress)

	e.GET("/files", cfg.Handler.List, authed)
	e.GET("/files/:file", cfg.Handler.Read, authed)
	e.PUT("/files/:file", cfg.Handler.Write, authed)
	e.GET("/file-exists/:file", cfg.Handler.Exists, trusted)
	e.GET("/file-shared/:file", cfg.Handler.ReadShared, trusted)

	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
