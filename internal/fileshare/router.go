package fileshare

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/api"
	"github.com/filecove/filecove/internal/api/handler"
	"github.com/filecove/filecove/internal/api/middleware"
)

// RouterConfig carries the fileshare router's dependencies.
type RouterConfig struct {
	Handler       *Handler
	Verifier      *middleware.Verifier
	AllowedOrigin string
	Log           zerolog.Logger
}

// NewRouter builds the fileshare's Echo instance.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(cfg.Log)
	e.Validator = handler.NewValidator()

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("fileshare"))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{cfg.AllowedOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAcceptEncoding},
	}))

	authed := cfg.Verifier.Authenticate()

	e.GET("/links", cfg.Handler.Links, authed)
	e.PUT("/link", cfg.Handler.AddLink, authed)
	e.GET("/link/:code", cfg.Handler.FileOfLink)
	e.DELETE("/link/:code", cfg.Handler.DeleteLink, authed)

	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
