package gateway

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/api"
	"github.com/filecove/filecove/internal/api/handler"
)

// RouterConfig carries the gateway router's dependencies.
type RouterConfig struct {
	Proxy              *Proxy
	FilestoreAuthority string
	FileshareAuthority string
	WWWDir             string
	Log                zerolog.Logger
}

// NewRouter builds the gateway's Echo instance: proxied file routes plus
// the static front end as the fallback.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(cfg.Log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("appserver"))

	filestore := cfg.Proxy.Forward(cfg.FilestoreAuthority)
	fileshare := cfg.Proxy.Forward(cfg.FileshareAuthority)

	e.GET("/files", filestore)
	e.GET("/files/:file", filestore)
	e.PUT("/files/:file", filestore)

	e.GET("/links", fileshare)
	e.PUT("/link", fileshare)
	e.GET("/link/:code", fileshare)
	e.DELETE("/link/:code", fileshare)

	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/metrics", echoprometheus.NewHandler())

	e.Static("/", cfg.WWWDir)

	return e
}
