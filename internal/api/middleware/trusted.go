package middleware

import (
	"net"
	"net/http"
	"net/netip"

	"github.com/labstack/echo/v4"
)

// TrustedAddress restricts a route to callers whose transport-level peer
// address passes the allowlist check. It reads the connection's remote
// address, not forwarding headers, since the allowlist names internal
// services that connect directly.
func TrustedAddress(isTrusted func(netip.Addr) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			host, _, err := net.SplitHostPort(c.Request().RemoteAddr)
			if err != nil {
				host = c.Request().RemoteAddr
			}
			addr, err := netip.ParseAddr(host)
			if err != nil || !isTrusted(addr) {
				return echo.NewHTTPError(http.StatusForbidden)
			}
			return next(c)
		}
	}
}
