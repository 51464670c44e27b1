// Package gateway is the browser-facing entry point: it reverse-proxies
// the file routes to the back-end services over the fleet's authenticated
// channel and serves the static front end.
package gateway

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Proxy forwards requests verbatim to a back-end service, carrying the
// caller's headers (including the bearer token and proof-of-possession
// headers) so the target service authenticates the end user itself.
type Proxy struct {
	client *http.Client
	log    zerolog.Logger
}

func NewProxy(client *http.Client, log zerolog.Logger) *Proxy {
	return &Proxy{client: client, log: log}
}

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Transfer-Encoding",
	"Upgrade",
}

// Forward returns a handler that relays the request to the authority at
// the given host:port, preserving method, path, query, headers, and body.
func (p *Proxy) Forward(authority string) echo.HandlerFunc {
	return func(c echo.Context) error {
		in := c.Request()
		url := fmt.Sprintf("https://%s%s", authority, in.URL.RequestURI())

		out, err := http.NewRequestWithContext(in.Context(), in.Method, url, in.Body)
		if err != nil {
			p.log.Error().Err(err).Str("url", url).Msg("failed to build proxy request")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		out.Header = in.Header.Clone()
		for _, h := range hopHeaders {
			out.Header.Del(h)
		}

		resp, err := p.client.Do(out)
		if err != nil {
			p.log.Error().Err(err).Str("url", url).Msg("failed to forward request")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		defer resp.Body.Close()

		header := c.Response().Header()
		for key, values := range resp.Header {
			for _, value := range values {
				header.Add(key, value)
			}
		}
		return c.Stream(resp.StatusCode, resp.Header.Get(echo.HeaderContentType), resp.Body)
	}
}
