// Package server runs a service's Echo instance over TLS with graceful
// shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// Run serves until a termination signal arrives, then drains in-flight
// requests. The certificate pair is the service's fleet identity.
func Run(e *echo.Echo, port int, certFile, keyFile string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", port)
		if err := e.StartTLS(addr, certFile, keyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(ctx)
}
