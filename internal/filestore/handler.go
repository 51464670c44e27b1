package filestore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/api/middleware"
	"github.com/filecove/filecove/internal/core/domain"
)

// roleAuthorizer is the slice of the authority's role client the handlers
// need.
type roleAuthorizer interface {
	RequireRole(ctx context.Context, user domain.Username, role domain.Role) error
}

// Handler serves the file routes.
type Handler struct {
	store     *Store
	roles     roleAuthorizer
	readRole  domain.Role
	writeRole domain.Role
	log       zerolog.Logger
}

func NewHandler(store *Store, roles roleAuthorizer, readRole, writeRole domain.Role, log zerolog.Logger) *Handler {
	return &Handler{store: store, roles: roles, readRole: readRole, writeRole: writeRole, log: log}
}

// List returns the stored file names; requires the read role.
func (h *Handler) List(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return middleware.ErrMissingToken
	}
	if err := h.roles.RequireRole(c.Request().Context(), claims.Username, h.readRole); err != nil {
		return err
	}

	files, err := h.store.List()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list file store")
		return err
	}
	return c.JSON(http.StatusOK, files)
}

// Read downloads a file; requires the read role.
func (h *Handler) Read(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return middleware.ErrMissingToken
	}
	if err := h.roles.RequireRole(c.Request().Context(), claims.Username, h.readRole); err != nil {
		return err
	}
	return h.serveFile(c, c.Param("file"))
}

// ReadShared downloads a file on behalf of another fleet service; guarded
// by the trusted-address middleware instead of a role check.
func (h *Handler) ReadShared(c echo.Context) error {
	return h.serveFile(c, c.Param("file"))
}

func (h *Handler) serveFile(c echo.Context, name string) error {
	content, err := h.store.Read(name)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrFileNotFound
		}
		h.log.Error().Err(err).Str("file", name).Msg("failed to read file from store")
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, content)
}

// Write stores a new file; requires the write role. Existing files are
// never overwritten.
func (h *Handler) Write(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return middleware.ErrMissingToken
	}
	if err := h.roles.RequireRole(c.Request().Context(), claims.Username, h.writeRole); err != nil {
		return err
	}

	content, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}

	written, err := h.store.Write(c.Param("file"), content)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to write file to store")
		return err
	}
	if !written {
		return domain.ErrFileExists
	}
	return c.NoContent(http.StatusOK)
}

// Exists answers a fleet-internal existence check with a JSON boolean.
func (h *Handler) Exists(c echo.Context) error {
	exists, err := h.store.Exists(c.Param("file"))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to check if file exists")
		return err
	}
	return c.JSON(http.StatusOK, exists)
}
