// Package fileshare is the share-link service: random codes that map to
// files in the filestore, with their own durable link database.
package fileshare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/api/middleware"
	"github.com/filecove/filecove/internal/core/domain"
	"github.com/filecove/filecove/internal/infrastructure/db/jsonfile"
)

// roleAuthorizer is the slice of the authority's role client the handlers
// need.
type roleAuthorizer interface {
	UserHasRole(ctx context.Context, user domain.Username, role domain.Role) (bool, error)
	RequireRole(ctx context.Context, user domain.Username, role domain.Role) error
}

// Handler serves the link routes.
type Handler struct {
	links     *jsonfile.LinkStore
	roles     roleAuthorizer
	client    *http.Client
	filestore string
	shareRole domain.Role
	log       zerolog.Logger
}

func NewHandler(links *jsonfile.LinkStore, roles roleAuthorizer, client *http.Client, filestoreAuthority string, shareRole domain.Role, log zerolog.Logger) *Handler {
	return &Handler{
		links:     links,
		roles:     roles,
		client:    client,
		filestore: filestoreAuthority,
		shareRole: shareRole,
		log:       log,
	}
}

// Links lists the authenticated user's share links, keyed by code.
func (h *Handler) Links(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return middleware.ErrMissingToken
	}
	return c.JSON(http.StatusOK, h.links.LinksForUser(claims.Username))
}

type addLinkRequest struct {
	FileName string `json:"file_name" validate:"required"`
}

// AddLink mints a share code for an existing filestore file; requires the
// share role.
func (h *Handler) AddLink(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return middleware.ErrMissingToken
	}

	var req addLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.roles.RequireRole(c.Request().Context(), claims.Username, h.shareRole); err != nil {
		return err
	}

	exists, err := h.fileExists(c.Request().Context(), req.FileName)
	if err != nil {
		h.log.Error().Err(err).Str("file", req.FileName).Msg("failed to check if file exists")
		return err
	}
	if !exists {
		return domain.ErrFileNotFound
	}

	code, err := h.links.AddLink(claims.Username, req.FileName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, code)
}

// FileOfLink resolves a share code and streams the file back through the
// filestore's fleet-internal endpoint. No authentication: possession of
// the code is the credential.
func (h *Handler) FileOfLink(c echo.Context) error {
	code := domain.LinkCode(c.Param("code"))
	link, ok := h.links.GetLink(code)
	if !ok {
		return domain.ErrLinkNotFound
	}

	url := fmt.Sprintf("https://%s/file-shared/%s", h.filestore, link.FileName)
	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Error().Err(err).Str("file", link.FileName).Msg("failed to fetch shared file")
		return err
	}
	defer resp.Body.Close()

	if disposition := resp.Header.Get(echo.HeaderContentDisposition); disposition != "" {
		c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	}
	return c.Stream(resp.StatusCode, resp.Header.Get(echo.HeaderContentType), resp.Body)
}

// DeleteLink removes a share link. The owner may always delete their own
// links; admins may delete any link.
func (h *Handler) DeleteLink(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return middleware.ErrMissingToken
	}

	code := domain.LinkCode(c.Param("code"))
	link, found := h.links.GetLink(code)
	if !found {
		return domain.ErrLinkNotFound
	}

	if claims.Username != link.Username {
		isAdmin, err := h.roles.UserHasRole(c.Request().Context(), claims.Username, domain.RoleAdmin)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to get role membership from authority")
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if !isAdmin {
			return domain.ErrForbidden
		}
	}

	deleted, err := h.links.DeleteLink(code)
	if err != nil {
		return err
	}
	if !deleted {
		// The link vanished between lookup and delete.
		return echo.NewHTTPError(http.StatusBadRequest)
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) fileExists(ctx context.Context, name string) (bool, error) {
	url := fmt.Sprintf("https://%s/file-exists/%s", h.filestore, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return false, fmt.Errorf("filestore returned status %d: %s", resp.StatusCode, body)
	}

	var exists bool
	if err := json.NewDecoder(resp.Body).Decode(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
