package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/filecove/filecove/internal/api/middleware"
	"github.com/filecove/filecove/internal/core/domain"
	"github.com/filecove/filecove/internal/core/service"
)

// RoleHandler serves the role membership query and the grant/revoke
// endpoints.
type RoleHandler struct {
	accounts *service.AccountService
}

func NewRoleHandler(accounts *service.AccountService) *RoleHandler {
	return &RoleHandler{accounts: accounts}
}

func pathParams(c echo.Context) (domain.Username, domain.Role, error) {
	username, err := domain.NewUsername(c.Param("user"))
	if err != nil {
		return "", "", err
	}
	role, err := domain.NewRole(c.Param("role"))
	if err != nil {
		return "", "", err
	}
	return username, role, nil
}

// UserInRole answers the membership query with a bare JSON boolean. The
// route is guarded by the trusted-address middleware: it exists for
// service-to-service checks, not end users.
func (h *RoleHandler) UserInRole(c echo.Context) error {
	username, role, err := pathParams(c)
	if err != nil {
		return err
	}

	member, err := h.accounts.UserHasRole(username, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, member)
}

// Grant adds a role to the target user; the authenticated caller must be
// an admin and the role must be on the allowlist.
func (h *RoleHandler) Grant(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return middleware.ErrMissingToken
	}

	username, role, err := pathParams(c)
	if err != nil {
		return err
	}

	if err := h.accounts.GrantRole(claims.Username, username, role); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// Revoke removes a role from the target user; the authenticated caller
// must be an admin or the target user themselves.
func (h *RoleHandler) Revoke(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return middleware.ErrMissingToken
	}

	username, role, err := pathParams(c)
	if err != nil {
		return err
	}

	if err := h.accounts.RevokeRole(claims.Username, username, role); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}
