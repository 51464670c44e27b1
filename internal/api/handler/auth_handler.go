package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/filecove/filecove/internal/core/domain"
	"github.com/filecove/filecove/internal/core/service"
)

// AuthHandler serves login and registration.
type AuthHandler struct {
	accounts *service.AccountService
}

func NewAuthHandler(accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// credentialsRequest is the shared login/register payload.
type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login exchanges username+password for a session token and the one-time
// session private key.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	username, err := domain.NewUsername(req.Username)
	if err != nil {
		// Invalid usernames cannot exist; indistinguishable from a
		// wrong password on purpose.
		return domain.ErrInvalidCredentials
	}

	session, err := h.accounts.Login(username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

// Register creates an account (bootstrap or default roles, strength gate)
// and returns its first session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	username, err := domain.NewUsername(req.Username)
	if err != nil {
		return err
	}

	session, err := h.accounts.Register(username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}
