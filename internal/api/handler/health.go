package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandler serves the liveness probe every service exposes.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Liveness reports that the process is alive.
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
