package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/core/domain"
)

// RoleClient asks the authority whether a user holds a role, over the
// fleet's mutually authenticated channel. Downstream services use it for
// every role check; token validity itself needs no network round trip.
type RoleClient struct {
	client    *http.Client
	authority string
	log       zerolog.Logger
}

// NewRoleClient wraps an authenticated HTTP client pointed at the
// authority's host:port.
func NewRoleClient(client *http.Client, authority string, log zerolog.Logger) *RoleClient {
	return &RoleClient{client: client, authority: authority, log: log}
}

// UserHasRole issues the membership query and parses the boolean result.
func (c *RoleClient) UserHasRole(ctx context.Context, user domain.Username, role domain.Role) (bool, error) {
	url := fmt.Sprintf("https://%s/user/%s/is/%s", c.authority, user, role)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("authority returned status %d", resp.StatusCode)
	}

	var member bool
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return false, fmt.Errorf("failed to parse membership response: %w", err)
	}
	return member, nil
}

// RequireRole maps a membership query onto uniform failure semantics:
// a missing role becomes 403 and any transport or parse error becomes an
// opaque 500, so calling services never duplicate the translation.
func (c *RoleClient) RequireRole(ctx context.Context, user domain.Username, role domain.Role) error {
	member, err := c.UserHasRole(ctx, user, role)
	if err != nil {
		c.log.Error().Err(err).
			Str("user", user.String()).
			Str("role", role.String()).
			Msg("failed to get role membership from authority")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if !member {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	return nil
}
