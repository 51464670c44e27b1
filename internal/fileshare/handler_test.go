package fileshare

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecove/filecove/internal/api/handler"
	"github.com/filecove/filecove/internal/auth"
	"github.com/filecove/filecove/internal/core/domain"
	"github.com/filecove/filecove/internal/infrastructure/db/jsonfile"
)

// stubRoles maps usernames to the roles they hold.
type stubRoles struct {
	held map[domain.Username]domain.RoleSet
}

func (s stubRoles) UserHasRole(_ context.Context, user domain.Username, role domain.Role) (bool, error) {
	return s.held[user].Contains(role), nil
}

func (s stubRoles) RequireRole(ctx context.Context, user domain.Username, role domain.Role) error {
	member, _ := s.UserHasRole(ctx, user, role)
	if !member {
		return echo.NewHTTPError(http.StatusForbidden)
	}
	return nil
}

// fakeFilestore serves the fleet-internal filestore endpoints for a fixed
// set of files.
func fakeFilestore(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/file-exists/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/file-exists/")
		w.Header().Set("Content-Type", "application/json")
		if _, ok := files[name]; ok {
			w.Write([]byte("true"))
		} else {
			w.Write([]byte("false"))
		}
	})
	mux.HandleFunc("/file-shared/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/file-shared/")
		content, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Write([]byte(content))
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHandler(t *testing.T, roles stubRoles, files map[string]string) *Handler {
	t.Helper()
	links, err := jsonfile.OpenLinkStore(filepath.Join(t.TempDir(), "links.json"))
	require.NoError(t, err)

	srv := fakeFilestore(t, files)
	authority := strings.TrimPrefix(srv.URL, "https://")
	log := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	return NewHandler(links, roles, srv.Client(), authority, domain.RoleSharer, log)
}

func username(t *testing.T, raw string) domain.Username {
	t.Helper()
	u, err := domain.NewUsername(raw)
	require.NoError(t, err)
	return u
}

func authedContext(t *testing.T, user, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = handler.NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != "" {
		c.Set("auth_claims", &auth.Claims{Username: username(t, user)})
	}
	return c, rec
}

func sharerRoles(t *testing.T) stubRoles {
	return stubRoles{held: map[domain.Username]domain.RoleSet{
		username(t, "alice"): domain.NewRoleSet(domain.RoleSharer),
		username(t, "root"):  domain.NewRoleSet(domain.RoleAdmin, domain.RoleSharer),
	}}
}

func addLink(t *testing.T, h *Handler, user, file string) domain.LinkCode {
	t.Helper()
	c, rec := authedContext(t, user, http.MethodPut, "/link", `{"file_name":"`+file+`"}`)
	require.NoError(t, h.AddLink(c))
	code := strings.Trim(strings.TrimSpace(rec.Body.String()), `"`)
	require.Len(t, code, 16)
	return domain.LinkCode(code)
}

func TestAddLink(t *testing.T) {
	h := newTestHandler(t, sharerRoles(t), map[string]string{"report.pdf": "contents"})

	code := addLink(t, h, "alice", "report.pdf")

	c, rec := authedContext(t, "alice", http.MethodGet, "/links", "")
	require.NoError(t, h.Links(c))
	assert.Contains(t, rec.Body.String(), string(code))
	assert.Contains(t, rec.Body.String(), "report.pdf")
}

func TestAddLink_MissingFile(t *testing.T) {
	h := newTestHandler(t, sharerRoles(t), map[string]string{})

	c, _ := authedContext(t, "alice", http.MethodPut, "/link", `{"file_name":"absent.txt"}`)
	assert.ErrorIs(t, h.AddLink(c), domain.ErrFileNotFound)
}

func TestAddLink_RequiresShareRole(t *testing.T) {
	h := newTestHandler(t, stubRoles{held: nil}, map[string]string{"report.pdf": "contents"})

	c, _ := authedContext(t, "alice", http.MethodPut, "/link", `{"file_name":"report.pdf"}`)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, h.AddLink(c), &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestFileOfLink(t *testing.T) {
	h := newTestHandler(t, sharerRoles(t), map[string]string{"report.pdf": "contents"})
	code := addLink(t, h, "alice", "report.pdf")

	// No claims: possession of the code is the credential.
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/link/"+string(code), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues(string(code))

	require.NoError(t, h.FileOfLink(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "contents", rec.Body.String())
	assert.Equal(t, `attachment; filename="report.pdf"`, rec.Header().Get(echo.HeaderContentDisposition))
}

func TestFileOfLink_UnknownCode(t *testing.T) {
	h := newTestHandler(t, sharerRoles(t), map[string]string{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/link/0000000000000000", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("code")
	c.SetParamValues("0000000000000000")

	assert.ErrorIs(t, h.FileOfLink(c), domain.ErrLinkNotFound)
}

func TestDeleteLink_OwnerAndAdmin(t *testing.T) {
	h := newTestHandler(t, sharerRoles(t), map[string]string{"report.pdf": "contents"})

	// Owner deletes their own link.
	code := addLink(t, h, "alice", "report.pdf")
	c, rec := authedContext(t, "alice", http.MethodDelete, "/link/"+string(code), "")
	c.SetParamNames("code")
	c.SetParamValues(string(code))
	require.NoError(t, h.DeleteLink(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Admin deletes someone else's link.
	code = addLink(t, h, "alice", "report.pdf")
	c, _ = authedContext(t, "root", http.MethodDelete, "/link/"+string(code), "")
	c.SetParamNames("code")
	c.SetParamValues(string(code))
	require.NoError(t, h.DeleteLink(c))

	// A third party may not.
	code = addLink(t, h, "alice", "report.pdf")
	c, _ = authedContext(t, "mallory", http.MethodDelete, "/link/"+string(code), "")
	c.SetParamNames("code")
	c.SetParamValues(string(code))
	assert.ErrorIs(t, h.DeleteLink(c), domain.ErrForbidden)
}

func TestDeleteLink_UnknownCode(t *testing.T) {
	h := newTestHandler(t, sharerRoles(t), map[string]string{})

	c, _ := authedContext(t, "alice", http.MethodDelete, "/link/0000000000000000", "")
	c.SetParamNames("code")
	c.SetParamValues("0000000000000000")
	assert.ErrorIs(t, h.DeleteLink(c), domain.ErrLinkNotFound)
}
