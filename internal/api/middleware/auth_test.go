package middleware

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecove/filecove/internal/auth"
	"github.com/filecove/filecove/internal/core/domain"
)

const testExternalURL = "https://localhost:8443"

type testSession struct {
	token      string
	sessionKey *rsa.PrivateKey
}

// newTestSession mints a signed token bound to a fresh session key pair,
// with an optional validity window override.
func newTestSession(t *testing.T, signer *rsa.PrivateKey, window func(*auth.Claims)) testSession {
	t.Helper()

	sessionKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	publicPEM, err := auth.EncodePublicKeyPEM(&sessionKey.PublicKey)
	require.NoError(t, err)

	username, err := domain.NewUsername("alice")
	require.NoError(t, err)

	claims := auth.NewClaims(username, string(publicPEM))
	if window != nil {
		window(claims)
	}
	token, err := claims.Encode(signer)
	require.NoError(t, err)

	return testSession{token: token, sessionKey: sessionKey}
}

func signRequest(t *testing.T, req *http.Request, sess testSession, timestamp string) {
	t.Helper()
	signed := timestamp + "+" + testExternalURL + req.URL.RequestURI()
	digest := sha256.Sum256([]byte(signed))
	sig, err := rsa.SignPKCS1v15(rand.Reader, sess.sessionKey, crypto.SHA256, digest[:])
	require.NoError(t, err)
	req.Header.Set(HeaderTimestamp, timestamp)
	req.Header.Set(HeaderHash, base64.StdEncoding.EncodeToString(sig))
}

func runVerifier(t *testing.T, signer *rsa.PrivateKey, req *http.Request) error {
	t.Helper()
	log := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	v := NewVerifierFromKey(&signer.PublicKey, testExternalURL, log)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := v.Authenticate()(func(c echo.Context) error {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		assert.Equal(t, "alice", claims.Username.String())
		return c.NoContent(http.StatusOK)
	})
	return handler(c)
}

func assertHTTPError(t *testing.T, err error, want *echo.HTTPError) {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, want.Code, httpErr.Code)
	assert.Equal(t, want.Message, httpErr.Message)
}

func TestAuthenticate_BearerOnly(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sess := newTestSession(t, signer, nil)

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sess.token)

	assert.NoError(t, runVerifier(t, signer, req))
}

func TestAuthenticate_MissingOrMalformedHeader(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sess := newTestSession(t, signer, nil)

	headers := []string{"", sess.token, "Basic " + sess.token}
	for _, header := range headers {
		req := httptest.NewRequest(http.MethodGet, "/files", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		assertHTTPError(t, runVerifier(t, signer, req), ErrMissingToken)
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	forged, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sess := newTestSession(t, forged, nil)

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sess.token)
	assertHTTPError(t, runVerifier(t, signer, req), ErrInvalidToken)

	req = httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	assertHTTPError(t, runVerifier(t, signer, req), ErrInvalidToken)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sess := newTestSession(t, signer, func(c *auth.Claims) {
		c.NotBefore = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	})

	// Even a correctly signed proof does not resurrect an expired token.
	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sess.token)
	signRequest(t, req, sess, strconv.FormatInt(time.Now().Unix(), 10))

	assertHTTPError(t, runVerifier(t, signer, req), ErrInvalidToken)
}

func TestAuthenticate_ProofOfPossession(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sess := newTestSession(t, signer, nil)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodGet, "/files/report.pdf?detail=1", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sess.token)
	signRequest(t, req, sess, timestamp)

	assert.NoError(t, runVerifier(t, signer, req))
}

func TestAuthenticate_ProofOfPossession_Tampered(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sess := newTestSession(t, signer, nil)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	cases := []struct {
		name   string
		mutate func(*http.Request)
	}{
		{"timestamp changed after signing", func(req *http.Request) {
			req.Header.Set(HeaderTimestamp, strconv.FormatInt(time.Now().Unix()+30, 10))
		}},
		{"missing timestamp", func(req *http.Request) {
			req.Header.Del(HeaderTimestamp)
		}},
		{"signature not base64", func(req *http.Request) {
			req.Header.Set(HeaderHash, "!!not-base64!!")
		}},
		{"signature corrupted", func(req *http.Request) {
			sig, err := base64.StdEncoding.DecodeString(req.Header.Get(HeaderHash))
			require.NoError(t, err)
			sig[0] ^= 0xff
			req.Header.Set(HeaderHash, base64.StdEncoding.EncodeToString(sig))
		}},
		{"signature from a foreign session key", func(req *http.Request) {
			other := newTestSession(t, signer, nil)
			signRequest(t, req, other, timestamp)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/files/report.pdf", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+sess.token)
			signRequest(t, req, sess, timestamp)
			tc.mutate(req)

			assertHTTPError(t, runVerifier(t, signer, req), ErrInvalidSignature)
		})
	}
}

func TestAuthenticate_ProofOfPossession_URLMismatch(t *testing.T) {
	signer, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sess := newTestSession(t, signer, nil)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	// Signature covers one path, request targets another: a captured proof
	// cannot be replayed against a different resource.
	signedReq := httptest.NewRequest(http.MethodGet, "/files/a.txt", nil)
	signRequest(t, signedReq, sess, timestamp)

	req := httptest.NewRequest(http.MethodGet, "/files/b.txt", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+sess.token)
	req.Header.Set(HeaderTimestamp, signedReq.Header.Get(HeaderTimestamp))
	req.Header.Set(HeaderHash, signedReq.Header.Get(HeaderHash))

	assertHTTPError(t, runVerifier(t, signer, req), ErrInvalidSignature)
}

func TestTrustedAddress(t *testing.T) {
	allow := netip.MustParseAddr("192.0.2.1")
	mw := TrustedAddress(func(a netip.Addr) bool { return a == allow })

	e := echo.New()
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	// httptest.NewRequest sets RemoteAddr to 192.0.2.1:1234.
	req := httptest.NewRequest(http.MethodGet, "/user/alice/is/viewer", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	assert.NoError(t, handler(c))

	req = httptest.NewRequest(http.MethodGet, "/user/alice/is/viewer", nil)
	req.RemoteAddr = "203.0.113.7:9999"
	c = e.NewContext(req, httptest.NewRecorder())
	err := handler(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)

	req = httptest.NewRequest(http.MethodGet, "/user/alice/is/viewer", nil)
	req.RemoteAddr = "not an address"
	c = e.NewContext(req, httptest.NewRecorder())
	require.ErrorAs(t, handler(c), &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}
