// Package middleware holds the request guards shared by every service:
// the bearer-token verifier with its optional proof-of-possession check,
// and the trusted-address allowlist for service-to-service endpoints.
package middleware

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/api/metrics"
	"github.com/filecove/filecove/internal/auth"
)

const claimsKey = "auth_claims"

// Proof-of-possession request headers. When Hash is present the request
// must carry a Timestamp and the signature must verify; when it is absent
// the bearer token alone authenticates the request.
const (
	HeaderHash      = "Hash"
	HeaderTimestamp = "Timestamp"
)

// Authentication failures, deliberately coarse: the category is actionable,
// the detail stays in server-side logs.
var (
	ErrMissingToken     = echo.NewHTTPError(http.StatusBadRequest, "missing token")
	ErrInvalidToken     = echo.NewHTTPError(http.StatusBadRequest, "invalid token")
	ErrInvalidSignature = echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
)

// Verifier validates session tokens locally against the authority's
// published public key. One instance is shared by all routes of a service.
type Verifier struct {
	key *rsa.PublicKey
	// externalURL is the service's externally visible origin
	// (scheme://host:port, no trailing slash), the base of the canonical
	// string a proof-of-possession signature covers.
	externalURL string
	log         zerolog.Logger
}

// NewVerifier loads the authority's public key from its well-known path.
func NewVerifier(publicKeyPath, externalURL string, log zerolog.Logger) (*Verifier, error) {
	key, err := auth.LoadVerifyKey(publicKeyPath)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key, externalURL: strings.TrimRight(externalURL, "/"), log: log}, nil
}

// NewVerifierFromKey builds a verifier around an already-loaded key.
func NewVerifierFromKey(key *rsa.PublicKey, externalURL string, log zerolog.Logger) *Verifier {
	return &Verifier{key: key, externalURL: strings.TrimRight(externalURL, "/"), log: log}
}

// Authenticate extracts and validates the bearer token and, when the
// request opts in with a Hash header, verifies the proof-of-possession
// signature. Validated claims are injected into the request context.
func (v *Verifier) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := v.verify(c)
			if err != nil {
				return err
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

func (v *Verifier) verify(c echo.Context) (*auth.Claims, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
		return nil, ErrMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
		return nil, ErrMissingToken
	}

	claims, err := auth.DecodeClaims(parts[1], v.key)
	if err != nil {
		v.log.Debug().Err(err).Msg("failed to decode or validate session token")
		metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidToken
	}

	if c.Request().Header.Get(HeaderHash) != "" {
		if err := v.verifyPossession(c, claims); err != nil {
			metrics.TokenVerificationsTotal.WithLabelValues("bad_signature").Inc()
			return nil, err
		}
	}

	metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
	return claims, nil
}

// verifyPossession checks that the caller holds the private half of the
// session key pair bound to the token: the Hash header must be a valid RSA
// signature, over SHA-256, of "<Timestamp>+<absolute request URL>".
func (v *Verifier) verifyPossession(c echo.Context, claims *auth.Claims) error {
	timestamp := c.Request().Header.Get(HeaderTimestamp)
	if timestamp == "" {
		return ErrInvalidSignature
	}

	signature, err := base64.StdEncoding.DecodeString(c.Request().Header.Get(HeaderHash))
	if err != nil {
		return ErrInvalidSignature
	}

	sessionKey, err := auth.ParsePublicKeyPEM([]byte(claims.PublicKey))
	if err != nil {
		v.log.Debug().Err(err).Msg("token carries an unparseable session public key")
		return ErrInvalidSignature
	}

	signed := timestamp + "+" + v.externalURL + c.Request().URL.RequestURI()
	digest := sha256.Sum256([]byte(signed))
	if err := rsa.VerifyPKCS1v15(sessionKey, crypto.SHA256, digest[:], signature); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// ClaimsFromContext retrieves the claims injected by Authenticate.
func ClaimsFromContext(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*auth.Claims)
	return claims, ok
}
