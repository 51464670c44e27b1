package auth

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filecove/filecove/internal/core/domain"
)

// TokenDuration is the fixed validity window of every session token.
const TokenDuration = time.Hour

// signingMethod is the asymmetric algorithm the fleet trusts. Anything
// else in a token header is rejected outright.
var signingMethod = jwt.SigningMethodRS384

// Claims is the payload of a session token: the authenticated username,
// the validity window, and the PEM-encoded public half of the session key
// pair the token is bound to.
type Claims struct {
	Username  domain.Username `json:"username"`
	PublicKey string          `json:"public_key"`
	jwt.RegisteredClaims
}

// NewClaims builds claims valid from now until now plus TokenDuration.
func NewClaims(username domain.Username, sessionPublicKeyPEM string) *Claims {
	now := time.Now()
	return &Claims{
		Username:  username,
		PublicKey: sessionPublicKeyPEM,
		RegisteredClaims: jwt.RegisteredClaims{
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenDuration)),
		},
	}
}

// Encode signs the claims with the authority's private key.
func (c *Claims) Encode(key *rsa.PrivateKey) (string, error) {
	return jwt.NewWithClaims(signingMethod, c).SignedString(key)
}

// ErrTokenInvalid covers every token defect: bad signature, missing
// required claims, expired, or not yet valid. Callers get no finer detail.
var ErrTokenInvalid = errors.New("invalid token")

// DecodeClaims validates a compact token against the authority's public
// key. Both exp and nbf must be present and the current time must fall
// inside the window.
func DecodeClaims(token string, key *rsa.PublicKey) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	// jwt only enforces nbf when it is present; the fleet requires it.
	if claims.NotBefore == nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
