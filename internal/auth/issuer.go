package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/filecove/filecove/internal/core/domain"
)

// Session is the login/registration response payload: the signed token and
// the private half of the session key pair. The private key is transmitted
// exactly once, here, and never stored server-side.
type Session struct {
	Token      string `json:"token"`
	PrivateKey string `json:"private_key"`
}

// Issuer mints session tokens bound to fresh single-use RSA key pairs.
type Issuer struct {
	signing *SigningKey
}

// NewIssuer builds an issuer signing with the authority's key.
func NewIssuer(signing *SigningKey) *Issuer {
	return &Issuer{signing: signing}
}

// CreateSession generates a fresh session key pair, embeds its public half
// in signed claims, and returns the token together with the private half.
// Key generation is CPU-bound and paid in full on every call.
func (i *Issuer) CreateSession(username domain.Username) (*Session, error) {
	sessionKey, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}

	publicPEM, err := EncodePublicKeyPEM(&sessionKey.PublicKey)
	if err != nil {
		return nil, err
	}
	privatePEM, err := EncodePrivateKeyPEM(sessionKey)
	if err != nil {
		return nil, err
	}

	token, err := NewClaims(username, string(publicPEM)).Encode(i.signing.Private)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &Session{Token: token, PrivateKey: string(privatePEM)}, nil
}
