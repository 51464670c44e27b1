package auth

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// keyBits sizes every RSA key the fleet generates, both the authority's
// long-lived signing key and the per-session key pairs.
const keyBits = 2048

const (
	pemTypePrivate = "PRIVATE KEY"
	pemTypePublic  = "PUBLIC KEY"
)

// SigningKey is the authority's long-lived key pair. The private half signs
// session tokens; the public half is written to a well-known path for the
// other services to verify against.
type SigningKey struct {
	Private   *rsa.PrivateKey
	PublicPEM []byte
}

// LoadSigningKey loads the private key from privatePath, generating and
// persisting a fresh one if the file is absent. The public key is always
// derived from the private key in use, and the on-disk copy at publicPath
// is rewritten whenever it is missing or out of sync.
func LoadSigningKey(privatePath, publicPath string, log zerolog.Logger) (*SigningKey, error) {
	var private *rsa.PrivateKey

	if data, err := os.ReadFile(privatePath); err == nil {
		log.Info().Str("path", privatePath).Msg("loading signing key")
		private, err = ParsePrivateKeyPEM(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse signing key %s: %w", privatePath, err)
		}
	} else if os.IsNotExist(err) {
		log.Info().Msg("generating new signing key")
		private, err = rsa.GenerateKey(rand.Reader, keyBits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		pemBytes, err := EncodePrivateKeyPEM(private)
		if err != nil {
			return nil, err
		}
		if err := writeKeyFile(privatePath, pemBytes, 0o600); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("failed to read signing key %s: %w", privatePath, err)
	}

	publicPEM, err := EncodePublicKeyPEM(&private.PublicKey)
	if err != nil {
		return nil, err
	}

	onDisk, err := os.ReadFile(publicPath)
	if err != nil || !bytes.Equal(onDisk, publicPEM) {
		log.Info().Str("path", publicPath).Msg("writing public key")
		if err := writeKeyFile(publicPath, publicPEM, 0o644); err != nil {
			return nil, err
		}
	}

	return &SigningKey{Private: private, PublicPEM: publicPEM}, nil
}

// LoadVerifyKey reads the authority's published public key, used by every
// service that validates session tokens.
func LoadVerifyKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read verification key %s: %w", path, err)
	}
	key, err := ParsePublicKeyPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verification key %s: %w", path, err)
	}
	return key, nil
}

// EncodePrivateKeyPEM renders the key as a PKCS#8 PEM block.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: der}), nil
}

// ParsePrivateKeyPEM parses a PKCS#8 PEM-encoded RSA private key.
func ParsePrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key")
	}
	return key, nil
}

// EncodePublicKeyPEM renders the key as a PKIX PEM block.
func EncodePublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: der}), nil
}

// ParsePublicKeyPEM parses a PKIX PEM-encoded RSA public key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return key, nil
}

func writeKeyFile(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write key file %s: %w", path, err)
	}
	return nil
}
