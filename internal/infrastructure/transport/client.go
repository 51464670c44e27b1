// Package transport builds the mutually authenticated HTTP clients the
// services use to talk to each other. Every service holds a certificate and
// key pair under the TLS directory plus the shared root of trust.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

const rootCAFile = "root_ca.cert"

// NewClient returns an *http.Client presenting the named service's
// identity and trusting only the fleet's root CA.
func NewClient(tlsDir, name string) (*http.Client, error) {
	rootPEM, err := os.ReadFile(filepath.Join(tlsDir, rootCAFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read root CA: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(rootPEM) {
		return nil, fmt.Errorf("invalid root CA certificate in %s", filepath.Join(tlsDir, rootCAFile))
	}

	certFile, keyFile := CertificatePaths(tlsDir, name)
	identity, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS identity for %s: %w", name, err)
	}

	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:      pool,
				Certificates: []tls.Certificate{identity},
				MinVersion:   tls.VersionTLS12,
			},
		},
	}, nil
}

// CertificatePaths returns the certificate and key file paths for a
// service name, matching the layout the fleet's TLS directory uses.
func CertificatePaths(tlsDir, name string) (certFile, keyFile string) {
	return filepath.Join(tlsDir, name+".cert"), filepath.Join(tlsDir, name+".key")
}
