// Package config loads per-service TOML configuration files and overlays
// environment variables on top. Every service shares the [general] section;
// each adds its own sections.
package config

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/BurntSushi/toml"
	"github.com/sethvargo/go-envconfig"

	"github.com/filecove/filecove/internal/core/domain"
)

// General is the section every service carries: listen port, the
// externally visible origin, logging, and the shared trust material paths.
type General struct {
	Port        int    `toml:"port" env:"PORT"`
	ExternalURL string `toml:"external-url" env:"EXTERNAL_URL"`
	// AllowedOrigin is the browser-facing origin (the gateway) allowed
	// by CORS. Defaults to the service's own external URL.
	AllowedOrigin string `toml:"allowed-origin" env:"ALLOWED_ORIGIN"`
	LogLevel      string `toml:"log-level" env:"LOG_LEVEL"`
	LogPretty     bool   `toml:"log-pretty" env:"LOG_PRETTY"`
	TLSDir        string `toml:"tls-dir" env:"TLS_DIR"`
	// AuthPublicKey is the path every verifying service reads the
	// authority's public key from. Distributed out-of-band.
	AuthPublicKey string `toml:"auth-public-key" env:"AUTH_PUBLIC_KEY"`
}

func (g *General) applyDefaults() {
	if g.TLSDir == "" {
		g.TLSDir = "cfg/tls"
	}
	if g.AuthPublicKey == "" {
		g.AuthPublicKey = "cfg/authserver.pem"
	}
	if g.ExternalURL == "" {
		g.ExternalURL = fmt.Sprintf("https://localhost:%d", g.Port)
	}
	if g.AllowedOrigin == "" {
		g.AllowedOrigin = g.ExternalURL
	}
}

// ServiceClient locates another service of the fleet.
type ServiceClient struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Authority returns the host:port pair for client URLs.
func (s ServiceClient) Authority() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AddressSet is an allowlist of trusted internal service addresses.
type AddressSet map[netip.Addr]struct{}

// ParseAddressSet parses the configured textual addresses.
func ParseAddressSet(raw []string) (AddressSet, error) {
	set := make(AddressSet, len(raw))
	for _, s := range raw {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("known-services entry %q: %w", s, err)
		}
		set[addr.Unmap()] = struct{}{}
	}
	return set, nil
}

// Contains reports whether the address is on the allowlist.
func (s AddressSet) Contains(addr netip.Addr) bool {
	_, ok := s[addr.Unmap()]
	return ok
}

// AuthServer is the authority's configuration.
type AuthServer struct {
	General       General       `toml:"general"`
	Authenticator Authenticator `toml:"authenticator"`
}

// Authenticator holds the role policy and the authority's storage paths.
type Authenticator struct {
	AllowedRoles  []domain.Role `toml:"allowed-roles"`
	DefaultRoles  []domain.Role `toml:"default-roles"`
	KnownServices []string      `toml:"known-services"`
	DBPath        string        `toml:"db-path" env:"AUTH_DB_PATH"`
	PrivateKey    string        `toml:"private-key" env:"AUTH_PRIVATE_KEY"`

	allowed  domain.RoleSet
	defaults domain.RoleSet
	services AddressSet
}

func (a *Authenticator) validate() error {
	if a.DBPath == "" {
		a.DBPath = "data/authserver/db.json"
	}
	if a.PrivateKey == "" {
		a.PrivateKey = "cfg/authserver-private.pem"
	}

	a.allowed = domain.NewRoleSet(a.AllowedRoles...)
	if !a.allowed.Contains(domain.RoleAdmin) {
		return fmt.Errorf("allowed-roles must contain the %q role", domain.RoleAdmin)
	}
	a.defaults = domain.NewRoleSet(a.DefaultRoles...)

	services, err := ParseAddressSet(a.KnownServices)
	if err != nil {
		return err
	}
	a.services = services
	return nil
}

// RoleIsAllowed reports whether the role may be granted through the API.
func (a *Authenticator) RoleIsAllowed(role domain.Role) bool {
	return a.allowed.Contains(role)
}

// DefaultRoleSet returns a copy of the roles applied to new registrations.
func (a *Authenticator) DefaultRoleSet() domain.RoleSet {
	return a.defaults.Clone()
}

// AddressIsService reports whether the caller address is a trusted service.
func (a *Authenticator) AddressIsService(addr netip.Addr) bool {
	return a.services.Contains(addr)
}

// LoadAuthServer reads and validates the authority's configuration.
func LoadAuthServer(path string) (*AuthServer, error) {
	var cfg AuthServer
	if err := decode(path, &cfg); err != nil {
		return nil, err
	}
	cfg.General.applyDefaults()
	if err := cfg.Authenticator.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Filestore is the blob storage service's configuration.
type Filestore struct {
	General    General           `toml:"general"`
	AuthServer ServiceClient     `toml:"auth-server"`
	FileStore  FileStoreSettings `toml:"file-store"`
}

// FileStoreSettings controls the on-disk store and its access policy.
type FileStoreSettings struct {
	KnownServices []string    `toml:"known-services"`
	ReadRole      domain.Role `toml:"read-role"`
	WriteRole     domain.Role `toml:"write-role"`
	Path          string      `toml:"path" env:"FILESTORE_PATH"`

	services AddressSet
}

func (f *FileStoreSettings) validate() error {
	if f.Path == "" {
		f.Path = "data/filestore/files"
	}
	if f.ReadRole == "" {
		f.ReadRole = domain.RoleViewer
	}
	if f.WriteRole == "" {
		f.WriteRole = domain.RoleUploader
	}
	services, err := ParseAddressSet(f.KnownServices)
	if err != nil {
		return err
	}
	f.services = services
	return nil
}

// AddressIsService reports whether the caller address is a trusted service.
func (f *FileStoreSettings) AddressIsService(addr netip.Addr) bool {
	return f.services.Contains(addr)
}

// LoadFilestore reads and validates the filestore configuration.
func LoadFilestore(path string) (*Filestore, error) {
	var cfg Filestore
	if err := decode(path, &cfg); err != nil {
		return nil, err
	}
	cfg.General.applyDefaults()
	if err := cfg.FileStore.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Fileshare is the share-link service's configuration.
type Fileshare struct {
	General         General           `toml:"general"`
	AuthServer      ServiceClient     `toml:"auth-server"`
	FilestoreServer ServiceClient     `toml:"filestore-server"`
	FileShare       FileShareSettings `toml:"file-share"`
}

// FileShareSettings controls the link database and its access policy.
type FileShareSettings struct {
	ShareRole domain.Role `toml:"share-role"`
	DBPath    string      `toml:"db-path" env:"FILESHARE_DB_PATH"`
}

func (f *FileShareSettings) validate() error {
	if f.DBPath == "" {
		f.DBPath = "data/fileshare/db.json"
	}
	if f.ShareRole == "" {
		f.ShareRole = domain.RoleSharer
	}
	return nil
}

// LoadFileshare reads and validates the fileshare configuration.
func LoadFileshare(path string) (*Fileshare, error) {
	var cfg Fileshare
	if err := decode(path, &cfg); err != nil {
		return nil, err
	}
	cfg.General.applyDefaults()
	if err := cfg.FileShare.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// AppServer is the gateway's configuration.
type AppServer struct {
	General         General       `toml:"general"`
	FilestoreServer ServiceClient `toml:"filestore-server"`
	FileshareServer ServiceClient `toml:"fileshare-server"`
	WWWDir          string        `toml:"www-dir" env:"WWW_DIR"`
}

// LoadAppServer reads and validates the gateway configuration.
func LoadAppServer(path string) (*AppServer, error) {
	var cfg AppServer
	if err := decode(path, &cfg); err != nil {
		return nil, err
	}
	cfg.General.applyDefaults()
	if cfg.WWWDir == "" {
		cfg.WWWDir = "www"
	}
	return &cfg, nil
}

// decode parses the TOML file and overlays environment variables.
func decode(path string, cfg any) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return fmt.Errorf("failed to process environment overrides: %w", err)
	}
	return nil
}
