// Package jsonfile implements the durable stores of the fleet: whole-file
// JSON documents, loaded once at startup and rewritten in full on every
// mutation. Reads take a shared lock; mutations hold the exclusive lock for
// the in-memory update and the synchronous disk write.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/filecove/filecove/internal/auth"
	"github.com/filecove/filecove/internal/core/domain"
)

// UserRecord pairs an account with its password hash. The hash is an
// argon2id PHC string; the plaintext password is never stored.
type UserRecord struct {
	User         domain.User `json:"user"`
	PasswordHash string      `json:"password_hash"`
}

// NewUserRecord hashes the password and builds a record.
func NewUserRecord(name domain.Username, password string, roles domain.RoleSet) (UserRecord, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return UserRecord{}, err
	}
	return UserRecord{User: domain.NewUser(name, roles), PasswordHash: hash}, nil
}

// CheckPassword verifies the plaintext password against the stored hash.
// A corrupted or unparseable hash is logged as an internal error and
// treated as an authentication failure, never surfaced to the caller.
func (r UserRecord) CheckPassword(password string, log zerolog.Logger) bool {
	ok, err := auth.VerifyPassword(r.PasswordHash, password)
	if err != nil {
		log.Error().Err(err).Str("user", r.User.Name.String()).Msg("failed to parse stored password hash")
		return false
	}
	return ok
}

func (r UserRecord) clone() UserRecord {
	return UserRecord{
		User:         domain.User{Name: r.User.Name, Roles: r.User.Roles.Clone()},
		PasswordHash: r.PasswordHash,
	}
}

// SaveError reports a failed attempt to persist a store. The in-memory
// mutation is not rolled back; callers must treat this as a durability
// warning rather than a guarantee of rollback.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("failed to save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// CredentialStore is the authority's user database: a map from normalized
// username to user record, backed by a single JSON document on disk.
type CredentialStore struct {
	mu    sync.RWMutex
	path  string
	users map[domain.Username]UserRecord
	log   zerolog.Logger
}

type credentialDocument struct {
	Users map[domain.Username]UserRecord `json:"users"`
}

// OpenCredentialStore loads the store from disk. An absent file yields an
// empty store; any other read or parse failure is fatal.
func OpenCredentialStore(path string, log zerolog.Logger) (*CredentialStore, error) {
	store := &CredentialStore{
		path:  path,
		users: make(map[domain.Username]UserRecord),
		log:   log,
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return store, nil
	case err != nil:
		return nil, fmt.Errorf("failed to open credential store %s: %w", path, err)
	}

	var doc credentialDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to deserialize credential store %s: %w", path, err)
	}
	if doc.Users != nil {
		store.users = doc.Users
	}
	return store, nil
}

// GetUser returns the record for a username, if present.
func (s *CredentialStore) GetUser(name domain.Username) (UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[name]
	if !ok {
		return UserRecord{}, false
	}
	return rec.clone(), true
}

// GetUserFromCredentials looks the user up and verifies the password.
// Returns false on unknown user, password mismatch, or corrupted hash.
func (s *CredentialStore) GetUserFromCredentials(name domain.Username, password string) (UserRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[name]
	if !ok || !rec.CheckPassword(password, s.log) {
		return UserRecord{}, false
	}
	return rec.clone(), true
}

// Len returns the number of users; zero means the bootstrap rule applies.
func (s *CredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// AddUser inserts a new record and persists the store. Returns false
// without error when the username already exists; never overwrites.
func (s *CredentialStore) AddUser(rec UserRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[rec.User.Name]; exists {
		return false, nil
	}
	s.users[rec.User.Name] = rec.clone()
	if err := s.saveLocked(); err != nil {
		return true, err
	}
	return true, nil
}

// AddRole grants a role to a user and persists. Idempotent: granting an
// already-held role is a no-op. Returns false when the user is unknown.
func (s *CredentialStore) AddRole(name domain.Username, role domain.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[name]
	if !ok {
		return false, nil
	}
	rec.User.Roles.Add(role)
	s.users[name] = rec
	return true, s.saveLocked()
}

// RemoveRole revokes a role and persists. Removing an absent role still
// succeeds. Returns false when the user is unknown.
func (s *CredentialStore) RemoveRole(name domain.Username, role domain.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[name]
	if !ok {
		return false, nil
	}
	rec.User.Roles.Remove(role)
	s.users[name] = rec
	return true, s.saveLocked()
}

// saveLocked rewrites the whole document. Callers hold the write lock, so
// persistence is serialized and on the critical path of every mutation.
func (s *CredentialStore) saveLocked() error {
	data, err := json.MarshalIndent(credentialDocument{Users: s.users}, "", "  ")
	if err != nil {
		return &SaveError{Path: s.path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &SaveError{Path: s.path, Err: err}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return &SaveError{Path: s.path, Err: err}
	}
	return nil
}
