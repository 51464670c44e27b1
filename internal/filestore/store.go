// Package filestore is the blob storage service: files on the local
// filesystem, guarded by role checks against the authority.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes blobs under a single directory. File names must
// be bare names: absolute paths and multi-component paths are rejected
// before touching the filesystem.
type Store struct {
	root string
}

// NewStore ensures the storage directory exists and returns the store.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create file store directory: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) safePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) ||
		name != filepath.Base(filepath.Clean(name)) {
		return "", fmt.Errorf("file name %q is not a single relative component", name)
	}
	return filepath.Join(s.root, name), nil
}

// List returns the names of every stored file.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Read returns a file's contents. The error is os.ErrNotExist-compatible
// when the file is absent.
func (s *Store) Read(name string) ([]byte, error) {
	path, err := s.safePath(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Write stores a new file. Returns false without writing when the name is
// already taken; existing files are never overwritten.
func (s *Store) Write(name string, content []byte) (bool, error) {
	path, err := s.safePath(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// Exists reports whether a file with the name is stored.
func (s *Store) Exists(name string) (bool, error) {
	path, err := s.safePath(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
