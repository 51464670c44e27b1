package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/filecove/filecove/internal/core/domain"
)

// LinkStore is the fileshare service's database: share codes mapped to
// links, persisted with the same whole-file JSON contract as the
// credential store.
type LinkStore struct {
	mu    sync.RWMutex
	path  string
	links map[domain.LinkCode]domain.Link
}

type linkDocument struct {
	Links map[domain.LinkCode]domain.Link `json:"links"`
}

// OpenLinkStore loads the link database; an absent file yields an empty one.
func OpenLinkStore(path string) (*LinkStore, error) {
	store := &LinkStore{path: path, links: make(map[domain.LinkCode]domain.Link)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return store, nil
	case err != nil:
		return nil, fmt.Errorf("failed to open link store %s: %w", path, err)
	}

	var doc linkDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to deserialize link store %s: %w", path, err)
	}
	if doc.Links != nil {
		store.links = doc.Links
	}
	return store, nil
}

// AddLink mints a fresh collision-free code for the file and persists.
func (s *LinkStore) AddLink(owner domain.Username, fileName string) (domain.LinkCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code domain.LinkCode
	for {
		c, err := domain.NewLinkCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.links[c]; !taken {
			code = c
			break
		}
	}

	s.links[code] = domain.Link{Username: owner, FileName: fileName}
	if err := s.saveLocked(); err != nil {
		return code, err
	}
	return code, nil
}

// GetLink returns the link for a code, if present.
func (s *LinkStore) GetLink(code domain.LinkCode) (domain.Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.links[code]
	return link, ok
}

// LinksForUser returns every link owned by the user, keyed by code.
func (s *LinkStore) LinksForUser(owner domain.Username) map[domain.LinkCode]domain.Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.LinkCode]domain.Link)
	for code, link := range s.links {
		if link.Username == owner {
			out[code] = link
		}
	}
	return out
}

// DeleteLink removes a link and persists. Returns false when the code is
// unknown.
func (s *LinkStore) DeleteLink(code domain.LinkCode) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[code]; !ok {
		return false, nil
	}
	delete(s.links, code)
	return true, s.saveLocked()
}

func (s *LinkStore) saveLocked() error {
	data, err := json.MarshalIndent(linkDocument{Links: s.links}, "", "  ")
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
