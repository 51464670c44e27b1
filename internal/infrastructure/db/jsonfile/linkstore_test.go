package jsonfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecove/filecove/internal/core/domain"
)

func TestLinkStore_AddGetDelete(t *testing.T) {
	store, err := OpenLinkStore(filepath.Join(t.TempDir(), "links.json"))
	require.NoError(t, err)

	alice, err := domain.NewUsername("alice")
	require.NoError(t, err)

	code, err := store.AddLink(alice, "report.pdf")
	require.NoError(t, err)
	assert.Len(t, code.String(), 16)

	link, ok := store.GetLink(code)
	require.True(t, ok)
	assert.Equal(t, alice, link.Username)
	assert.Equal(t, "report.pdf", link.FileName)

	deleted, err := store.DeleteLink(code)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok = store.GetLink(code)
	assert.False(t, ok)

	deleted, err = store.DeleteLink(code)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestLinkStore_LinksForUser(t *testing.T) {
	store, err := OpenLinkStore(filepath.Join(t.TempDir(), "links.json"))
	require.NoError(t, err)

	alice, err := domain.NewUsername("alice")
	require.NoError(t, err)
	bob, err := domain.NewUsername("bob")
	require.NoError(t, err)

	a1, err := store.AddLink(alice, "a.txt")
	require.NoError(t, err)
	a2, err := store.AddLink(alice, "b.txt")
	require.NoError(t, err)
	_, err = store.AddLink(bob, "c.txt")
	require.NoError(t, err)

	links := store.LinksForUser(alice)
	assert.Len(t, links, 2)
	assert.Contains(t, links, a1)
	assert.Contains(t, links, a2)
}

func TestLinkStore_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")

	store, err := OpenLinkStore(path)
	require.NoError(t, err)

	alice, err := domain.NewUsername("alice")
	require.NoError(t, err)
	code, err := store.AddLink(alice, "report.pdf")
	require.NoError(t, err)

	reloaded, err := OpenLinkStore(path)
	require.NoError(t, err)

	link, ok := reloaded.GetLink(code)
	require.True(t, ok)
	assert.Equal(t, "report.pdf", link.FileName)
}
