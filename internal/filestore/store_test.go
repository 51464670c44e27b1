package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteReadExists(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	exists, err := store.Exists("report.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	written, err := store.Write("report.pdf", []byte("contents"))
	require.NoError(t, err)
	assert.True(t, written)

	content, err := store.Read("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("contents"), content)

	exists, err = store.Exists("report.pdf")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_NeverOverwrites(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	written, err := store.Write("report.pdf", []byte("original"))
	require.NoError(t, err)
	require.True(t, written)

	written, err = store.Write("report.pdf", []byte("clobbered"))
	require.NoError(t, err)
	assert.False(t, written)

	content, err := store.Read("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), content)
}

func TestStore_List(t *testing.T) {
	root := filepath.Join(t.TempDir(), "files")
	store, err := NewStore(root)
	require.NoError(t, err)

	for _, name := range []string{"a.txt", "b.txt"} {
		_, err := store.Write(name, []byte("x"))
		require.NoError(t, err)
	}
	// Directories are not stored files.
	require.NoError(t, os.Mkdir(filepath.Join(root, "subdir"), 0o755))

	names, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}

func TestStore_RejectsUnsafeNames(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	unsafe := []string{
		"",
		"../escape.txt",
		"..",
		".",
		"/etc/passwd",
		"a/b.txt",
		`a\b.txt`,
		"./a.txt",
	}
	for _, name := range unsafe {
		_, err := store.Read(name)
		assert.Error(t, err, "read %q", name)
		_, err = store.Write(name, []byte("x"))
		assert.Error(t, err, "write %q", name)
		_, err = store.Exists(name)
		assert.Error(t, err, "exists %q", name)
	}
}

func TestStore_ReadMissingFile(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	_, err = store.Read("absent.txt")
	assert.True(t, os.IsNotExist(err))
}
