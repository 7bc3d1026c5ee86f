package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	for _, name := range []string{"faces", "faces-2024", "Gallery_01"} {
		assert.NoError(t, ValidateName(name), name)
	}
	for _, name := range []string{"", "../etc", "a b", "x.utg", "a/b"} {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidName, name)
	}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry(dir, GalleryConfig{FsyncInterval: -1})
	require.NoError(t, err)
	defer reg.Close()

	_, err = reg.Get("faces")
	assert.ErrorIs(t, err, ErrNoGallery)

	g, err := reg.GetOrCreate("faces")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "faces.utg"), g.Path())
	assert.FileExists(t, g.Path())

	same, err := reg.Get("faces")
	require.NoError(t, err)
	assert.Same(t, g, same)

	_, err = reg.GetOrCreate("../escape")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRegistry_List(t *testing.T) {
	dir := t.TempDir()
	writeRecords(t, filepath.Join(dir, "zeta.utg"), 2)
	writeRecords(t, filepath.Join(dir, "alpha.utg"), 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.utg"), 0750))

	reg, err := NewRegistry(dir, GalleryConfig{})
	require.NoError(t, err)
	defer reg.Close()

	_, err = reg.Get("zeta")
	require.NoError(t, err)

	infos, err := reg.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].Name)
	assert.False(t, infos[0].Open)
	assert.Equal(t, "zeta", infos[1].Name)
	assert.True(t, infos[1].Open)
	assert.Greater(t, infos[1].Size, int64(0))
}

func TestRegistry_ReleaseAndClose(t *testing.T) {
	reg, err := NewRegistry(t.TempDir(), GalleryConfig{})
	require.NoError(t, err)

	g, err := reg.GetOrCreate("a")
	require.NoError(t, err)
	_, err = g.Append(testRecord(t, 1))
	require.NoError(t, err)

	require.NoError(t, reg.Release("a"))
	assert.False(t, g.IsOpen())
	assert.NoError(t, reg.Release("a"))

	g, err = reg.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Stats().Templates)

	require.NoError(t, reg.Close())
	assert.False(t, g.IsOpen())
}
