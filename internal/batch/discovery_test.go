package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}
}

func TestDiscoverPhotos_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.png", "c.JPEG", "notes.txt", "d.pdf")

	files, err := DiscoverPhotos([]string{dir}, &Config{})
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "a.jpg"), files[0])
}

func TestDiscoverPhotos_NonRecursiveSkipsSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", filepath.Join("sub", "b.jpg"))

	files, err := DiscoverPhotos([]string{dir}, &Config{})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDiscoverPhotos_Recursive(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", filepath.Join("sub", "b.jpg"), filepath.Join("sub", "deep", "c.png"))

	files, err := DiscoverPhotos([]string{dir}, &Config{Recursive: true})
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestDiscoverPhotos_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.txt")

	files, err := DiscoverPhotos([]string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.txt"), // filtered: not an image
	}, &Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.jpg")}, files)
}

func TestDiscoverPhotos_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg")
	path := filepath.Join(dir, "a.jpg")

	files, err := DiscoverPhotos([]string{path, path, dir}, &Config{})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDiscoverPhotos_IncludeExclude(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "IMG_001.jpg", "IMG_002.jpg", "screenshot.jpg")

	files, err := DiscoverPhotos([]string{dir}, &Config{
		IncludePatterns: []string{"IMG_*.jpg"},
	})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = DiscoverPhotos([]string{dir}, &Config{
		ExcludePatterns: []string{"screenshot*"},
	})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestDiscoverPhotos_MissingPath(t *testing.T) {
	_, err := DiscoverPhotos([]string{filepath.Join(t.TempDir(), "nope")}, &Config{})
	assert.Error(t, err)
}

func TestDiscoverPhotos_Sorted(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.jpg", "a.jpg", "b.jpg")

	files, err := DiscoverPhotos([]string{dir}, &Config{})
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.True(t, files[0] < files[1] && files[1] < files[2])
}
