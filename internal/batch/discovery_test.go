package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverImageFiles_EmptyArgs(t *testing.T) {
	files, err := discoverImageFiles(nil, false, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverImageFiles_Directory(t *testing.T) {
	dir := t.TempDir()
	png := touch(t, filepath.Join(dir, "image.png"))
	jpg := touch(t, filepath.Join(dir, "photo.JPG"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "sub", "nested.png"))

	files, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{png, jpg}, files)
}

func TestDiscoverImageFiles_Recursive(t *testing.T) {
	dir := t.TempDir()
	root := touch(t, filepath.Join(dir, "root.png"))
	nested := touch(t, filepath.Join(dir, "sub", "deeper", "nested.bmp"))

	files, err := discoverImageFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{root, nested}, files)
}

func TestDiscoverImageFiles_Patterns(t *testing.T) {
	dir := t.TempDir()
	keep := touch(t, filepath.Join(dir, "scan_001.png"))
	touch(t, filepath.Join(dir, "scan_002_overlay.png"))
	touch(t, filepath.Join(dir, "photo.png"))

	files, err := discoverImageFiles([]string{dir}, false, []string{"scan_*"}, []string{"*_overlay.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestDiscoverImageFiles_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	file := touch(t, filepath.Join(dir, "page.png"))

	files, err := discoverImageFiles([]string{file}, false, nil, []string{"*.jpg"})
	require.NoError(t, err)
	assert.Equal(t, []string{file}, files)

	files, err = discoverImageFiles([]string{file}, false, nil, []string{"page.*"})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverImageFiles_Missing(t *testing.T) {
	_, err := discoverImageFiles([]string{filepath.Join(t.TempDir(), "nope")}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		include  []string
		exclude  []string
		expected bool
	}{
		{"no patterns", "/a/b.png", nil, nil, true},
		{"included", "/a/b.png", []string{"*.png"}, nil, true},
		{"not included", "/a/b.jpg", []string{"*.png"}, nil, false},
		{"excluded wins", "/a/b.png", []string{"*.png"}, []string{"b.*"}, false},
		{"base name only", "/scan/b.png", []string{"scan*"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shouldIncludeFile(tt.path, tt.include, tt.exclude))
		})
	}
}
