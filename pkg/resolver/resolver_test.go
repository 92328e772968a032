package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T) (*Resolver, string) {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>hi</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("a"), 0644))

	r, err := New(root)
	require.NoError(t, err)
	return r, r.Root()
}

func TestResolve_Classification(t *testing.T) {
	r, root := newTree(t)

	tests := []struct {
		name     string
		rawPath  string
		wantPath string
		wantKind Kind
	}{
		{"root", "/", root, Directory},
		{"root without slash", "", root, Directory},
		{"file", "/index.html", filepath.Join(root, "index.html"), File},
		{"directory with trailing slash", "/docs/", filepath.Join(root, "docs"), Directory},
		{"nested file", "/docs/a.txt", filepath.Join(root, "docs", "a.txt"), File},
		{"redundant separators", "//docs//a.txt", filepath.Join(root, "docs", "a.txt"), File},
		{"dot segment", "/docs/./a.txt", filepath.Join(root, "docs", "a.txt"), File},
		{"missing", "/nope.html", filepath.Join(root, "nope.html"), Missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.rawPath)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, res.Path)
			assert.Equal(t, tt.wantKind, res.Kind)
		})
	}
}

func TestResolve_RejectsTraversal(t *testing.T) {
	// The root does not exist: a rejection here cannot come from a filesystem probe.
	r, err := New(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)

	paths := []string{
		"/..",
		"/../",
		"/../../etc/passwd",
		"/a/../../b",
		"/a/b/c/../../../../..",
		"..",
		"/docs/..",
		"/./../x",
	}

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			_, err := r.Resolve(p)
			assert.ErrorIs(t, err, ErrPathRejected)

			_, err = Segments(p)
			assert.ErrorIs(t, err, ErrPathRejected)
		})
	}
}

func TestResolve_DotsInNamesAreAllowed(t *testing.T) {
	r, root := newTree(t)

	res, err := r.Resolve("/..hidden/file..txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "..hidden", "file..txt"), res.Path)
	assert.Equal(t, Missing, res.Kind)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "directory", Directory.String())
	assert.Equal(t, "file", File.String())
	assert.Equal(t, "missing", Missing.String())
}
