package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "c.md"), []byte("c"), 0o644))
	return root
}

func dirStatFS(root string) fs.StatFS {
	return os.DirFS(root).(fs.StatFS)
}

func TestResolveFilesSingleFileAlwaysIncluded(t *testing.T) {
	root := writeTree(t)
	out, err := ResolveFiles(dirStatFS(root), []string{"a.md"}, false, []string{"*.pdf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, out)
}

func TestResolveFilesNonRecursiveSkipsSubdir(t *testing.T) {
	root := writeTree(t)
	out, err := ResolveFiles(dirStatFS(root), []string{"."}, false, []string{"*.md"})
	require.NoError(t, err)
	sort.Strings(out)
	assert.Equal(t, []string{"a.md"}, out)
}

func TestResolveFilesRecursiveWalksSubdir(t *testing.T) {
	root := writeTree(t)
	out, err := ResolveFiles(dirStatFS(root), []string{"."}, true, []string{"*.md"})
	require.NoError(t, err)
	sort.Strings(out)
	assert.Equal(t, []string{"a.md", "sub/c.md"}, out)
}

func TestResolveFilesFilterExcludesNonMatchingExtensions(t *testing.T) {
	root := writeTree(t)
	out, err := ResolveFiles(dirStatFS(root), []string{"."}, true, []string{"*.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, out)
}

func TestOSStatFSAcceptsAbsolutePaths(t *testing.T) {
	root := writeTree(t)
	out, err := ResolveFiles(OSStatFS(), []string{filepath.Join(root, "a.md")}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.md")}, out)
}

func TestOSStatFSWalksAbsoluteDirectoryRecursively(t *testing.T) {
	root := writeTree(t)
	out, err := ResolveFiles(OSStatFS(), []string{root}, true, []string{"*.md"})
	require.NoError(t, err)
	sort.Strings(out)
	assert.Equal(t, []string{filepath.Join(root, "a.md"), filepath.Join(root, "sub", "c.md")}, out)
}
