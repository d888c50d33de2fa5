package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// osStatFS implements fs.StatFS over absolute OS paths directly, unlike
// os.DirFS which roots all names under a fixed directory. The coordinator
// resolves tool-supplied paths (which may be absolute) through this.
type osStatFS struct{}

func (osStatFS) Open(name string) (fs.File, error)     { return os.Open(name) }
func (osStatFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// OSStatFS returns a StatFS rooted at the OS filesystem root, accepting
// absolute paths as-is.
func OSStatFS() fs.StatFS { return osStatFS{} }

// ResolveFiles expands paths (files or directories) into a flat list of
// file paths matching patterns (glob-style, e.g. "*.md"). A bare file path
// is always included regardless of patterns. Directories are walked
// recursively only when recursive is true; otherwise only their immediate
// children are considered.
func ResolveFiles(fsys fs.StatFS, paths []string, recursive bool, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	var out []string
	for _, p := range paths {
		info, err := fsys.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("ingest: stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		matches, err := walkDir(fsys, p, recursive, patterns)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}

func walkDir(fsys fs.StatFS, root string, recursive bool, patterns []string) ([]string, error) {
	var out []string
	walkFS, ok := fsys.(fs.FS)
	if !ok {
		return nil, fmt.Errorf("ingest: filesystem does not support directory walk")
	}
	err := fs.WalkDir(walkFS, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if matchesAny(filepath.Base(path), patterns) {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

func matchesAny(name string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}
