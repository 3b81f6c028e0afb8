package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"refactorimports/internal/engine/parser"
)

// searchPath locates the file that a Python import statement refers to.
type searchPath struct {
	roots []string
}

func newSearchPath(base string, extra []string) searchPath {
	var roots []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p == "" {
			return
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		p = filepath.Clean(p)
		if seen[p] {
			return
		}
		seen[p] = true
		roots = append(roots, p)
	}

	add(base)
	for _, p := range extra {
		add(p)
	}
	for _, p := range filepath.SplitList(os.Getenv("PYTHONPATH")) {
		add(p)
	}
	return searchPath{roots: roots}
}

// importKey renders an import the way it was written, leading dots included.
func importKey(imp parser.Import) string {
	return strings.Repeat(".", imp.Level) + imp.Module
}

// Resolve returns the file an import names, or false when no candidate exists.
// Relative imports resolve against the importing file's package directory.
func (s searchPath) Resolve(imp parser.Import, importer string) (string, bool) {
	if imp.Level > 0 {
		base := filepath.Dir(importer)
		for i := 1; i < imp.Level; i++ {
			base = filepath.Dir(base)
		}
		if imp.Module == "" {
			return moduleFile(base, nil)
		}
		return moduleFile(base, strings.Split(imp.Module, "."))
	}

	if imp.Module == "" {
		return "", false
	}
	parts := strings.Split(imp.Module, ".")
	for _, root := range s.roots {
		if path, ok := moduleFile(root, parts); ok {
			return path, true
		}
	}
	return "", false
}

// moduleFile maps parts under dir to dir/a/b.py or dir/a/b/__init__.py.
func moduleFile(dir string, parts []string) (string, bool) {
	base := filepath.Join(append([]string{dir}, parts...)...)
	if len(parts) > 0 {
		if isFile(base + ".py") {
			return base + ".py", true
		}
	}
	initFile := filepath.Join(base, "__init__.py")
	if isFile(initFile) {
		return initFile, true
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
