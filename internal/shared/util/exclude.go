package util

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

const pythonExt = ".py"

// Excluder decides which directories and files a source walk skips.
// Patterns are matched against base names. A nil Excluder skips only
// non-Python files.
type Excluder struct {
	dirs  []glob.Glob
	files []glob.Glob
}

func NewExcluder(dirs, files []string) (*Excluder, error) {
	d, err := compileAll(dirs)
	if err != nil {
		return nil, err
	}
	f, err := compileAll(files)
	if err != nil {
		return nil, err
	}
	return &Excluder{dirs: d, files: f}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (e *Excluder) SkipDir(path string) bool {
	return e != nil && matchBase(e.dirs, path)
}

// SkipFile reports true for anything that is not a .py source, and for
// sources matching an exclude pattern.
func (e *Excluder) SkipFile(path string) bool {
	if filepath.Ext(path) != pythonExt {
		return true
	}
	return e != nil && matchBase(e.files, path)
}

func matchBase(globs []glob.Glob, path string) bool {
	base := filepath.Base(path)
	for _, g := range globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}
