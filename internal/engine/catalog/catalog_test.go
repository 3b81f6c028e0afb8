package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"refactorimports/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newCatalog(t *testing.T, root string, opts ...Option) *Catalog {
	t.Helper()
	c, err := New(root, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func modulePaths(records []*ModuleRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Module)
	}
	return out
}

func TestModules_PackageLayout(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"top.py":              "x = 1\n",
		"pkg/__init__.py":     "",
		"pkg/a.py":            "A = 1\n",
		"pkg/notes.txt":       "not python\n",
		"pkg/nopkg/c.py":      "C = 1\n",
		"pkg/sub/__init__.py": "",
		"pkg/sub/b.py":        "B = 1\n",
	})

	records, err := newCatalog(t, root).Modules(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"pkg", "pkg.a", "pkg.sub", "pkg.sub.b"}, modulePaths(records))
	for _, r := range records {
		assert.True(t, filepath.IsAbs(r.Path), r.Path)
		assert.NotNil(t, r.Tree)
	}
	assert.Equal(t, filepath.Join(root, "pkg", "sub", "b.py"), records[3].Path)
}

func TestModules_SingleFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"script.py": "def main():\n    run()\n"})

	records, err := newCatalog(t, filepath.Join(root, "script.py")).Modules(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Module)
	assert.Equal(t, []string{"main"}, records[0].Names.Functions)
}

func TestModules_Memoized(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "A = 1\n",
	})
	c := newCatalog(t, root)

	first, err := c.Modules(context.Background())
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"pkg/later.py": "L = 1\n"})

	second, err := c.Modules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, modulePaths(first), modulePaths(second))
	assert.Same(t, first[0], second[0])

	fresh, err := newCatalog(t, root).Modules(context.Background())
	require.NoError(t, err)
	assert.Contains(t, modulePaths(fresh), "pkg.later")
}

// cancelAfter reports cancellation once Err has been consulted left times.
type cancelAfter struct {
	context.Context
	left int
}

func (c *cancelAfter) Err() error {
	if c.left > 0 {
		c.left--
		return nil
	}
	return context.Canceled
}

func TestModules_CanceledBuildKeepsNothing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "A = 1\n",
		"pkg/b.py":        "B = 1\n",
		"pkg/c.py":        "C = 1\n",
	})
	c := newCatalog(t, root)

	_, err := c.Modules(&cancelAfter{Context: context.Background(), left: 2})
	require.ErrorIs(t, err, context.Canceled)

	records, err := c.Modules(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pkg", "pkg.a", "pkg.b", "pkg.c"}, modulePaths(records))
	assert.Len(t, c.byPath, 4)
}

func TestModules_ParseErrorIsReported(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py": "",
		"pkg/bad.py":      "def broken(:\n",
		"pkg/good.py":     "G = 1\n",
	})
	c := newCatalog(t, root)

	records, err := c.Modules(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeParse))
	path, ok := errors.ContextValue(err, errors.CtxPath)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "pkg", "bad.py"), path)
	assert.Equal(t, []string{"pkg", "pkg.good"}, modulePaths(records))

	_, again := c.Modules(context.Background())
	assert.Equal(t, err, again)
}

func TestModules_Excludes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py":         "",
		"pkg/keep.py":             "",
		"pkg/test_skip.py":        "",
		"pkg/vendor/__init__.py":  "",
		"pkg/vendor/thirdpart.py": "",
	})

	records, err := newCatalog(t, root, WithExcludes([]string{"vendor"}, []string{"test_*.py"})).Modules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg", "pkg.keep"}, modulePaths(records))

	_, err = New(root, WithExcludes([]string{"[bad"}, nil))
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))
}

func TestModules_NestedImports(t *testing.T) {
	root := t.TempDir()
	lib := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py":     "",
		"pkg/a.py":            "from .sub import b\nimport pkg.sub.b\nimport missing_mod\nimport ext\n",
		"pkg/sub/__init__.py": "",
		"pkg/sub/b.py":        "from pkg import a\n",
	})
	writeTree(t, lib, map[string]string{
		"ext.py":    "import ext2\nimport broken\n",
		"ext2.py":   "import ext\n",
		"broken.py": "def (:\n",
	})

	records, err := newCatalog(t, root, WithSearchPaths(lib)).Modules(context.Background())
	require.NoError(t, err)

	a := records[1]
	require.Equal(t, "pkg.a", a.Module)
	assert.Same(t, records[2], a.Nested[".sub"])
	assert.Same(t, records[3], a.Nested[".sub.b"])
	assert.Same(t, records[3], a.Nested["pkg.sub.b"])
	assert.NotContains(t, a.Nested, "missing_mod")

	ext := a.Nested["ext"]
	require.NotNil(t, ext)
	assert.Equal(t, filepath.Join(lib, "ext.py"), ext.Path)
	assert.NotContains(t, ext.Nested, "broken")

	ext2 := ext.Nested["ext2"]
	require.NotNil(t, ext2)
	assert.Empty(t, ext2.Nested, "cycle back to ext must be omitted")

	b := records[3]
	assert.Same(t, a, b.Nested["pkg.a"])
}

func TestCalls(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pkg/__init__.py": "",
		"pkg/a.py":        "print(1)\nos.path.join('a')\nprint(2)\nassert_ok()\n",
	})

	calls, err := newCatalog(t, root).Calls(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"assert_ok", "os.path.join", "print"}, calls["pkg.a"])
	assert.Empty(t, calls["pkg"])
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}
