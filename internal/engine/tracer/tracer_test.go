package tracer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"refactorimports/internal/core/errors"
	"refactorimports/internal/engine/catalog"
	"refactorimports/internal/shared/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(DefaultInterpreter); err != nil {
		t.Skipf("%s not on PATH", DefaultInterpreter)
	}
}

func fixtureRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs("testdata")
	require.NoError(t, err)
	return root
}

func fixtureModules(t *testing.T) (*Tracer, []*catalog.ModuleRecord) {
	t.Helper()
	root := fixtureRoot(t)
	c, err := catalog.New(root)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	records, err := c.Modules(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return New(Config{SearchPaths: []string{root}}), records
}

func findRecord(t *testing.T, records []*catalog.ModuleRecord, base string) *catalog.ModuleRecord {
	t.Helper()
	for _, r := range records {
		if filepath.Base(r.Path) == base {
			return r
		}
	}
	t.Fatalf("fixture %s not found", base)
	return nil
}

func addedLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			out = append(out, line)
		}
	}
	return out
}

func writeModule(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Fixtures whose file name starts with "p" hold a resolvable bulk import;
// every other fixture must come back unchanged.
func TestExecute_FixtureNamingConvention(t *testing.T) {
	requirePython(t)
	tr, records := fixtureModules(t)

	for _, r := range records {
		t.Run(r.Module, func(t *testing.T) {
			p, err := tr.Execute(context.Background(), r.Module, r.Path)
			require.NoError(t, err)
			if strings.HasPrefix(filepath.Base(r.Path), "p") {
				assert.False(t, p.Empty(), "expected a patch for %s", r.Path)
			} else {
				assert.True(t, p.Empty(), "unexpected patch for %s:\n%s", r.Path, p.Text)
			}
		})
	}
}

func TestExecute_PrettyPrinterSurface(t *testing.T) {
	requirePython(t)
	tr, records := fixtureModules(t)
	r := findRecord(t, records, "p1.py")

	out, err := exec.Command(DefaultInterpreter, "-c", "import pprint; print('\\n'.join(sorted(pprint.__all__)))").Output()
	require.NoError(t, err)
	var want []string
	for _, name := range strings.Fields(string(out)) {
		want = append(want, "+from pprint import "+name)
	}
	require.NotEmpty(t, want)

	p, err := tr.Execute(context.Background(), r.Module, r.Path)
	require.NoError(t, err)

	assert.Contains(t, p.Text, "-from pprint import *\n")
	assert.Equal(t, want, addedLines(p.Text))
}

func TestExecute_SameNameFromTwoModules(t *testing.T) {
	requirePython(t)
	tr, records := fixtureModules(t)
	r := findRecord(t, records, "p2.py")

	p, err := tr.Execute(context.Background(), r.Module, r.Path)
	require.NoError(t, err)

	assert.Contains(t, p.Text, "-from data.t3 import *\n")
	assert.Contains(t, p.Text, "-from data.t4 import *\n")
	assert.Equal(t, []string{
		"+from data.t3 import Bar",
		"+from data.t3 import Charlie",
		"+from data.t4 import Bar",
		"+from data.t4 import Delta",
	}, addedLines(p.Text))
}

// p3.py runs itself a second time through runpy before its bulk import, so
// the same file is traced in two nested frames.
func TestExecute_ReentrantModule(t *testing.T) {
	requirePython(t)
	tr, records := fixtureModules(t)
	r := findRecord(t, records, "p3.py")

	result, err := tr.Trace(context.Background(), r.Module, r.Path)
	require.NoError(t, err)
	require.Empty(t, result.ImportError)
	bulk := 0
	for _, d := range result.Diffs {
		if d.Source == "from data.t3 import *\n" {
			bulk++
		}
	}
	assert.Equal(t, 2, bulk, "both executions of the file should be traced")

	p, err := tr.Execute(context.Background(), r.Module, r.Path)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "-from data.t3 import *\n")
	assert.Equal(t, []string{
		"+from data.t3 import Bar",
		"+from data.t3 import Charlie",
	}, addedLines(p.Text))
}

func TestExecute_StandaloneFileNamedLikeStdlib(t *testing.T) {
	requirePython(t)
	path := writeModule(t, "tokenize.py", "from pprint import *\nx = pformat\n")

	result, err := New(Config{}).Trace(context.Background(), "", path)
	require.NoError(t, err)
	assert.Empty(t, result.ImportError)
	assert.Equal(t, "tokenize", result.Module)

	p, err := New(Config{}).Execute(context.Background(), "", path)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "-from pprint import *\n")
	assert.Contains(t, p.Text, "+from pprint import pformat\n")
}

func TestTrace_ModuleResolvingElsewhereIsImportError(t *testing.T) {
	requirePython(t)
	path := writeModule(t, "json.py", "from pprint import *\nx = pformat\n")

	result, err := New(Config{SearchPaths: []string{filepath.Dir(path)}}).Trace(context.Background(), "json", path)
	require.NoError(t, err)
	assert.Contains(t, result.ImportError, "ImportError: module json resolved to")
	assert.Empty(t, result.Diffs)

	p, err := New(Config{}).Execute(context.Background(), "json", path)
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

func TestTrace_RecordsOnlyTargetFile(t *testing.T) {
	requirePython(t)
	tr, records := fixtureModules(t)
	r := findRecord(t, records, "p2.py")

	result, err := tr.Trace(context.Background(), r.Module, r.Path)
	require.NoError(t, err)
	require.NotEmpty(t, result.Diffs)
	assert.Empty(t, result.ImportError)
	for _, d := range result.Diffs {
		assert.Equal(t, r.Path, d.File)
		assert.Positive(t, d.Line)
	}
	assert.Equal(t, "from data.t3 import *\n", result.Diffs[0].Source)
}

func TestTrace_ImportErrorKeepsPartialTrace(t *testing.T) {
	requirePython(t)
	path := writeModule(t, "explodes.py", "from pprint import *\nvalue = 1\nraise RuntimeError('boom')\n")

	result, err := New(Config{}).Trace(context.Background(), "", path)
	require.NoError(t, err)
	assert.Contains(t, result.ImportError, "RuntimeError: boom")
	assert.NotEmpty(t, result.Diffs)

	p, err := New(Config{}).Execute(context.Background(), "", path)
	require.NoError(t, err)
	assert.Contains(t, p.Text, "+from pprint import pformat\n")
}

func TestTrace_WorkerOutputDoesNotCorruptResult(t *testing.T) {
	requirePython(t)
	path := writeModule(t, "noisy.py", "import sys\nprint('{\"diffs\": null}')\nsys.stderr.write('warning\\n')\nx = 1\n")

	result, err := New(Config{}).Trace(context.Background(), "", path)
	require.NoError(t, err)
	assert.Empty(t, result.ImportError)
	assert.NotEmpty(t, result.Diffs)
}

func TestTrace_Timeout(t *testing.T) {
	requirePython(t)
	path := writeModule(t, "spins.py", "while True:\n    pass\n")

	start := time.Now()
	_, err := New(Config{Timeout: 500 * time.Millisecond}).Trace(context.Background(), "", path)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeTraceTimeout), err.Error())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestTrace_MissingInterpreter(t *testing.T) {
	_, err := New(Config{Interpreter: "no-such-python-interpreter"}).Trace(context.Background(), "mod", "/tmp/mod.py")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestTrace_DetachedFromCancellation(t *testing.T) {
	requirePython(t)
	path := writeModule(t, "slow.py", "import time\ntime.sleep(0.3)\nfrom pprint import *\nx = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result, err := New(Config{}).Trace(ctx, "", path)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Diffs)
}

func TestTrace_WaitsForSpawnSlot(t *testing.T) {
	requirePython(t)
	path := writeModule(t, "paced.py", "x = 1\n")
	pacer := util.NewPacer(0.1, 1)
	tr := New(Config{Pacer: pacer})

	result, err := tr.Trace(context.Background(), "", path)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Diffs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Trace(ctx, "", path)
	assert.ErrorIs(t, err, context.Canceled)
}
