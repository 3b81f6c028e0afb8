package app

import (
	"fmt"
	"io"
	"log/slog"

	"refactorimports/internal/engine/catalog"
	"refactorimports/internal/engine/parser"
	"refactorimports/internal/engine/patch"
	"refactorimports/internal/shared/util"
)

// writer renders reports and keeps the first write error.
type writer struct {
	out io.Writer
	err error
}

func newWriter(out io.Writer) *writer {
	return &writer{out: out}
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format, args...)
}

func (w *writer) dump(r *catalog.ModuleRecord) {
	w.printf("%s:\n%s\n\n", r.Path, parser.Dump(r.Tree))
}

// exportables prints one import line per symbol. Lines of one module are
// ordered by full name; modules keep walk order.
func (w *writer) exportables(items []catalog.Exportable) {
	items = append([]catalog.Exportable(nil), items...)
	for start := 0; start < len(items); {
		end := start + 1
		for end < len(items) && items[end].Path == items[start].Path {
			end++
		}
		catalog.SortExportables(items[start:end])
		start = end
	}
	for _, e := range items {
		w.printf("%s\n", e.ImportStatement())
	}
}

// usages prints each module followed by its call targets, indented two spaces.
func (w *writer) usages(calls map[string][]string) {
	for _, module := range util.SortedStringKeys(calls) {
		w.printf("%s:\n", module)
		for _, call := range calls[module] {
			w.printf("  %s\n", call)
		}
	}
}

func (w *writer) patch(p patch.Patch) {
	if s, err := patch.Summarize(p); err == nil {
		slog.Info("patch synthesized", "path", p.File, "added", s.Added, "changed", s.Changed, "deleted", s.Deleted)
	}
	w.printf("%s", p.Text)
}
