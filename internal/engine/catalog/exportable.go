package catalog

import (
	"path/filepath"
	"sort"
	"strings"
)

// Exportable is a symbol another module can import by name.
type Exportable struct {
	Module string
	Path   string
	Name   string
}

func newExportable(module, path, name string) Exportable {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return Exportable{Module: strings.TrimSuffix(module, ".__init__"), Path: path, Name: name}
}

func (e Exportable) FullName() string {
	if e.Module == "" {
		return e.Name
	}
	return e.Module + "." + e.Name
}

// ImportStatement is the canonical "from M import N" line for the symbol.
// A record without a module path (a single-file root) imports from the
// file's stem, or its directory for a package initializer.
func (e Exportable) ImportStatement() string {
	module := e.Module
	if module == "" {
		module = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
		if module == "__init__" {
			module = filepath.Base(filepath.Dir(e.Path))
		}
	}
	return "from " + module + " import " + e.Name
}

func (e Exportable) String() string {
	return e.FullName()
}

func (e Exportable) Less(other Exportable) bool {
	return e.FullName() < other.FullName()
}

// SortExportables orders symbols by fully-qualified name, stable for equal names.
func SortExportables(items []Exportable) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Less(items[j]) })
}
