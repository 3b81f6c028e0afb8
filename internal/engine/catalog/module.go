package catalog

import (
	"refactorimports/internal/engine/parser"
)

// ModuleRecord is one parsed source file. The record owns Tree; the
// catalog that built it releases the tree on Close.
type ModuleRecord struct {
	Module  string
	Path    string
	Tree    *parser.Tree
	Names   parser.Names
	Calls   []string
	Imports []parser.Import

	// Nested maps an import, as written, to the record of the file it resolved to.
	Nested map[string]*ModuleRecord
}

// Exportables derives the importable symbols of the record, public names
// first. A class-level field exports through its class.
func (r *ModuleRecord) Exportables() []Exportable {
	seen := make(map[string]struct{})
	var out []Exportable
	for _, name := range r.Names.Exportable() {
		e := newExportable(r.Module, r.Path, name)
		if _, dup := seen[e.Name]; dup {
			continue
		}
		seen[e.Name] = struct{}{}
		out = append(out, e)
	}
	return out
}
