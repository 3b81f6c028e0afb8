package parser

import (
	"regexp"
	"strings"
)

// Names holds the definitions found in one module, in appearance order.
// Class-level variables are qualified as "Class.field".
type Names struct {
	Classes   []string
	Functions []string
	Variables []string
}

var (
	protectedName = regexp.MustCompile(`^_[^_]`)
	privateName   = regexp.MustCompile(`^__[^_]`)
)

// Defined returns classes, functions and variables flattened in that order.
func (n Names) Defined() []string {
	out := make([]string, 0, len(n.Classes)+len(n.Functions)+len(n.Variables))
	out = append(out, n.Classes...)
	out = append(out, n.Functions...)
	out = append(out, n.Variables...)
	return out
}

func (n Names) Public() []string {
	return n.filter(func(name string) bool { return !strings.HasPrefix(name, "_") })
}

func (n Names) Protected() []string {
	return n.filter(protectedName.MatchString)
}

func (n Names) Private() []string {
	return n.filter(privateName.MatchString)
}

// Exportable is Public followed by Protected.
func (n Names) Exportable() []string {
	return append(n.Public(), n.Protected()...)
}

func (n Names) filter(keep func(string) bool) []string {
	var out []string
	for _, name := range n.Defined() {
		if keep(name) {
			out = append(out, name)
		}
	}
	return out
}

// Import is one direct import. Module is the dotted name as written, without
// the leading dots of a relative import; Level counts those dots.
type Import struct {
	Module   string
	Level    int
	Names    []string
	Wildcard bool
	From     bool
	Line     int
}

// ModuleInfo accumulates everything a single traversal of a module learns.
type ModuleInfo struct {
	Names   Names
	Calls   []string
	Imports []Import
}
