package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// container tells an assignment handler whether its statement sits directly
// in the module body, directly in a class body, or anywhere else.
type container int

const (
	inModule container = iota
	inClass
	inNested
)

type walkState struct {
	container container
	class     string
}

var nested = walkState{container: inNested}

type PythonExtractor struct{}

// Extract walks the tree once and returns the accumulated names, calls and imports.
func (e *PythonExtractor) Extract(tree *Tree) *ModuleInfo {
	info := &ModuleInfo{}
	e.walk(tree.Root(), tree.Source, walkState{container: inModule}, info)
	return info
}

func (e *PythonExtractor) walk(node *sitter.Node, source []byte, state walkState, info *ModuleInfo) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "module":
		e.walkChildren(node, source, state, info)
	case "expression_statement":
		// Transparent: the assignment inside still counts as module/class level.
		e.walkChildren(node, source, state, info)
	case "class_definition":
		e.visitClass(node, source, info)
	case "function_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			info.Names.Functions = append(info.Names.Functions, text(name, source))
		}
		e.walkChildren(node, source, nested, info)
	case "assignment":
		e.visitAssignment(node, source, state, info)
	case "call":
		if name, ok := callTarget(node.ChildByFieldName("function"), source); ok {
			info.Calls = append(info.Calls, name)
		}
		e.walkChildren(node, source, nested, info)
	case "import_statement":
		e.visitImport(node, source, info)
	case "import_from_statement":
		e.visitFromImport(node, source, info)
	default:
		e.walkChildren(node, source, nested, info)
	}
}

func (e *PythonExtractor) walkChildren(node *sitter.Node, source []byte, state walkState, info *ModuleInfo) {
	for i := uint(0); i < node.ChildCount(); i++ {
		e.walk(node.Child(i), source, state, info)
	}
}

func (e *PythonExtractor) visitClass(node *sitter.Node, source []byte, info *ModuleInfo) {
	name := node.ChildByFieldName("name")
	if name == nil {
		e.walkChildren(node, source, nested, info)
		return
	}
	className := text(name, source)
	info.Names.Classes = append(info.Names.Classes, className)

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "block" {
			e.walkChildren(child, source, walkState{container: inClass, class: className}, info)
			continue
		}
		e.walk(child, source, nested, info)
	}
}

// visitAssignment records direct identifier targets of plain assignments at
// module or class level. Annotated assignments are skipped; chained
// assignments arrive as a nested assignment on the right-hand side.
func (e *PythonExtractor) visitAssignment(node *sitter.Node, source []byte, state walkState, info *ModuleInfo) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")

	if state.container != inNested && node.ChildByFieldName("type") == nil && left != nil && left.Kind() == "identifier" {
		name := text(left, source)
		if state.container == inClass {
			name = state.class + "." + name
		}
		info.Names.Variables = append(info.Names.Variables, name)
	}

	e.walk(left, source, nested, info)
	if right != nil && right.Kind() == "assignment" {
		e.walk(right, source, state, info)
		return
	}
	e.walk(right, source, nested, info)
	e.walk(node.ChildByFieldName("type"), source, nested, info)
}

func (e *PythonExtractor) visitImport(node *sitter.Node, source []byte, info *ModuleInfo) {
	line := int(node.StartPosition().Row) + 1
	for i := uint(0); i < node.ChildCount(); i++ {
		if module := importedName(node.Child(i), source); module != "" {
			info.Imports = append(info.Imports, Import{Module: module, Line: line})
		}
	}
}

func (e *PythonExtractor) visitFromImport(node *sitter.Node, source []byte, info *ModuleInfo) {
	imp := Import{From: true, Line: int(node.StartPosition().Row) + 1}

	seenImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import":
			seenImport = true
		case "relative_import":
			raw := text(child, source)
			imp.Module = strings.TrimLeft(raw, ".")
			imp.Level = len(raw) - len(imp.Module)
		case "wildcard_import":
			imp.Wildcard = true
		case "dotted_name", "aliased_import":
			if !seenImport {
				imp.Module = text(child, source)
				continue
			}
			if name := importedName(child, source); name != "" {
				imp.Names = append(imp.Names, name)
			}
		}
	}

	info.Imports = append(info.Imports, imp)
}

func importedName(node *sitter.Node, source []byte) string {
	switch node.Kind() {
	case "dotted_name", "identifier":
		return text(node, source)
	case "aliased_import":
		if name := node.ChildByFieldName("name"); name != nil {
			return text(name, source)
		}
	}
	return ""
}

// callTarget renders a bare name or a dotted chain rooted at a name.
// Any other callee (subscripts, calls, literals) contributes nothing.
func callTarget(node *sitter.Node, source []byte) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "identifier":
		return text(node, source), true
	case "attribute":
		base, ok := callTarget(node.ChildByFieldName("object"), source)
		if !ok {
			return "", false
		}
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return "", false
		}
		return base + "." + text(attr, source), true
	}
	return "", false
}

func text(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
