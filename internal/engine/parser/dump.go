package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const dumpIndent = "  "

// Dump renders the named nodes of tree one per line, indented by depth.
// Field names prefix the node kind; named leaves carry their quoted text
// and every line ends with the node's 1-based start line and column.
func Dump(tree *Tree) string {
	var b strings.Builder
	cursor := tree.Root().Walk()
	defer cursor.Close()

	dumpNode(&b, cursor, tree.Source, 0)
	return b.String()
}

func dumpNode(b *strings.Builder, cursor *sitter.TreeCursor, source []byte, depth int) {
	node := cursor.Node()
	if node.IsNamed() {
		b.WriteString(strings.Repeat(dumpIndent, depth))
		if field := cursor.FieldName(); field != "" {
			b.WriteString(field)
			b.WriteString(": ")
		}
		b.WriteString(node.Kind())
		if node.NamedChildCount() == 0 {
			fmt.Fprintf(b, " %q", text(node, source))
		}
		pos := node.StartPosition()
		fmt.Fprintf(b, " [%d:%d]\n", pos.Row+1, pos.Column+1)
		depth++
	}

	if !cursor.GotoFirstChild() {
		return
	}
	for {
		dumpNode(b, cursor, source, depth)
		if !cursor.GotoNextSibling() {
			break
		}
	}
	cursor.GotoParent()
}
