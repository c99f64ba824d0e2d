package maincmd

import (
	"fmt"
	"io"
	"reflect"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/token"
)

// printAST walks chunk depth-first, printing one indented line per node:
// its Go type name, source position, and (when the resolver has already
// annotated it) its ResolvedType field. This is deliberately generic
// rather than a per-node-kind pretty-printer — it is developer tooling,
// not part of the core pipeline under test.
func printAST(w io.Writer, file *token.File, chunk *ast.Chunk) {
	printNode(w, file, chunk, 0)
}

func printNode(w io.Writer, file *token.File, n ast.Node, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Fprint(w, "  ")
	}
	start, _ := n.Span()
	fmt.Fprintf(w, "%s @ %s", nodeLabel(n), file.Position(start))
	if rt := resolvedType(n); rt != "" {
		fmt.Fprintf(w, " : %s", rt)
	}
	fmt.Fprintln(w)

	ast.Walk(n, func(c ast.Node) bool {
		printNode(w, file, c, depth+1)
		return false
	})
}

// nodeLabel returns the unqualified type name of n, e.g. "*ast.IfStmt" ->
// "IfStmt".
func nodeLabel(n ast.Node) string {
	t := reflect.TypeOf(n)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// resolvedType reads the node's ResolvedType field via reflection, if it
// has one (set in place by the resolver on every expression node). Returns
// "" before resolution or for nodes with no such field (statements).
func resolvedType(n ast.Node) string {
	v := reflect.ValueOf(n)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}
	f := v.FieldByName("ResolvedType")
	if !f.IsValid() || f.Kind() != reflect.String {
		return ""
	}
	return f.String()
}
