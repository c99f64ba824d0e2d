// Package ast defines the abstract syntax tree produced by the parser and
// annotated in place by the resolver. Nodes are allocated and owned by the
// compiler for the lifetime of one compilation; nothing here is retained by
// the VM once emission finishes.
package ast

import "github.com/mna/lit/lang/token"

// Node is implemented by every AST node.
type Node interface {
	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)

	// Walk visits the node's direct children, calling v for each.
	Walk(v Visitor)
}

// Expr is any expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()

	// BlockEnding reports whether this statement may only appear as the
	// last statement of a block (return, break, continue).
	BlockEnding() bool
}

// Visitor is called once per child node during Walk. If it returns true,
// Walk recurses into that child's own children.
type Visitor func(n Node) bool

// Walk visits n and, for every child c for which v(c) returns true,
// recursively walks c.
func Walk(n Node, v Visitor) {
	if n == nil {
		return
	}
	n.Walk(func(c Node) bool {
		if v(c) {
			Walk(c, v)
		}
		return false
	})
}

// Chunk is the root node of a compiled unit: a file's top-level block.
type Chunk struct {
	Name  string
	Block *Block
	EOF   token.Pos
}

func (c *Chunk) Span() (token.Pos, token.Pos) {
	if c.Block != nil {
		s, _ := c.Block.Span()
		return s, c.EOF
	}
	return c.EOF, c.EOF
}

func (c *Chunk) Walk(v Visitor) {
	if c.Block != nil {
		v(c.Block)
	}
}

// Block is a sequence of statements delimited by braces (or, for a Chunk,
// implicit file boundaries).
type Block struct {
	Lbrace token.Pos // NoPos if implicit (chunk-level)
	Stmts  []Stmt
	Rbrace token.Pos
}

func (b *Block) Span() (token.Pos, token.Pos) {
	start, end := b.Lbrace, b.Rbrace
	if len(b.Stmts) > 0 {
		if !start.IsValid() {
			start, _ = b.Stmts[0].Span()
		}
		if !end.IsValid() {
			_, end = b.Stmts[len(b.Stmts)-1].Span()
		}
	}
	return start, end
}

func (b *Block) Walk(v Visitor) {
	for _, s := range b.Stmts {
		v(s)
	}
}
