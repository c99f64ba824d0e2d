package ast

import "github.com/mna/lit/lang/token"

func (*VarStmt) stmtNode()      {}
func (*ExprStmt) stmtNode()     {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ReturnStmt) stmtNode()   {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*BlockStmt) stmtNode()    {}
func (*FuncStmt) stmtNode()     {}
func (*ClassStmt) stmtNode()    {}

func (*VarStmt) BlockEnding() bool      { return false }
func (*ExprStmt) BlockEnding() bool     { return false }
func (*IfStmt) BlockEnding() bool       { return false }
func (*WhileStmt) BlockEnding() bool    { return false }
func (*ReturnStmt) BlockEnding() bool   { return true }
func (*BreakStmt) BlockEnding() bool    { return true }
func (*ContinueStmt) BlockEnding() bool { return true }
func (*BlockStmt) BlockEnding() bool    { return false }
func (*FuncStmt) BlockEnding() bool     { return false }
func (*ClassStmt) BlockEnding() bool    { return false }

// VarStmt declares one local or global variable: var/val Name [: Type] [=
// Value].
type VarStmt struct {
	Kw    token.Pos
	Val   bool // true for "val", false for "var"
	Final bool
	Name  *IdentExpr
	Type  *IdentExpr // nil when the type is inferred from Value
	Value Expr       // nil when uninitialized (only legal when Type != nil)

	ResolvedType string
	// Binding is filled by the resolver: *resolver.Binding.
	Binding any
}

func (s *VarStmt) Span() (token.Pos, token.Pos) {
	end, _ := s.Name.Span()
	if s.Value != nil {
		_, end = s.Value.Span()
	} else if s.Type != nil {
		_, end = s.Type.Span()
	}
	return s.Kw, end
}
func (s *VarStmt) Walk(v Visitor) {
	v(s.Name)
	if s.Type != nil {
		v(s.Type)
	}
	if s.Value != nil {
		v(s.Value)
	}
}

// ExprStmt is an expression used as a statement. The parser accepts any
// expression here (calls, assignments, desugared a++/a+=b, ...).
type ExprStmt struct{ X Expr }

func (s *ExprStmt) Span() (token.Pos, token.Pos) { return s.X.Span() }
func (s *ExprStmt) Walk(v Visitor)               { v(s.X) }

// IfStmt models if / else-if / else as parallel condition/branch arrays,
// following the same chaining the parser builds: Conds[0]/Thens[0] is the
// leading "if", subsequent pairs are "else if", and Else is the trailing
// "else" block (nil if absent).
type IfStmt struct {
	If    token.Pos
	Conds []Expr
	Thens []*Block
	Else  *Block
}

func (s *IfStmt) Span() (token.Pos, token.Pos) {
	end := s.If
	if s.Else != nil {
		_, end = s.Else.Span()
	} else if n := len(s.Thens); n > 0 {
		_, end = s.Thens[n-1].Span()
	}
	return s.If, end
}
func (s *IfStmt) Walk(v Visitor) {
	for i, c := range s.Conds {
		v(c)
		v(s.Thens[i])
	}
	if s.Else != nil {
		v(s.Else)
	}
}

// WhileStmt is a while loop. "for" loops are desugared into this form by
// the parser (init; while(cond) { body; inc }).
type WhileStmt struct {
	While token.Pos
	Cond  Expr
	Body  *Block
}

func (s *WhileStmt) Span() (token.Pos, token.Pos) { _, end := s.Body.Span(); return s.While, end }
func (s *WhileStmt) Walk(v Visitor)               { v(s.Cond); v(s.Body) }

// ReturnStmt returns from the enclosing function. Value is nil for a bare
// "return" (including the synthesized trailing return of a void function).
type ReturnStmt struct {
	Kw    token.Pos
	Value Expr
}

func (s *ReturnStmt) Span() (token.Pos, token.Pos) {
	if s.Value != nil {
		_, end := s.Value.Span()
		return s.Kw, end
	}
	return s.Kw, s.Kw
}
func (s *ReturnStmt) Walk(v Visitor) {
	if s.Value != nil {
		v(s.Value)
	}
}

// BreakStmt exits the nearest enclosing loop.
type BreakStmt struct{ Kw token.Pos }

func (s *BreakStmt) Span() (token.Pos, token.Pos) { return s.Kw, s.Kw }
func (s *BreakStmt) Walk(Visitor)                 {}

// ContinueStmt jumps to the nearest enclosing loop's condition check.
type ContinueStmt struct{ Kw token.Pos }

func (s *ContinueStmt) Span() (token.Pos, token.Pos) { return s.Kw, s.Kw }
func (s *ContinueStmt) Walk(Visitor)                 {}

// BlockStmt wraps a Block so it can appear wherever a Stmt is expected.
type BlockStmt struct{ Block *Block }

func (s *BlockStmt) Span() (token.Pos, token.Pos) { return s.Block.Span() }
func (s *BlockStmt) Walk(v Visitor)               { v(s.Block) }

// FuncStmt is a named function declaration: fun name(params) > Ret { body }.
type FuncStmt struct {
	Fun  token.Pos
	Name *IdentExpr
	Fn   *FuncExpr

	// Binding is filled by the resolver: *resolver.Binding for the function
	// name itself.
	Binding any
}

func (s *FuncStmt) Span() (token.Pos, token.Pos) { _, end := s.Fn.Span(); return s.Fun, end }
func (s *FuncStmt) Walk(v Visitor)               { v(s.Name); v(s.Fn) }

// Modifiers is the bitset of member/class modifiers recognized by the
// grammar: public|protected|private|static|final|override|abstract.
type Modifiers uint8

const (
	ModPublic Modifiers = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModFinal
	ModOverride
	ModAbstract
)

func (m Modifiers) Has(f Modifiers) bool { return m&f != 0 }

// AccessOf returns the access-modifier bits of m, or 0 if none is set.
func (m Modifiers) AccessOf() Modifiers { return m & (ModPublic | ModProtected | ModPrivate) }

// FieldDecl is a class field, typed or with getter/setter blocks. Getter
// and setter bodies are kept as AST nodes but are not lowered by the
// emitter; they exist for future use.
type FieldDecl struct {
	Mods   Modifiers
	Name   *IdentExpr
	Type   *IdentExpr
	Value  Expr // initializer, nil if none
	Getter *Block
	Setter *Block // setter body; implicit parameter name is "value"
}

// MethodDecl is a class method, possibly abstract (Body nil).
type MethodDecl struct {
	Mods Modifiers
	Name *IdentExpr
	Fn   *FuncExpr // Fn.Body is nil for abstract methods

	// Resolved metadata filled in by the resolver: *resolver.Method.
	Resolved any
}

// ClassBody holds the member declarations of a class, in source order.
type ClassBody struct {
	Lbrace  token.Pos
	Fields  []*FieldDecl
	Methods []*MethodDecl
	Rbrace  token.Pos
}

// ClassStmt is a class declaration: class Name [< Super] { members }.
type ClassStmt struct {
	Kw    token.Pos
	Mods  Modifiers
	Name  *IdentExpr
	Super *IdentExpr // nil if no "< Super" clause
	Body  *ClassBody

	// Resolved is filled by the resolver: *resolver.Class.
	Resolved any
}

func (s *ClassStmt) Span() (token.Pos, token.Pos) { return s.Kw, s.Body.Rbrace }
func (s *ClassStmt) Walk(v Visitor) {
	v(s.Name)
	if s.Super != nil {
		v(s.Super)
	}
	for _, f := range s.Body.Fields {
		v(f.Name)
		if f.Type != nil {
			v(f.Type)
		}
		if f.Value != nil {
			v(f.Value)
		}
	}
	for _, m := range s.Body.Methods {
		v(m.Name)
		v(m.Fn)
	}
}
