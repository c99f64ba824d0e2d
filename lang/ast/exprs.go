package ast

import "github.com/mna/lit/lang/token"

func (*LiteralExpr) exprNode() {}
func (*IdentExpr) exprNode()   {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*LogicalExpr) exprNode() {}
func (*AssignExpr) exprNode()  {}
func (*IfExpr) exprNode()      {}
func (*ShortIfExpr) exprNode() {}
func (*IsExpr) exprNode()      {}
func (*CallExpr) exprNode()    {}
func (*GetExpr) exprNode()     {}
func (*SetExpr) exprNode()     {}
func (*ThisExpr) exprNode()    {}
func (*SuperExpr) exprNode()   {}
func (*FuncExpr) exprNode()    {}
func (*GroupExpr) exprNode()   {}

// LiteralExpr is a number, string, char, bool or nil literal.
type LiteralExpr struct {
	TokPos token.Pos
	Kind   token.Token // NUMBER, STRING, CHAR, TRUE, FALSE, NIL
	Lit    string      // raw source text
	Value  interface{} // float64, string, byte, bool, or nil

	// ResolvedType is set by the resolver to the canonical type string.
	ResolvedType string
}

func (e *LiteralExpr) Span() (token.Pos, token.Pos) {
	return e.TokPos, e.TokPos + token.Pos(len(e.Lit))
}
func (e *LiteralExpr) Walk(Visitor) {}

// IdentExpr is a bare identifier reference.
type IdentExpr struct {
	TokPos token.Pos
	Name   string

	ResolvedType string
	// Binding is filled by the resolver: *resolver.Binding, stored as any to
	// avoid an import cycle between ast and resolver.
	Binding any
}

func (e *IdentExpr) Span() (token.Pos, token.Pos) { return e.TokPos, e.TokPos + token.Pos(len(e.Name)) }
func (e *IdentExpr) Walk(Visitor)                 {}

// UnaryExpr is a prefix operator application: -x, !x. Postfix x++/x-- are
// desugared by the parser into an AssignExpr and never produce a UnaryExpr.
type UnaryExpr struct {
	OpPos token.Pos
	Op    token.Token
	X     Expr

	ResolvedType string
}

func (e *UnaryExpr) Span() (token.Pos, token.Pos) { _, end := e.X.Span(); return e.OpPos, end }
func (e *UnaryExpr) Walk(v Visitor)               { v(e.X) }

// BinaryExpr is an infix operator application, including the desugared form
// of compound assignments (a += b becomes Assign{a, Binary{a, PLUS, b}}).
type BinaryExpr struct {
	X     Expr
	OpPos token.Pos
	Op    token.Token
	// OpLit is the operator's raw source text, needed only to disambiguate
	// "^" from "√": both lex as token.CARET (the root glyph has no ASCII
	// spelling and reuses CARET's token kind), so the emitter checks this
	// instead of Op to choose POWER vs ROOT.
	OpLit string
	Y     Expr

	ResolvedType string
}

func (e *BinaryExpr) Span() (token.Pos, token.Pos) {
	start, _ := e.X.Span()
	_, end := e.Y.Span()
	return start, end
}
func (e *BinaryExpr) Walk(v Visitor) { v(e.X); v(e.Y) }

// LogicalExpr is "and"/"or" with short-circuit evaluation.
type LogicalExpr struct {
	X     Expr
	OpPos token.Pos
	Op    token.Token // AND or OR
	Y     Expr

	ResolvedType string
}

func (e *LogicalExpr) Span() (token.Pos, token.Pos) {
	start, _ := e.X.Span()
	_, end := e.Y.Span()
	return start, end
}
func (e *LogicalExpr) Walk(v Visitor) { v(e.X); v(e.Y) }

// AssignExpr assigns Value to Target. Target is an IdentExpr or GetExpr.
type AssignExpr struct {
	Target Expr
	OpPos  token.Pos
	Value  Expr

	ResolvedType string
}

func (e *AssignExpr) Span() (token.Pos, token.Pos) {
	start, _ := e.Target.Span()
	_, end := e.Value.Span()
	return start, end
}
func (e *AssignExpr) Walk(v Visitor) { v(e.Target); v(e.Value) }

// IfExpr is the full if-as-expression form: if cond expr else expr.
type IfExpr struct {
	If   token.Pos
	Cond Expr
	Then Expr
	Else Expr

	ResolvedType string
}

func (e *IfExpr) Span() (token.Pos, token.Pos) {
	_, end := e.Else.Span()
	return e.If, end
}
func (e *IfExpr) Walk(v Visitor) { v(e.Cond); v(e.Then); v(e.Else) }

// ShortIfExpr is the ternary form: cond ? then : els.
type ShortIfExpr struct {
	Cond  Expr
	Quest token.Pos
	Then  Expr
	Colon token.Pos
	Else  Expr

	ResolvedType string
}

func (e *ShortIfExpr) Span() (token.Pos, token.Pos) {
	start, _ := e.Cond.Span()
	_, end := e.Else.Span()
	return start, end
}
func (e *ShortIfExpr) Walk(v Visitor) { v(e.Cond); v(e.Then); v(e.Else) }

// IsExpr tests whether X is an instance of the class named by Type.
type IsExpr struct {
	X     Expr
	IsPos token.Pos
	Type  *IdentExpr
}

func (e *IsExpr) Span() (token.Pos, token.Pos) {
	start, _ := e.X.Span()
	_, end := e.Type.Span()
	return start, end
}
func (e *IsExpr) Walk(v Visitor) { v(e.X); v(e.Type) }

// CallExpr is a function or method call: Callee(Args...).
type CallExpr struct {
	Callee Expr
	Lparen token.Pos
	Args   []Expr
	Rparen token.Pos

	ResolvedType string
}

func (e *CallExpr) Span() (token.Pos, token.Pos) {
	start, _ := e.Callee.Span()
	return start, e.Rparen
}
func (e *CallExpr) Walk(v Visitor) {
	v(e.Callee)
	for _, a := range e.Args {
		v(a)
	}
}

// GetExpr is property access: X.Name.
type GetExpr struct {
	X    Expr
	Dot  token.Pos
	Name *IdentExpr

	ResolvedType string
}

func (e *GetExpr) Span() (token.Pos, token.Pos) {
	start, _ := e.X.Span()
	_, end := e.Name.Span()
	return start, end
}
func (e *GetExpr) Walk(v Visitor) { v(e.X); v(e.Name) }

// SetExpr is property assignment: X.Name = Value.
type SetExpr struct {
	X     Expr
	Dot   token.Pos
	Name  *IdentExpr
	Value Expr

	ResolvedType string
}

func (e *SetExpr) Span() (token.Pos, token.Pos) {
	start, _ := e.X.Span()
	_, end := e.Value.Span()
	return start, end
}
func (e *SetExpr) Walk(v Visitor) { v(e.X); v(e.Name); v(e.Value) }

// ThisExpr is the "this" keyword used inside a method body.
type ThisExpr struct {
	TokPos token.Pos

	ResolvedType string
	Binding      any
}

func (e *ThisExpr) Span() (token.Pos, token.Pos) { return e.TokPos, e.TokPos + 4 }
func (e *ThisExpr) Walk(Visitor)                 {}

// SuperExpr is "super.Name" used inside an overriding method body.
type SuperExpr struct {
	TokPos token.Pos
	Name   *IdentExpr

	ResolvedType string
}

func (e *SuperExpr) Span() (token.Pos, token.Pos) { _, end := e.Name.Span(); return e.TokPos, end }
func (e *SuperExpr) Walk(v Visitor)               { v(e.Name) }

// Param is a function parameter: a name and its declared type.
type Param struct {
	Name *IdentExpr
	Type *IdentExpr // may be nil when untyped (lambda params)
}

// FuncExpr is a function literal: fun(params) > RetType { body } or
// fun(params) => expr. Named function declarations wrap one of these in a
// FuncStmt.
type FuncExpr struct {
	Fun      token.Pos
	Params   []*Param
	RetType  *IdentExpr // nil when inferred (lambda arrow form)
	Arrow    token.Pos  // set when using => expr form
	ExprBody Expr       // set when using => expr form
	Body     *Block     // set when using { ... } form
	EndPos   token.Pos

	// Resolved is filled by the resolver: *resolver.Function.
	Resolved any

	Signature string
}

func (e *FuncExpr) Span() (token.Pos, token.Pos) { return e.Fun, e.EndPos }
func (e *FuncExpr) Walk(v Visitor) {
	if e.RetType != nil {
		v(e.RetType)
	}
	if e.ExprBody != nil {
		v(e.ExprBody)
	}
	if e.Body != nil {
		v(e.Body)
	}
}

// GroupExpr is a parenthesized expression, kept so error spans and
// precedence round-trip cleanly.
type GroupExpr struct {
	Lparen token.Pos
	X      Expr
	Rparen token.Pos
}

func (e *GroupExpr) Span() (token.Pos, token.Pos) { return e.Lparen, e.Rparen }
func (e *GroupExpr) Walk(v Visitor)               { v(e.X) }

// Unwrap strips GroupExpr wrappers to reach the underlying expression.
func Unwrap(e Expr) Expr {
	for {
		g, ok := e.(*GroupExpr)
		if !ok {
			return e
		}
		e = g.X
	}
}

// IsAssignable reports whether e can appear as the target of an assignment.
func IsAssignable(e Expr) bool {
	switch Unwrap(e).(type) {
	case *IdentExpr, *GetExpr:
		return true
	default:
		return false
	}
}
