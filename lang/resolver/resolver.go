// Package resolver walks a parsed chunk, binding every identifier to a
// local slot, a captured upvalue or a global, building the class registry
// (inheritance, override/abstract/final/static checks) and computing a
// best-effort canonical type string for every expression so the emitter
// never has to re-derive scoping or class layout from the bare AST.
package resolver

import (
	"fmt"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/token"
)

// Builtin primitive and pseudo type names, in canonical spelling.
const (
	TyInt    = "int"
	TyDouble = "double"
	TyBool   = "bool"
	TyChar   = "char"
	TyString = "String"
	TyVoid   = "void"
	TyAny    = "any"
	TyError  = "error"
)

// scopeFrame is one lexical block's bindings, tagged with the Function it
// belongs to so a lookup that crosses a function boundary is recognized as
// a capture rather than a plain local reference.
type scopeFrame struct {
	fn   *Function
	vars map[string]*Binding
}

// Predeclared describes one standard-library global's resolve-time
// signature, seeded into the global scope before a chunk is walked: the
// "declare at the resolver" pass, run ahead of the VM's matching "define
// in the VM" pass that actually binds the callable/class value.
type Predeclared struct {
	Name string
	Type string // canonical type string, e.g. "Function<any, void>" or "Class<Int>"
}

// Resolve walks chunk, annotating its AST nodes in place, and returns the
// accumulated class registry alongside any diagnostics. The chunk should
// not have any parse errors; behavior on a chunk with parse errors is
// unspecified, same as the parser's own contract. predeclared lists the
// standard-library globals (native classes and functions) visible to every
// program, resolved as Predeclared-scope bindings that the emitter treats
// the same as an ordinary global (GET_GLOBAL by name).
func Resolve(file *token.File, chunk *ast.Chunk, predeclared ...Predeclared) (script *Function, classes map[string]*Class, errs token.ErrorList) {
	r := &resolver{file: file, classes: make(map[string]*Class), globals: make(map[string]*Binding)}
	r.script = newFunction(nil)
	r.fn = r.script
	for _, p := range predeclared {
		r.globals[p.Name] = &Binding{Scope: PredeclaredScope, Name: p.Name, Final: true, Type: p.Type}
		// a predeclared metaclass value ("Class<N>") also registers N as a
		// known class so "is N", "< N" and member access through N resolve;
		// the member tables stay empty since native members are only bound
		// at define time, after type-checking
		if n, ok := metaclassName(p.Type); ok {
			r.classes[n] = newClass(n, nil, 0)
		}
	}
	r.declareTopLevel(chunk.Block.Stmts)
	r.atFileScope = true
	r.pushScope()
	for _, s := range chunk.Block.Stmts {
		r.stmt(s)
	}
	r.popScope()
	r.errs.Sort()
	return r.script, r.classes, r.errs
}

// metaclassName extracts N from a canonical "Class<N>" type string.
func metaclassName(t string) (string, bool) {
	const prefix = "Class<"
	if len(t) > len(prefix)+1 && t[:len(prefix)] == prefix && t[len(t)-1] == '>' {
		return t[len(prefix) : len(t)-1], true
	}
	return "", false
}

type resolver struct {
	file *token.File
	errs token.ErrorList

	classes map[string]*Class
	globals map[string]*Binding

	script      *Function
	fn          *Function
	scopes      []scopeFrame
	atFileScope bool

	curClass  *Class
	curMethod *Method
	loopDepth int
}

func (r *resolver) errorf(p token.Pos, format string, args ...interface{}) {
	r.errs.Add(token.GoPosition(r.file.Position(p)), fmt.Sprintf(format, args...))
}

func (r *resolver) pushScope() {
	r.scopes = append(r.scopes, scopeFrame{fn: r.fn, vars: make(map[string]*Binding)})
}
func (r *resolver) popScope() { r.scopes = r.scopes[:len(r.scopes)-1] }

// declareTopLevel pre-registers every top-level class, function and var
// name as a global so forward references between top-level declarations
// (mutually referencing classes in particular) resolve correctly.
func (r *resolver) declareTopLevel(stmts []ast.Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.ClassStmt:
			if _, ok := r.classes[s.Name.Name]; ok {
				r.errorf(s.Kw, "Class %s is already defined", s.Name.Name)
				continue
			}
			c := &Class{Name: s.Name.Name, Mods: s.Mods, Node: s}
			r.classes[s.Name.Name] = c
			r.globals[s.Name.Name] = &Binding{Scope: Global, Name: s.Name.Name, Final: true, Type: "Class<" + s.Name.Name + ">"}
		case *ast.FuncStmt:
			r.globals[s.Name.Name] = &Binding{Scope: Global, Name: s.Name.Name, Final: true}
		case *ast.VarStmt:
			r.globals[s.Name.Name] = &Binding{Scope: Global, Name: s.Name.Name, Final: s.Val}
		}
	}
}

// ---- declaring and resolving names ----

func (r *resolver) declareLocal(name *ast.IdentExpr, final bool, typ string) *Binding {
	if r.atFileScope {
		b := r.globals[name.Name]
		if b == nil {
			b = &Binding{Scope: Global, Name: name.Name}
			r.globals[name.Name] = b
		}
		b.Final, b.Type = final, typ
		name.Binding = b
		name.ResolvedType = typ
		return b
	}
	top := &r.scopes[len(r.scopes)-1]
	if _, ok := top.vars[name.Name]; ok {
		r.errorf(name.TokPos, "Variable %s is already declared in this scope", name.Name)
	}
	slot := r.fn.addLocal(name.Name)
	b := &Binding{Scope: Local, Slot: slot, Final: final, Type: typ, Name: name.Name}
	top.vars[name.Name] = b
	name.Binding = b
	name.ResolvedType = typ
	return b
}

func (r *resolver) use(id *ast.IdentExpr) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		b, ok := r.scopes[i].vars[id.Name]
		if !ok {
			continue
		}
		if r.scopes[i].fn == r.fn {
			id.Binding, id.ResolvedType = b, b.Type
			return
		}
		cb := r.captureChain(r.fn, r.scopes[i].fn, b)
		id.Binding, id.ResolvedType = cb, cb.Type
		return
	}
	if b, ok := r.globals[id.Name]; ok {
		id.Binding, id.ResolvedType = b, b.Type
		return
	}
	r.errorf(id.TokPos, "Undefined variable %s", id.Name)
	id.Binding = &Binding{Scope: Undefined, Name: id.Name, Type: TyAny}
	id.ResolvedType = TyAny
}

// captureChain threads an (isLocal,index) upvalue pair through every
// function between fn and the function that owns b (defFn), which must be
// a lexical ancestor of fn.
func (r *resolver) captureChain(fn, defFn *Function, b *Binding) *Binding {
	if fn.Parent == defFn {
		idx := fn.addUpvalue(b.Name, true, b.Slot)
		return &Binding{Scope: Upvalue, Slot: idx, Final: b.Final, Type: b.Type, Name: b.Name}
	}
	outer := r.captureChain(fn.Parent, defFn, b)
	idx := fn.addUpvalue(outer.Name, false, outer.Slot)
	return &Binding{Scope: Upvalue, Slot: idx, Final: outer.Final, Type: outer.Type, Name: outer.Name}
}
