package resolver

import (
	"strings"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/token"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// stmt resolves one statement, walking into its sub-expressions and child
// blocks and annotating every binding-carrying node along the way.
func (r *resolver) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.VarStmt:
		r.varStmt(s)

	case *ast.ExprStmt:
		r.expr(s.X)

	case *ast.IfStmt:
		for i, c := range s.Conds {
			r.expr(c)
			r.block(s.Thens[i])
		}
		if s.Else != nil {
			r.block(s.Else)
		}

	case *ast.WhileStmt:
		r.expr(s.Cond)
		r.loopDepth++
		r.block(s.Body)
		r.loopDepth--

	case *ast.ReturnStmt:
		r.returnStmt(s)

	case *ast.BreakStmt:
		if r.loopDepth == 0 {
			r.errorf(s.Kw, "break outside of a loop")
		}

	case *ast.ContinueStmt:
		if r.loopDepth == 0 {
			r.errorf(s.Kw, "continue outside of a loop")
		}

	case *ast.BlockStmt:
		r.block(s.Block)

	case *ast.FuncStmt:
		r.funcStmt(s)

	case *ast.ClassStmt:
		r.classDecl(s)
	}
}

func (r *resolver) block(b *ast.Block) {
	r.pushScope()
	for _, s := range b.Stmts {
		r.stmt(s)
	}
	r.popScope()
}

// returnStmt checks a return statement against the enclosing function's
// declared return type: a bare return is only legal in a
// void function, and a value-returning return must be assignable
// (compareArg) to the declared return type.
func (r *resolver) returnStmt(s *ast.ReturnStmt) {
	if s.Value == nil {
		if r.fn.ExplicitReturn && r.fn.ReturnType != TyVoid {
			r.errorf(s.Kw, "Return type mismatch: required %s, but got void", r.fn.ReturnType)
		}
		return
	}
	got := r.expr(s.Value)
	if !r.fn.ExplicitReturn {
		return
	}
	want := r.fn.ReturnType
	if want == TyVoid {
		r.errorf(s.Kw, "Cannot return a value from a void function")
		return
	}
	if !compareArg(want, got) {
		r.errorf(s.Kw, "Return type mismatch: required %s, but got %s", want, got)
	}
}

// compareArg is the assignability rule: identical
// types, "any" on the needed side, or both sides numeric (int/double
// widen symmetrically).
func compareArg(needed, given string) bool {
	if needed == given || needed == TyAny {
		return true
	}
	numeric := func(t string) bool { return t == TyInt || t == TyDouble }
	return numeric(needed) && numeric(given)
}

// blockAlwaysReturns reports whether every control-flow path through b
// ends in a return statement: the structural check behind "return is
// required when the return type is not void". A trailing if only
// counts when it has an else and every branch also always returns; a loop
// body is never enough since it may not execute.
func blockAlwaysReturns(b *ast.Block) bool {
	if b == nil || len(b.Stmts) == 0 {
		return false
	}
	return stmtAlwaysReturns(b.Stmts[len(b.Stmts)-1])
}

func stmtAlwaysReturns(s ast.Stmt) bool {
	switch s := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.BlockStmt:
		return blockAlwaysReturns(s.Block)
	case *ast.IfStmt:
		if s.Else == nil {
			return false
		}
		for _, t := range s.Thens {
			if !blockAlwaysReturns(t) {
				return false
			}
		}
		return blockAlwaysReturns(s.Else)
	default:
		return false
	}
}

// canonicalTypeName maps a written type name to its canonical form: the
// scalar wrapper classes Int/Double/Bool/Char lower-case to
// their primitive spelling; String/void/any and user class names are
// already in canonical form and pass through unchanged.
func canonicalTypeName(name string) string {
	switch name {
	case "Int":
		return TyInt
	case "Double":
		return TyDouble
	case "Bool":
		return TyBool
	case "Char":
		return TyChar
	default:
		return name
	}
}

func (r *resolver) varStmt(s *ast.VarStmt) {
	typ := TyAny
	if s.Type != nil {
		typ = canonicalTypeName(s.Type.Name)
	}
	if s.Value != nil {
		vt := r.expr(s.Value)
		if s.Type == nil {
			typ = vt
		}
	} else if s.Val || s.Final {
		r.errorf(s.Kw, "Final variable %s must be initialized", s.Name.Name)
	} else if s.Type == nil {
		r.errorf(s.Kw, "Variable %s needs either a type or an initializer", s.Name.Name)
	}
	s.ResolvedType = typ
	b := r.declareLocal(s.Name, s.Val || s.Final, typ)
	s.Binding = b
}

func (r *resolver) funcStmt(s *ast.FuncStmt) {
	b := r.declareLocal(s.Name, true, "Function")
	s.Binding = b
	r.resolveFuncExpr(s.Fn, nil, nil, false)
	// the binding's type is the full canonical signature, so calls through
	// the name infer their result type
	b.Type = s.Fn.Signature
	s.Name.ResolvedType = b.Type
}

// expr resolves e, returning its best-effort canonical type string. "any" is
// returned whenever the static type genuinely can't be narrowed (e.g. the
// result of a call whose return type wasn't declared).
func (r *resolver) expr(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.LiteralExpr:
		return r.literalExpr(e)

	case *ast.IdentExpr:
		r.use(e)
		return e.ResolvedType

	case *ast.UnaryExpr:
		return r.unaryExpr(e)

	case *ast.BinaryExpr:
		return r.binaryExpr(e)

	case *ast.LogicalExpr:
		r.expr(e.X)
		r.expr(e.Y)
		e.ResolvedType = TyBool
		return TyBool

	case *ast.AssignExpr:
		return r.assignExpr(e)

	case *ast.IfExpr:
		r.expr(e.Cond)
		t := r.expr(e.Then)
		r.expr(e.Else)
		e.ResolvedType = t
		return t

	case *ast.ShortIfExpr:
		r.expr(e.Cond)
		t := r.expr(e.Then)
		r.expr(e.Else)
		e.ResolvedType = t
		return t

	case *ast.IsExpr:
		r.expr(e.X)
		// the RHS is an ordinary global reference whose value must be a
		// metaclass; resolving it as a use gives the emitter a binding to
		// load the class object from
		r.use(e.Type)
		if _, ok := r.classes[e.Type.Name]; !ok {
			r.errorf(e.Type.TokPos, "Right side of 'is' must be a class, got %s", e.Type.Name)
		}
		return TyBool

	case *ast.CallExpr:
		return r.callExpr(e)

	case *ast.GetExpr:
		return r.getExpr(e)

	case *ast.SetExpr:
		return r.setExpr(e)

	case *ast.ThisExpr:
		return r.thisExpr(e)

	case *ast.SuperExpr:
		return r.superExpr(e)

	case *ast.FuncExpr:
		r.resolveFuncExpr(e, nil, nil, false)
		return "Function"

	case *ast.GroupExpr:
		return r.expr(e.X)
	}
	return TyAny
}

func (r *resolver) literalExpr(e *ast.LiteralExpr) string {
	var t string
	switch e.Kind {
	case token.NUMBER:
		if strings.ContainsAny(e.Lit, ".eE") {
			t = TyDouble
		} else {
			t = TyInt
		}
	case token.STRING:
		t = TyString
	case token.CHAR:
		t = TyChar
	case token.TRUE, token.FALSE:
		t = TyBool
	default: // token.NIL
		t = TyAny
	}
	e.ResolvedType = t
	return t
}

func (r *resolver) unaryExpr(e *ast.UnaryExpr) string {
	xt := r.expr(e.X)
	var t string
	switch e.Op {
	case token.BANG:
		t = TyBool
	case token.PLUS_PLUS, token.MINUS_MINUS:
		if !ast.IsAssignable(e.X) {
			r.errorf(e.OpPos, "Operand of %s must be assignable", e.Op)
		}
		t = xt
	default: // MINUS
		t = xt
	}
	e.ResolvedType = t
	return t
}

func (r *resolver) binaryExpr(e *ast.BinaryExpr) string {
	xt := r.expr(e.X)
	yt := r.expr(e.Y)
	var t string
	switch e.Op {
	case token.EQ_EQ, token.BANG_EQ, token.LT, token.LT_EQ, token.GT, token.GT_EQ:
		t = TyBool
	case token.PLUS:
		if xt == TyString || yt == TyString {
			t = TyString
		} else if xt == TyDouble || yt == TyDouble {
			t = TyDouble
		} else {
			t = TyInt
		}
	default: // arithmetic
		if xt == TyDouble || yt == TyDouble {
			t = TyDouble
		} else {
			t = TyInt
		}
	}
	e.ResolvedType = t
	return t
}

func (r *resolver) assignExpr(e *ast.AssignExpr) string {
	if !ast.IsAssignable(e.Target) {
		r.errorf(e.OpPos, "Invalid assignment target")
	}
	if id, ok := ast.Unwrap(e.Target).(*ast.IdentExpr); ok {
		r.use(id)
		if b, ok := id.Binding.(*Binding); ok && b.Final {
			r.errorf(e.OpPos, "Cannot assign to final variable %s", id.Name)
		}
	} else {
		r.expr(e.Target)
	}
	vt := r.expr(e.Value)
	e.ResolvedType = vt
	return vt
}

func (r *resolver) callExpr(e *ast.CallExpr) string {
	t := r.expr(e.Callee)
	for _, a := range e.Args {
		r.expr(a)
	}
	if ret, ok := funcReturnType(t); ok {
		e.ResolvedType = ret
		return ret
	}
	// calling a metaclass value constructs an instance of that class
	if mn, ok := metaclassName(t); ok {
		if c, ok := r.classes[mn]; ok {
			if c.Mods.Has(ast.ModStatic) || c.Mods.Has(ast.ModAbstract) {
				r.errorf(e.Lparen, "Cannot instantiate a static or abstract class %s", c.Name)
			}
			e.ResolvedType = c.Name
			return c.Name
		}
	}
	e.ResolvedType = TyAny
	return TyAny
}

// funcReturnType extracts RetT from a "Function<P0,...,RetT>" canonical type
// string, as produced by signatureString.
func funcReturnType(t string) (string, bool) {
	if !strings.HasPrefix(t, "Function<") || !strings.HasSuffix(t, ">") {
		return "", false
	}
	inner := t[len("Function<") : len(t)-1]
	i := strings.LastIndex(inner, ",")
	if i < 0 {
		return strings.TrimSpace(inner), true
	}
	return strings.TrimSpace(inner[i+1:]), true
}

func (r *resolver) getExpr(e *ast.GetExpr) string {
	xt := r.expr(e.X)
	if mn, ok := metaclassName(xt); ok {
		if c, ok := r.classes[mn]; ok {
			if e.Name.Name == "init" {
				r.errorf(e.Name.TokPos, "Cannot call init directly on class %s", c.Name)
			}
			if m := c.FindMethod(e.Name.Name); m != nil {
				r.checkMemberAccess(e.X, e.Name, m.Mods, m.DefinedIn)
				e.Name.ResolvedType = m.ReturnType
				e.ResolvedType = m.ReturnType
				return m.ReturnType
			}
			if f, ok := c.Fields[e.Name.Name]; ok {
				r.checkMemberAccess(e.X, e.Name, f.Mods, f.DefinedIn)
				e.Name.ResolvedType = f.Type
				e.ResolvedType = f.Type
				return f.Type
			}
		}
	} else if c, ok := r.classes[xt]; ok {
		if f, ok := c.Fields[e.Name.Name]; ok {
			r.checkMemberAccess(e.X, e.Name, f.Mods, f.DefinedIn)
			e.Name.ResolvedType = f.Type
			e.ResolvedType = f.Type
			return f.Type
		}
		if m := c.FindMethod(e.Name.Name); m != nil {
			r.checkMemberAccess(e.X, e.Name, m.Mods, m.DefinedIn)
			e.Name.ResolvedType = m.ReturnType
			e.ResolvedType = m.ReturnType
			return m.ReturnType
		}
	}
	e.Name.ResolvedType = TyAny
	e.ResolvedType = TyAny
	return TyAny
}

// checkMemberAccess enforces the access-modifier rules on a resolved member
// access: private members are reachable only through "this" (and only when
// the member belongs to the current class itself, not an ancestor);
// protected members only through "this" or "super". Members without an
// access modifier are treated as public.
func (r *resolver) checkMemberAccess(x ast.Expr, name *ast.IdentExpr, mods ast.Modifiers, definedIn string) {
	_, viaThis := ast.Unwrap(x).(*ast.ThisExpr)
	switch {
	case mods.Has(ast.ModPrivate):
		if !viaThis {
			r.errorf(name.TokPos, "Cannot access private member %s", name.Name)
		} else if r.curClass == nil || definedIn != r.curClass.Name {
			r.errorf(name.TokPos, "Cannot access private member %s of class %s", name.Name, definedIn)
		}
	case mods.Has(ast.ModProtected):
		if !viaThis {
			r.errorf(name.TokPos, "Cannot access protected member %s", name.Name)
		}
	}
}

func (r *resolver) setExpr(e *ast.SetExpr) string {
	xt := r.expr(e.X)
	if c, ok := r.classes[xt]; ok {
		if f, ok := c.Fields[e.Name.Name]; ok {
			r.checkMemberAccess(e.X, e.Name, f.Mods, f.DefinedIn)
			if f.Mods.Has(ast.ModFinal) {
				r.errorf(e.Name.TokPos, "Cannot assign to final field %s", e.Name.Name)
			}
		}
	}
	vt := r.expr(e.Value)
	e.Name.ResolvedType = vt
	e.ResolvedType = vt
	return vt
}

func (r *resolver) thisExpr(e *ast.ThisExpr) string {
	if r.curClass == nil {
		r.errorf(e.TokPos, "Cannot use 'this' outside of a method")
		e.ResolvedType = TyAny
		return TyAny
	}
	e.Binding = &Binding{Scope: Local, Slot: 0, Final: true, Type: r.curClass.Name, Name: "this"}
	e.ResolvedType = r.curClass.Name
	return r.curClass.Name
}

func (r *resolver) superExpr(e *ast.SuperExpr) string {
	if r.curClass == nil || r.curClass.Super == nil {
		r.errorf(e.TokPos, "Cannot use 'super' outside of a method with a base class")
		e.ResolvedType = TyAny
		return TyAny
	}
	m := r.curClass.Super.FindMethod(e.Name.Name)
	if m == nil {
		r.errorf(e.Name.TokPos, "Undefined method %s in superclass %s", e.Name.Name, r.curClass.Super.Name)
		e.ResolvedType = TyAny
		return TyAny
	}
	e.Name.ResolvedType = m.ReturnType
	e.ResolvedType = m.ReturnType
	return m.ReturnType
}

// resolveFuncExpr resolves one function body (a plain function, lambda or
// method), pushing a fresh Function scope and, for methods, reserving
// register slot 0 for the receiver the call protocol always places there.
func (r *resolver) resolveFuncExpr(fe *ast.FuncExpr, owner *Class, meth *Method, isMethod bool) {
	fn := newFunction(r.fn)
	fn.OwnerClass = owner
	fn.IsMethod = isMethod
	if fe.RetType != nil {
		fn.ReturnType = canonicalTypeName(fe.RetType.Name)
		fn.ExplicitReturn = true
	} else {
		fn.ReturnType = TyVoid
	}

	prevFn, prevAtFile, prevMethod := r.fn, r.atFileScope, r.curMethod
	r.fn, r.atFileScope, r.curMethod = fn, false, meth
	r.pushScope()

	// Slot 0 is never assigned to a named local: newFunction already starts
	// NextSlot at 1, matching the call protocol's reserved callee/receiver
	// register at the base of every frame.
	for _, p := range fe.Params {
		typ := TyAny
		if p.Type != nil {
			typ = canonicalTypeName(p.Type.Name)
		}
		r.declareLocal(p.Name, false, typ)
		fn.Params = append(fn.Params, p.Name.Name)
		fn.ParamTypes = append(fn.ParamTypes, typ)
	}

	if fe.ExprBody != nil {
		t := r.expr(fe.ExprBody)
		if fe.RetType == nil {
			fn.ReturnType = t
		}
	} else if fe.Body != nil {
		for _, s := range fe.Body.Stmts {
			r.stmt(s)
		}
		if fn.ExplicitReturn && fn.ReturnType != TyVoid && !blockAlwaysReturns(fe.Body) {
			r.errorf(fe.Fun, "Missing return statement in function with non-void return type %s", fn.ReturnType)
		}
	}

	r.popScope()
	r.fn, r.atFileScope, r.curMethod = prevFn, prevAtFile, prevMethod

	fe.Resolved = fn
	fe.Signature = signatureString(fn)
}

// signatureString canonicalizes fn's type as "Function<P0, P1, ..., Ret>":
// one entry per declared parameter's own resolved type, a space after
// every comma, and the return type last.
func signatureString(fn *Function) string {
	var b strings.Builder
	b.WriteString("Function<")
	for _, t := range fn.ParamTypes {
		b.WriteString(t)
		b.WriteString(", ")
	}
	if fn.ReturnType == "" {
		b.WriteString(TyVoid)
	} else {
		b.WriteString(fn.ReturnType)
	}
	b.WriteString(">")
	return b.String()
}

// classDecl resolves a class declaration: links it to its (already
// pre-registered) superclass, copies down inherited members the way the
// runtime's Class object does, then resolves every field initializer and
// method body with curClass set so "this"/"super" work.
func (r *resolver) classDecl(s *ast.ClassStmt) {
	c := r.classes[s.Name.Name]
	if c == nil {
		// declared somewhere other than the top level; register it late so
		// the body still resolves (forward references won't, but that is
		// inherent to a non-top-level declaration)
		c = &Class{Name: s.Name.Name, Mods: s.Mods, Node: s}
		r.classes[s.Name.Name] = c
		r.globals[s.Name.Name] = &Binding{Scope: Global, Name: s.Name.Name, Final: true, Type: "Class<" + s.Name.Name + ">"}
	}

	if c.Mods.Has(ast.ModAbstract) && (c.Mods.Has(ast.ModStatic) || c.Mods.Has(ast.ModFinal)) {
		r.errorf(s.Kw, "Abstract class %s cannot be static or final", c.Name)
	}
	if c.Mods.Has(ast.ModStatic) && s.Super != nil {
		r.errorf(s.Kw, "Static class %s cannot inherit", c.Name)
	}

	var super *Class
	if s.Super != nil {
		r.use(s.Super)
		super = r.classes[s.Super.Name]
		if super == nil {
			r.errorf(s.Super.TokPos, "Undefined superclass %s", s.Super.Name)
		} else {
			if super.Mods.Has(ast.ModFinal) {
				r.errorf(s.Super.TokPos, "Cannot inherit final class %s", super.Name)
			}
			if super.Mods.Has(ast.ModStatic) {
				r.errorf(s.Super.TokPos, "Cannot inherit static class %s", super.Name)
			}
		}
	}
	c.Super = super
	if super != nil {
		c.Methods = cloneMethods(super.Methods)
		c.Fields = maps.Clone(super.Fields)
	} else {
		c.Methods = make(map[string]*Method)
		c.Fields = make(map[string]*Field)
	}

	prevClass := r.curClass
	r.curClass = c
	defer func() { r.curClass = prevClass }()

	// Fields are registered before methods so a method referencing another
	// field declared later in the body still resolves.
	for _, f := range s.Body.Fields {
		r.resolveField(c, f)
	}
	for _, m := range s.Body.Methods {
		r.resolveMethodDecl(c, m)
	}

	if !c.Mods.Has(ast.ModAbstract) {
		names := maps.Keys(c.Methods)
		slices.Sort(names)
		for _, n := range names {
			if c.Methods[n].Abstract && c.Methods[n].DefinedIn != c.Name {
				r.errorf(s.Name.TokPos, "Abstract method %s must be implemented in child class %s", n, c.Name)
			}
		}
	}

	s.Resolved = c
}

func (r *resolver) resolveField(c *Class, f *ast.FieldDecl) {
	if c.Mods.Has(ast.ModStatic) && f.Mods.Has(ast.ModStatic) {
		r.errorf(f.Name.TokPos, "Redundant static modifier on member %s of static class %s", f.Name.Name, c.Name)
	}
	typ := TyAny
	if f.Type != nil {
		typ = canonicalTypeName(f.Type.Name)
	}
	if f.Value != nil {
		vt := r.expr(f.Value)
		if f.Type == nil {
			typ = vt
		}
		if f.Mods.Has(ast.ModStatic) || c.Mods.Has(ast.ModStatic) {
			c.NeedsStaticInit = true
		}
	} else if f.Mods.Has(ast.ModFinal) {
		r.errorf(f.Name.TokPos, "Final field %s must be initialized", f.Name.Name)
	}
	if existing, ok := c.Fields[f.Name.Name]; ok {
		switch {
		case existing.DefinedIn != c.Name:
			r.errorf(f.Name.TokPos, "Cannot override field %s of class %s", f.Name.Name, existing.DefinedIn)
		case existing.Mods.Has(ast.ModFinal):
			r.errorf(f.Name.TokPos, "Cannot redeclare final field %s", f.Name.Name)
		default:
			r.errorf(f.Name.TokPos, "Field %s is already defined in class %s", f.Name.Name, c.Name)
		}
	}
	if m, ok := c.Methods[f.Name.Name]; ok && m.DefinedIn != c.Name {
		r.errorf(f.Name.TokPos, "Cannot override method %s with a field", f.Name.Name)
	}
	c.Fields[f.Name.Name] = &Field{Name: f.Name.Name, Mods: f.Mods, Type: typ, DefinedIn: c.Name}
	f.Name.ResolvedType = typ

	if f.Getter != nil {
		r.resolveAccessor(c, f.Getter, nil)
	}
	if f.Setter != nil {
		r.resolveAccessor(c, f.Setter, &ast.Param{Name: &ast.IdentExpr{Name: "value"}, Type: f.Type})
	}
}

// resolveAccessor resolves a getter/setter block body as a one-off method
// scope. Getter/setter blocks aren't lowered by the emitter yet, but
// resolving them still catches undefined names early.
func (r *resolver) resolveAccessor(c *Class, body *ast.Block, implicitParam *ast.Param) {
	prevFn, prevAtFile := r.fn, r.atFileScope
	r.fn, r.atFileScope = newFunction(r.fn), false
	r.pushScope()
	if implicitParam != nil {
		typ := TyAny
		if implicitParam.Type != nil {
			typ = implicitParam.Type.Name
		}
		r.declareLocal(implicitParam.Name, false, typ)
	}
	for _, s := range body.Stmts {
		r.stmt(s)
	}
	r.popScope()
	r.fn, r.atFileScope = prevFn, prevAtFile
}

func (r *resolver) resolveMethodDecl(c *Class, m *ast.MethodDecl) {
	isStatic := m.Mods.Has(ast.ModStatic) || c.Mods.Has(ast.ModStatic)
	isAbstract := m.Mods.Has(ast.ModAbstract) || (m.Fn.Body == nil && m.Fn.ExprBody == nil)
	if isAbstract && !c.Mods.Has(ast.ModAbstract) {
		r.errorf(m.Name.TokPos, "Only an abstract class can declare abstract method %s", m.Name.Name)
	}
	if c.Mods.Has(ast.ModStatic) && m.Mods.Has(ast.ModStatic) {
		r.errorf(m.Name.TokPos, "Redundant static modifier on member %s of static class %s", m.Name.Name, c.Name)
	}

	paramTypes := make([]string, len(m.Fn.Params))
	for i, p := range m.Fn.Params {
		if p.Type != nil {
			paramTypes[i] = canonicalTypeName(p.Type.Name)
		} else {
			paramTypes[i] = TyAny
		}
	}
	retType := TyVoid
	if m.Fn.RetType != nil {
		retType = canonicalTypeName(m.Fn.RetType.Name)
	}

	if m.Name.Name == "init" {
		if retType != TyVoid {
			r.errorf(m.Name.TokPos, "Constructor init must return void, not %s", retType)
		}
		if isStatic && len(m.Fn.Params) > 0 {
			r.errorf(m.Name.TokPos, "Static init takes no parameters")
		}
	}

	prevMethod, hadOverride := c.Methods[m.Name.Name], m.Mods.Has(ast.ModOverride)
	overrides := false
	if hadOverride {
		if prevMethod == nil || prevMethod.DefinedIn == c.Name {
			r.errorf(m.Name.TokPos, "Method %s marked override but does not override a superclass method", m.Name.Name)
		} else {
			if prevMethod.Mods.Has(ast.ModFinal) {
				r.errorf(m.Name.TokPos, "Cannot override final method %s", m.Name.Name)
			}
			if prevMethod.Mods.Has(ast.ModStatic) || isStatic {
				r.errorf(m.Name.TokPos, "Cannot override static method %s", m.Name.Name)
			}
			if prevMethod.Mods.AccessOf() != m.Mods.AccessOf() {
				r.errorf(m.Name.TokPos, "Access modifier of %s must match the overridden method in %s", m.Name.Name, prevMethod.DefinedIn)
			}
			if !sameSignature(prevMethod, paramTypes, retType) {
				r.errorf(m.Name.TokPos, "Signature of %s must match the overridden method in %s", m.Name.Name, prevMethod.DefinedIn)
			}
			// the override bit belongs to the declaration that wrote
			// "override": the subclass's record, never the superclass's
			overrides = true
		}
	} else if prevMethod != nil && prevMethod.DefinedIn != c.Name && !isStatic {
		r.errorf(m.Name.TokPos, "Method %s overrides superclass method %s.%s without the override modifier", m.Name.Name, prevMethod.DefinedIn, m.Name.Name)
	} else if prevMethod != nil && prevMethod.DefinedIn == c.Name {
		r.errorf(m.Name.TokPos, "Method %s is already defined in class %s", m.Name.Name, c.Name)
	}
	if f, ok := c.Fields[m.Name.Name]; ok && f.DefinedIn != c.Name {
		r.errorf(m.Name.TokPos, "Cannot override field %s of class %s with a method", m.Name.Name, f.DefinedIn)
	}

	meth := &Method{
		Name:       m.Name.Name,
		Mods:       m.Mods,
		ReturnType: retType,
		ParamTypes: paramTypes,
		DefinedIn:  c.Name,
		Abstract:   isAbstract,
		Overridden: overrides,
	}
	c.Methods[m.Name.Name] = meth
	m.Resolved = meth

	if isAbstract {
		return
	}
	r.resolveFuncExpr(m.Fn, c, meth, !isStatic)
}

// sameSignature reports whether a subclass method's parameter and return
// types match the method it overrides, the canonical-signature-string
// equality the override rules require.
func sameSignature(super *Method, paramTypes []string, retType string) bool {
	if super.ReturnType != retType || len(super.ParamTypes) != len(paramTypes) {
		return false
	}
	for i, t := range super.ParamTypes {
		if t != paramTypes[i] {
			return false
		}
	}
	return true
}
