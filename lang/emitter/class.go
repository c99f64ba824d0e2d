package emitter

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/bytecode"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/runtime"
	"github.com/mna/lit/lang/token"
)

// funcExpr compiles one function body (a named declaration, a method, or a
// lambda value) into its own Function object and, through
// emitFunctionConstant, emits the CLOSURE or DEFINE_FUNCTION (or _LONG)
// instruction plus its trailing (isLocal, index) upvalue-pair bytes into
// the enclosing chunk, landing the resulting closure in dst.
// name is used for the function's Name (diagnostics/disassembly only);
// pass "" for an anonymous lambda.
func (e *emitter) funcExpr(fe *ast.FuncExpr, dst int, name string) {
	rfn, _ := fe.Resolved.(*resolver.Function)

	fn := e.mem.NewFunction()
	fn.Arity = len(fe.Params)
	if name != "" {
		fn.Name = e.mem.InternString(name)
	}
	var upvalues []resolver.UpvalueRef
	if rfn != nil {
		upvalues = rfn.Upvalues
		fn.UpvalueCount = len(upvalues)
	}

	child := &fcomp{parent: e.f, fn: fn, chunk: fn.Chunk, nextReg: 1, maxReg: 1}
	if rfn != nil && rfn.NextSlot > 1 {
		child.nextReg = rfn.NextSlot
		child.maxReg = rfn.NextSlot
	}

	outer := e.f
	e.f = child
	if fe.ExprBody != nil {
		bline := e.exprLine(fe.ExprBody)
		r := child.alloc()
		e.expr(fe.ExprBody, r)
		e.emitOp(bytecode.OpReturn, bline)
		e.emitReg(r, bline)
	} else {
		// a block body falls through to an implicit "return nil"; a missing
		// body (an abstract declaration that slipped past the resolver)
		// compiles to just that epilogue so calling it stays well-defined
		if fe.Body != nil {
			e.block(fe.Body)
		}
		bline := e.line(fe.EndPos)
		r := child.alloc()
		e.emitOp(bytecode.OpNil, bline)
		e.emitReg(r, bline)
		e.emitOp(bytecode.OpReturn, bline)
		e.emitReg(r, bline)
	}
	if child.maxReg > maxRegisters {
		e.errorf(fe.Fun, "function %s uses too many registers (max %d)", name, maxRegisters)
	}
	fn.NumRegisters = child.maxReg
	e.f = outer

	line := e.line(fe.Fun)
	e.emitFunctionConstant(fn, upvalues, dst, line, fe.Fun)
}

// emitFunctionConstant writes the instruction that turns a compiled
// function constant into a live closure in dst: CLOSURE when the function
// captures (followed by one (isLocal, index) pair per upvalue),
// DEFINE_FUNCTION or its _LONG form otherwise. A capturing function whose
// constant index overflows one byte falls back to DEFINE_FUNCTION_LONG,
// which the interpreter follows with the same trailing pairs.
func (e *emitter) emitFunctionConstant(fn *runtime.Function, upvalues []resolver.UpvalueRef, dst, line int, pos token.Pos) {
	idx := e.f.chunk.AddConstant(bytecode.Object(fn))
	if idx > 0xffff {
		e.errorf(pos, "too many constants in one chunk (max 65535)")
		return
	}
	switch {
	case len(upvalues) > 0 && idx <= 0xff:
		e.emitOp(bytecode.OpClosure, line)
		e.emitReg(dst, line)
		e.emitByte(byte(idx), line)
	case idx <= 0xff:
		e.emitOp(bytecode.OpDefineFunction, line)
		e.emitReg(dst, line)
		e.emitByte(byte(idx), line)
	default:
		e.emitOp(bytecode.OpDefineFunctionLong, line)
		e.emitReg(dst, line)
		e.emitUint16(uint16(idx), line)
	}
	for _, uv := range upvalues {
		if uv.IsLocal {
			e.emitByte(1, line)
		} else {
			e.emitByte(0, line)
		}
		e.emitByte(byte(uv.Index), line)
	}
}

// classStmt emits CLASS/SUBCLASS, the static-init closure (if any static
// field has an initializer), every field and method, and finally binds the
// class value to its global name: classes are always top-level globals,
// never locals (ast.ClassStmt carries no Binding of its own, only
// Resolved).
func (e *emitter) classStmt(s *ast.ClassStmt) {
	c, _ := s.Resolved.(*resolver.Class)
	line := e.line(s.Kw)
	nameIdx := e.nameConstant(s.Name.Name)
	dst := e.f.alloc()

	if s.Super != nil {
		mark := e.f.nextReg
		superReg := e.f.alloc()
		b, _ := s.Super.Binding.(*resolver.Binding)
		e.loadBinding(b, superReg, line)
		e.emitOp(bytecode.OpSubclass, line)
		e.emitReg(dst, line)
		e.emitByte(byte(nameIdx), line)
		e.emitReg(superReg, line)
		e.f.freeTo(mark)
	} else {
		e.emitOp(bytecode.OpClass, line)
		e.emitReg(dst, line)
		e.emitByte(byte(nameIdx), line)
	}

	if c != nil && c.NeedsStaticInit {
		e.emitStaticInit(s, dst, line)
	}

	// members of a static class are implicitly static
	classStatic := s.Mods.Has(ast.ModStatic)
	for _, f := range s.Body.Fields {
		e.classField(f, dst, classStatic)
	}
	for _, m := range s.Body.Methods {
		e.classMethod(m, dst, classStatic)
	}

	finalIdx := e.nameConstant(s.Name.Name)
	e.emitOp(bytecode.OpDefineGlobal, line)
	e.emitByte(byte(finalIdx), line)
	e.emitReg(dst, line)
	e.f.free(dst)
}

func (e *emitter) classField(f *ast.FieldDecl, classReg int, classStatic bool) {
	isStatic := f.Mods.Has(ast.ModStatic) || classStatic
	if isStatic && f.Value != nil {
		// Static fields with an initializer are set by the lazily-run
		// static-init closure instead (see emitStaticInit), not here.
		return
	}
	line := e.line(f.Name.TokPos)
	mark := e.f.nextReg
	valReg := e.f.alloc()
	if f.Value != nil {
		e.expr(f.Value, valReg)
	} else {
		e.emitOp(bytecode.OpNil, line)
		e.emitReg(valReg, line)
	}
	nameIdx := e.nameConstant(f.Name.Name)
	if isStatic {
		e.emitOp(bytecode.OpDefineStaticField, line)
	} else {
		e.emitOp(bytecode.OpDefineField, line)
	}
	e.emitReg(classReg, line)
	e.emitByte(byte(nameIdx), line)
	e.emitReg(valReg, line)
	e.f.freeTo(mark)
}

func (e *emitter) classMethod(m *ast.MethodDecl, classReg int, classStatic bool) {
	meth, _ := m.Resolved.(*resolver.Method)
	if meth != nil && meth.Abstract {
		return
	}
	mark := e.f.nextReg
	methodReg := e.f.alloc()
	e.funcExpr(m.Fn, methodReg, m.Name.Name)

	line := e.line(m.Fn.Fun)
	nameIdx := e.nameConstant(m.Name.Name)
	if m.Mods.Has(ast.ModStatic) || classStatic {
		e.emitOp(bytecode.OpDefineStaticMethod, line)
		e.emitReg(classReg, line)
		e.emitByte(byte(nameIdx), line)
		e.emitReg(methodReg, line)
	} else {
		var flags byte
		if meth != nil && meth.Overridden {
			flags |= bytecode.MethodFlagOverridden
		}
		e.emitOp(bytecode.OpDefineMethod, line)
		e.emitReg(classReg, line)
		e.emitByte(byte(nameIdx), line)
		e.emitReg(methodReg, line)
		e.emitByte(flags, line)
	}
	e.f.freeTo(mark)
}

// emitStaticInit synthesizes a zero-arity closure running every static
// field's initializer once. It is not resolver-tracked: it manually
// captures classReg (the class value currently held live in the enclosing
// function) as its sole upvalue, then immediately closes that upvalue so
// later reuse of classReg by sibling statements can't corrupt the closure
// once it eventually runs (lazily, on first static access).
func (e *emitter) emitStaticInit(s *ast.ClassStmt, classReg int, line int) {
	fn := e.mem.NewFunction()
	fn.Arity = 0
	fn.UpvalueCount = 1

	child := &fcomp{parent: e.f, fn: fn, chunk: fn.Chunk, nextReg: 1, maxReg: 1}
	outer := e.f
	e.f = child

	clsReg := child.alloc()
	e.emitOp(bytecode.OpGetUpvalue, line)
	e.emitReg(clsReg, line)
	e.emitByte(0, line)

	classStatic := s.Mods.Has(ast.ModStatic)
	for _, f := range s.Body.Fields {
		if (!f.Mods.Has(ast.ModStatic) && !classStatic) || f.Value == nil {
			continue
		}
		mark := child.nextReg
		valReg := child.alloc()
		e.expr(f.Value, valReg)
		fline := e.line(f.Name.TokPos)
		nameIdx := e.nameConstant(f.Name.Name)
		e.emitOp(bytecode.OpDefineStaticField, fline)
		e.emitReg(clsReg, fline)
		e.emitByte(byte(nameIdx), fline)
		e.emitReg(valReg, fline)
		child.freeTo(mark)
	}
	e.emitOp(bytecode.OpExit, line)
	fn.NumRegisters = child.maxReg
	e.f = outer

	funcReg := e.f.alloc()
	// the closure's sole upvalue is classReg, captured straight from this
	// frame
	e.emitFunctionConstant(fn, []resolver.UpvalueRef{{IsLocal: true, Index: classReg}}, funcReg, line, s.Kw)

	e.emitOp(bytecode.OpStaticInit, line)
	e.emitReg(classReg, line)
	e.emitReg(funcReg, line)

	e.emitOp(bytecode.OpCloseUpvalue, line)
	e.emitReg(classReg, line)

	e.f.free(funcReg)
}
