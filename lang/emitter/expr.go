package emitter

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/bytecode"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/token"
)

// exprLine is the source line to blame an instruction on when an
// expression, rather than a statement keyword, is the closest AST node at
// hand.
func (e *emitter) exprLine(x ast.Expr) int {
	start, _ := x.Span()
	return e.line(start)
}

// emitMove copies src into dst via GET_LOCAL, used as a generic
// register-to-register move whenever an operation's result lands somewhere
// other than the register its own callee/operand machinery already wrote
// to.
func (e *emitter) emitMove(dst, src int, line int) {
	if dst == src {
		return
	}
	e.emitOp(bytecode.OpGetLocal, line)
	e.emitReg(dst, line)
	e.emitReg(src, line)
}

func (e *emitter) loadBinding(b *resolver.Binding, dst int, line int) {
	if b == nil {
		e.emitOp(bytecode.OpNil, line)
		e.emitReg(dst, line)
		return
	}
	switch b.Scope {
	case resolver.Local:
		e.emitMove(dst, b.Slot, line)
	case resolver.Upvalue:
		e.emitOp(bytecode.OpGetUpvalue, line)
		e.emitReg(dst, line)
		e.emitByte(byte(b.Slot), line)
	default: // Global, Predeclared, Undefined
		idx := e.nameConstant(b.Name)
		e.emitOp(bytecode.OpGetGlobal, line)
		e.emitReg(dst, line)
		e.emitByte(byte(idx), line)
	}
}

func (e *emitter) storeBinding(b *resolver.Binding, src int, line int) {
	if b == nil {
		return
	}
	switch b.Scope {
	case resolver.Local:
		e.emitMove(b.Slot, src, line)
	case resolver.Upvalue:
		e.emitOp(bytecode.OpSetUpvalue, line)
		e.emitByte(byte(b.Slot), line)
		e.emitReg(src, line)
	default:
		idx := e.nameConstant(b.Name)
		e.emitOp(bytecode.OpSetGlobal, line)
		e.emitByte(byte(idx), line)
		e.emitReg(src, line)
	}
}

func (e *emitter) expr(x ast.Expr, dst int) {
	switch x := x.(type) {
	case *ast.LiteralExpr:
		e.literalExpr(x, dst)
	case *ast.IdentExpr:
		b, _ := x.Binding.(*resolver.Binding)
		e.loadBinding(b, dst, e.line(x.TokPos))
	case *ast.UnaryExpr:
		e.unaryExpr(x, dst)
	case *ast.BinaryExpr:
		e.binaryExpr(x, dst)
	case *ast.LogicalExpr:
		e.logicalExpr(x, dst)
	case *ast.AssignExpr:
		e.assignExpr(x, dst)
	case *ast.IfExpr:
		e.condExpr(x.Cond, x.Then, x.Else, dst, e.line(x.If))
	case *ast.ShortIfExpr:
		e.condExpr(x.Cond, x.Then, x.Else, dst, e.line(x.Quest))
	case *ast.IsExpr:
		e.isExpr(x, dst)
	case *ast.CallExpr:
		e.callExpr(x, dst)
	case *ast.GetExpr:
		e.getExpr(x, dst)
	case *ast.SetExpr:
		e.emitSetField(x.X, x.Name.Name, x.Value, dst, e.line(x.Dot))
	case *ast.ThisExpr:
		e.emitMove(dst, 0, e.line(x.TokPos))
	case *ast.SuperExpr:
		e.superExprNode(x, dst)
	case *ast.FuncExpr:
		e.funcExpr(x, dst, "")
	case *ast.GroupExpr:
		e.expr(x.X, dst)
	default:
		e.errorf(token.NoPos, "emitter: unsupported expression %T", x)
	}
}

func (e *emitter) literalExpr(x *ast.LiteralExpr, dst int) {
	line := e.line(x.TokPos)
	switch x.Kind {
	case token.NUMBER:
		e.emitConstant(bytecode.Number(x.Value.(float64)), dst, line)
	case token.STRING:
		e.emitConstant(bytecode.Object(e.mem.InternString(x.Value.(string))), dst, line)
	case token.CHAR:
		e.emitConstant(bytecode.Char(x.Value.(byte)), dst, line)
	case token.TRUE:
		e.emitOp(bytecode.OpTrue, line)
		e.emitReg(dst, line)
	case token.FALSE:
		e.emitOp(bytecode.OpFalse, line)
		e.emitReg(dst, line)
	default: // NIL
		e.emitOp(bytecode.OpNil, line)
		e.emitReg(dst, line)
	}
}

func (e *emitter) unaryExpr(x *ast.UnaryExpr, dst int) {
	line := e.line(x.OpPos)
	mark := e.f.nextReg
	r := e.f.alloc()
	e.expr(x.X, r)
	if x.Op == token.BANG {
		e.emitOp(bytecode.OpNot, line)
	} else {
		e.emitOp(bytecode.OpNegate, line)
	}
	e.emitReg(dst, line)
	e.emitReg(r, line)
	e.f.freeTo(mark)
}

func binaryOpcode(t token.Token, lit string) bytecode.Opcode {
	switch t {
	case token.EQ_EQ:
		return bytecode.OpEqual
	case token.BANG_EQ:
		return bytecode.OpNotEqual
	case token.LT:
		return bytecode.OpLess
	case token.LT_EQ:
		return bytecode.OpLessEqual
	case token.GT:
		return bytecode.OpGreater
	case token.GT_EQ:
		return bytecode.OpGreaterEqual
	case token.PLUS:
		return bytecode.OpAdd
	case token.MINUS:
		return bytecode.OpSubtract
	case token.STAR:
		return bytecode.OpMultiply
	case token.SLASH:
		return bytecode.OpDivide
	case token.PERCENT:
		return bytecode.OpModulo
	case token.CARET:
		// Both "^" and the bare root glyph "√" lex as CARET; OpLit (the raw
		// source text) is the only thing that tells them apart.
		if lit == "√" {
			return bytecode.OpRoot
		}
		return bytecode.OpPower
	default:
		return bytecode.OpNop
	}
}

func (e *emitter) binaryExpr(x *ast.BinaryExpr, dst int) {
	line := e.line(x.OpPos)
	mark := e.f.nextReg
	a := e.f.alloc()
	e.expr(x.X, a)
	b := e.f.alloc()
	e.expr(x.Y, b)
	e.emitOp(binaryOpcode(x.Op, x.OpLit), line)
	e.emitReg(dst, line)
	e.emitReg(a, line)
	e.emitReg(b, line)
	e.f.freeTo(mark)
}

// logicalExpr short-circuits and/or: for "and", Y only runs if X is
// truthy; for "or", Y only runs if X is falsey. Either way dst ends up
// holding whichever operand decided the result.
func (e *emitter) logicalExpr(x *ast.LogicalExpr, dst int) {
	line := e.line(x.OpPos)
	e.expr(x.X, dst)
	if x.Op == token.AND {
		skip := e.emitJump(bytecode.OpJumpIfFalse, dst, true, line)
		e.expr(x.Y, dst)
		e.patchJump(skip)
		return
	}
	toY := e.emitJump(bytecode.OpJumpIfFalse, dst, true, line)
	done := e.emitJump(bytecode.OpJump, 0, false, line)
	e.patchJump(toY)
	e.expr(x.Y, dst)
	e.patchJump(done)
}

// condExpr lowers both the if-expression and ternary forms: they share the
// same cond/then/else jump shape, only differing in which token anchors
// the line used for the jump instructions.
func (e *emitter) condExpr(cond, then, els ast.Expr, dst int, line int) {
	mark := e.f.nextReg
	r := e.f.alloc()
	e.expr(cond, r)
	toElse := e.emitJump(bytecode.OpJumpIfFalse, r, true, line)
	e.f.freeTo(mark)

	e.expr(then, dst)
	done := e.emitJump(bytecode.OpJump, 0, false, line)
	e.patchJump(toElse)
	e.expr(els, dst)
	e.patchJump(done)
}

func (e *emitter) isExpr(x *ast.IsExpr, dst int) {
	line := e.line(x.IsPos)
	mark := e.f.nextReg
	objReg := e.f.alloc()
	e.expr(x.X, objReg)
	clsReg := e.f.alloc()
	b, _ := x.Type.Binding.(*resolver.Binding)
	e.loadBinding(b, clsReg, line)
	e.emitOp(bytecode.OpIs, line)
	e.emitReg(dst, line)
	e.emitReg(objReg, line)
	e.emitReg(clsReg, line)
	e.f.freeTo(mark)
}

// emitSetField is shared by SetExpr (a.b = c, parsed directly) and the
// GetExpr-target branch of AssignExpr (a.b += c, desugared by the parser
// into Assign{GetExpr, Binary{GetExpr, op, rhs}} — the receiver expression
// is therefore evaluated twice, once for the read and once here for the
// write, same as the desugaring's naive substitution would do).
func (e *emitter) emitSetField(objExpr ast.Expr, name string, valueExpr ast.Expr, dst int, line int) {
	mark := e.f.nextReg
	objReg := e.f.alloc()
	e.expr(objExpr, objReg)
	e.expr(valueExpr, dst)
	nameIdx := e.nameConstant(name)
	e.emitOp(bytecode.OpSetField, line)
	e.emitReg(objReg, line)
	e.emitByte(byte(nameIdx), line)
	e.emitReg(dst, line)
	e.f.freeTo(mark)
}

func (e *emitter) assignExpr(x *ast.AssignExpr, dst int) {
	line := e.line(x.OpPos)
	switch t := ast.Unwrap(x.Target).(type) {
	case *ast.IdentExpr:
		b, _ := t.Binding.(*resolver.Binding)
		e.expr(x.Value, dst)
		e.storeBinding(b, dst, line)
	case *ast.GetExpr:
		e.emitSetField(t.X, t.Name.Name, x.Value, dst, line)
	}
}

func (e *emitter) getExpr(x *ast.GetExpr, dst int) {
	line := e.line(x.Dot)
	mark := e.f.nextReg
	objReg := e.f.alloc()
	e.expr(x.X, objReg)
	nameIdx := e.nameConstant(x.Name.Name)
	e.emitOp(bytecode.OpGetField, line)
	e.emitReg(dst, line)
	e.emitReg(objReg, line)
	e.emitByte(byte(nameIdx), line)
	e.f.freeTo(mark)
}

func (e *emitter) superExprNode(x *ast.SuperExpr, dst int) {
	line := e.line(x.TokPos)
	mark := e.f.nextReg
	thisReg := e.f.alloc()
	e.emitMove(thisReg, 0, line)
	nameIdx := e.nameConstant(x.Name.Name)
	e.emitOp(bytecode.OpSuper, line)
	e.emitReg(dst, line)
	e.emitReg(thisReg, line)
	e.emitByte(byte(nameIdx), line)
	e.f.freeTo(mark)
}

// callExpr lays out calleeReg followed by argc contiguous argument
// registers and emits CALL, INVOKE or SUPER+CALL depending on the callee
// shape: a.b(...) skips the bound-method allocation via INVOKE, and
// super.b(...) resolves the method with SUPER before calling it like any
// other value (the returned BoundMethod substitutes "this" automatically).
func (e *emitter) callExpr(x *ast.CallExpr, dst int) {
	line := e.line(x.Lparen)
	mark := e.f.nextReg
	callee := ast.Unwrap(x.Callee)

	if get, ok := callee.(*ast.GetExpr); ok {
		recvReg := e.f.alloc()
		e.expr(get.X, recvReg)
		e.emitArgs(x.Args)
		nameIdx := e.nameConstant(get.Name.Name)
		e.emitOp(bytecode.OpInvoke, line)
		e.emitReg(recvReg, line)
		e.emitByte(byte(nameIdx), line)
		e.emitByte(byte(len(x.Args)), line)
		e.emitMove(dst, recvReg, line)
		e.f.freeTo(mark)
		return
	}

	calleeReg := e.f.alloc()
	if sup, ok := callee.(*ast.SuperExpr); ok {
		thisReg := e.f.alloc()
		e.emitMove(thisReg, 0, line)
		nameIdx := e.nameConstant(sup.Name.Name)
		e.emitOp(bytecode.OpSuper, line)
		e.emitReg(calleeReg, line)
		e.emitReg(thisReg, line)
		e.emitByte(byte(nameIdx), line)
		e.f.free(thisReg)
	} else {
		e.expr(callee, calleeReg)
	}
	e.emitArgs(x.Args)
	e.emitOp(bytecode.OpCall, line)
	e.emitReg(calleeReg, line)
	e.emitByte(byte(len(x.Args)), line)
	e.emitMove(dst, calleeReg, line)
	e.f.freeTo(mark)
}

// emitArgs allocates one contiguous register per argument, immediately
// following whatever the caller has already allocated (the callee or
// receiver register), and evaluates each argument into its own register in
// order.
func (e *emitter) emitArgs(args []ast.Expr) {
	for _, a := range args {
		r := e.f.alloc()
		e.expr(a, r)
	}
}
