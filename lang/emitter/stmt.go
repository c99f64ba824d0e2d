package emitter

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/bytecode"
	"github.com/mna/lit/lang/resolver"
)

// stmt lowers one statement into the current function's chunk.
func (e *emitter) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.VarStmt:
		e.varStmt(s)
	case *ast.ExprStmt:
		e.exprStmt(s)
	case *ast.IfStmt:
		e.ifStmt(s)
	case *ast.WhileStmt:
		e.whileStmt(s)
	case *ast.ReturnStmt:
		e.returnStmt(s)
	case *ast.BreakStmt:
		e.breakStmt(s)
	case *ast.ContinueStmt:
		e.continueStmt(s)
	case *ast.BlockStmt:
		e.block(s.Block)
	case *ast.FuncStmt:
		e.funcStmt(s)
	case *ast.ClassStmt:
		e.classStmt(s)
	}
}

func (e *emitter) block(b *ast.Block) {
	for _, s := range b.Stmts {
		e.stmt(s)
	}
}

// declDst returns the register a declaration's value should be computed
// into: a local's own reserved slot (already counted in the function's
// NextSlot high-water mark, see Emit/funcExpr), or a fresh temp for a
// global that DEFINE_GLOBAL will read out of.
func (e *emitter) declDst(b *resolver.Binding) int {
	if b != nil && b.Scope == resolver.Local {
		return b.Slot
	}
	return e.f.alloc()
}

// finishDecl emits the DEFINE_GLOBAL for a global binding (no-op for a
// local, whose slot already holds the value) and releases the temp
// declDst allocated for the global case.
func (e *emitter) finishDecl(b *resolver.Binding, reg int, line int) {
	if b != nil && b.Scope == resolver.Local {
		return
	}
	name := ""
	if b != nil {
		name = b.Name
	}
	idx := e.nameConstant(name)
	e.emitOp(bytecode.OpDefineGlobal, line)
	e.emitByte(byte(idx), line)
	e.emitReg(reg, line)
	e.f.free(reg)
}

func (e *emitter) varStmt(s *ast.VarStmt) {
	b, _ := s.Binding.(*resolver.Binding)
	line := e.line(s.Kw)
	dst := e.declDst(b)
	if s.Value != nil {
		e.expr(s.Value, dst)
	} else {
		e.emitOp(bytecode.OpNil, line)
		e.emitReg(dst, line)
	}
	e.finishDecl(b, dst, line)
}

func (e *emitter) funcStmt(s *ast.FuncStmt) {
	b, _ := s.Binding.(*resolver.Binding)
	line := e.line(s.Fun)
	dst := e.declDst(b)
	e.funcExpr(s.Fn, dst, s.Name.Name)
	e.finishDecl(b, dst, line)
}

// exprStmt evaluates X for its side effects and discards the result; the
// POP instruction carries the discarded register purely for symmetry with
// a stack-style trace.
func (e *emitter) exprStmt(s *ast.ExprStmt) {
	mark := e.f.nextReg
	r := e.f.alloc()
	e.expr(s.X, r)
	line := e.exprLine(s.X)
	e.emitOp(bytecode.OpPop, line)
	e.emitReg(r, line)
	e.f.freeTo(mark)
}

// ifStmt lowers the parser's parallel Conds/Thens arrays (if / else-if
// chain) plus a trailing Else block into a cascade of conditional jumps,
// each branch jumping to the statement's end once taken.
func (e *emitter) ifStmt(s *ast.IfStmt) {
	var endJumps []int
	for i, cond := range s.Conds {
		line := e.exprLine(cond)
		mark := e.f.nextReg
		r := e.f.alloc()
		e.expr(cond, r)
		skip := e.emitJump(bytecode.OpJumpIfFalse, r, true, line)
		e.f.freeTo(mark)

		e.block(s.Thens[i])
		endJumps = append(endJumps, e.emitJump(bytecode.OpJump, 0, false, line))
		e.patchJump(skip)
	}
	if s.Else != nil {
		e.block(s.Else)
	}
	for _, j := range endJumps {
		e.patchJump(j)
	}
}

// whileStmt emits the condition test, body and backward LOOP jump,
// patching any BREAK jumps collected from the body to land just past the
// loop and routing CONTINUE to the condition re-check (loopStart).
func (e *emitter) whileStmt(s *ast.WhileStmt) {
	f := e.f
	loopStart := len(f.chunk.Code)
	f.loopStarts = append(f.loopStarts, loopStart)
	f.breakJumps = append(f.breakJumps, nil)

	line := e.exprLine(s.Cond)
	mark := f.nextReg
	r := f.alloc()
	e.expr(s.Cond, r)
	exitJump := e.emitJump(bytecode.OpJumpIfFalse, r, true, line)
	f.freeTo(mark)

	e.block(s.Body)
	e.emitLoop(loopStart, line)
	e.patchJump(exitJump)

	breaks := f.breakJumps[len(f.breakJumps)-1]
	f.breakJumps = f.breakJumps[:len(f.breakJumps)-1]
	f.loopStarts = f.loopStarts[:len(f.loopStarts)-1]
	for _, j := range breaks {
		e.patchJump(j)
	}
}

func (e *emitter) returnStmt(s *ast.ReturnStmt) {
	line := e.line(s.Kw)
	mark := e.f.nextReg
	r := e.f.alloc()
	if s.Value != nil {
		e.expr(s.Value, r)
	} else {
		e.emitOp(bytecode.OpNil, line)
		e.emitReg(r, line)
	}
	e.emitOp(bytecode.OpReturn, line)
	e.emitReg(r, line)
	e.f.freeTo(mark)
}

func (e *emitter) breakStmt(s *ast.BreakStmt) {
	f := e.f
	line := e.line(s.Kw)
	if len(f.breakJumps) == 0 {
		e.errorf(s.Kw, "break outside of a loop")
		return
	}
	j := e.emitJump(bytecode.OpJump, 0, false, line)
	n := len(f.breakJumps)
	f.breakJumps[n-1] = append(f.breakJumps[n-1], j)
}

func (e *emitter) continueStmt(s *ast.ContinueStmt) {
	f := e.f
	line := e.line(s.Kw)
	if len(f.loopStarts) == 0 {
		e.errorf(s.Kw, "continue outside of a loop")
		return
	}
	e.emitLoop(f.loopStarts[len(f.loopStarts)-1], line)
}
