// Package emitter lowers a resolved AST into the bytecode function objects
// the runtime package executes: register allocation, constant pooling and
// jump patching, one per-function compiling record at a time over a flat
// tree-walk (no basic-block graph).
package emitter

import (
	"fmt"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/bytecode"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/runtime"
	"github.com/mna/lit/lang/token"
)

const maxRegisters = 256

// fcomp is the per-function compiling record: its own register counter and
// the loop context needed to patch break/continue jumps. Upvalue wiring
// needs no bookkeeping here: the resolver already computed each function's
// (isLocal, index) pairs (resolver.Function.Upvalues), and
// emitFunctionConstant copies them straight after the CLOSURE or
// DEFINE_FUNCTION(_LONG) operands; the static-init
// closures this package synthesizes itself hard-code their own single
// capture the same way.
type fcomp struct {
	parent *fcomp

	fn    *runtime.Function
	chunk *bytecode.Chunk

	nextReg int
	maxReg  int

	loopStarts []int
	breakJumps [][]int

	// nameIdx caches the constant-pool index per interned name so repeated
	// GET_GLOBAL/GET_FIELD references don't grow the pool.
	nameIdx map[string]int
}

func (f *fcomp) alloc() int {
	r := f.nextReg
	f.nextReg++
	if f.nextReg > f.maxReg {
		f.maxReg = f.nextReg
	}
	return r
}

func (f *fcomp) free(r int) {
	if r == f.nextReg-1 {
		f.nextReg--
	}
}

// freeTo releases every register allocated since mark, restoring the
// allocator to the depth it had before an expression was evaluated.
func (f *fcomp) freeTo(mark int) { f.nextReg = mark }

type emitter struct {
	mem     *runtime.Manager
	file    *token.File
	classes map[string]*resolver.Class
	errs    token.ErrorList

	f *fcomp
}

// Emit lowers a resolved chunk into a top-level ("$main", arity 0) function
// object, using mem (a compiler-phase Manager) to intern constant strings
// and allocate function/chunk objects. script is the resolver's top-level
// Function record returned by resolver.Resolve alongside classes.
func Emit(mem *runtime.Manager, file *token.File, chunk *ast.Chunk, script *resolver.Function, classes map[string]*resolver.Class) (*runtime.Function, token.ErrorList) {
	e := &emitter{mem: mem, file: file, classes: classes}

	fn := mem.NewFunction()
	fn.Arity = 0
	fn.Name = mem.InternString("$main")
	top := &fcomp{fn: fn, chunk: fn.Chunk, nextReg: 1, maxReg: 1}
	if script != nil && script.NextSlot > 1 {
		top.nextReg = script.NextSlot
		top.maxReg = script.NextSlot
	}
	e.f = top

	for _, s := range chunk.Block.Stmts {
		e.stmt(s)
	}
	e.emitOp(bytecode.OpExit, e.lastLine(chunk))

	if top.maxReg > maxRegisters {
		e.errorf(token.NoPos, "top level uses too many registers (max %d)", maxRegisters)
	}
	fn.NumRegisters = top.maxReg
	fn.UpvalueCount = 0

	e.errs.Sort()
	return fn, e.errs
}

func (e *emitter) lastLine(chunk *ast.Chunk) int {
	_, end := chunk.Span()
	return e.file.Line(end)
}

func (e *emitter) errorf(pos token.Pos, format string, args ...interface{}) {
	e.errs.Add(token.GoPosition(e.file.Position(pos)), fmt.Sprintf(format, args...))
}

func (e *emitter) line(pos token.Pos) int { return e.file.Line(pos) }

// --- low-level chunk writers ---

func (e *emitter) emitOp(op bytecode.Opcode, line int) int {
	return e.f.chunk.WriteOp(op, line)
}

func (e *emitter) emitByte(b byte, line int) {
	e.f.chunk.Write(b, line)
}

func (e *emitter) emitReg(r int, line int) {
	e.f.chunk.Write(byte(r), line)
}

func (e *emitter) emitUint16(v uint16, line int) {
	e.f.chunk.Write(byte(v>>8), line)
	e.f.chunk.Write(byte(v), line)
}

// emitConstant adds v to the current function's constant pool and emits the
// CONSTANT or CONSTANT_LONG load of it into dst, choosing the long form
// once the pool index no longer fits in one byte.
func (e *emitter) emitConstant(v bytecode.Value, dst int, line int) {
	idx := e.f.chunk.AddConstant(v)
	if idx > 0xffff {
		e.errorf(token.NoPos, "too many constants in one chunk (max 65535)")
		return
	}
	if idx <= 0xff {
		e.emitOp(bytecode.OpConstant, line)
		e.emitReg(dst, line)
		e.emitByte(byte(idx), line)
	} else {
		e.emitOp(bytecode.OpConstantLong, line)
		e.emitReg(dst, line)
		e.emitUint16(uint16(idx), line)
	}
}

// nameConstant interns name and adds it to the constant pool, returning its
// index (used for GET_GLOBAL/GET_FIELD/DEFINE_METHOD's name operands).
// Name operands are a single byte, so the index is cached per name and the
// pool position is shared by every instruction referencing it.
func (e *emitter) nameConstant(name string) int {
	if idx, ok := e.f.nameIdx[name]; ok {
		return idx
	}
	str := e.mem.InternString(name)
	idx := e.f.chunk.AddConstant(bytecode.Object(str))
	if idx > 0xff {
		e.errorf(token.NoPos, "too many named constants in one chunk (max 255)")
		return 0
	}
	if e.f.nameIdx == nil {
		e.f.nameIdx = make(map[string]int)
	}
	e.f.nameIdx[name] = idx
	return idx
}

// emitJump writes a jump opcode with a 16-bit placeholder offset, returning
// the offset of the first placeholder byte to patch later.
func (e *emitter) emitJump(op bytecode.Opcode, reg int, hasReg bool, line int) int {
	e.emitOp(op, line)
	if hasReg {
		e.emitReg(reg, line)
	}
	at := len(e.f.chunk.Code)
	e.emitByte(0xff, line)
	e.emitByte(0xff, line)
	return at
}

// patchJump backfills the 16-bit offset at `at` so the jump lands at the
// chunk's current end.
func (e *emitter) patchJump(at int) {
	offset := len(e.f.chunk.Code) - at - 2
	if offset < 0 || offset > 0xffff {
		e.errorf(token.NoPos, "jump offset too large (max 65535)")
		return
	}
	e.f.chunk.Code[at] = byte(offset >> 8)
	e.f.chunk.Code[at+1] = byte(offset)
}

// emitLoop writes a backward LOOP jump to start.
func (e *emitter) emitLoop(start int, line int) {
	e.emitOp(bytecode.OpLoop, line)
	offset := len(e.f.chunk.Code) - start + 2
	if offset > 0xffff {
		e.errorf(token.NoPos, "loop body too large (max 65535)")
		offset = 0
	}
	e.emitUint16(uint16(offset), line)
}
