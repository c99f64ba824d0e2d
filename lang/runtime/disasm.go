package runtime

import (
	"fmt"
	"io"
	"os"

	"github.com/mna/lit/lang/bytecode"
)

// disassembleInstruction prints a one-line, human-readable form of the
// instruction at offset ip in chunk to stderr, for LIT_TRACE_EXEC.
func disassembleInstruction(c *bytecode.Chunk, ip int) {
	writeInstruction(os.Stderr, c, ip)
}

// writeInstruction formats the instruction at offset ip in c to w and
// returns the offset just past it, so callers can drive a disassembly
// loop without duplicating the fixed-vs-variable operand logic.
func writeInstruction(w io.Writer, c *bytecode.Chunk, ip int) int {
	op := bytecode.Opcode(c.Code[ip])
	line := c.GetLine(ip)
	fmt.Fprintf(w, "%04d %4d %s", ip, line, op)

	width := op.OperandWidth()
	if ip+1+width > len(c.Code) {
		width = len(c.Code) - ip - 1
	}
	for i := 0; i < width; i++ {
		fmt.Fprintf(w, " %d", c.Code[ip+1+i])
	}
	next := ip + 1 + width

	// the closure-building instructions carry one trailing (isLocal, index)
	// pair per upvalue of the function constant they load
	if n := closureUpvalueCount(c, op, ip); n > 0 {
		for i := 0; i < n && next+1 < len(c.Code); i++ {
			fmt.Fprintf(w, " (%d %d)", c.Code[next], c.Code[next+1])
			next += 2
		}
	}
	fmt.Fprintln(w)
	return next
}

func closureUpvalueCount(c *bytecode.Chunk, op bytecode.Opcode, ip int) int {
	var idx int
	switch op {
	case bytecode.OpDefineFunction, bytecode.OpClosure:
		if ip+2 >= len(c.Code) {
			return 0
		}
		idx = int(c.Code[ip+2])
	case bytecode.OpDefineFunctionLong:
		if ip+3 >= len(c.Code) {
			return 0
		}
		idx = int(c.Code[ip+2])<<8 | int(c.Code[ip+3])
	default:
		return 0
	}
	if idx >= len(c.Constants) {
		return 0
	}
	v := c.Constants[idx]
	if !v.IsObject() {
		return 0
	}
	fn, ok := v.AsObject().(*Function)
	if !ok {
		return 0
	}
	return fn.UpvalueCount
}

// DisassembleChunk writes a flat, one-instruction-per-line disassembly of
// c to w, then recurses into every function constant in the pool so nested
// bodies (methods, lambdas, static initializers) print too. Used by the
// CLI's "disasm" developer subcommand.
func DisassembleChunk(w io.Writer, name string, c *bytecode.Chunk) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for ip := 0; ip < len(c.Code); {
		ip = writeInstruction(w, c, ip)
	}
	for _, v := range c.Constants {
		if !v.IsObject() {
			continue
		}
		if fn, ok := v.AsObject().(*Function); ok {
			DisassembleChunk(w, fn.String(), fn.Chunk)
		}
	}
}
