// Package compile wires the lexer-backed parser, resolver and emitter into
// a single "compile(source) → Function" entry point. It owns the
// compiler-phase memory manager — transient objects live there until
// emission finishes, when interned strings and the reachable object graph
// are handed to a VM memory manager — and leaves that transfer to the
// caller, since only the caller knows which VM manager is the destination.
package compile

import (
	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/emitter"
	"github.com/mna/lit/lang/parser"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/runtime"
	"github.com/mna/lit/lang/token"
)

// Result holds every artifact a caller might want from a compilation: the
// top-level function ready for runtime.VM.Execute, the parsed (and
// resolver-annotated) AST and class registry for the debug subcommands,
// and the compiler-phase memory manager that owns every object the
// function's chunk references until TransferTo moves it to a VM.
type Result struct {
	Chunk   *ast.Chunk
	File    *token.File
	Classes map[string]*resolver.Class
	Func    *runtime.Function
	Mem     *runtime.Manager
}

// Compile runs source through lex→parse→resolve→emit and returns the
// resulting "$main" function (arity 0, the top-level of the unit). predeclared seeds the resolver's global scope with the standard
// library's signatures (stdlib.Predeclared()) so references to builtin
// classes and functions type-check; pass nil to compile without any
// stdlib surface visible.
//
// Errors are reported as a single *token.ErrorList-backed error the
// caller should print with token.PrintError; a non-nil error means no
// function was produced. Each phase accumulates its diagnostics and fails
// at its end instead of panicking across the API boundary.
func Compile(filename string, src []byte, predeclared []resolver.Predeclared) (*Result, error) {
	chunk, file, perrs := parser.Parse(filename, src)
	if err := perrs.Err(); err != nil {
		return nil, err
	}

	script, classes, rerrs := resolver.Resolve(file, chunk, predeclared...)
	if err := rerrs.Err(); err != nil {
		return nil, err
	}

	mem := runtime.NewManager(runtime.ManagerCompiler)
	fn, eerrs := emitter.Emit(mem, file, chunk, script, classes)
	if err := eerrs.Err(); err != nil {
		return nil, err
	}

	return &Result{Chunk: chunk, File: file, Classes: classes, Func: fn, Mem: mem}, nil
}
