package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/lit/lang/compile"
	"github.com/mna/lit/lang/runtime"
	"github.com/mna/lit/lang/stdlib"
	"github.com/mna/mainer"
)

// Disasm compiles each file through the emitter (without running it) and
// prints the resulting top-level chunk's bytecode.
func (c *Cmd) Disasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, name := range args {
		if err := disasmFile(stdio, name); err != nil {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("disasm: one or more files failed")
	}
	return nil
}

func disasmFile(stdio mainer.Stdio, name string) error {
	src, err := os.ReadFile(name)
	if err != nil {
		return printError(stdio, err)
	}

	res, err := compile.Compile(name, src, stdlib.Predeclared())
	if err != nil {
		return printError(stdio, err)
	}
	runtime.DisassembleChunk(stdio.Stdout, name, res.Func.Chunk)
	return nil
}
