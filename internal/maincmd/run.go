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

// Run is the main path: compile one source unit (a file, or the
// -e/--exec inline string) and execute it to completion. It owns the
// compiler→VM manager handoff: the compiler's
// manager's objects are transferred into the VM's manager only after
// stdlib.Define has installed the standard class hierarchy, so the
// transferred string-intern table merges into the one the VM's globals
// and native classes already reference.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	name, src, err := c.source(args)
	if err != nil {
		return printError(stdio, err)
	}

	res, err := compile.Compile(name, src, stdlib.Predeclared())
	if err != nil {
		return printError(stdio, err)
	}

	vm := runtime.New()
	vm.TraceExec = c.envCfg.TraceExec
	vm.DebugGC = c.envCfg.DebugGC
	vm.Mem.StressGC = c.envCfg.GCStress
	stdlib.Define(vm)
	res.Mem.TransferTo(vm.Mem)

	if _, err := vm.Execute(res.Func); err != nil {
		return printError(stdio, err)
	}
	return nil
}

// source returns the name and bytes to compile: the -e/--exec flag's
// inline string if set, otherwise the single file named in args.
func (c *Cmd) source(args []string) (string, []byte, error) {
	if c.Exec != "" {
		return "<exec>", []byte(c.Exec), nil
	}
	if len(args) != 1 {
		return "", nil, fmt.Errorf("lit: expected exactly one file")
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return "", nil, err
	}
	return args[0], src, nil
}
