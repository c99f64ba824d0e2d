// Package maincmd implements the lit command-line interface: running a
// source file or an inline snippet end to end (lex→parse→resolve→emit→
// run), plus the tokenize/parse/resolve/disasm introspection subcommands
// kept as developer tooling.
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
)

const binName = "lit"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <file>
       %[1]s -e <code>
       %[1]s <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <file>
       %[1]s -e <code>|--exec <code>
       %[1]s <command> [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and bytecode interpreter for the %[1]s programming language.

With a single <file> argument, %[1]s compiles and runs that program unit,
exiting 0 on success, 2 if compilation or execution failed, or -1 if the
command line itself was invalid.

The <command> can be one of the following developer-tooling subcommands,
each of which runs one prefix of the compilation pipeline and prints its
intermediate result instead of executing anything:
       tokenize                  Run the lexer and print the resulting
                                 token stream.
       parse                     Run the lexer and parser and print the
                                 resulting abstract syntax tree.
       resolve                   Run the resolver and print the AST
                                 annotated with scope/type information.
       disasm                    Compile (through the emitter) and print
                                 the resulting bytecode, unexecuted.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
       -e --exec <code>          Compile and execute <code> directly
                                 instead of reading a file.

Environment variables (runtime debug toggles):
       LIT_TRACE_EXEC            Print each instruction as it executes.
       LIT_DEBUG_GC               Log each garbage collection pass.
       LIT_GC_STRESS               Collect before every single allocation.
`, binName)
)

// EnvConfig holds the debug toggles, configured through the environment
// so one shipped binary can trace execution or GC activity without a
// rebuild.
type EnvConfig struct {
	TraceExec bool `env:"LIT_TRACE_EXEC"`
	DebugGC   bool `env:"LIT_DEBUG_GC"`
	GCStress  bool `env:"LIT_GC_STRESS"`
}

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	Exec string `flag:"e,exec"`

	WithComments bool `flag:"with-comments"`

	args    []string
	flags   map[string]bool
	cmdFn   func(context.Context, mainer.Stdio, []string) error
	cmdArgs []string

	envCfg EnvConfig
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

// devCommands lists the subcommand names kept as developer tooling; any
// other first positional argument is treated as a file to run.
var devCommands = map[string]bool{
	"tokenize": true,
	"parse":    true,
	"resolve":  true,
	"disasm":   true,
}

func (c *Cmd) Validate() error {
	_ = env.Parse(&c.envCfg) // best-effort; malformed env vars just leave zero values

	if c.Help || c.Version {
		return nil
	}

	if c.Exec != "" {
		c.cmdFn = c.Run
		c.cmdArgs = nil
		return nil
	}

	if len(c.args) == 0 {
		return errors.New("no file or command specified")
	}

	cmdName := c.args[0]
	if devCommands[cmdName] {
		commands := buildCmds(c)
		c.cmdFn = commands[cmdName]
		if c.cmdFn == nil {
			return fmt.Errorf("unknown command: %s", cmdName)
		}
		c.cmdArgs = c.args[1:]
		if len(c.cmdArgs) == 0 {
			return fmt.Errorf("%s: at least one file must be provided", cmdName)
		}
		if c.flags["with-comments"] && cmdName != "parse" && cmdName != "resolve" {
			return fmt.Errorf("%s: invalid flag 'with-comments'", cmdName)
		}
		return nil
	}

	if len(c.args) > 1 {
		return fmt.Errorf("lit: too many arguments, expected a single file")
	}
	c.cmdFn = c.Run
	c.cmdArgs = c.args
	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

// Main is the process entry point: parse flags, dispatch to the chosen
// command, and translate its result into an exit code (0
// success, 2 failure, -1 CLI misuse).
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: strings.ToUpper(binName) + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.ExitCode(-1)
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.ExitCode(0)

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.ExitCode(0)
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.cmdArgs); err != nil {
		return mainer.ExitCode(2)
	}
	return mainer.ExitCode(0)
}

// buildCmds reflects over v's methods to find the ones matching the
// (context.Context, mainer.Stdio, []string) error shape, keyed by their
// lowercased method name, so adding a new developer subcommand is just
// adding a method.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
