package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/lit/lang/parser"
	"github.com/mna/lit/lang/resolver"
	"github.com/mna/lit/lang/stdlib"
	"github.com/mna/mainer"
)

// Resolve runs the lexer, parser and resolver over each file and prints
// the AST annotated with each expression's resolved type (stdlib classes
// and functions are predeclared, same as the main run path).
func (c *Cmd) Resolve(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, name := range args {
		if err := resolveFile(stdio, name); err != nil {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("resolve: one or more files failed")
	}
	return nil
}

func resolveFile(stdio mainer.Stdio, name string) error {
	src, err := os.ReadFile(name)
	if err != nil {
		return printError(stdio, err)
	}

	chunk, file, perrs := parser.Parse(name, src)
	if err := perrs.Err(); err != nil {
		return printError(stdio, err)
	}

	_, _, rerrs := resolver.Resolve(file, chunk, stdlib.Predeclared()...)
	printAST(stdio.Stdout, file, chunk)
	if err := rerrs.Err(); err != nil {
		return printError(stdio, err)
	}
	return nil
}
