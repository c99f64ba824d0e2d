package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/lit/lang/parser"
	"github.com/mna/mainer"
)

// Parse runs the lexer and parser over each file and prints the resulting
// AST.
func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, name := range args {
		if err := parseFile(stdio, name); err != nil {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("parse: one or more files failed")
	}
	return nil
}

func parseFile(stdio mainer.Stdio, name string) error {
	src, err := os.ReadFile(name)
	if err != nil {
		return printError(stdio, err)
	}

	chunk, file, errs := parser.Parse(name, src)
	printAST(stdio.Stdout, file, chunk)
	if err := errs.Err(); err != nil {
		return printError(stdio, err)
	}
	return nil
}
