package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/lit/lang/lexer"
	"github.com/mna/lit/lang/token"
	"github.com/mna/mainer"
)

// Tokenize runs the lexer alone over each file and prints every token it
// produces, one per line, in a "pos: KIND literal" debug format.
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var failed bool
	for _, name := range args {
		if err := tokenizeFile(stdio, name); err != nil {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("tokenize: one or more files failed")
	}
	return nil
}

func tokenizeFile(stdio mainer.Stdio, name string) error {
	src, err := os.ReadFile(name)
	if err != nil {
		return printError(stdio, err)
	}

	file := token.NewFile(name, len(src))
	lx := lexer.New(file, src)
	for {
		tok := lx.NextToken()
		pos := file.Position(tok.Pos)
		fmt.Fprintf(stdio.Stdout, "%s: %s", pos, tok.Kind)
		if tok.Kind == token.ERROR {
			fmt.Fprintf(stdio.Stdout, " %s", tok.Message)
		} else if tok.Length > 0 {
			fmt.Fprintf(stdio.Stdout, " %s", tok.Lit(src))
		}
		fmt.Fprintln(stdio.Stdout)
		if tok.Kind == token.EOF || tok.Kind == token.ERROR {
			break
		}
	}
	return nil
}
