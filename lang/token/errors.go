package token

import (
	"go/scanner"
	gotoken "go/token"
)

// Error and ErrorList are aliases of the standard library's go/scanner
// types: they already provide
// sorted, deduplicated diagnostic accumulation and printing, so every phase
// (lexer, parser, resolver, emitter) collects into an ErrorList instead of
// rolling its own.
type (
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

// PrintError prints an error list (or any error) the same way the standard
// library's scanner.PrintError does.
var PrintError = scanner.PrintError

// GoPosition converts a Position into the go/token.Position shape that
// go/scanner.ErrorList expects.
func GoPosition(p Position) gotoken.Position {
	return gotoken.Position{Filename: p.Filename, Line: p.Line, Column: 1}
}
