package lexer_test

import (
	"testing"

	"github.com/mna/lit/lang/lexer"
	"github.com/mna/lit/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []lexer.Token {
	t.Helper()
	file := token.NewFile("test", len(src))
	l := lexer.New(file, []byte(src))
	var toks []lexer.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == token.EOF || tok.Kind == token.ERROR {
			break
		}
	}
	return toks
}

func kinds(toks []lexer.Token) []token.Token {
	out := make([]token.Token, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestLexerPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "+ - * / % ^ += -= *= /= %= ^= ++ -- => == != <= >= < > = .. . ? : ; , ( ) { } [ ]")
	want := []token.Token{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT, token.CARET,
		token.PLUS_EQ, token.MINUS_EQ, token.STAR_EQ, token.SLASH_EQ, token.PERCENT_EQ, token.CARET_EQ,
		token.PLUS_PLUS, token.MINUS_MINUS, token.ARROW,
		token.EQ_EQ, token.BANG_EQ, token.LT_EQ, token.GT_EQ, token.LT, token.GT, token.EQ,
		token.DOTDOT, token.DOT, token.QUESTION, token.COLON, token.SEMICOLON, token.COMMA,
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.LBRACK, token.RBRACK,
		token.EOF,
	}
	assert.Equal(t, want, kinds(toks))
}

func TestLexerKeywords(t *testing.T) {
	src := "and or class else false fun for if nil return super this true var val while break continue switch case default abstract override static private public protected final is getter setter"
	toks := scanAll(t, src)
	want := []token.Token{
		token.AND, token.OR, token.CLASS, token.ELSE, token.FALSE, token.FUN, token.FOR, token.IF,
		token.NIL, token.RETURN, token.SUPER, token.THIS, token.TRUE, token.VAR, token.VAL, token.WHILE,
		token.BREAK, token.CONTINUE, token.SWITCH, token.CASE, token.DEFAULT, token.ABSTRACT,
		token.OVERRIDE, token.STATIC, token.PRIVATE, token.PUBLIC, token.PROTECTED, token.FINAL,
		token.IS, token.GETTER, token.SETTER, token.EOF,
	}
	assert.Equal(t, want, kinds(toks))
}

func TestLexerIdentifierNotKeyword(t *testing.T) {
	toks := scanAll(t, "classic")
	require.Len(t, toks, 2)
	assert.Equal(t, token.IDENT, toks[0].Kind)
}

func TestLexerNumberLiterals(t *testing.T) {
	src := "42 3.14 0 100.001"
	toks := scanAll(t, src)
	require.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER, token.EOF}, kinds(toks))

	lits := []string{"42", "3.14", "0", "100.001"}
	for i, want := range lits {
		assert.Equal(t, want, toks[i].Lit([]byte(src)))
	}
}

func TestLexerStringLiteral(t *testing.T) {
	src := `"hello world"`
	toks := scanAll(t, src)
	require.Equal(t, []token.Token{token.STRING, token.EOF}, kinds(toks))
	assert.Equal(t, src, toks[0].Lit([]byte(src)))
}

func TestLexerUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"oops`)
	require.Len(t, toks, 1)
	assert.Equal(t, token.ERROR, toks[0].Kind)
	assert.Equal(t, "Unterminated string", toks[0].Message)
}

func TestLexerCharLiteral(t *testing.T) {
	toks := scanAll(t, `'a' 'Z'`)
	require.Equal(t, []token.Token{token.CHAR, token.CHAR, token.EOF}, kinds(toks))
}

func TestLexerEmptyCharLiteral(t *testing.T) {
	toks := scanAll(t, `''`)
	require.Len(t, toks, 1)
	assert.Equal(t, token.ERROR, toks[0].Kind)
	assert.Equal(t, "Empty char literal", toks[0].Message)
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	toks := scanAll(t, "@")
	require.Len(t, toks, 1)
	assert.Equal(t, token.ERROR, toks[0].Kind)
	assert.Equal(t, "Unexpected character", toks[0].Message)
}

func TestLexerLineComment(t *testing.T) {
	toks := scanAll(t, "1 // a comment\n2")
	require.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.EOF}, kinds(toks))
	assert.Equal(t, 2, toks[1].Line)
}

func TestLexerBlockComment(t *testing.T) {
	toks := scanAll(t, "1 /* block\nspanning lines */ 2")
	require.Equal(t, []token.Token{token.NUMBER, token.NUMBER, token.EOF}, kinds(toks))
	assert.Equal(t, 2, toks[1].Line)
}

// The "//*" quirk: a line comment immediately followed by a star stops
// the lexer dead (see skipWhitespace's doc comment).
func TestLexerLineCommentStarQuirk(t *testing.T) {
	toks := scanAll(t, "1 //* oops\n2")
	require.Len(t, toks, 2)
	assert.Equal(t, token.NUMBER, toks[0].Kind)
	assert.Equal(t, token.EOF, toks[1].Kind)
}

func TestLexerRootOperator(t *testing.T) {
	src := "\xe2\x88\x9a \xe2\x88\x9a="
	toks := scanAll(t, src)
	require.Equal(t, []token.Token{token.CARET, token.ROOT_EQ, token.EOF}, kinds(toks))
}
