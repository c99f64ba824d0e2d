package parser_test

import (
	"testing"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/parser"
	"github.com/mna/lit/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	chunk, _, errs := parser.Parse("test", []byte(src))
	require.NoError(t, errs.Err(), "source:\n%s", src)
	return chunk
}

func TestParserVarDecl(t *testing.T) {
	chunk := mustParse(t, "var x = 1;")
	require.Len(t, chunk.Block.Stmts, 1)
	v, ok := chunk.Block.Stmts[0].(*ast.VarStmt)
	require.True(t, ok)
	assert.False(t, v.Val)
	assert.False(t, v.Final)
	assert.Equal(t, "x", v.Name.Name)
	assert.Nil(t, v.Type)
	lit, ok := v.Value.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, float64(1), lit.Value)
}

func TestParserValDeclIsFinal(t *testing.T) {
	chunk := mustParse(t, "val x = 1;")
	v := chunk.Block.Stmts[0].(*ast.VarStmt)
	assert.True(t, v.Val)
	assert.True(t, v.Final)
}

func TestParserTypedVarDecl(t *testing.T) {
	chunk := mustParse(t, "var x Int = 1;")
	v := chunk.Block.Stmts[0].(*ast.VarStmt)
	require.NotNil(t, v.Type)
	assert.Equal(t, "Int", v.Type.Name)
}

func TestParserCompoundAssignDesugars(t *testing.T) {
	chunk := mustParse(t, "x += 1;")
	es := chunk.Block.Stmts[0].(*ast.ExprStmt)
	assign, ok := es.X.(*ast.AssignExpr)
	require.True(t, ok)
	bin, ok := assign.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, bin.Op)
	ident, ok := bin.X.(*ast.IdentExpr)
	require.True(t, ok)
	assert.Equal(t, "x", ident.Name)
}

func TestParserIncrementDesugars(t *testing.T) {
	chunk := mustParse(t, "x++;")
	es := chunk.Block.Stmts[0].(*ast.ExprStmt)
	assign := es.X.(*ast.AssignExpr)
	bin := assign.Value.(*ast.BinaryExpr)
	assert.Equal(t, token.PLUS, bin.Op)
	lit := bin.Y.(*ast.LiteralExpr)
	assert.Equal(t, float64(1), lit.Value)
}

func TestParserRootCompoundAssignTracksOpLit(t *testing.T) {
	chunk := mustParse(t, "x \xe2\x88\x9a= 2;")
	es := chunk.Block.Stmts[0].(*ast.ExprStmt)
	assign := es.X.(*ast.AssignExpr)
	bin := assign.Value.(*ast.BinaryExpr)
	assert.Equal(t, token.CARET, bin.Op)
	assert.Equal(t, "\xe2\x88\x9a", bin.OpLit)
}

func TestParserForLoopDesugarsToBlockWhile(t *testing.T) {
	chunk := mustParse(t, "for (var i = 0; i < 3; i += 1) { print(i); }")
	require.Len(t, chunk.Block.Stmts, 1)
	outer, ok := chunk.Block.Stmts[0].(*ast.BlockStmt)
	require.True(t, ok)
	require.Len(t, outer.Block.Stmts, 2)

	_, ok = outer.Block.Stmts[0].(*ast.VarStmt)
	assert.True(t, ok, "first stmt should be the loop initializer")

	while, ok := outer.Block.Stmts[1].(*ast.WhileStmt)
	require.True(t, ok, "second stmt should be the desugared while")
	require.Len(t, while.Body.Stmts, 2, "body should carry the increment appended")
	_, ok = while.Body.Stmts[1].(*ast.ExprStmt)
	assert.True(t, ok, "increment should be appended as the last body statement")
}

func TestParserForLoopMissingCondDefaultsTrue(t *testing.T) {
	chunk := mustParse(t, "for (;;) { break; }")
	outer := chunk.Block.Stmts[0].(*ast.BlockStmt)
	while := outer.Block.Stmts[0].(*ast.WhileStmt)
	lit, ok := while.Cond.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, token.TRUE, lit.Kind)
}

func TestParserIfElseIfElse(t *testing.T) {
	chunk := mustParse(t, `
		if a { } else if b { } else { }
	`)
	st := chunk.Block.Stmts[0].(*ast.IfStmt)
	require.Len(t, st.Conds, 2)
	require.NotNil(t, st.Else)
}

func TestParserFuncDeclArrowBody(t *testing.T) {
	chunk := mustParse(t, "fun square(x Int) > Int => x * x")
	fs := chunk.Block.Stmts[0].(*ast.FuncStmt)
	assert.Equal(t, "square", fs.Name.Name)
	require.Len(t, fs.Fn.Params, 1)
	assert.Equal(t, "x", fs.Fn.Params[0].Name.Name)
	assert.Equal(t, "Int", fs.Fn.Params[0].Type.Name)
	require.NotNil(t, fs.Fn.RetType)
	assert.Equal(t, "Int", fs.Fn.RetType.Name)
	assert.NotNil(t, fs.Fn.ExprBody)
	assert.Nil(t, fs.Fn.Body)
}

func TestParserFuncDeclBlockBody(t *testing.T) {
	chunk := mustParse(t, "fun noop() { return; }")
	fs := chunk.Block.Stmts[0].(*ast.FuncStmt)
	require.NotNil(t, fs.Fn.Body)
	require.Len(t, fs.Fn.Body.Stmts, 1)
	_, ok := fs.Fn.Body.Stmts[0].(*ast.ReturnStmt)
	assert.True(t, ok)
}

func TestParserClassDeclWithSuperAndModifiers(t *testing.T) {
	chunk := mustParse(t, `
		abstract class Shape < Object {
			private Int sides = 0;
			area() > Double { return 0; }
		}
	`)
	cs := chunk.Block.Stmts[0].(*ast.ClassStmt)
	assert.True(t, cs.Mods.Has(ast.ModAbstract))
	assert.Equal(t, "Shape", cs.Name.Name)
	require.NotNil(t, cs.Super)
	assert.Equal(t, "Object", cs.Super.Name)
	require.Len(t, cs.Body.Fields, 1)
	assert.True(t, cs.Body.Fields[0].Mods.Has(ast.ModPrivate))
	assert.Equal(t, "Int", cs.Body.Fields[0].Type.Name)
	require.Len(t, cs.Body.Methods, 1)
	assert.Equal(t, "area", cs.Body.Methods[0].Name.Name)
}

func TestParserFieldGetterSetterBlock(t *testing.T) {
	chunk := mustParse(t, `
		class Box {
			Int size {
				getter { return size; }
				setter { size = value; }
			}
		}
	`)
	cs := chunk.Block.Stmts[0].(*ast.ClassStmt)
	f := cs.Body.Fields[0]
	require.NotNil(t, f.Getter)
	require.NotNil(t, f.Setter)
}

func TestParserIsExpr(t *testing.T) {
	chunk := mustParse(t, "var b = x is String;")
	v := chunk.Block.Stmts[0].(*ast.VarStmt)
	is, ok := v.Value.(*ast.IsExpr)
	require.True(t, ok)
	assert.Equal(t, "String", is.Type.Name)
}

func TestParserTernary(t *testing.T) {
	chunk := mustParse(t, "var x = a ? 1 : 2;")
	v := chunk.Block.Stmts[0].(*ast.VarStmt)
	_, ok := v.Value.(*ast.ShortIfExpr)
	assert.True(t, ok)
}

func TestParserGetSetChain(t *testing.T) {
	chunk := mustParse(t, "a.b.c = 1;")
	es := chunk.Block.Stmts[0].(*ast.ExprStmt)
	set, ok := es.X.(*ast.SetExpr)
	require.True(t, ok)
	assert.Equal(t, "c", set.Name.Name)
	get, ok := set.X.(*ast.GetExpr)
	require.True(t, ok)
	assert.Equal(t, "b", get.Name.Name)
}

func TestParserCallArgs(t *testing.T) {
	chunk := mustParse(t, "print(1, 2, 3);")
	es := chunk.Block.Stmts[0].(*ast.ExprStmt)
	call, ok := es.X.(*ast.CallExpr)
	require.True(t, ok)
	assert.Len(t, call.Args, 3)
}

func TestParserErrorRecoverySynchronizes(t *testing.T) {
	// The stray ')' is a parse error; the parser should recover at the next
	// statement-starting keyword ("var") and keep parsing instead of
	// aborting the whole chunk.
	chunk, _, errs := parser.Parse("test", []byte("var x = );\nvar y = 2;"))
	require.Error(t, errs.Err())
	require.Len(t, chunk.Block.Stmts, 2)
	y, ok := chunk.Block.Stmts[1].(*ast.VarStmt)
	require.True(t, ok)
	assert.Equal(t, "y", y.Name.Name)
}

func TestParserInvalidAssignmentTarget(t *testing.T) {
	_, _, errs := parser.Parse("test", []byte("1 = 2;"))
	assert.Error(t, errs.Err())
}
