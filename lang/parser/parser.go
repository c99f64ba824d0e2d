// Package parser implements the recursive-descent, Pratt-style parser that
// turns a token stream into an *ast.Chunk. Error recovery uses panic-mode
// synchronization: a bad token is reported, a scanner.Error is appended to
// the error list, and the parser skips tokens until a statement-starter is
// found before resuming.
package parser

import (
	"fmt"
	"strconv"

	"github.com/mna/lit/lang/ast"
	"github.com/mna/lit/lang/lexer"
	"github.com/mna/lit/lang/token"
)

// Parse scans and parses src, returning the resulting chunk, the token.File
// that resolves its positions back to line/column, and any diagnostics
// collected. If any error occurred, the returned chunk may be partial;
// errs.Err() reports the failure.
func Parse(filename string, src []byte) (*ast.Chunk, *token.File, token.ErrorList) {
	file := token.NewFile(filename, len(src))
	p := &parser{file: file, lex: lexer.New(file, src), src: src}
	p.advance()
	chunk := &ast.Chunk{Name: filename}
	chunk.Block = &ast.Block{}
	for !p.check(token.EOF) {
		if s := p.declaration(); s != nil {
			chunk.Block.Stmts = append(chunk.Block.Stmts, s)
		}
	}
	chunk.EOF = p.cur.Pos
	p.errs.Sort()
	return chunk, file, p.errs
}

type parser struct {
	file *token.File
	lex  *lexer.Lexer
	src  []byte

	prev, cur lexer.Token
	panicMode bool
	errs      token.ErrorList
}

func (p *parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.lex.NextToken()
		if p.cur.Kind != token.ERROR {
			break
		}
		p.errorAt(p.cur, p.cur.Message)
	}
}

func (p *parser) check(k token.Token) bool { return p.cur.Kind == k }

func (p *parser) match(k token.Token) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Token, msg string) lexer.Token {
	if p.check(k) {
		t := p.cur
		p.advance()
		return t
	}
	p.errorAt(p.cur, msg)
	return p.cur
}

func (p *parser) errorAt(t lexer.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	where := fmt.Sprintf("'%s'", t.Lit(p.src))
	if t.Kind == token.EOF {
		where = "end"
	}
	p.errs.Add(token.GoPosition(p.file.Position(t.Pos)), fmt.Sprintf("Error at %s: %s", where, msg))
}

// synchronize skips tokens until a likely statement boundary.
func (p *parser) synchronize() {
	p.panicMode = false
	for !p.check(token.EOF) {
		if p.prev.Kind == token.SEMICOLON {
			return
		}
		switch p.cur.Kind {
		case token.CLASS, token.VAR, token.VAL, token.FOR, token.IF, token.WHILE, token.SWITCH, token.RETURN, token.FUN:
			return
		}
		p.advance()
	}
}

func (p *parser) declaration() ast.Stmt {
	var s ast.Stmt
	switch {
	case p.check(token.CLASS), p.isClassModifierStart():
		s = p.classDecl()
	case p.match(token.FUN):
		s = p.funcDecl()
	case p.check(token.VAR), p.check(token.VAL):
		s = p.varDecl()
		p.match(token.SEMICOLON)
	default:
		s = p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
	return s
}

func (p *parser) isClassModifierStart() bool {
	switch p.cur.Kind {
	case token.ABSTRACT, token.FINAL, token.STATIC:
		return true
	}
	return false
}

// --- statements ---

func (p *parser) statement() ast.Stmt {
	switch {
	case p.match(token.IF):
		return p.ifStmt()
	case p.match(token.WHILE):
		return p.whileStmt()
	case p.match(token.FOR):
		return p.forStmt()
	case p.match(token.RETURN):
		return p.returnStmt()
	case p.match(token.BREAK):
		kw := p.prev.Pos
		p.match(token.SEMICOLON)
		return &ast.BreakStmt{Kw: kw}
	case p.match(token.CONTINUE):
		kw := p.prev.Pos
		p.match(token.SEMICOLON)
		return &ast.ContinueStmt{Kw: kw}
	case p.check(token.LBRACE):
		return &ast.BlockStmt{Block: p.block()}
	default:
		x := p.expression()
		p.match(token.SEMICOLON)
		return &ast.ExprStmt{X: x}
	}
}

func (p *parser) block() *ast.Block {
	lb := p.consume(token.LBRACE, "Expected '{'").Pos
	b := &ast.Block{Lbrace: lb}
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if s := p.declaration(); s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	b.Rbrace = p.consume(token.RBRACE, "Expected '}' after block").Pos
	return b
}

func (p *parser) ifStmt() ast.Stmt {
	ifPos := p.prev.Pos
	st := &ast.IfStmt{If: ifPos}
	cond := p.expression()
	then := p.block()
	st.Conds = append(st.Conds, cond)
	st.Thens = append(st.Thens, then)
	for p.match(token.ELSE) {
		if p.match(token.IF) {
			c := p.expression()
			t := p.block()
			st.Conds = append(st.Conds, c)
			st.Thens = append(st.Thens, t)
			continue
		}
		st.Else = p.block()
		break
	}
	return st
}

func (p *parser) whileStmt() ast.Stmt {
	wp := p.prev.Pos
	cond := p.expression()
	body := p.block()
	return &ast.WhileStmt{While: wp, Cond: cond, Body: body}
}

// forStmt desugars for(init; cond; inc) body into
// { init; while(cond) { body; inc; } }. A missing cond becomes "true".
func (p *parser) forStmt() ast.Stmt {
	forPos := p.prev.Pos
	p.consume(token.LPAREN, "Expected '(' after 'for'")

	var init ast.Stmt
	switch {
	case p.match(token.SEMICOLON):
		// no init
	case p.check(token.VAR), p.check(token.VAL):
		init = p.varDecl()
		p.consume(token.SEMICOLON, "Expected ';' after loop initializer")
	default:
		init = &ast.ExprStmt{X: p.expression()}
		p.consume(token.SEMICOLON, "Expected ';' after loop initializer")
	}

	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		cond = p.expression()
	} else {
		cond = &ast.LiteralExpr{TokPos: p.cur.Pos, Kind: token.TRUE, Lit: "true", Value: true}
	}
	p.consume(token.SEMICOLON, "Expected ';' after loop condition")

	var inc ast.Expr
	if !p.check(token.RPAREN) {
		inc = p.expression()
	}
	p.consume(token.RPAREN, "Expected ')' after for clauses")

	body := p.block()
	if inc != nil {
		body = &ast.Block{Lbrace: body.Lbrace, Rbrace: body.Rbrace,
			Stmts: append(append([]ast.Stmt{}, body.Stmts...), &ast.ExprStmt{X: inc})}
	}
	whileStmt := &ast.WhileStmt{While: forPos, Cond: cond, Body: body}

	outer := &ast.Block{Lbrace: forPos, Rbrace: body.Rbrace}
	if init != nil {
		outer.Stmts = append(outer.Stmts, init)
	}
	outer.Stmts = append(outer.Stmts, whileStmt)
	return &ast.BlockStmt{Block: outer}
}

func (p *parser) returnStmt() ast.Stmt {
	kw := p.prev.Pos
	var v ast.Expr
	if !p.check(token.SEMICOLON) && !p.check(token.RBRACE) {
		v = p.expression()
	}
	p.match(token.SEMICOLON)
	return &ast.ReturnStmt{Kw: kw, Value: v}
}

func (p *parser) varDecl() ast.Stmt {
	val := p.check(token.VAL)
	kw := p.cur.Pos
	p.advance() // VAR or VAL
	final := false
	if val {
		final = true
	}
	name := p.identExpr("Expected variable name")

	var typ *ast.IdentExpr
	if p.check(token.IDENT) {
		typ = p.identExpr("Expected type name")
	}
	var value ast.Expr
	if p.match(token.EQ) {
		value = p.expression()
	}
	return &ast.VarStmt{Kw: kw, Val: val, Final: final, Name: name, Type: typ, Value: value}
}

func (p *parser) identExpr(msg string) *ast.IdentExpr {
	t := p.consume(token.IDENT, msg)
	return &ast.IdentExpr{TokPos: t.Pos, Name: t.Lit(p.src)}
}

func (p *parser) funcDecl() ast.Stmt {
	funPos := p.prev.Pos
	name := p.identExpr("Expected function name")
	fn := p.funcBody(funPos)
	return &ast.FuncStmt{Fun: funPos, Name: name, Fn: fn}
}

func (p *parser) funcBody(funPos token.Pos) *ast.FuncExpr {
	p.consume(token.LPAREN, "Expected '(' after function name")
	fn := &ast.FuncExpr{Fun: funPos}
	for !p.check(token.RPAREN) {
		pname := p.identExpr("Expected parameter name")
		var ptype *ast.IdentExpr
		if p.check(token.IDENT) {
			ptype = p.identExpr("Expected parameter type")
		}
		fn.Params = append(fn.Params, &ast.Param{Name: pname, Type: ptype})
		if !p.match(token.COMMA) {
			break
		}
	}
	p.consume(token.RPAREN, "Expected ')' after parameters")

	// both "> Ret" and ": Ret" introduce the return type clause
	if p.match(token.GT) || p.match(token.COLON) {
		fn.RetType = p.identExpr("Expected return type")
	}
	switch {
	case p.match(token.ARROW):
		fn.Arrow = p.prev.Pos
		fn.ExprBody = p.expression()
		fn.EndPos = p.cur.Pos
		p.match(token.SEMICOLON)
	case p.check(token.LBRACE):
		fn.Body = p.block()
		fn.EndPos = fn.Body.Rbrace
	default:
		// abstract method: no body
		fn.EndPos = p.cur.Pos
		p.match(token.SEMICOLON)
	}
	return fn
}

func (p *parser) classDecl() ast.Stmt {
	var mods ast.Modifiers
	for {
		switch {
		case p.match(token.ABSTRACT):
			mods |= ast.ModAbstract
		case p.match(token.FINAL):
			mods |= ast.ModFinal
		case p.match(token.STATIC):
			mods |= ast.ModStatic
		default:
			goto modsDone
		}
	}
modsDone:
	kw := p.consume(token.CLASS, "Expected 'class'").Pos
	name := p.identExpr("Expected class name")
	var super *ast.IdentExpr
	if p.match(token.LT) {
		super = p.identExpr("Expected superclass name")
	}
	body := p.classBody()
	return &ast.ClassStmt{Kw: kw, Mods: mods, Name: name, Super: super, Body: body}
}

func (p *parser) classBody() *ast.ClassBody {
	lb := p.consume(token.LBRACE, "Expected '{' before class body").Pos
	body := &ast.ClassBody{Lbrace: lb}
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.classMember(body)
	}
	body.Rbrace = p.consume(token.RBRACE, "Expected '}' after class body").Pos
	return body
}

func (p *parser) classMember(body *ast.ClassBody) {
	var mods ast.Modifiers
	for {
		switch {
		case p.match(token.PUBLIC):
			mods |= ast.ModPublic
		case p.match(token.PROTECTED):
			mods |= ast.ModProtected
		case p.match(token.PRIVATE):
			mods |= ast.ModPrivate
		case p.match(token.STATIC):
			mods |= ast.ModStatic
		case p.match(token.FINAL):
			mods |= ast.ModFinal
		case p.match(token.OVERRIDE):
			mods |= ast.ModOverride
		case p.match(token.ABSTRACT):
			mods |= ast.ModAbstract
		default:
			goto modsDone
		}
	}
modsDone:

	if p.match(token.VAR) || p.match(token.VAL) {
		if p.prev.Kind == token.VAL {
			mods |= ast.ModFinal
		}
		p.fieldDecl(body, mods, nil)
		return
	}

	// disambiguate: IDENT IDENT( -> method, IDENT IDENT -> typed field
	first := p.identExpr("Expected member declaration")
	if p.check(token.LPAREN) {
		// typeless method name (e.g. constructor "init")
		fn := p.funcBody(first.TokPos)
		body.Methods = append(body.Methods, &ast.MethodDecl{Mods: mods, Name: first, Fn: fn})
		return
	}
	if p.check(token.IDENT) {
		name := p.identExpr("Expected member name")
		if p.check(token.LPAREN) {
			fn := p.funcBody(first.TokPos)
			fn.RetType = first
			body.Methods = append(body.Methods, &ast.MethodDecl{Mods: mods, Name: name, Fn: fn})
			return
		}
		p.finishFieldDecl(body, mods, first, name)
		return
	}
	p.errorAt(p.cur, "Expected member declaration")
}

func (p *parser) fieldDecl(body *ast.ClassBody, mods ast.Modifiers, typ *ast.IdentExpr) {
	name := p.identExpr("Expected field name")
	p.finishFieldDecl(body, mods, typ, name)
}

func (p *parser) finishFieldDecl(body *ast.ClassBody, mods ast.Modifiers, typ, name *ast.IdentExpr) {
	fd := &ast.FieldDecl{Mods: mods, Name: name, Type: typ}
	if p.match(token.EQ) {
		fd.Value = p.expression()
	}
	if p.match(token.LBRACE) {
		// getter/setter block: { getter { ... } setter { ... } }
		for !p.check(token.RBRACE) && !p.check(token.EOF) {
			switch {
			case p.match(token.GETTER):
				fd.Getter = p.block()
			case p.match(token.SETTER):
				fd.Setter = p.block()
			default:
				p.errorAt(p.cur, "Expected 'getter' or 'setter'")
				p.advance()
			}
		}
		p.consume(token.RBRACE, "Expected '}' after field accessors")
	}
	p.match(token.SEMICOLON)
	body.Fields = append(body.Fields, fd)
}

// --- expressions: precedence layers, low to high ---
// assignment -> ifExpr -> shortIfExpr -> or -> and -> equality ->
// comparison -> addition -> multiplication -> power -> unary -> is ->
// compound-addition -> compound-multiplication -> compound-power ->
// call/get/set -> primary

func (p *parser) expression() ast.Expr { return p.assignment() }

func (p *parser) assignment() ast.Expr {
	x := p.ifExpr()
	if p.match(token.EQ) {
		eq := p.prev.Pos
		v := p.assignment()
		if !ast.IsAssignable(x) {
			p.errorAt(p.prev, "Invalid assignment target")
			return x
		}
		return &ast.AssignExpr{Target: x, OpPos: eq, Value: v}
	}
	return x
}

func (p *parser) ifExpr() ast.Expr {
	if p.match(token.IF) {
		ifPos := p.prev.Pos
		cond := p.expression()
		then := p.expression()
		p.consume(token.ELSE, "Expected 'else' in if-expression")
		els := p.expression()
		return &ast.IfExpr{If: ifPos, Cond: cond, Then: then, Else: els}
	}
	return p.shortIfExpr()
}

func (p *parser) shortIfExpr() ast.Expr {
	x := p.or()
	if p.match(token.QUESTION) {
		q := p.prev.Pos
		then := p.expression()
		c := p.consume(token.COLON, "Expected ':' in conditional expression").Pos
		els := p.expression()
		return &ast.ShortIfExpr{Cond: x, Quest: q, Then: then, Colon: c, Else: els}
	}
	return x
}

func (p *parser) or() ast.Expr {
	x := p.and()
	for p.match(token.OR) {
		op := p.prev
		y := p.and()
		x = &ast.LogicalExpr{X: x, OpPos: op.Pos, Op: op.Kind, Y: y}
	}
	return x
}

func (p *parser) and() ast.Expr {
	x := p.equality()
	for p.match(token.AND) {
		op := p.prev
		y := p.equality()
		x = &ast.LogicalExpr{X: x, OpPos: op.Pos, Op: op.Kind, Y: y}
	}
	return x
}

func (p *parser) equality() ast.Expr {
	x := p.comparison()
	for p.check(token.EQ_EQ) || p.check(token.BANG_EQ) {
		op := p.cur
		p.advance()
		y := p.comparison()
		x = &ast.BinaryExpr{X: x, OpPos: op.Pos, Op: op.Kind, Y: y}
	}
	return x
}

func (p *parser) comparison() ast.Expr {
	x := p.addition()
	for p.check(token.GT) || p.check(token.GT_EQ) || p.check(token.LT) || p.check(token.LT_EQ) {
		op := p.cur
		p.advance()
		y := p.addition()
		x = &ast.BinaryExpr{X: x, OpPos: op.Pos, Op: op.Kind, Y: y}
	}
	return x
}

func (p *parser) addition() ast.Expr {
	x := p.multiplication()
	for p.check(token.PLUS) || p.check(token.MINUS) {
		op := p.cur
		p.advance()
		y := p.multiplication()
		x = &ast.BinaryExpr{X: x, OpPos: op.Pos, Op: op.Kind, Y: y}
	}
	return x
}

func (p *parser) multiplication() ast.Expr {
	x := p.power()
	for p.check(token.STAR) || p.check(token.SLASH) || p.check(token.PERCENT) {
		op := p.cur
		p.advance()
		y := p.power()
		x = &ast.BinaryExpr{X: x, OpPos: op.Pos, Op: op.Kind, Y: y}
	}
	return x
}

func (p *parser) power() ast.Expr {
	x := p.unary()
	for p.check(token.CARET) {
		op := p.cur
		p.advance()
		y := p.unary()
		lit := string(p.src[op.Start : op.Start+op.Length])
		x = &ast.BinaryExpr{X: x, OpPos: op.Pos, Op: op.Kind, OpLit: lit, Y: y}
	}
	return x
}

func (p *parser) unary() ast.Expr {
	if p.check(token.BANG) || p.check(token.MINUS) {
		op := p.cur
		p.advance()
		x := p.unary()
		return &ast.UnaryExpr{OpPos: op.Pos, Op: op.Kind, X: x}
	}
	return p.isExpr()
}

func (p *parser) isExpr() ast.Expr {
	x := p.compoundAddition()
	if p.match(token.IS) {
		isPos := p.prev.Pos
		typ := p.identExpr("Expected class name after 'is'")
		return &ast.IsExpr{X: x, IsPos: isPos, Type: typ}
	}
	return x
}

// compoundAddition handles +=, -=, ++, --, desugaring to a = a op rhs.
func (p *parser) compoundAddition() ast.Expr {
	x := p.compoundMultiplication()
	switch {
	case p.match(token.PLUS_EQ):
		return p.desugarCompound(x, token.PLUS, p.compoundMultiplication())
	case p.match(token.MINUS_EQ):
		return p.desugarCompound(x, token.MINUS, p.compoundMultiplication())
	case p.match(token.PLUS_PLUS):
		one := &ast.LiteralExpr{TokPos: p.prev.Pos, Kind: token.NUMBER, Lit: "1", Value: float64(1)}
		return p.desugarCompound(x, token.PLUS, one)
	case p.match(token.MINUS_MINUS):
		one := &ast.LiteralExpr{TokPos: p.prev.Pos, Kind: token.NUMBER, Lit: "1", Value: float64(1)}
		return p.desugarCompound(x, token.MINUS, one)
	}
	return x
}

func (p *parser) compoundMultiplication() ast.Expr {
	x := p.compoundPower()
	switch {
	case p.match(token.STAR_EQ):
		return p.desugarCompound(x, token.STAR, p.compoundPower())
	case p.match(token.SLASH_EQ):
		return p.desugarCompound(x, token.SLASH, p.compoundPower())
	case p.match(token.PERCENT_EQ):
		return p.desugarCompound(x, token.PERCENT, p.compoundPower())
	}
	return x
}

func (p *parser) compoundPower() ast.Expr {
	x := p.call()
	switch {
	case p.match(token.CARET_EQ):
		return p.desugarCompoundLit(x, token.CARET, "^", p.call())
	case p.match(token.ROOT_EQ):
		return p.desugarCompoundLit(x, token.CARET, "√", p.call())
	}
	return x
}

// desugarCompound builds a = a op rhs. The left operand is reused by
// reference in both positions; the garbage collector makes sharing the
// subtree safe.
func (p *parser) desugarCompound(target ast.Expr, op token.Token, rhs ast.Expr) ast.Expr {
	return p.desugarCompoundLit(target, op, "", rhs)
}

// desugarCompoundLit is desugarCompound for an operator whose token kind
// alone doesn't determine the opcode: CARET_EQ and ROOT_EQ both lex as
// token.CARET's compound-assign form, so opLit carries the raw operator
// text the emitter needs to tell "^=" from "√=".
func (p *parser) desugarCompoundLit(target ast.Expr, op token.Token, opLit string, rhs ast.Expr) ast.Expr {
	if !ast.IsAssignable(target) {
		p.errorAt(p.prev, "Invalid assignment target")
		return target
	}
	bin := &ast.BinaryExpr{X: target, Op: op, OpLit: opLit, Y: rhs}
	return &ast.AssignExpr{Target: target, Value: bin}
}

func (p *parser) call() ast.Expr {
	x := p.primary()
	for {
		switch {
		case p.match(token.LPAREN):
			x = p.finishCall(x)
		case p.match(token.DOT):
			dot := p.prev.Pos
			name := p.identExpr("Expected property name after '.'")
			if p.match(token.EQ) {
				v := p.assignment()
				x = &ast.SetExpr{X: x, Dot: dot, Name: name, Value: v}
			} else {
				x = &ast.GetExpr{X: x, Dot: dot, Name: name}
			}
		default:
			return x
		}
	}
}

func (p *parser) finishCall(callee ast.Expr) ast.Expr {
	lparen := p.prev.Pos
	var args []ast.Expr
	for !p.check(token.RPAREN) {
		args = append(args, p.expression())
		if !p.match(token.COMMA) {
			break
		}
	}
	rparen := p.consume(token.RPAREN, "Expected ')' after arguments").Pos
	return &ast.CallExpr{Callee: callee, Lparen: lparen, Args: args, Rparen: rparen}
}

func (p *parser) primary() ast.Expr {
	switch {
	case p.match(token.FALSE):
		return &ast.LiteralExpr{TokPos: p.prev.Pos, Kind: token.FALSE, Lit: "false", Value: false}
	case p.match(token.TRUE):
		return &ast.LiteralExpr{TokPos: p.prev.Pos, Kind: token.TRUE, Lit: "true", Value: true}
	case p.match(token.NIL):
		return &ast.LiteralExpr{TokPos: p.prev.Pos, Kind: token.NIL, Lit: "nil", Value: nil}
	case p.match(token.NUMBER):
		t := p.prev
		lit := t.Lit(p.src)
		f, _ := strconv.ParseFloat(lit, 64)
		return &ast.LiteralExpr{TokPos: t.Pos, Kind: token.NUMBER, Lit: lit, Value: f}
	case p.match(token.STRING):
		t := p.prev
		lit := t.Lit(p.src)
		s := lit
		if len(lit) >= 2 {
			s = lit[1 : len(lit)-1]
		}
		return &ast.LiteralExpr{TokPos: t.Pos, Kind: token.STRING, Lit: lit, Value: s}
	case p.match(token.CHAR):
		t := p.prev
		lit := t.Lit(p.src)
		var c byte
		if len(lit) >= 2 {
			c = lit[1]
		}
		return &ast.LiteralExpr{TokPos: t.Pos, Kind: token.CHAR, Lit: lit, Value: c}
	case p.match(token.THIS):
		return &ast.ThisExpr{TokPos: p.prev.Pos}
	case p.match(token.SUPER):
		sp := p.prev.Pos
		p.consume(token.DOT, "Expected '.' after 'super'")
		name := p.identExpr("Expected method name after 'super.'")
		return &ast.SuperExpr{TokPos: sp, Name: name}
	case p.match(token.FUN):
		return p.funcBody(p.prev.Pos)
	case p.match(token.IDENT):
		return &ast.IdentExpr{TokPos: p.prev.Pos, Name: p.prev.Lit(p.src)}
	case p.match(token.LPAREN):
		lp := p.prev.Pos
		x := p.expression()
		rp := p.consume(token.RPAREN, "Expected ')' after expression").Pos
		return &ast.GroupExpr{Lparen: lp, X: x, Rparen: rp}
	}
	p.errorAt(p.cur, "Expected expression")
	p.advance()
	return &ast.LiteralExpr{TokPos: p.prev.Pos, Kind: token.NIL, Lit: "nil", Value: nil}
}
