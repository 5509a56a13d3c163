package parser

import (
	"text/scanner"

	"github.com/magoolation/intmud/ast"
)

// parseStmt parses one statement. Unrecognized input advances by one token
// and produces an ExpressionStmt wrapping a null literal, so one bad
// statement doesn't desync the whole block (mirrors asm.parser's
// error-then-continue recovery).
func parseStmt(st *parseState) ast.Stmt {
	pos := st.pos()
	switch {
	case st.is("se"):
		return parseIf(st)
	case st.is("enquanto"):
		return parseWhile(st)
	case st.is("para"):
		return parseFor(st)
	case st.is("paracada"):
		return parseForEach(st)
	case st.is("escolha"):
		return parseSwitch(st)
	case st.is("retorna"):
		st.next()
		r := &ast.Return{}
		r.Pos = pos
		if !st.is("fim") && !blockEnder(st) {
			r.Expr = parseExpr(st)
		}
		return r
	case st.is("quebra"):
		st.next()
		n := &ast.Break{}
		n.Pos = pos
		return n
	case st.is("continua"):
		st.next()
		n := &ast.Continue{}
		n.Pos = pos
		return n
	case st.is("termina"):
		st.next()
		n := &ast.Terminate{}
		n.Pos = pos
		return n
	case st.is("var"):
		return parseVarDecl(st)
	default:
		e := parseExpr(st)
		n := &ast.ExpressionStmt{Expr: e}
		n.Pos = pos
		return n
	}
}

func blockEnder(st *parseState) bool {
	return st.is("fim") || st.is("senao") || st.is("senaose") || st.is("caso") || st.tok == scanner.EOF
}

func parseBlock(st *parseState, enders ...string) []ast.Stmt {
	var body []ast.Stmt
	for !st.abort() && st.tok != scanner.EOF {
		stop := false
		for _, e := range enders {
			if st.is(e) {
				stop = true
				break
			}
		}
		if stop {
			break
		}
		body = append(body, parseStmt(st))
	}
	return body
}

func parseIf(st *parseState) ast.Stmt {
	pos := st.pos()
	st.next() // se
	cond := parseExpr(st)
	then := parseBlock(st, "senaose", "senao", "fim")
	n := &ast.If{Cond: cond, Then: then}
	n.Pos = pos
	for st.is("senaose") {
		st.next()
		c := parseExpr(st)
		body := parseBlock(st, "senaose", "senao", "fim")
		n.ElseIfs = append(n.ElseIfs, ast.ElseIf{Cond: c, Body: body})
	}
	if st.is("senao") {
		st.next()
		n.Else = parseBlock(st, "fim")
	}
	st.expect("fim")
	return n
}

func parseWhile(st *parseState) ast.Stmt {
	pos := st.pos()
	st.next() // enquanto
	cond := parseExpr(st)
	body := parseBlock(st, "fim")
	st.expect("fim")
	n := &ast.While{Cond: cond, Body: body}
	n.Pos = pos
	return n
}

func parseFor(st *parseState) ast.Stmt {
	pos := st.pos()
	st.next() // para
	n := &ast.For{}
	n.Pos = pos
	if !st.isOp(";") {
		n.Init = parseStmt(st)
	}
	st.expectOp(";")
	if !st.isOp(";") {
		n.Cond = parseExpr(st)
	}
	st.expectOp(";")
	if !blockEnder(st) {
		n.Step = parseStmt(st)
	}
	n.Body = parseBlock(st, "fim")
	st.expect("fim")
	return n
}

func parseForEach(st *parseState) ast.Stmt {
	pos := st.pos()
	st.next() // paracada
	n := &ast.ForEach{}
	n.Pos = pos
	if st.tok != scanner.Ident {
		st.error("expected loop variable name, got " + st.text)
	} else {
		n.Var = st.text
		st.next()
	}
	st.expect("em")
	n.Iter = parseExpr(st)
	n.Body = parseBlock(st, "fim")
	st.expect("fim")
	return n
}

func parseSwitch(st *parseState) ast.Stmt {
	pos := st.pos()
	st.next() // escolha
	n := &ast.Switch{Expr: parseExpr(st)}
	n.Pos = pos
	for st.is("caso") {
		st.next()
		var c ast.SwitchCase
		c.Values = append(c.Values, parseExpr(st))
		for st.isOp(",") {
			st.next()
			c.Values = append(c.Values, parseExpr(st))
		}
		st.expectOp(":")
		c.Body = parseBlock(st, "caso", "senao", "fim")
		n.Cases = append(n.Cases, c)
	}
	if st.is("senao") {
		st.next()
		st.expectOp(":")
		n.Default = parseBlock(st, "fim")
	}
	st.expect("fim")
	return n
}

func parseVarDecl(st *parseState) ast.Stmt {
	pos := st.pos()
	st.next() // var
	n := &ast.VarDecl{}
	n.Pos = pos
	if st.tok != scanner.Ident {
		st.error("expected local name, got " + st.text)
		return n
	}
	n.Name = st.text
	st.next()
	if st.isOp(":") {
		st.next()
		n.Type = st.text
		st.next()
	}
	if st.isOp("=") {
		st.next()
		n.Init = parseExpr(st)
	}
	return n
}
