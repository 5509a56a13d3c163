package parser

import (
	"strconv"
	"text/scanner"

	"github.com/magoolation/intmud/ast"
)

// parseExpr parses a full expression: assignment has the lowest precedence,
// then ternary/null-coalesce, then the binary precedence climb, then unary
// and postfix (call/member/index), bottoming out at primaries. A standard
// precedence climb, with assignment's compound forms folded in at the top.
func parseExpr(st *parseState) ast.Expr {
	return parseAssign(st)
}

func parseAssign(st *parseState) ast.Expr {
	pos := st.pos()
	lhs := parseTernary(st)
	op, ok := assignOp(st.text)
	if !ok || st.tok == scanner.Ident {
		return lhs
	}
	st.next()
	rhs := parseAssign(st)
	n := &ast.Assign{Op: op, Target: lhs, Value: rhs}
	n.Pos = pos
	return n
}

func assignOp(text string) (ast.AssignOp, bool) {
	switch text {
	case "=":
		return ast.AssignSet, true
	case "+=":
		return ast.AssignAdd, true
	case "-=":
		return ast.AssignSub, true
	case "*=":
		return ast.AssignMul, true
	case "/=":
		return ast.AssignDiv, true
	case "%=":
		return ast.AssignMod, true
	case "&=":
		return ast.AssignAnd, true
	case "|=":
		return ast.AssignOr, true
	case "^=":
		return ast.AssignXor, true
	case "<<=":
		return ast.AssignShl, true
	case ">>=":
		return ast.AssignShr, true
	}
	return 0, false
}

func parseTernary(st *parseState) ast.Expr {
	pos := st.pos()
	cond := parseNullCoalesce(st)
	if !st.isOp("?") {
		return cond
	}
	st.next()
	then := parseAssign(st)
	st.expectOp(":")
	els := parseAssign(st)
	n := &ast.Ternary{Cond: cond, Then: then, Else: els}
	n.Pos = pos
	return n
}

func parseNullCoalesce(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseLogicalOr(st)
	for st.isOp("??") {
		st.next()
		y := parseLogicalOr(st)
		n := &ast.Binary{Op: ast.BNullCoalesce, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseLogicalOr(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseLogicalAnd(st)
	for st.isOp("||") {
		st.next()
		y := parseLogicalAnd(st)
		n := &ast.Binary{Op: ast.BLogicalOr, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseLogicalAnd(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseEquality(st)
	for st.isOp("&&") {
		st.next()
		y := parseEquality(st)
		n := &ast.Binary{Op: ast.BLogicalAnd, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

var equalityOps = map[string]ast.BinOp{"==": ast.BEq, "!=": ast.BNe}

func parseEquality(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseRelational(st)
	for {
		op, ok := equalityOps[st.text]
		if !ok {
			break
		}
		st.next()
		y := parseRelational(st)
		n := &ast.Binary{Op: op, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

var relOps = map[string]ast.BinOp{"<": ast.BLt, "<=": ast.BLe, ">": ast.BGt, ">=": ast.BGe}

func parseRelational(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseBitOr(st)
	for {
		op, ok := relOps[st.text]
		if !ok || st.tok == scanner.Ident {
			break
		}
		st.next()
		y := parseBitOr(st)
		n := &ast.Binary{Op: op, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseBitOr(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseBitXor(st)
	for st.isOp("|") {
		st.next()
		y := parseBitXor(st)
		n := &ast.Binary{Op: ast.BOr, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseBitXor(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseBitAnd(st)
	for st.isOp("^") {
		st.next()
		y := parseBitAnd(st)
		n := &ast.Binary{Op: ast.BXor, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseBitAnd(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseShift(st)
	for st.isOp("&") {
		st.next()
		y := parseShift(st)
		n := &ast.Binary{Op: ast.BAnd, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseShift(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseAdditive(st)
	for st.isOp("<<") || st.isOp(">>") {
		op := ast.BShl
		if st.isOp(">>") {
			op = ast.BShr
		}
		st.next()
		y := parseAdditive(st)
		n := &ast.Binary{Op: op, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseAdditive(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseMultiplicative(st)
	for st.isOp("+") || st.isOp("-") {
		op := ast.BAdd
		if st.isOp("-") {
			op = ast.BSub
		}
		st.next()
		y := parseMultiplicative(st)
		n := &ast.Binary{Op: op, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseMultiplicative(st *parseState) ast.Expr {
	pos := st.pos()
	x := parseUnary(st)
	for st.isOp("*") || st.isOp("/") || st.isOp("%") {
		var op ast.BinOp
		switch {
		case st.isOp("*"):
			op = ast.BMul
		case st.isOp("/"):
			op = ast.BDiv
		default:
			op = ast.BMod
		}
		st.next()
		y := parseUnary(st)
		n := &ast.Binary{Op: op, X: x, Y: y}
		n.Pos = pos
		x = n
	}
	return x
}

func parseUnary(st *parseState) ast.Expr {
	pos := st.pos()
	switch {
	case st.isOp("-"):
		st.next()
		n := &ast.Unary{Op: ast.UnNeg, X: parseUnary(st)}
		n.Pos = pos
		return n
	case st.isOp("!"):
		st.next()
		n := &ast.Unary{Op: ast.UnNot, X: parseUnary(st)}
		n.Pos = pos
		return n
	case st.isOp("~"):
		st.next()
		n := &ast.Unary{Op: ast.UnBitNot, X: parseUnary(st)}
		n.Pos = pos
		return n
	}
	return parsePostfix(st)
}

// parsePostfix parses a primary followed by any number of `.name` (with an
// optional `(args)` call), and `[index]` suffixes. A `:` ends the postfix
// chain and is left unconsumed for the caller.
func parsePostfix(st *parseState) ast.Expr {
	x := parsePrimary(st)
	for {
		pos := st.pos()
		switch {
		case st.isOp("."):
			st.next()
			if st.tok != scanner.Ident {
				st.error("expected member name after '.', got " + st.text)
				return x
			}
			name := st.text
			st.next()
			if st.isOp("(") {
				x = parseCallArgs(st, x, name, pos)
			} else {
				m := &ast.Member{Recv: x, Name: name}
				m.Pos = pos
				x = m
			}
		case st.isOp("["):
			st.next()
			idx := parseExpr(st)
			st.expectOp("]")
			n := &ast.Index{Seq: x, Index: idx}
			n.Pos = pos
			x = n
		case st.isOp(":"):
			// Only a postfix class-ref when x is itself a bare class-name
			// identifier or dynamic expression already parsed as primary;
			// otherwise ':' belongs to an enclosing ternary/switch/case and
			// must not be consumed here.
			return x
		default:
			return x
		}
	}
}

func parseCallArgs(st *parseState, recv ast.Expr, name string, pos ast.Position) ast.Expr {
	st.expectOp("(")
	var args []ast.Expr
	if !st.isOp(")") {
		args = append(args, parseExpr(st))
		for st.isOp(",") {
			st.next()
			args = append(args, parseExpr(st))
		}
	}
	st.expectOp(")")
	n := &ast.Call{Recv: recv, Name: name, Args: args}
	n.Pos = pos
	return n
}

func parsePrimary(st *parseState) ast.Expr {
	pos := st.pos()
	switch {
	case st.tok == scanner.Int:
		n, _ := strconv.ParseInt(st.text, 0, 64)
		st.next()
		lit := &ast.Lit{Kind: ast.LitInt, Int: n}
		lit.Pos = pos
		return lit
	case st.tok == scanner.Float:
		f, _ := strconv.ParseFloat(st.text, 64)
		st.next()
		lit := &ast.Lit{Kind: ast.LitReal, Real: f}
		lit.Pos = pos
		return lit
	case st.tok == scanner.String:
		s := unquote(st.text)
		st.next()
		lit := &ast.Lit{Kind: ast.LitText, Text: s}
		lit.Pos = pos
		return lit
	case st.tok == scanner.Char:
		s := unquote(st.text)
		st.next()
		lit := &ast.Lit{Kind: ast.LitInt, Int: int64([]rune(s)[0])}
		lit.Pos = pos
		return lit
	case st.isOp("("):
		st.next()
		e := parseExpr(st)
		st.expectOp(")")
		return e
	case st.is("nulo"):
		st.next()
		lit := &ast.Lit{Kind: ast.LitNull}
		lit.Pos = pos
		return lit
	case st.is("verdadeiro"):
		st.next()
		lit := &ast.Lit{Kind: ast.LitInt, Int: 1}
		lit.Pos = pos
		return lit
	case st.is("falso"):
		st.next()
		lit := &ast.Lit{Kind: ast.LitInt, Int: 0}
		lit.Pos = pos
		return lit
	case st.tok == scanner.Ident && len(st.text) > 0 && st.text[0] == '$':
		// $-prefixed identifiers produced as one ident token by isIdentRune.
		name := st.text[1:]
		st.next()
		g := &ast.Global{Name: name}
		g.Pos = pos
		return g
	case st.tok == scanner.Ident && isArgRef(st.text):
		n := argRefN(st.text)
		st.next()
		a := &ast.ArgRef{N: n}
		a.Pos = pos
		return a
	case st.tok == scanner.Ident:
		name := st.text
		st.next()
		if st.isOp("[") {
			return parseIndexOrDynamicName(st, name, pos)
		}
		if st.isOp(":") {
			st.next()
			if st.tok != scanner.Ident {
				st.error("expected class member name after ':', got " + st.text)
				return nullLit(pos)
			}
			member := st.text
			st.next()
			cr := &ast.ClassRef{Class: name, Member: member}
			cr.Pos = pos
			if st.isOp("(") {
				return parseCallArgs(st, cr, member, pos)
			}
			return cr
		}
		if st.isOp("(") {
			return parseCallArgs(st, nil, name, pos)
		}
		id := &ast.Ident{Name: name}
		id.Pos = pos
		return id
	case st.isOp("["):
		// `[expr]:member` dynamic class-ref.
		st.next()
		dyn := parseExpr(st)
		st.expectOp("]")
		st.expectOp(":")
		if st.tok != scanner.Ident {
			st.error("expected class member name after ':', got " + st.text)
			return nullLit(pos)
		}
		member := st.text
		st.next()
		cr := &ast.ClassRef{Dynamic: dyn, Member: member}
		cr.Pos = pos
		if st.isOp("(") {
			return parseCallArgs(st, cr, member, pos)
		}
		return cr
	default:
		st.error("unexpected token in expression: " + st.text)
		st.next()
		return nullLit(pos)
	}
}

func nullLit(pos ast.Position) ast.Expr {
	lit := &ast.Lit{Kind: ast.LitNull}
	lit.Pos = pos
	return lit
}

func isArgRef(s string) bool {
	if len(s) < 4 || s[:3] != "arg" {
		return false
	}
	if s[3:] == "n" {
		return true
	}
	for _, r := range s[3:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func argRefN(s string) int {
	if s[3:] == "n" {
		return -1
	}
	n, _ := strconv.Atoi(s[3:])
	return n
}

// parseIndexOrDynamicName disambiguates `name[expr]` (Index, array element
// read on the identifier) from `name[expr]suffix` (DynamicName, a
// runtime-computed field name): an identifier immediately following the
// closing bracket with no intervening operator makes it a DynamicName
// suffix: `campo[i]_exec` names a field, `lista[i]` indexes a value.
func parseIndexOrDynamicName(st *parseState, prefix string, pos ast.Position) ast.Expr {
	st.next() // consume "["
	idx := parseExpr(st)
	st.expectOp("]")
	if st.tok == scanner.Ident {
		suffix := st.text
		st.next()
		n := &ast.DynamicName{Prefix: prefix, Index: idx, Suffix: suffix}
		n.Pos = pos
		return n
	}
	id := &ast.Ident{Name: prefix}
	id.Pos = pos
	n := &ast.Index{Seq: id, Index: idx}
	n.Pos = pos
	return n
}
