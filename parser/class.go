package parser

import (
	"strconv"
	"text/scanner"

	"github.com/magoolation/intmud/ast"
)

// parseClass parses `classe Name [: Base, Base] ... fim`.
func parseClass(st *parseState) *ast.ClassDef {
	pos := st.pos()
	st.next() // consume "classe"
	if st.tok != scanner.Ident {
		st.error("expected class name, got " + st.text)
		return nil
	}
	cls := &ast.ClassDef{Name: st.text, Pos: pos}
	st.next()

	if st.isOp(":") {
		st.next()
		for {
			if st.tok != scanner.Ident {
				st.error("expected base class name, got " + st.text)
				break
			}
			cls.Bases = append(cls.Bases, st.text)
			st.next()
			if st.isOp(",") {
				st.next()
				continue
			}
			break
		}
	}

	for !st.is("fim") && st.tok != scanner.EOF && !st.abort() {
		switch {
		case st.is("var"):
			if f := parseField(st); f != nil {
				cls.Fields = append(cls.Fields, f)
			}
		case st.is("const"):
			if c := parseConst(st); c != nil {
				cls.Consts = append(cls.Consts, c)
			}
		case st.is("func"):
			if fn := parseFunc(st); fn != nil {
				cls.Funcs = append(cls.Funcs, fn)
			}
		default:
			st.error("expected var/const/func/fim inside class, got " + st.text)
			st.next()
		}
	}
	st.expect("fim")
	return cls
}

// parseField parses `var nome: tipo [tamanho] [classwide|persistente]`.
func parseField(st *parseState) *ast.Field {
	pos := st.pos()
	st.next() // consume "var"
	f := &ast.Field{Pos: pos}
	if st.tok != scanner.Ident {
		st.error("expected field name, got " + st.text)
		return nil
	}
	f.Name = st.text
	st.next()
	if st.expectOp(":") {
		f.Type = st.text
		st.next()
		// type labels such as timer-countdown or signed-32 scan as
		// several tokens joined by '-'
		for st.isOp("-") {
			st.next()
			f.Type += "-" + st.text
			st.next()
		}
	}
	if st.isOp("[") {
		st.next()
		n, _ := strconv.Atoi(st.text)
		f.ArraySize = n
		st.next()
		st.expectOp("]")
	}
	switch {
	case st.is("classwide"):
		f.Storage = ast.ClassWide
		st.next()
	case st.is("persistente"):
		f.Storage = ast.Persisted
		st.next()
	}
	return f
}

// parseConst parses `const nome = literal-or-expr`.
func parseConst(st *parseState) *ast.Const {
	pos := st.pos()
	st.next() // consume "const"
	c := &ast.Const{Pos: pos}
	if st.tok != scanner.Ident {
		st.error("expected const name, got " + st.text)
		return nil
	}
	c.Name = st.text
	st.next()
	st.expectOp("=")

	switch st.tok {
	case scanner.Int:
		n, _ := strconv.ParseInt(st.text, 0, 64)
		c.Kind = ast.ConstInt
		c.Int = n
		st.next()
	case scanner.Float:
		f, _ := strconv.ParseFloat(st.text, 64)
		c.Kind = ast.ConstReal
		c.Real = f
		st.next()
	case scanner.String:
		c.Kind = ast.ConstText
		c.Text = unquote(st.text)
		st.next()
	case scanner.Ident:
		if st.text == "nulo" {
			c.Kind = ast.ConstNull
			st.next()
		} else {
			c.Kind = ast.ConstExpr
			c.Expr = parseExpr(st)
		}
	default:
		c.Kind = ast.ConstExpr
		c.Expr = parseExpr(st)
	}
	return c
}

// parseFunc parses `func nome ... fim`. A body consisting solely of a
// `dados` marker followed by literal rows compiles as FuncData; otherwise
// it is a normal statement-bodied function.
func parseFunc(st *parseState) *ast.Function {
	pos := st.pos()
	st.next() // consume "func"
	fn := &ast.Function{Pos: pos}
	if st.tok != scanner.Ident {
		st.error("expected function name, got " + st.text)
		return nil
	}
	fn.Name = st.text
	st.next()
	if st.is("dados") {
		fn.Kind = ast.FuncData
		st.next()
	}
	for !st.is("fim") && st.tok != scanner.EOF && !st.abort() {
		fn.Body = append(fn.Body, parseStmt(st))
	}
	st.expect("fim")
	return fn
}

func unquote(s string) string {
	u, err := strconv.Unquote(s)
	if err != nil {
		return s
	}
	return u
}
