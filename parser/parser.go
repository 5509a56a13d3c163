// Package parser implements the recursive-descent parser that turns Script
// Language source text into the abstract program tree the compile package
// consumes. It is a hand-rolled scanner loop over text/scanner tokens,
// accumulating up to a bounded number of errors instead of aborting on the
// first one.
//
// It is a reference-grade parser for the Script Language's Portuguese-like
// keyword set (classe, func, se/senaose/senao, enquanto, para, paracada,
// escolha/caso, retorna, quebra, continua, termina, var, const), enough to
// drive every documented scenario. It is not a goal of this repo to parse
// every built-in type tag's literal syntax.
package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/magoolation/intmud/ast"
)

const maxErrors = 10

// ErrParse collects up to maxErrors parse errors, the way asm.ErrAsm does
// for the assembler.
type ErrParse []struct {
	Pos scanner.Position
	Msg string
}

func (e ErrParse) Error() string {
	l := make([]string, 0, len(e))
	for _, err := range e {
		l = append(l, fmt.Sprintf("%s: %s", err.Pos, err.Msg))
	}
	return strings.Join(l, "\n")
}

// Parser implements loader.Parser.
type Parser struct{}

// New returns a Parser. Parsers are stateless between calls; each Parse
// invocation builds its own internal scanner state.
func New() *Parser { return &Parser{} }

type parseState struct {
	s    scanner.Scanner
	tok  rune
	text string
	errs ErrParse
}

func (p *parseState) error(msg string) {
	pos := p.s.Position
	if !pos.IsValid() {
		pos = p.s.Pos()
	}
	p.errs = append(p.errs, struct {
		Pos scanner.Position
		Msg string
	}{pos, msg})
}

func (p *parseState) abort() bool { return len(p.errs) >= maxErrors }

// multiCharOps lists every operator longer than one rune the grammar uses.
// text/scanner tokenizes punctuation one rune at a time, so next() glues
// adjacent runes back together when they form one of these.
var multiCharOps = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true, "&&": true, "||": true,
	"??": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<": true, ">>": true,
}

func (p *parseState) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
	for {
		combined := p.text + string(p.s.Peek())
		if (multiCharOps[combined] || combined == "<<=" || combined == ">>=") && p.s.Peek() != scanner.EOF {
			p.s.Next()
			p.text = combined
		} else {
			break
		}
	}
}

func (p *parseState) pos() ast.Position {
	pos := p.s.Position
	return ast.Position{File: pos.Filename, Line: pos.Line, Col: pos.Column}
}

func (p *parseState) is(kw string) bool {
	return p.tok == scanner.Ident && p.text == kw
}

// isOp reports whether the current token is the given single-character
// operator/punctuation rune.
func (p *parseState) isOp(op string) bool {
	return p.text == op && p.tok != scanner.Ident && p.tok != scanner.EOF
}

func (p *parseState) expect(kw string) bool {
	if !p.is(kw) {
		p.error(fmt.Sprintf("expected %q, got %q", kw, p.text))
		return false
	}
	p.next()
	return true
}

func (p *parseState) expectOp(op string) bool {
	if !p.isOp(op) {
		p.error(fmt.Sprintf("expected %q, got %q", op, p.text))
		return false
	}
	p.next()
	return true
}

// Parse reads source text from r and produces a CompilationUnit.
func (p *Parser) Parse(name string, r io.Reader) (*ast.CompilationUnit, error) {
	st := &parseState{}
	st.s.Init(r)
	st.s.Filename = name
	st.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings | scanner.ScanChars | scanner.ScanComments | scanner.SkipComments
	st.s.IsIdentRune = isIdentRune
	st.s.Error = func(s *scanner.Scanner, msg string) { st.error(msg) }

	cu := &ast.CompilationUnit{File: name}
	st.next()

	cu.Prologue = parsePrologue(st)

	for st.tok != scanner.EOF && !st.abort() {
		if !st.is("classe") {
			st.error("expected 'classe', got " + st.text)
			st.next()
			continue
		}
		if cls := parseClass(st); cls != nil {
			cu.Classes = append(cu.Classes, cls)
		}
	}

	if len(st.errs) > 0 {
		return cu, st.errs
	}
	return cu, nil
}

func isIdentRune(ch rune, i int) bool {
	return ch == '_' || ch == '$' || ch == '@' || (i == 0 && (ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z')) ||
		(i > 0 && (ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'))
}

// parsePrologue consumes `key = value` lines up to the first `classe`.
func parsePrologue(st *parseState) ast.Prologue {
	var pr ast.Prologue
	for st.tok == scanner.Ident && !st.is("classe") && !st.abort() {
		key := st.text
		st.next()
		if !st.expectOp("=") {
			st.next()
			continue
		}
		val := st.text
		switch key {
		case "include":
			pr.Include = append(pr.Include, val)
		case "exec":
			n, _ := strconv.Atoi(val)
			pr.Exec = n
		case "log":
			pr.Log = val
		case "err":
			pr.Err = val
		case "completo":
			pr.Completo = val == "1"
		default:
			st.error("unknown prologue key " + key)
		}
		st.next()
	}
	return pr
}
