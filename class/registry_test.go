package class

import (
	"testing"

	"github.com/magoolation/intmud/ast"
)

func TestRegisterAndInherit(t *testing.T) {
	r := New()

	base := &ast.ClassDef{
		Name: "base",
		Fields: []*ast.Field{
			{Name: "vida", Type: "signed-32"},
		},
	}
	if _, err := r.Register(base); err != nil {
		t.Fatal(err)
	}

	sub := &ast.ClassDef{
		Name:  "jogador",
		Bases: []string{"base"},
		Fields: []*ast.Field{
			{Name: "nome", Type: "text"},
		},
	}
	u, err := r.Register(sub)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := u.Field("vida"); !ok {
		t.Fatal("jogador did not inherit field vida from base")
	}
	if !r.IsA("jogador", "base") {
		t.Fatal("IsA(jogador, base) = false")
	}
	if r.IsA("base", "jogador") {
		t.Fatal("IsA(base, jogador) = true")
	}
}

// TestResolveFuncInheritedSplicesBaseCode guards against ResolveFunc
// returning a subclass's Unit for a method the subclass only inherits: the
// Code it points Start/End into must be the declaring base's, not whichever
// subclass happens to be long enough to contain that byte range.
func TestResolveFuncInheritedSplicesBaseCode(t *testing.T) {
	r := New()

	base := &ast.ClassDef{
		Name: "base",
		Funcs: []*ast.Function{
			{Name: "foo", Body: []ast.Stmt{&ast.Return{Expr: &ast.Lit{Kind: ast.LitInt, Int: 1}}}},
		},
	}
	if _, err := r.Register(base); err != nil {
		t.Fatal(err)
	}

	sub := &ast.ClassDef{
		Name:  "jogador",
		Bases: []string{"base"},
		Funcs: []*ast.Function{
			{Name: "bar", Body: []ast.Stmt{
				&ast.Return{Expr: &ast.Lit{Kind: ast.LitInt, Int: 2}},
				&ast.Return{Expr: &ast.Lit{Kind: ast.LitInt, Int: 2}},
				&ast.Return{Expr: &ast.Lit{Kind: ast.LitInt, Int: 2}},
			}},
		},
	}
	if _, err := r.Register(sub); err != nil {
		t.Fatal(err)
	}

	owner, fi, ok := r.ResolveFunc("jogador", "foo")
	if !ok {
		t.Fatal("ResolveFunc(jogador, foo) not found")
	}
	if owner.ClassName != "base" {
		t.Fatalf("ResolveFunc(jogador, foo) owner = %s, want base", owner.ClassName)
	}
	if fi.DefiningClass != "base" {
		t.Fatalf("fi.DefiningClass = %s, want base", fi.DefiningClass)
	}
	if got := owner.FuncBytes(fi); string(got) != string(owner.Code[fi.Start:fi.End]) {
		t.Fatal("owner.Code does not match spliced range")
	}
}

func TestRemoveDropsClass(t *testing.T) {
	r := New()
	r.Register(&ast.ClassDef{Name: "x"})
	if !r.Has("x") {
		t.Fatal("Has(x) = false before Remove")
	}
	r.Remove("x")
	if r.Has("x") {
		t.Fatal("Has(x) = true after Remove")
	}
}
