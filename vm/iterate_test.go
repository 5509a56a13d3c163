package vm

import (
	"testing"

	"github.com/magoolation/intmud/ast"
	"github.com/magoolation/intmud/builtins"
	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/value"
)

// TestForEachEnumeratesClassAndSkipsDeletedMidIteration builds `conta`,
// a method that walks `paracada x em Item:` counting elements and marks
// the second item for deletion while standing on the first, then asserts
// the deleted item is skipped rather than visited or faulting the loop.
func TestForEachEnumeratesClassAndSkipsDeletedMidIteration(t *testing.T) {
	arena := object.New()
	item1 := arena.Create("item", 0)
	item2 := arena.Create("item", 0)
	item3 := arena.Create("item", 0)
	arena.Activate(item1.ID)
	arena.Activate(item2.ID)
	arena.Activate(item3.ID)

	fn := &ast.Function{
		Name: "conta",
		Body: []ast.Stmt{
			&ast.VarDecl{Name: "n", Init: &ast.Lit{Kind: ast.LitInt, Int: 0}},
			&ast.ForEach{
				Var:  "x",
				Iter: &ast.ClassRef{Class: "item"},
				Body: []ast.Stmt{
					&ast.ExpressionStmt{Expr: &ast.Assign{
						Op:     ast.AssignAdd,
						Target: &ast.Ident{Name: "n"},
						Value:  &ast.Lit{Kind: ast.LitInt, Int: 1},
					}},
					&ast.If{
						Cond: &ast.Binary{
							Op: ast.BEq,
							X:  &ast.Ident{Name: "n"},
							Y:  &ast.Lit{Kind: ast.LitInt, Int: 1},
						},
						Then: []ast.Stmt{
							&ast.ExpressionStmt{Expr: &ast.Call{
								Recv: &ast.Global{Name: "alvo"},
								Name: "deletar",
							}},
						},
					},
				},
			},
			&ast.Return{Expr: &ast.Ident{Name: "n"}},
		},
	}
	cls := &ast.ClassDef{Name: "caixa", Funcs: []*ast.Function{fn}}

	classes := class.New()
	unit, err := classes.Register(cls)
	if err != nil {
		t.Fatal(err)
	}

	inst := New(classes, arena, builtins.New())
	inst.Globals["alvo"] = value.Object(item2.ID)

	defUnit, fi, ok := classes.ResolveFunc("caixa", "conta")
	if !ok {
		t.Fatal("conta not found")
	}

	box := arena.Create("caixa", 0)
	arena.Activate(box.ID)
	got, err := inst.Call(defUnit, fi, value.Object(box.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag() != value.Int || got.Int() != 2 {
		t.Fatalf("conta() = %+v, want Int(2) (item2 marked for deletion must be skipped)", got)
	}
	_ = unit
}
