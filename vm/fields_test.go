package vm

import (
	"testing"

	"github.com/magoolation/intmud/ast"
	"github.com/magoolation/intmud/builtins"
	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/value"
)

// TestDynamicFieldNameIsCanonicalized builds a field named "vida" and reads
// it back through a DynamicName expression that assembles "VIDA" at runtime
// (prefix "VID" + index value "A"), the uppercase spelling a script could
// construct from concatenated pieces. OpLoadFieldDynamic must canonicalize
// that name the same way the static `this.vida` path already does, or the
// lookup misses the field entirely.
func TestDynamicFieldNameIsCanonicalized(t *testing.T) {
	cls := &ast.ClassDef{
		Name: "jogador",
		Fields: []*ast.Field{
			{Name: "Vida", Type: "signed-32", Storage: ast.Instance},
		},
		Funcs: []*ast.Function{
			{
				Name: "pegaVida",
				Body: []ast.Stmt{
					&ast.Return{Expr: &ast.DynamicName{
						Prefix: "VID",
						Index:  &ast.Lit{Kind: ast.LitText, Text: "A"},
						Suffix: "",
					}},
				},
			},
		},
	}

	classes := class.New()
	unit, err := classes.Register(cls)
	if err != nil {
		t.Fatal(err)
	}

	arena := object.New()
	obj := arena.Create("jogador", len(unit.Fields))
	arena.Activate(obj.ID)
	obj.Fields[unit.FieldIdx["vida"]] = value.Int64(42)

	inst := New(classes, arena, builtins.New())
	defUnit, fi, ok := classes.ResolveFunc("jogador", "pegaVida")
	if !ok {
		t.Fatal("pegaVida not found")
	}
	got, err := inst.Call(defUnit, fi, value.Object(obj.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag() != value.Int || got.Int() != 42 {
		t.Fatalf("pegaVida() = %+v, want Int(42)", got)
	}
}
