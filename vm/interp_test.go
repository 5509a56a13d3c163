package vm

import (
	"testing"

	"github.com/magoolation/intmud/builtins"
	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/internal/strpool"
	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/value"
)

// unitBuilder assembles a single-function compile.Unit by hand, the way
// compile.Compile would, for exercising the VM without going through the
// parser.
type unitBuilder struct {
	pool *strpool.Pool
	em   *compile.Emitter
}

func newUnitBuilder() *unitBuilder {
	return &unitBuilder{pool: strpool.New(), em: compile.NewEmitter()}
}

func (b *unitBuilder) unit(className string, fields []compile.FieldInfo, locals int) *compile.Unit {
	fieldIdx := map[string]int{}
	for idx, f := range fields {
		fieldIdx[f.Name] = idx
	}
	code := b.em.Bytes()
	return &compile.Unit{
		ClassName: className,
		Fields:    fields,
		FieldIdx:  fieldIdx,
		FuncIdx:   map[string]int{"main": 0},
		Funcs:     []compile.FuncInfo{{Name: "main", Start: 0, End: len(code), Locals: locals, DefiningClass: className}},
		Code:      code,
		Pool:      b.pool,
	}
}

func TestArithmeticAndReturn(t *testing.T) {
	b := newUnitBuilder()
	b.em.PushInt(2)
	b.em.PushInt(3)
	b.em.Add()
	b.em.PushInt(4)
	b.em.Mul()
	b.em.ReturnValue()
	u := b.unit("teste", nil, 0)

	inst := New(class.New(), object.New(), builtins.New())
	got, err := inst.Call(u, u.Funcs[0], value.NullValue(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tag() != value.Int || got.Int() != 20 {
		t.Fatalf("got %+v, want Int(20)", got)
	}
}

func TestFieldLoadStore(t *testing.T) {
	b := newUnitBuilder()
	b.em.PushInt(42)
	b.em.StoreField(0)
	b.em.Pop()
	b.em.LoadField(0)
	b.em.ReturnValue()
	fields := []compile.FieldInfo{{Name: "vida"}}
	u := b.unit("jogador", fields, 0)

	arena := object.New()
	classes := class.New()
	obj := arena.Create("jogador", len(fields))
	arena.Activate(obj.ID)

	inst := New(classes, arena, builtins.New())
	got, err := inst.Call(u, u.Funcs[0], value.Object(obj.ID), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int() != 42 {
		t.Fatalf("got %+v, want Int(42)", got)
	}
	if obj.Fields[0].Int() != 42 {
		t.Fatalf("field not persisted: %+v", obj.Fields[0])
	}
}

func TestBuiltinCallFallback(t *testing.T) {
	b := newUnitBuilder()
	idx, _ := b.pool.Intern("soma")
	b.em.PushInt(1)
	b.em.PushInt(2)
	b.em.Call(idx, 2)
	b.em.ReturnValue()
	u := b.unit("teste", nil, 0)

	bi := builtins.New()
	bi.Register("soma", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.Int64(args[0].Int() + args[1].Int()), nil
	})

	inst := New(class.New(), object.New(), bi)
	got, err := inst.Call(u, u.Funcs[0], value.NullValue(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int() != 3 {
		t.Fatalf("got %+v, want Int(3)", got)
	}
}

func TestDivideByZeroYieldsZero(t *testing.T) {
	b := newUnitBuilder()
	b.em.PushInt(7)
	b.em.PushInt(0)
	b.em.Div()
	b.em.ReturnValue()
	u := b.unit("teste", nil, 0)

	inst := New(class.New(), object.New(), builtins.New())
	got, err := inst.Call(u, u.Funcs[0], value.NullValue(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Int() != 0 {
		t.Fatalf("got %+v, want Int(0)", got)
	}
}

func TestBudgetExceeded(t *testing.T) {
	b := newUnitBuilder()
	lbl := b.em.NewLabel()
	b.em.BindLabel(lbl)
	b.em.PushInt(1)
	b.em.Pop()
	b.em.Jump(lbl)
	u := b.unit("teste", nil, 0)

	inst := New(class.New(), object.New(), builtins.New(), Budget(10))
	_, err := inst.Call(u, u.Funcs[0], value.NullValue(), nil)
	if err == nil {
		t.Fatal("expected budget-exceeded error, got nil")
	}
}
