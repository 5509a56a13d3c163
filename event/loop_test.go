package event

import (
	"strings"
	"testing"

	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/parser"
	"github.com/magoolation/intmud/special"
	"github.com/magoolation/intmud/value"
)

// recordingVM implements the VM interface both event.Loop and
// special.Manager dispatch handlers through, recording the order in which
// handler names are invoked.
type recordingVM struct {
	calls []string
}

func (r *recordingVM) InvokeHandler(recv value.Value, name string, args []value.Value) (value.Value, error) {
	r.calls = append(r.calls, name)
	return value.NullValue(), nil
}

const worldSrc = "classe mundo\nvar relogio: timer-countdown\nvar gatilho: execution-trigger\nfim\n"

func newTestWorld(t *testing.T) (*class.Registry, *object.Arena, value.ObjectID) {
	t.Helper()
	cu, err := parser.New().Parse("test.script", strings.NewReader(worldSrc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	classes := class.New()
	for _, cls := range cu.Classes {
		if _, err := classes.Register(cls); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	objects := object.New()
	unit, _ := classes.Unit("mundo")
	obj := objects.Create(unit.ClassName, len(unit.Fields))
	objects.Activate(obj.ID)
	return classes, objects, obj.ID
}

func TestTickInvokesTimersBeforeTriggers(t *testing.T) {
	classes, objects, id := newTestWorld(t)
	mgr := special.New(classes, objects, nil)
	rec := &recordingVM{}
	mgr.VM = rec

	mgr.Init(value.Object(id), "relogio")
	mgr.Init(value.Object(id), "gatilho")
	mgr.SetTimer(special.Key{Owner: id, Field: "relogio"}, 1)

	obj, _ := objects.Get(id)
	unit, _ := classes.Unit("mundo")
	obj.Fields[unit.FieldIdx["gatilho"]] = value.Int64(1)

	loop := New(mgr, objects, rec, nil)
	loop.Tick(1)

	if len(rec.calls) != 2 {
		t.Fatalf("want 2 handler calls, got %v", rec.calls)
	}
	if rec.calls[0] != "relogio_exec" || rec.calls[1] != "gatilho_exec" {
		t.Fatalf("want [relogio_exec gatilho_exec], got %v", rec.calls)
	}
}

func TestTickRunsPendingTasksBeforeDispatch(t *testing.T) {
	classes, objects, id := newTestWorld(t)
	mgr := special.New(classes, objects, nil)
	rec := &recordingVM{}
	mgr.VM = rec
	mgr.Init(value.Object(id), "relogio")
	mgr.SetTimer(special.Key{Owner: id, Field: "relogio"}, 1)

	var order []string
	mgr.EnqueueTask(func() { order = append(order, "task") })

	loop := New(mgr, objects, rec, nil)
	loop.Tick(1)

	if len(order) != 1 || order[0] != "task" {
		t.Fatalf("want pending task to run, got %v", order)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "relogio_exec" {
		t.Fatalf("want timer handler invoked this tick, got %v", rec.calls)
	}
}

func TestTickReapsDeletedObjectsAndUnregisters(t *testing.T) {
	classes, objects, id := newTestWorld(t)
	mgr := special.New(classes, objects, nil)
	rec := &recordingVM{}
	mgr.VM = rec
	mgr.Init(value.Object(id), "relogio")

	objects.MarkForDeletion(id)
	loop := New(mgr, objects, rec, nil)
	loop.Tick(1)

	mgr.SetTimer(special.Key{Owner: id, Field: "relogio"}, 1)
	if fired := mgr.TickTimers(1); len(fired) != 0 {
		t.Fatalf("want no timers left after reap, got %v", fired)
	}
}
