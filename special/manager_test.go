package special

import (
	"strings"
	"testing"

	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/parser"
	"github.com/magoolation/intmud/value"
)

// newTestManager compiles src (a single class body) and returns a Manager
// over a fresh Registry/Arena plus the id of one instance of className.
func newTestManager(t *testing.T, src, className string) (*Manager, value.ObjectID) {
	t.Helper()
	cu, err := parser.New().Parse("test.script", strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	classes := class.New()
	for _, cls := range cu.Classes {
		if _, err := classes.Register(cls); err != nil {
			t.Fatalf("register %s: %v", cls.Name, err)
		}
	}
	objects := object.New()
	unit, ok := classes.Unit(className)
	if !ok {
		t.Fatalf("class %q not registered", className)
	}
	obj := objects.Create(unit.ClassName, len(unit.Fields))
	objects.Activate(obj.ID)
	mgr := New(classes, objects, nil)
	return mgr, obj.ID
}

func TestTimerFiresOnReachingZero(t *testing.T) {
	mgr, id := newTestManager(t, "classe bomba\nvar fusivel: timer-countdown\nfim\n", "bomba")
	mgr.Init(value.Object(id), "fusivel")
	mgr.SetTimer(Key{Owner: id, Field: "fusivel"}, 3)

	if fired := mgr.TickTimers(1); len(fired) != 0 {
		t.Fatalf("tick 1: unexpected fire %v", fired)
	}
	if fired := mgr.TickTimers(1); len(fired) != 0 {
		t.Fatalf("tick 2: unexpected fire %v", fired)
	}
	fired := mgr.TickTimers(1)
	if len(fired) != 1 || fired[0].Field != "fusivel" {
		t.Fatalf("tick 3: want fire on fusivel, got %v", fired)
	}
	// Already at zero: stays quiet until reset.
	if fired := mgr.TickTimers(1); len(fired) != 0 {
		t.Fatalf("tick 4: unexpected re-fire %v", fired)
	}
}

func TestTriggerFiresOnZeroToNonZero(t *testing.T) {
	mgr, id := newTestManager(t, "classe sensor\nvar nivel: execution-trigger\nfim\n", "sensor")
	mgr.Init(value.Object(id), "nivel")
	key := Key{Owner: id, Field: "nivel"}

	if fired := mgr.ScanTriggers(); len(fired) != 0 {
		t.Fatalf("initial scan: unexpected fire %v", fired)
	}
	mgr.setField(key, 5)
	fired := mgr.ScanTriggers()
	if len(fired) != 1 || fired[0].Field != "nivel" {
		t.Fatalf("want fire on nivel, got %v", fired)
	}
	// Holding non-zero across scans does not re-fire.
	if fired := mgr.ScanTriggers(); len(fired) != 0 {
		t.Fatalf("unexpected re-fire while held non-zero: %v", fired)
	}
	mgr.setField(key, 0)
	mgr.ScanTriggers()
	mgr.setField(key, 1)
	if fired := mgr.ScanTriggers(); len(fired) != 1 {
		t.Fatalf("want fire after returning to zero then non-zero, got %v", fired)
	}
}

func TestUnregisterDropsOwnedRecords(t *testing.T) {
	mgr, id := newTestManager(t, "classe bomba\nvar fusivel: timer-countdown\nfim\n", "bomba")
	mgr.Init(value.Object(id), "fusivel")
	if len(mgr.timers) != 1 {
		t.Fatalf("want 1 registered timer, got %d", len(mgr.timers))
	}
	mgr.Unregister(id)
	if len(mgr.timers) != 0 {
		t.Fatalf("want 0 timers after Unregister, got %d", len(mgr.timers))
	}
}
