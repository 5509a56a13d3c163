// Package special implements the Special Type Manager: the bridge between
// passive objects and external events. It tracks the four kinds of "event
// source" a field can own, timer, value-change trigger, console, and network
// endpoint, and fires the owning object's
// `<field>_exec`/`<field>_tecla`/connection-state member functions through
// the vm package's InvokeHandler.
//
// Registration happens lazily, through the vm.OnInitSpecialType hook: the
// criar built-in calls it for each field of one of these types on the object
// it constructs, as does the interpreter on init-special-type; Manager never
// scans the Arena itself. Each special type registers itself,
// and registration retains only the back-reference; all storage of the
// field lives in the Arena.
package special

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/value"
)

// Key identifies one special-type field: the object that owns it plus the
// field's canonical name. A (owner, field) pair is unique across all four
// registries since a given field has exactly one declared type.
type Key struct {
	Owner value.ObjectID
	Field string
}

// Invoker is the narrow vm.Instance surface the Manager dispatches event
// handlers through; satisfied by *vm.Instance.
type Invoker interface {
	InvokeHandler(recv value.Value, name string, args []value.Value) (value.Value, error)
}

// Manager owns the four special-type registries and the sequence counter
// that records registration order, the tie-breaker the dispatch phase sorts
// by: timers by registration order, then triggers by registration order.
type Manager struct {
	Classes *class.Registry
	Objects *object.Arena
	VM      Invoker
	Log     *logrus.Logger

	seq int
	// regMu guards concurrent registration from Connect/acceptLoop
	// goroutines against Init/Unregister running on the event-loop thread.
	regMu sync.Mutex

	timers   []*Timer
	triggers []*Trigger
	consoles map[Key]*Console
	clients  map[Key]*ClientSocket
	servers  map[Key]*ServerSocket

	inboxMu     sync.Mutex
	inbox       []ioEvent
	pendingIOMu sync.Mutex
	pendingIO   []ioEvent

	tasksMu sync.Mutex
	tasks   []func()
}

// New returns an empty Manager. VM is set after construction (special.New,
// then vm.New(..., vm.OnInitSpecialType(mgr.Init)), since the two packages
// each need a reference to the other's constructed value).
func New(classes *class.Registry, objects *object.Arena, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		Classes:  classes,
		Objects:  objects,
		Log:      log,
		consoles: map[Key]*Console{},
		clients:  map[Key]*ClientSocket{},
		servers:  map[Key]*ServerSocket{},
	}
}

// Init is the vm.OnInitSpecialType hook: it looks up the declared type of
// owner's field and registers the matching special-type record. Called
// synchronously from inside the interpreter while running a constructor, so
// it must not block.
func (m *Manager) Init(owner value.Value, field string) {
	className, ok := m.ownerClass(owner)
	if !ok {
		return
	}
	unit, ok := m.Classes.Unit(className)
	if !ok {
		return
	}
	fi, ok := unit.Field(field)
	if !ok {
		return
	}
	key := Key{Owner: owner.ObjectID(), Field: field}

	m.regMu.Lock()
	defer m.regMu.Unlock()
	m.seq++
	switch fi.Type {
	case value.TTimer:
		m.timers = append(m.timers, &Timer{Key: key, seq: m.seq})
	case value.TTrigger:
		m.triggers = append(m.triggers, &Trigger{Key: key, seq: m.seq})
	case value.TConsole:
		m.consoles[key] = &Console{Key: key, seq: m.seq}
	case value.TClientSocket:
		m.clients[key] = &ClientSocket{Key: key, seq: m.seq}
	case value.TServerSocket:
		m.servers[key] = &ServerSocket{Key: key, seq: m.seq}
	}
}

func (m *Manager) ownerClass(recv value.Value) (string, bool) {
	if recv.Tag() != value.ObjectRef {
		return "", false
	}
	obj, ok := m.Objects.Get(recv.ObjectID())
	if !ok {
		return "", false
	}
	return obj.Class, true
}

// Unregister drops every special-type record owned by id, called from the
// Event Loop's reap phase to unregister a deleted object's special types.
func (m *Manager) Unregister(id value.ObjectID) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	m.timers = filterTimers(m.timers, id)
	m.triggers = filterTriggers(m.triggers, id)
	for k := range m.consoles {
		if k.Owner == id {
			delete(m.consoles, k)
		}
	}
	for k, c := range m.clients {
		if k.Owner == id {
			if c.Channel != nil {
				c.Channel.Close()
			}
			delete(m.clients, k)
		}
	}
	for k, s := range m.servers {
		if k.Owner == id {
			if s.Listener != nil {
				s.Listener.Close()
			}
			delete(m.servers, k)
		}
	}
}

func filterTimers(ts []*Timer, id value.ObjectID) []*Timer {
	out := ts[:0]
	for _, t := range ts {
		if t.Owner != id {
			out = append(out, t)
		}
	}
	return out
}

func filterTriggers(ts []*Trigger, id value.ObjectID) []*Trigger {
	out := ts[:0]
	for _, t := range ts {
		if t.Owner != id {
			out = append(out, t)
		}
	}
	return out
}

// fieldSlot resolves k's storage slice and position, the same rule
// vm/fields.go applies for Instance vs ClassWide storage: instance fields
// live on the Object itself, class-wide fields are shared per class on the
// Registry. Timer and Trigger values are ordinary declared fields; the
// Manager reads/writes them directly rather than duplicating their value in
// its own bookkeeping.
func (m *Manager) fieldSlot(k Key) ([]value.Value, int, bool) {
	obj, ok := m.Objects.Get(k.Owner)
	if !ok {
		return nil, 0, false
	}
	unit, ok := m.Classes.Unit(obj.Class)
	if !ok {
		return nil, 0, false
	}
	fi, ok := unit.Field(k.Field)
	if !ok {
		return nil, 0, false
	}
	idx := unit.FieldIdx[fi.Name]
	if fi.Storage == compile.ClassWide {
		return m.Classes.ClassFields(obj.Class), idx, true
	}
	return obj.Fields, idx, true
}

func (m *Manager) getField(k Key) int64 {
	slots, idx, ok := m.fieldSlot(k)
	if !ok || idx >= len(slots) {
		return 0
	}
	return slots[idx].Int()
}

func (m *Manager) setField(k Key, v int64) {
	slots, idx, ok := m.fieldSlot(k)
	if !ok || idx >= len(slots) {
		return
	}
	slots[idx] = value.Int64(v)
}

// EnqueueTask schedules fn to run on the event loop's own goroutine, at the
// start of its next tick (event.Loop.Tick calls RunPendingTasks first).
// Host code accepting a connection off its own goroutine, e.g. a Telnet
// listener's accept loop, must go through this rather than touching the
// Arena, the Registry, or the VM directly, the same single-threaded
// mutation rule DrainIO/DispatchIO observe for socket-sourced handler calls.
func (m *Manager) EnqueueTask(fn func()) {
	m.tasksMu.Lock()
	m.tasks = append(m.tasks, fn)
	m.tasksMu.Unlock()
}

// RunPendingTasks runs every task EnqueueTask collected since the last
// call, in submission order.
func (m *Manager) RunPendingTasks() {
	m.tasksMu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.tasksMu.Unlock()

	for _, fn := range tasks {
		fn()
	}
}
