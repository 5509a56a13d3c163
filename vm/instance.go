// Package vm implements the stack-based bytecode interpreter: call frames
// over a compile.Unit's bytecode, an operand stack of value.Value, fault
// propagation via runtimeerr, and the per-handler instruction budget and
// call-depth bound the event loop relies on to keep one misbehaving script
// from starving the tick. Options construct an Instance, a flat
// opcode-dispatch Run loop executes it, and a top-level panic/recover turns
// a Go panic into a returned error.
package vm

import (
	"github.com/magoolation/intmud/builtins"
	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/value"
)

// DefaultStackSize bounds the operand stack, catching runaway recursion or a
// miscompiled expression before it grows Go's own stack unreasonably.
const DefaultStackSize = 4096

// Instance is one script-language VM bound to a class registry, an object
// arena, and a built-in function registry. One Instance typically serves an
// entire event loop; Call is safe to invoke repeatedly, reentrantly, from
// built-ins that themselves dispatch back into script code.
type Instance struct {
	Classes  *class.Registry
	Objects  *object.Arena
	Builtins *builtins.Registry
	Globals  map[string]value.Value

	stack     []value.Value
	sp        int
	frames    []frame
	budget    int
	maxBudget int
	maxDepth  int

	// onInitSpecialType is called by criar for every special-type field of
	// the object it constructs, and when the interpreter executes
	// init-special-type (naming a field of the active frame's receiver).
	// Wired by the special package so a field
	// of a special type (timer, trigger, console, socket) registers itself
	// with the Special Type Manager the moment an object is constructed.
	onInitSpecialType func(owner value.Value, fieldName string)
}

type frame struct {
	unit   *compile.Unit
	code   []byte
	ip     int
	locals []value.Value
	args   []value.Value
	this   value.Value
}

// Option configures an Instance at construction.
type Option func(*Instance)

// Budget sets the per-Call instruction budget, the runaway-script guard.
// DefaultBudget from the compile package is used if omitted.
func Budget(n int) Option { return func(i *Instance) { i.maxBudget = n } }

// MaxDepth sets the call-stack depth bound.
func MaxDepth(n int) Option { return func(i *Instance) { i.maxDepth = n } }

// OnInitSpecialType wires a hook invoked by init-special-type, so a host
// package (special.Manager) can register timers/triggers/consoles/sockets
// against the owning object the moment a field of that type is initialized.
func OnInitSpecialType(fn func(owner value.Value, fieldName string)) Option {
	return func(i *Instance) { i.onInitSpecialType = fn }
}

// New returns an Instance wired to the given registries.
func New(classes *class.Registry, objects *object.Arena, bi *builtins.Registry, opts ...Option) *Instance {
	i := &Instance{
		Classes:   classes,
		Objects:   objects,
		Builtins:  bi,
		Globals:   map[string]value.Value{},
		stack:     make([]value.Value, DefaultStackSize),
		maxBudget: compile.DefaultBudget,
		maxDepth:  compile.MaxCallDepth,
	}
	for _, o := range opts {
		o(i)
	}
	i.registerObjectBuiltins()
	i.registerIterationBuiltins()
	return i
}

func (i *Instance) push(v value.Value) {
	i.stack[i.sp] = v
	i.sp++
}

func (i *Instance) pop() value.Value {
	i.sp--
	return i.stack[i.sp]
}

func (i *Instance) top() value.Value {
	return i.stack[i.sp-1]
}
