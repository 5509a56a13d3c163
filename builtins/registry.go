// Package builtins implements the built-in function registry the VM falls
// back to once a call name resolves against neither a local function nor a
// class member. It is a small, host-supplied table of names to Go
// functions, looked up by string since the Script Language calls built-ins
// by name.
package builtins

import (
	"github.com/pkg/errors"

	"github.com/magoolation/intmud/value"
)

// Func is a built-in implementation. recv is the Null Value for a free call
// (Call.Recv == nil); otherwise it is the call-method receiver.
type Func func(recv value.Value, args []value.Value) (value.Value, error)

// Registry maps canonical built-in names to their implementation.
type Registry struct {
	funcs map[string]Func
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

// Register adds or replaces the built-in named name (already canonical).
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Call invokes the built-in named name. It is the caller's job to have
// already checked Has, or to treat an UnknownMember-shaped error from the
// returned error as the "no such built-in either" case.
func (r *Registry) Call(name string, recv value.Value, args []value.Value) (value.Value, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return value.NullValue(), errors.Errorf("builtins: unknown built-in %q", name)
	}
	return fn(recv, args)
}
