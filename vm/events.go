package vm

import "github.com/magoolation/intmud/value"

// InvokeHandler calls the named member function on recv if recv's class (or
// an ancestor) defines it, and is a no-op otherwise. The Event Loop and the
// Special Type Manager use this to fire the `<field>_exec`/`<field>_tecla`
// hooks: scripts are free to leave any of them undeclared, so dispatch must
// not treat "undefined" as UNKNOWN_MEMBER the way a direct script call would.
func (i *Instance) InvokeHandler(recv value.Value, name string, args []value.Value) (value.Value, error) {
	className, ok := i.receiverClass(recv)
	if !ok {
		return value.NullValue(), nil
	}
	unit, fi, ok := i.Classes.ResolveFunc(className, name)
	if !ok {
		return value.NullValue(), nil
	}
	return i.Call(unit, fi, recv, args)
}
