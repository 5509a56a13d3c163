package vm

import (
	"github.com/magoolation/intmud/runtimeerr"
	"github.com/magoolation/intmud/value"
)

// dispatch resolves a call by name against recv (for a free call, the
// caller's this when its class chain defines name, otherwise the Null
// Value) and runs it: first against the receiver's class chain via
// class.Registry.ResolveFunc, then falling back to the built-in registry.
// Script-defined methods shadow built-ins of the same name.
func (i *Instance) dispatch(recv value.Value, name string, args []value.Value) (value.Value, error) {
	className, ok := i.receiverClass(recv)
	if ok {
		if unit, fi, ok := i.Classes.ResolveFunc(className, name); ok {
			return i.Call(unit, fi, recv, args)
		}
	}
	if i.Builtins.Has(name) {
		v, err := i.Builtins.Call(name, recv, args)
		if err != nil {
			if fe, ok := runtimeerr.As(err); ok {
				return value.NullValue(), fe
			}
			return value.NullValue(), runtimeerr.Wrap(err, runtimeerr.UnknownMember, className, name, 0)
		}
		return v, nil
	}
	return value.NullValue(), runtimeerr.New(runtimeerr.UnknownMember, className, name, 0)
}

// receiverClass returns the canonical class name to resolve name against:
// an object's own class, a class-ref's named class, or false for a Null
// receiver (a free call with no implicit this, e.g. top-level script code),
// which skips straight to the built-in registry.
func (i *Instance) receiverClass(recv value.Value) (string, bool) {
	switch recv.Tag() {
	case value.ObjectRef:
		obj, ok := i.Objects.Get(recv.ObjectID())
		if !ok {
			return "", false
		}
		return obj.Class, true
	case value.ClassRef:
		return recv.ClassName(), true
	default:
		return "", false
	}
}
