package vm

import (
	"github.com/magoolation/intmud/runtimeerr"
	"github.com/magoolation/intmud/value"
)

// registerObjectBuiltins installs criar/deletar, the object-lifecycle
// built-ins: criar allocates storage (every field starts as the Null Value),
// links the object into the class list, registers its special-type fields
// and runs the class's ini function before returning; deletar marks an
// object for deletion. There is no dedicated opcode for either; scripts
// spell them as ordinary free calls, the same path tela.msg or texto.tam go
// through, so they belong in the built-in registry rather than the
// instruction set.
func (i *Instance) registerObjectBuiltins() {
	i.Builtins.Register("criar", i.builtinCriar)
	i.Builtins.Register("deletar", i.builtinDeletar)
}

// builtinCriar allocates a new instance of args[0] (a class name), runs its
// "ini" function if declared (passing the remaining arguments), and
// returns an object-ref to the new instance. The object is activated (Arena
// state Pending -> Live) only after ini returns, so a fault inside ini
// still leaves the object queryable for cleanup rather than vanishing.
func (i *Instance) builtinCriar(recv value.Value, args []value.Value) (value.Value, error) {
	if len(args) == 0 || args[0].Tag() != value.Text {
		return value.NullValue(), runtimeerr.New(runtimeerr.TypeMismatch, "", "criar", 0)
	}
	className := args[0].Text()
	unit, ok := i.Classes.Unit(className)
	if !ok {
		return value.NullValue(), runtimeerr.New(runtimeerr.UnknownMember, className, "criar", 0)
	}

	obj := i.Objects.Create(unit.ClassName, len(unit.Fields))
	ref := value.Object(obj.ID)
	if i.onInitSpecialType != nil {
		for _, f := range unit.Fields {
			if f.Type.Special() {
				i.onInitSpecialType(ref, f.Name)
			}
		}
	}

	if defUnit, fi, ok := i.Classes.ResolveFunc(unit.ClassName, "ini"); ok {
		if _, err := i.Call(defUnit, fi, ref, args[1:]); err != nil {
			return ref, err
		}
	}
	i.Objects.Activate(obj.ID)
	return ref, nil
}

// builtinDeletar marks an object for deletion: the receiver if called as
// obj.deletar(), or args[0] if called free as deletar(obj). Reaping (and
// special-type unregistration) is deferred to the Event Loop's tick
// boundary.
func (i *Instance) builtinDeletar(recv value.Value, args []value.Value) (value.Value, error) {
	target := recv
	if target.Tag() != value.ObjectRef && len(args) > 0 {
		target = args[0]
	}
	if target.Tag() == value.ObjectRef {
		i.Objects.MarkForDeletion(target.ObjectID())
	}
	return value.NullValue(), nil
}
