package vm

import (
	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/internal/norm"
	"github.com/magoolation/intmud/runtimeerr"
	"github.com/magoolation/intmud/value"
)

// fieldSlots returns the field-storage slice field-table position idx
// indexes into for recv: for an ObjectRef, the object's own Fields, or its
// class's shared class-wide storage when the field at idx is declared
// classwide; for a ClassRef, the class-wide storage. Class-wide storage is
// kept on class.Registry.ClassFields since there is no single class
// instance to hang it off.
func (i *Instance) fieldSlots(recv value.Value, idx int) ([]value.Value, string, error) {
	switch recv.Tag() {
	case value.ObjectRef:
		obj, ok := i.Objects.Get(recv.ObjectID())
		if !ok {
			return nil, "", runtimeerr.New(runtimeerr.NullReceiver, "", "", 0)
		}
		if u, ok := i.Classes.Unit(obj.Class); ok && idx >= 0 && idx < len(u.Fields) && u.Fields[idx].Storage == compile.ClassWide {
			return i.Classes.ClassFields(obj.Class), obj.Class, nil
		}
		return obj.Fields, obj.Class, nil
	case value.ClassRef:
		return i.Classes.ClassFields(recv.ClassName()), recv.ClassName(), nil
	default:
		return nil, "", runtimeerr.New(runtimeerr.NullReceiver, "", "", 0)
	}
}

// loadFieldAt reads the field at table position idx, used by OpLoadField
// where the compiler already resolved the position at compile time against
// the implicit `this`.
func (i *Instance) loadFieldAt(recv value.Value, idx int) (value.Value, error) {
	slots, class, err := i.fieldSlots(recv, idx)
	if err != nil {
		return value.NullValue(), err
	}
	if idx < 0 || idx >= len(slots) {
		return value.NullValue(), runtimeerr.New(runtimeerr.UnknownMember, class, "", 0)
	}
	return slots[idx], nil
}

// storeFieldAt writes val to the field at table position idx, truncating an
// integer to the field's declared width (value.TruncateInt). For
// store-field, the no-pop store convention (compile.Op's doc comment) leaves
// the untruncated val on the operand stack; this only mutates storage.
func (i *Instance) storeFieldAt(recv value.Value, idx int, val value.Value) error {
	slots, class, err := i.fieldSlots(recv, idx)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(slots) {
		return runtimeerr.New(runtimeerr.UnknownMember, class, "", 0)
	}
	if u, ok := i.Classes.Unit(class); ok && idx < len(u.Fields) && val.Tag() == value.Int {
		val = value.Int64(value.TruncateInt(u.Fields[idx].Type, val.Int()))
	}
	slots[idx] = val
	return nil
}

// loadFieldByName resolves a field name against recv's class (OpLoadFieldDynamic:
// an explicit receiver, a ClassRef, or a genuinely computed name) and then
// delegates to loadFieldAt, so a dynamic lookup and a this-relative lookup
// land in the exact same storage regardless of which opcode drove them.
func (i *Instance) loadFieldByName(recv value.Value, name string) (value.Value, error) {
	idx, err := i.resolveFieldIdx(recv, name)
	if err != nil {
		return value.NullValue(), err
	}
	return i.loadFieldAt(recv, idx)
}

func (i *Instance) storeFieldByName(recv value.Value, name string, val value.Value) error {
	idx, err := i.resolveFieldIdx(recv, name)
	if err != nil {
		return err
	}
	return i.storeFieldAt(recv, idx, val)
}

// resolveFieldIdx resolves name (e.g. the field.Member dynamic-name form, or
// a genuinely computed `prefix[expr]suffix` DynamicName) into a field-table
// position. name arrives exactly as the script built it, so it must be
// canonicalized the same way every statically-known field name already is
// at compile time before it can match compile.Unit.FieldIdx's canonical
// keys.
func (i *Instance) resolveFieldIdx(recv value.Value, name string) (int, error) {
	canon := string(norm.Canon(name))
	var className string
	switch recv.Tag() {
	case value.ObjectRef:
		obj, ok := i.Objects.Get(recv.ObjectID())
		if !ok {
			return 0, runtimeerr.New(runtimeerr.NullReceiver, "", "", 0)
		}
		className = obj.Class
	case value.ClassRef:
		className = recv.ClassName()
	default:
		return 0, runtimeerr.New(runtimeerr.NullReceiver, "", "", 0)
	}
	u, ok := i.Classes.Unit(className)
	if !ok {
		return 0, runtimeerr.New(runtimeerr.UnknownMember, className, canon, 0)
	}
	fi, ok := u.Field(canon)
	if !ok {
		return 0, runtimeerr.New(runtimeerr.UnknownMember, className, canon, 0)
	}
	return u.FieldIdx[fi.Name], nil
}
