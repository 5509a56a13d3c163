// Package value implements the runtime's tagged Value union and the typed
// field-storage tags fields declare. Every stack slot and every field
// carries a type tag: the Script Language is dynamically but not untyped, so
// a Value always knows whether it holds an int, a double, text, or a
// reference.
package value

import (
	"fmt"
	"strconv"
)

// Tag identifies which alternative of Value is populated.
type Tag uint8

const (
	// Null is the zero Tag so a zero Value is already a valid null.
	Null Tag = iota
	Int
	Double
	Text
	ObjectRef
	ClassRef
	ListIterator
)

func (t Tag) String() string {
	switch t {
	case Null:
		return "null"
	case Int:
		return "int"
	case Double:
		return "double"
	case Text:
		return "text"
	case ObjectRef:
		return "object-ref"
	case ClassRef:
		return "class-ref"
	case ListIterator:
		return "list-iterator"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// ObjectID is a stable, monotonic object identifier. Zero is never a valid
// live id; it is reserved to mean "no object" inside a Value tagged
// ObjectRef that has gone null.
type ObjectID uint64

// Iterator is the cursor state carried by a list-iterator Value: which list
// instance it walks and its current position within it.
type Iterator struct {
	List ObjectID
	Pos  int
}

// Value is the VM's tagged union. The zero Value is Null.
type Value struct {
	tag   Tag
	i     int64
	f     float64
	s     string
	obj   ObjectID
	class string
	iter  Iterator
}

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// Int64 returns an Int-tagged Value.
func Int64(v int64) Value { return Value{tag: Int, i: v} }

// Float64 returns a Double-tagged Value.
func Float64(v float64) Value { return Value{tag: Double, f: v} }

// Str returns a Text-tagged Value.
func Str(v string) Value { return Value{tag: Text, s: v} }

// Bool returns an Int-tagged Value of 0 or 1, the representation the
// language uses for booleans.
func Bool(v bool) Value {
	if v {
		return Int64(1)
	}
	return Int64(0)
}

// Object returns an ObjectRef-tagged Value. An id of 0 denotes a null
// reference (e.g. after the referenced object was reaped).
func Object(id ObjectID) Value { return Value{tag: ObjectRef, obj: id} }

// Class returns a ClassRef-tagged Value naming a canonical class name.
func Class(canonicalName string) Value { return Value{tag: ClassRef, class: canonicalName} }

// ListIter returns a ListIterator-tagged Value.
func ListIter(it Iterator) Value { return Value{tag: ListIterator, iter: it} }

// Tag returns v's tag.
func (v Value) Tag() Tag { return v.tag }

// Int returns the integer payload; valid only when Tag() == Int.
func (v Value) Int() int64 { return v.i }

// Double returns the float payload; valid only when Tag() == Double.
func (v Value) Double() float64 { return v.f }

// Text returns the string payload; valid only when Tag() == Text.
func (v Value) Text() string { return v.s }

// ObjectID returns the object-ref payload; valid only when Tag() == ObjectRef.
func (v Value) ObjectID() ObjectID { return v.obj }

// ClassName returns the class-ref payload; valid only when Tag() == ClassRef.
func (v Value) ClassName() string { return v.class }

// Iterator returns the list-iterator payload; valid only when
// Tag() == ListIterator.
func (v Value) Iterator() Iterator { return v.iter }

// Truthy implements the language's truthiness rule: null and zero-valued
// numerics are false; nonempty text is true; any non-null reference is true.
func (v Value) Truthy() bool {
	switch v.tag {
	case Null:
		return false
	case Int:
		return v.i != 0
	case Double:
		return v.f != 0
	case Text:
		return v.s != ""
	case ObjectRef:
		return v.obj != 0
	case ClassRef:
		return v.class != ""
	case ListIterator:
		return v.iter.List != 0
	default:
		return false
	}
}

// AsFloat coerces an Int or Double Value to float64, for mixed-type
// arithmetic promotion. It panics for non-numeric tags; callers must check
// the tag (or use Numeric) before calling.
func (v Value) AsFloat() float64 {
	switch v.tag {
	case Int:
		return float64(v.i)
	case Double:
		return v.f
	default:
		panic("value: AsFloat on non-numeric Value")
	}
}

// Numeric reports whether v holds Int or Double.
func (v Value) Numeric() bool {
	return v.tag == Int || v.tag == Double
}

// String renders v the way the `+` operator's implicit text coercion does:
// an int renders with no fractional part, a double always keeps at least
// one fractional digit, e.g. "x=" + 1 + 0.5 -> "x=10.5".
func (v Value) String() string {
	switch v.tag {
	case Null:
		return ""
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Double:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		for i := 0; i < len(s); i++ {
			if s[i] == '.' {
				return s
			}
		}
		return s + ".0"
	case Text:
		return v.s
	case ObjectRef:
		return "#" + strconv.FormatUint(uint64(v.obj), 10)
	case ClassRef:
		return v.class
	case ListIterator:
		return fmt.Sprintf("#%d@%d", v.iter.List, v.iter.Pos)
	default:
		return ""
	}
}

// Equal implements normalized equality for `eq`/`ne`: text compares via the
// language's name-normalizing fold unless strict is requested, everything
// else compares structurally. StrictEqual implements `eq-type`/`ne-type`,
// which additionally requires the two tags to match.
func Equal(a, b Value, normalize func(string) string) bool {
	if a.tag == Text && b.tag == Text {
		if normalize != nil {
			return normalize(a.s) == normalize(b.s)
		}
		return a.s == b.s
	}
	if a.Numeric() && b.Numeric() {
		return a.AsFloat() == b.AsFloat()
	}
	return StrictEqual(a, b)
}

// StrictEqual requires a and b to share a tag and compares the payload
// directly; used by `eq-type`/`ne-type`.
func StrictEqual(a, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case Null:
		return true
	case Int:
		return a.i == b.i
	case Double:
		return a.f == b.f
	case Text:
		return a.s == b.s
	case ObjectRef:
		return a.obj == b.obj
	case ClassRef:
		return a.class == b.class
	case ListIterator:
		return a.iter == b.iter
	default:
		return false
	}
}
