// Package object implements the Object Arena: the table of live
// script-language object instances, keyed by a stable monotonic id, and
// their class-linked lifecycle. One flat backing store addressed by a small
// integer handle, with a binary.LittleEndian image load/save format for
// dumping and restoring live instances.
//
// Field storage is kept as a typed []value.Value slot per field-table
// position rather than the packed byte layout compile.FieldInfo describes:
// compile.Unit's offset/bit-packing bookkeeping exists to match the
// documented Compiled Unit shape, but the interpreter addresses fields by
// table position, so the Arena can lean on value.Value's own type safety
// instead of hand-rolled binary encoding for every field kind.
package object

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/magoolation/intmud/value"
)

// State is an object's position in its lifecycle.
type State uint8

const (
	// Pending is set the tick an object is created; its constructor has not
	// yet run to completion.
	Pending State = iota
	Live
	MarkedForDeletion
	Reaped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Live:
		return "live"
	case MarkedForDeletion:
		return "marked-for-deletion"
	case Reaped:
		return "reaped"
	default:
		return "state(?)"
	}
}

// Object is one live instance: a class, its instance storage, and its place
// in that class's intrusive linked list, which lets `para-cada` over a class
// enumerate its instances without a secondary index.
type Object struct {
	ID    value.ObjectID
	Class string // canonical class name
	State State

	Fields []value.Value // one slot per compile.Unit.Fields position

	prev, next value.ObjectID // class-linked list neighbors; 0 means none
}

// Arena owns every live (and not-yet-reaped) object.
type Arena struct {
	objects map[value.ObjectID]*Object
	nextID  value.ObjectID

	// head/tail of each class's intrusive linked list, by canonical class
	// name, so iteration order matches creation order within a class.
	head map[string]value.ObjectID
	tail map[string]value.ObjectID

	pendingReap []value.ObjectID
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{
		objects: map[value.ObjectID]*Object{},
		head:    map[string]value.ObjectID{},
		tail:    map[string]value.ObjectID{},
	}
}

// Create allocates a new object of class, in Pending state, with fieldCount
// null-initialized field slots, and links it to the tail of its class's
// list.
func (a *Arena) Create(class string, fieldCount int) *Object {
	a.nextID++
	obj := &Object{
		ID:     a.nextID,
		Class:  class,
		State:  Pending,
		Fields: make([]value.Value, fieldCount),
	}
	a.objects[obj.ID] = obj
	a.linkTail(obj)
	return obj
}

func (a *Arena) linkTail(obj *Object) {
	if tail, ok := a.tail[obj.Class]; ok {
		a.objects[tail].next = obj.ID
		obj.prev = tail
	} else {
		a.head[obj.Class] = obj.ID
	}
	a.tail[obj.Class] = obj.ID
}

func (a *Arena) unlink(obj *Object) {
	if obj.prev != 0 {
		a.objects[obj.prev].next = obj.next
	} else {
		a.head[obj.Class] = obj.next
	}
	if obj.next != 0 {
		a.objects[obj.next].prev = obj.prev
	} else {
		a.tail[obj.Class] = obj.prev
	}
}

// Get looks up a live object by id. It returns ok == false for an unknown,
// reaped, or zero id, so callers holding a stale ObjectRef Value see the
// reference as having gone null rather than panicking.
func (a *Arena) Get(id value.ObjectID) (*Object, bool) {
	if id == 0 {
		return nil, false
	}
	obj, ok := a.objects[id]
	if !ok || obj.State == Reaped {
		return nil, false
	}
	return obj, true
}

// Activate transitions a Pending object to Live once its constructor
// finishes.
func (a *Arena) Activate(id value.ObjectID) {
	if obj, ok := a.Get(id); ok {
		obj.State = Live
	}
}

// MarkForDeletion flags obj for reaping at the next tick boundary rather
// than deleting it immediately mid-tick, so a handler iterating a class's
// object list never observes a mutation underfoot.
func (a *Arena) MarkForDeletion(id value.ObjectID) {
	obj, ok := a.Get(id)
	if !ok || obj.State == MarkedForDeletion {
		return
	}
	obj.State = MarkedForDeletion
	a.pendingReap = append(a.pendingReap, id)
}

// Reap finalizes every object marked for deletion since the last Reap call:
// unlinks it from its class's list and frees the id for GC. The id itself is
// never reused.
func (a *Arena) Reap() []value.ObjectID {
	reaped := a.pendingReap
	a.pendingReap = nil
	for _, id := range reaped {
		obj := a.objects[id]
		a.unlink(obj)
		obj.State = Reaped
		delete(a.objects, id)
	}
	return reaped
}

// Each calls fn for every live object of class, in class-linked-list order.
// fn may itself call MarkForDeletion without disturbing the walk, since
// unlinking is deferred to Reap.
func (a *Arena) Each(class string, fn func(*Object)) {
	id := a.head[class]
	for id != 0 {
		obj := a.objects[id]
		next := obj.next
		if obj.State != Reaped {
			fn(obj)
		}
		id = next
	}
}

// visitable reports whether obj should be visible to a ForEach-style walk:
// everything short of marked-for-deletion or reaped. Each is looser: it
// skips only reaped objects, so it still visits marked-for-deletion ones.
func visitable(obj *Object) bool {
	return obj.State != MarkedForDeletion && obj.State != Reaped
}

// Head returns the first visitable object id in class's intrusive list, the
// starting cursor position a ForEach's @iterator built-in hands back. It
// returns 0 for an empty or all-deleted class.
func (a *Arena) Head(class string) value.ObjectID {
	id := a.head[class]
	for id != 0 {
		obj, ok := a.objects[id]
		if !ok {
			return 0
		}
		if visitable(obj) {
			return id
		}
		id = obj.next
	}
	return 0
}

// Next returns the next visitable object id after id within its class's
// intrusive list, or 0 if none remain. Together with Head this lets a
// ForEach cursor step one object at a time across separate @has-next/@next
// calls rather than needing the whole walk in one Go closure the way Each
// does; an object marked for deletion after the cursor already passed it is
// simply skipped, the same "deleting mid-iteration skips it" guarantee Each
// gives a caller that deletes the object it was just handed.
func (a *Arena) Next(id value.ObjectID) value.ObjectID {
	obj, ok := a.objects[id]
	if !ok {
		return 0
	}
	next := obj.next
	for next != 0 {
		nobj, ok := a.objects[next]
		if !ok {
			return 0
		}
		if visitable(nobj) {
			return next
		}
		next = nobj.next
	}
	return 0
}

// Len reports the number of objects currently tracked, live or pending reap.
func (a *Arena) Len() int { return len(a.objects) }

const imageMagic = "IMUD"

// Save writes a binary snapshot of every live object: a small header
// followed by one record per object (id, class name, state, field values),
// little-endian throughout.
func (a *Arena) Save(w io.Writer) error {
	if _, err := w.Write([]byte(imageMagic)); err != nil {
		return errors.Wrap(err, "object: write image header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(a.nextID)); err != nil {
		return errors.Wrap(err, "object: write next id")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(a.objects))); err != nil {
		return errors.Wrap(err, "object: write object count")
	}
	for _, obj := range a.objects {
		if err := writeObject(w, obj); err != nil {
			return err
		}
	}
	return nil
}

func writeObject(w io.Writer, obj *Object) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(obj.ID)); err != nil {
		return errors.Wrap(err, "object: write id")
	}
	if err := writeString(w, obj.Class); err != nil {
		return errors.Wrap(err, "object: write class")
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(obj.State)); err != nil {
		return errors.Wrap(err, "object: write state")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(obj.Fields))); err != nil {
		return errors.Wrap(err, "object: write field count")
	}
	for _, v := range obj.Fields {
		if err := writeValue(w, v); err != nil {
			return errors.Wrap(err, "object: write field")
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// writeValue/readValue give the Arena a self-contained image format for
// value.Value without making the value package know about serialization.
func writeValue(w io.Writer, v value.Value) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(v.Tag())); err != nil {
		return err
	}
	switch v.Tag() {
	case value.Null:
	case value.Int:
		return binary.Write(w, binary.LittleEndian, v.Int())
	case value.Double:
		return binary.Write(w, binary.LittleEndian, v.Double())
	case value.Text:
		return writeString(w, v.Text())
	case value.ObjectRef:
		return binary.Write(w, binary.LittleEndian, uint64(v.ObjectID()))
	case value.ClassRef:
		return writeString(w, v.ClassName())
	case value.ListIterator:
		it := v.Iterator()
		if err := binary.Write(w, binary.LittleEndian, uint64(it.List)); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint32(it.Pos))
	}
	return nil
}

func readValue(r io.Reader) (value.Value, error) {
	var tag uint8
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return value.Value{}, err
	}
	switch value.Tag(tag) {
	case value.Null:
		return value.NullValue(), nil
	case value.Int:
		var i int64
		if err := binary.Read(r, binary.LittleEndian, &i); err != nil {
			return value.Value{}, err
		}
		return value.Int64(i), nil
	case value.Double:
		var f float64
		if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
			return value.Value{}, err
		}
		return value.Float64(f), nil
	case value.Text:
		s, err := readString(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Str(s), nil
	case value.ObjectRef:
		var id uint64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return value.Value{}, err
		}
		return value.Object(value.ObjectID(id)), nil
	case value.ClassRef:
		s, err := readString(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Class(s), nil
	case value.ListIterator:
		var list uint64
		if err := binary.Read(r, binary.LittleEndian, &list); err != nil {
			return value.Value{}, err
		}
		var pos uint32
		if err := binary.Read(r, binary.LittleEndian, &pos); err != nil {
			return value.Value{}, err
		}
		return value.ListIter(value.Iterator{List: value.ObjectID(list), Pos: int(pos)}), nil
	default:
		return value.Value{}, errors.Errorf("object: unknown value tag %d in image", tag)
	}
}

// Load replaces the Arena's contents with a snapshot written by Save.
// Objects load as Live regardless of the state they were saved in, since a
// Pending object mid-construction or one only MarkedForDeletion both settle
// to a definite post-reload state the event loop will re-evaluate on its
// next tick.
func (a *Arena) Load(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return errors.Wrap(err, "object: read image header")
	}
	if string(magic[:]) != imageMagic {
		return errors.Errorf("object: bad image magic %q", magic)
	}
	var nextID uint64
	if err := binary.Read(r, binary.LittleEndian, &nextID); err != nil {
		return errors.Wrap(err, "object: read next id")
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return errors.Wrap(err, "object: read object count")
	}

	a.objects = map[value.ObjectID]*Object{}
	a.head = map[string]value.ObjectID{}
	a.tail = map[string]value.ObjectID{}
	a.nextID = value.ObjectID(nextID)

	for i := uint32(0); i < count; i++ {
		obj, err := readObject(r)
		if err != nil {
			return err
		}
		obj.State = Live
		a.objects[obj.ID] = obj
		a.linkTail(obj)
	}
	return nil
}

func readObject(r io.Reader) (*Object, error) {
	var id uint64
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return nil, errors.Wrap(err, "object: read id")
	}
	class, err := readString(r)
	if err != nil {
		return nil, errors.Wrap(err, "object: read class")
	}
	var state uint8
	if err := binary.Read(r, binary.LittleEndian, &state); err != nil {
		return nil, errors.Wrap(err, "object: read state")
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, errors.Wrap(err, "object: read field count")
	}
	fields := make([]value.Value, n)
	for i := range fields {
		v, err := readValue(r)
		if err != nil {
			return nil, errors.Wrap(err, "object: read field")
		}
		fields[i] = v
	}
	return &Object{ID: value.ObjectID(id), Class: class, State: State(state), Fields: fields}, nil
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
