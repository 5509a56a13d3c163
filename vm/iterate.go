package vm

import "github.com/magoolation/intmud/value"

// registerIterationBuiltins overrides the @iterator/@has-next/@next/@advance
// stand-ins builtins.RegisterStandard installs with versions bound to this
// Instance's Object Arena, registered alongside the criar/deletar that
// registerObjectBuiltins installs: these names only make sense with a live
// Arena behind them, so the builtins package itself cannot implement them.
func (i *Instance) registerIterationBuiltins() {
	i.Builtins.Register("@iterator", i.builtinIterator)
	i.Builtins.Register("@has-next", i.builtinHasNext)
	i.Builtins.Register("@next", i.builtinNext)
	i.Builtins.Register("@advance", i.builtinAdvance)
}

// builtinIterator starts a ForEach cursor over recv. The only iterable
// receiver today is a class reference (`Nome:`), walking the Object Arena's
// per-class intrusive list (object.Arena.Head); any other receiver yields an
// already-exhausted cursor.
func (i *Instance) builtinIterator(recv value.Value, args []value.Value) (value.Value, error) {
	if recv.Tag() != value.ClassRef {
		return value.ListIter(value.Iterator{}), nil
	}
	return value.ListIter(value.Iterator{List: i.Objects.Head(recv.ClassName())}), nil
}

// builtinHasNext reports whether a cursor still has an object to visit.
func (i *Instance) builtinHasNext(recv value.Value, args []value.Value) (value.Value, error) {
	return value.Bool(recv.Tag() == value.ListIterator && recv.Iterator().List != 0), nil
}

// builtinNext returns the object a cursor currently stands on. The cursor
// itself only moves on @advance (called separately, at the bottom of
// compile/funcbody.go's forEachStmt loop), so a handler that deletes the
// object @next just handed it does not disturb this iteration's element.
func (i *Instance) builtinNext(recv value.Value, args []value.Value) (value.Value, error) {
	if recv.Tag() != value.ListIterator {
		return value.NullValue(), nil
	}
	return value.Object(recv.Iterator().List), nil
}

// builtinAdvance returns a cursor standing on the next visitable object
// after recv's current one, skipping anything deleted since @next was
// called (object.Arena.Next).
func (i *Instance) builtinAdvance(recv value.Value, args []value.Value) (value.Value, error) {
	if recv.Tag() != value.ListIterator {
		return value.ListIter(value.Iterator{}), nil
	}
	return value.ListIter(value.Iterator{List: i.Objects.Next(recv.Iterator().List)}), nil
}
