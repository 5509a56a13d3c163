// Package class implements the Class Registry: the canonical name to
// compile.Unit map the Compiler consults to resolve base classes, and the
// home of the topological compile order the Loader must follow (a class's
// bases must already be registered before it compiles).
package class

import (
	"github.com/pkg/errors"

	"github.com/magoolation/intmud/ast"
	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/internal/norm"
	"github.com/magoolation/intmud/value"
)

// Registry maps canonical class names to their compiled Unit and implements
// compile.Resolver.
type Registry struct {
	units map[string]*compile.Unit

	// classFields holds storage for ClassWide fields, one slice per class
	// indexed the same way an instance's Object.Fields is (by position in
	// Unit.Fields); only the positions a ClassWide FieldInfo occupies are
	// ever read or written. Class-wide storage therefore lives on the
	// Registry rather than on any one instance, since a class-wide address
	// space is shared across all instances of a class.
	classFields map[string][]value.Value
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{units: map[string]*compile.Unit{}, classFields: map[string][]value.Value{}}
}

// ClassFields returns the class-wide field storage for canonicalName,
// allocating it on first use.
func (r *Registry) ClassFields(canonicalName string) []value.Value {
	canon := string(norm.Canon(canonicalName))
	fields, ok := r.classFields[canon]
	if !ok {
		u, ok := r.Unit(canon)
		n := 0
		if ok {
			n = len(u.Fields)
		}
		fields = make([]value.Value, n)
		r.classFields[canon] = fields
	}
	return fields
}

// Unit implements compile.Resolver.
func (r *Registry) Unit(canonicalName string) (*compile.Unit, bool) {
	u, ok := r.units[string(norm.Canon(canonicalName))]
	return u, ok
}

// Has reports whether canonicalName is already registered.
func (r *Registry) Has(canonicalName string) bool {
	_, ok := r.units[string(norm.Canon(canonicalName))]
	return ok
}

// Register compiles class against r (so its bases resolve through the
// classes already registered) and adds the result under its canonical name,
// replacing any previous definition. Every hot-reloaded class takes this
// path, whether or not its field layout changed.
func (r *Registry) Register(class *ast.ClassDef) (*compile.Unit, error) {
	u, err := compile.Compile(class, r)
	if err != nil {
		return nil, errors.Wrapf(err, "class: compiling %s", class.Name)
	}
	r.units[u.ClassName] = u
	return u, nil
}

// Remove deletes a class's Unit entirely. The hot-reload path does not call
// it: when existing instances cannot migrate, loader.Reload re-registers the
// class and marks those instances for deletion.
func (r *Registry) Remove(canonicalName string) {
	delete(r.units, string(norm.Canon(canonicalName)))
}

// Linearized returns the canonical names of canonicalName and its full base
// chain, most-derived first: the class itself, then compile.Unit.Bases in
// the order it already records them (nearest base first).
func (r *Registry) Linearized(canonicalName string) ([]string, bool) {
	u, ok := r.Unit(canonicalName)
	if !ok {
		return nil, false
	}
	chain := make([]string, 0, len(u.Bases)+1)
	chain = append(chain, u.ClassName)
	chain = append(chain, u.Bases...)
	return chain, true
}

// IsA reports whether instanceClass is canonicalClass or inherits from it.
func (r *Registry) IsA(instanceClass, canonicalClass string) bool {
	target := string(norm.Canon(canonicalClass))
	chain, ok := r.Linearized(instanceClass)
	if !ok {
		return false
	}
	for _, c := range chain {
		if c == target {
			return true
		}
	}
	return false
}

// ResolveFunc walks instanceClass's linearized chain looking for a class
// that declares funcName itself or inherits it, returning the Unit whose
// Code buffer FuncInfo.Start/End actually index into (FuncInfo.DefiningClass)
// so the VM can splice in the right bytecode regardless of which subclass
// the receiver actually is.
func (r *Registry) ResolveFunc(instanceClass, funcName string) (*compile.Unit, compile.FuncInfo, bool) {
	canon := string(norm.Canon(funcName))
	chain, ok := r.Linearized(instanceClass)
	if !ok {
		return nil, compile.FuncInfo{}, false
	}
	for _, className := range chain {
		u, ok := r.Unit(className)
		if !ok {
			continue
		}
		if fi, ok := u.Func(canon); ok {
			owner, ok := r.Unit(fi.DefiningClass)
			if ok {
				return owner, fi, true
			}
		}
	}
	return nil, compile.FuncInfo{}, false
}
