package loader

import (
	"github.com/sirupsen/logrus"

	"github.com/magoolation/intmud/ast"
	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/object"
)

// Reload recompiles a single class already tracked by the Loader's registry
// as the hot-reload path, and decides the fate of its live instances: if
// the new field-layout signature matches the old one exactly, existing
// objects carry forward untouched (their Fields slice already has the
// right shape and positions); otherwise every live instance of the class
// is marked for deletion, to be reaped at the next tick boundary.
func (l *Loader) Reload(cls *ast.ClassDef, objects *object.Arena) error {
	var oldFields []compile.FieldInfo
	if old, ok := l.Classes.Unit(cls.Name); ok {
		oldFields = old.Fields
	}

	u, err := l.Classes.Register(cls)
	if err != nil {
		l.Log.WithField("class", cls.Name).WithError(err).Error("hot reload: compile failed")
		return err
	}

	if oldFields != nil && !sameLayout(oldFields, u.Fields) {
		var marked int
		objects.Each(u.ClassName, func(o *object.Object) {
			objects.MarkForDeletion(o.ID)
			marked++
		})
		l.Log.WithFields(logrus.Fields{
			"class": cls.Name, "marked_for_deletion": marked,
		}).Warn("hot reload: field layout changed, live instances will not migrate")
	}
	return nil
}

// sameLayout reports whether two field tables assign the same name, type,
// array length and storage class at the same table position, the signature
// Reload uses to decide whether live objects can carry their existing
// Fields slice forward unchanged.
func sameLayout(a, b []compile.FieldInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Type != b[i].Type ||
			a[i].ArrayLen != b[i].ArrayLen || a[i].Storage != b[i].Storage {
			return false
		}
	}
	return true
}
