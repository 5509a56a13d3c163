package compile

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/magoolation/intmud/ast"
	"github.com/magoolation/intmud/internal/norm"
	"github.com/magoolation/intmud/internal/strpool"
	"github.com/magoolation/intmud/value"
)

// MaxInheritanceDepth is the cap on how deeply base classes may nest while
// a class's base chain is linearized.
const MaxInheritanceDepth = 50

// MaxCallDepth is the default VM call-stack depth.
const MaxCallDepth = 40

// DefaultBudget is the default per-handler instruction budget.
const DefaultBudget = 5000

// Resolver looks up an already-compiled Unit by canonical class name, so the
// Compiler can walk a class's base chain. The Class Registry implements
// this.
type Resolver interface {
	Unit(canonicalName string) (*Unit, bool)
}

// Error is a Compiler error. Reason distinguishes the specific compile-time
// problem.
type Error struct {
	Reason string
	Class  string
	Pos    ast.Position
}

func (e *Error) Error() string {
	return e.Pos.String() + ": " + e.Reason + " (class " + e.Class + ")"
}

func newErr(class string, pos ast.Position, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Reason: fmt.Sprintf(format, args...), Class: class, Pos: pos})
}

// Compile lowers class into a Unit, resolving its base chain through reg.
func Compile(class *ast.ClassDef, reg Resolver) (*Unit, error) {
	c := &compiler{
		class: class,
		reg:   reg,
		pool:  strpool.New(),
	}
	return c.compile()
}

type compiler struct {
	class *ast.ClassDef
	reg   Resolver
	pool  *strpool.Pool

	unit *Unit
}

func (c *compiler) compile() (*Unit, error) {
	className := string(norm.Canon(c.class.Name))

	chain, err := c.linearize(c.class.Name, map[string]bool{}, 0)
	if err != nil {
		return nil, err
	}

	u := &Unit{
		ClassName: className,
		Bases:     chain[1:], // chain[0] is this class itself
		FieldIdx:  map[string]int{},
		ConstIdx:  map[string]int{},
		FuncIdx:   map[string]int{},
		Pool:      c.pool,
	}
	c.unit = u

	if err := c.buildFieldTable(); err != nil {
		return nil, err
	}
	if err := c.buildConstTable(); err != nil {
		return nil, err
	}
	if err := c.buildFuncTable(); err != nil {
		return nil, err
	}

	return u, nil
}

// linearize walks the base chain depth-first, each base followed by its own
// bases, keeping the first occurrence of a duplicate. Returns the chain
// starting with class itself, nearest base next.
func (c *compiler) linearize(className string, onPath map[string]bool, depth int) ([]string, error) {
	if depth > MaxInheritanceDepth {
		return nil, newErr(className, c.class.Pos, "inheritance chain exceeds depth %d", MaxInheritanceDepth)
	}
	canon := string(norm.Canon(className))
	if onPath[canon] {
		return nil, newErr(className, c.class.Pos, "base-class cycle involving %s", className)
	}

	var bases []string
	if canon == string(norm.Canon(c.class.Name)) {
		bases = c.class.Bases
	} else if u, ok := c.reg.Unit(canon); ok {
		bases = u.Bases
	} else {
		return nil, newErr(className, c.class.Pos, "unresolved base class %s", className)
	}

	onPath2 := make(map[string]bool, len(onPath)+1)
	for k := range onPath {
		onPath2[k] = true
	}
	onPath2[canon] = true

	seen := map[string]bool{}
	var order []string
	for _, b := range bases {
		sub, err := c.linearize(b, onPath2, depth+1)
		if err != nil {
			return nil, err
		}
		for _, s := range sub {
			if !seen[s] {
				seen[s] = true
				order = append(order, s)
			}
		}
	}
	if !seen[canon] {
		order = append(order, canon)
	}
	return append([]string{canon}, removeSelf(order, canon)...), nil
}

func removeSelf(order []string, self string) []string {
	out := order[:0:0]
	for _, s := range order {
		if s != self {
			out = append(out, s)
		}
	}
	return out
}

// buildFieldTable copies each direct base's field table in turn (this
// class's own fields are appended last) assigning byte offsets with natural
// alignment,
// bit-packing TBool fields, and rejecting name collisions unless they are
// identical redeclarations.
func (c *compiler) buildFieldTable() error {
	type addrSpace struct {
		instanceOff int
		classOff    int
		bitOff      int
	}
	var instSpace, classSpace addrSpace

	declared := map[string]FieldInfo{}

	addField := func(f ast.Field, owner string) error {
		canon := string(norm.Canon(f.Name))
		ft, ok := parseFieldType(f.Type)
		if !ok {
			return newErr(owner, f.Pos, "unknown field type %q for field %s", f.Type, f.Name)
		}
		if prev, exists := declared[canon]; exists {
			if prev.Type == ft && prev.ArrayLen == f.ArraySize && fieldStorage(f.Storage) == prev.Storage {
				return nil // identical redeclaration: no-op
			}
			return newErr(owner, f.Pos, "field %s redeclared with a different type", f.Name)
		}
		info := FieldInfo{
			Name:       canon,
			Display:    f.Name,
			Type:       ft,
			ArrayLen:   f.ArraySize,
			BitIndex:   -1,
			Storage:    fieldStorage(f.Storage),
			OwnerClass: owner,
		}
		switch info.Storage {
		case ClassWide:
			if ft == value.TBool {
				info.BitIndex = classSpace.bitOff % 8
				if info.BitIndex == 0 {
					classSpace.classOff++ // reserve a byte lazily below
				}
				classSpace.bitOff++
			} else {
				info.Offset = classSpace.classOff
				classSpace.classOff += fieldWidth(ft, f.ArraySize)
			}
		default:
			if ft == value.TBool {
				info.BitIndex = instSpace.bitOff % 8
				if info.BitIndex == 0 {
					instSpace.instanceOff++
				}
				instSpace.bitOff++
			} else {
				info.Offset = instSpace.instanceOff
				instSpace.instanceOff += fieldWidth(ft, f.ArraySize)
			}
		}
		declared[canon] = info
		c.unit.FieldIdx[canon] = len(c.unit.Fields)
		c.unit.Fields = append(c.unit.Fields, info)
		return nil
	}

	// base classes first: a direct base's own table already lists its bases'
	// fields ahead of its own, so the result is base-first; a field reached
	// twice through a diamond is an identical redeclaration and a no-op
	for _, b := range c.class.Bases {
		base := string(norm.Canon(b))
		bu, ok := c.reg.Unit(base)
		if !ok {
			return newErr(c.unit.ClassName, c.class.Pos, "unresolved base class %s", base)
		}
		for _, f := range bu.Fields {
			label := ""
			for l, t := range fieldTypeNames {
				if t == f.Type {
					label = l
				}
			}
			astF := ast.Field{Name: f.Display, Type: label, ArraySize: f.ArrayLen, Storage: storageToAst(f.Storage)}
			if err := addField(astF, f.OwnerClass); err != nil {
				return err
			}
		}
	}
	for _, f := range c.class.Fields {
		if err := addField(*f, c.unit.ClassName); err != nil {
			return err
		}
	}

	c.unit.InstanceSize = instSpace.instanceOff
	c.unit.ClassSize = classSpace.classOff
	return nil
}

func fieldWidth(t value.FieldType, arrayLen int) int {
	w := t.Size()
	if w == 0 {
		w = 8 // variable-capacity fields (text, handles, ...) store a reference-sized slot inline
	}
	if arrayLen > 0 {
		return w * arrayLen
	}
	return w
}

func fieldStorage(s ast.StorageClass) StorageClass {
	switch s {
	case ast.ClassWide:
		return ClassWide
	case ast.Persisted:
		return Persisted
	default:
		return Instance
	}
}

func storageToAst(s StorageClass) ast.StorageClass {
	switch s {
	case ClassWide:
		return ast.ClassWide
	case Persisted:
		return ast.Persisted
	default:
		return ast.Instance
	}
}

// buildConstTable folds int/real constants inline, interns text constants,
// and stores the bytecode of expression constants for lazy evaluation.
func (c *compiler) buildConstTable() error {
	for _, base := range c.unit.Bases {
		bu, ok := c.reg.Unit(base)
		if !ok {
			continue
		}
		for _, ci := range bu.Consts {
			if _, exists := c.unit.ConstIdx[ci.Name]; !exists {
				c.unit.ConstIdx[ci.Name] = len(c.unit.Consts)
				c.unit.Consts = append(c.unit.Consts, ci)
			}
		}
	}
	for _, cst := range c.class.Consts {
		canon := string(norm.Canon(cst.Name))
		info := ConstInfo{Name: canon}
		switch cst.Kind {
		case ast.ConstNull:
			info.Kind = ConstNull
		case ast.ConstInt:
			info.Kind = ConstInt
			info.Int = cst.Int
		case ast.ConstReal:
			info.Kind = ConstReal
			info.Real = cst.Real
		case ast.ConstText:
			info.Kind = ConstText
			info.Text = cst.Text
		case ast.ConstExpr:
			info.Kind = ConstExpr
			em := NewEmitter()
			fc := &funcCompiler{compiler: c, em: em, locals: map[string]int{}}
			if err := fc.expr(cst.Expr); err != nil {
				return err
			}
			em.ReturnValue()
			info.Code = em.Bytes()
		}
		if i, exists := c.unit.ConstIdx[canon]; exists {
			c.unit.Consts[i] = info
		} else {
			c.unit.ConstIdx[canon] = len(c.unit.Consts)
			c.unit.Consts = append(c.unit.Consts, info)
		}
	}
	return nil
}

// buildFuncTable lowers every function body to bytecode.
func (c *compiler) buildFuncTable() error {
	for _, base := range c.unit.Bases {
		bu, ok := c.reg.Unit(base)
		if !ok {
			continue
		}
		for _, fi := range bu.Funcs {
			if _, exists := c.unit.FuncIdx[fi.Name]; !exists {
				// Inherited functions are dispatched by re-reading the
				// defining class's own bytecode at VM call time. fi.Start/End
				// only make sense against fi.DefiningClass's Code buffer, so
				// that field is carried through unchanged rather than
				// rewritten to this unit.
				c.unit.FuncIdx[fi.Name] = len(c.unit.Funcs)
				c.unit.Funcs = append(c.unit.Funcs, fi)
			}
		}
	}
	for _, fn := range c.class.Funcs {
		info, err := c.compileFunc(fn)
		if err != nil {
			return err
		}
		canon := string(norm.Canon(fn.Name))
		if i, exists := c.unit.FuncIdx[canon]; exists {
			c.unit.Funcs[i] = info
		} else {
			c.unit.FuncIdx[canon] = len(c.unit.Funcs)
			c.unit.Funcs = append(c.unit.Funcs, info)
		}
	}
	return nil
}

func (c *compiler) compileFunc(fn *ast.Function) (FuncInfo, error) {
	em := NewEmitter()
	fc := &funcCompiler{compiler: c, em: em, locals: map[string]int{}}

	start := len(c.unit.Code)
	// funcCompiler emits into its own em, then we splice at a known start
	// offset so FuncInfo.Start/End index into the unit-wide Code buffer, a
	// single flat buffer addressed by absolute pc.
	if err := fc.block(fn.Body); err != nil {
		return FuncInfo{}, err
	}
	fc.em.Return()

	c.unit.Code = append(c.unit.Code, fc.em.Bytes()...)
	end := len(c.unit.Code)

	return FuncInfo{
		Name:          string(norm.Canon(fn.Name)),
		Kind:          funcKind(fn.Kind),
		Start:         start,
		End:           end,
		Locals:        len(fc.order),
		DefiningClass: c.unit.ClassName,
	}, nil
}

func funcKind(k ast.FuncKind) FuncKind {
	if k == ast.FuncData {
		return FuncData
	}
	return FuncNormal
}
