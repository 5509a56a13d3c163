package compile

import (
	"github.com/magoolation/intmud/internal/strpool"
	"github.com/magoolation/intmud/value"
)

// FieldInfo is one entry of a CompiledUnit's field table.
type FieldInfo struct {
	Name      string // canonical name
	Display   string
	Type      value.FieldType
	Offset    int // byte offset (instance or class-wide address space)
	ArrayLen  int
	BitIndex  int // for TBool fields; -1 when not bit-packed
	Storage   StorageClass
	OwnerClass string // the class (this one or a base) that declared it
}

// StorageClass mirrors ast.StorageClass at the compiled-unit level so this
// package does not need to import ast for such a small enum.
type StorageClass uint8

const (
	Instance StorageClass = iota
	ClassWide
	Persisted
)

// ConstInfo is one entry of a CompiledUnit's constant table.
type ConstInfo struct {
	Name string
	Kind ConstKind
	Int  int64
	Real float64
	Text string
	Code []byte // bytecode of the defining expression, for Kind == ConstExpr
}

// ConstKind mirrors ast.ConstKind.
type ConstKind uint8

const (
	ConstNull ConstKind = iota
	ConstInt
	ConstReal
	ConstText
	ConstExpr
)

// FuncKind mirrors ast.FuncKind.
type FuncKind uint8

const (
	FuncNormal FuncKind = iota
	FuncData
)

// FuncInfo is one entry of a CompiledUnit's function table.
type FuncInfo struct {
	Name          string
	Kind          FuncKind
	Start, End    int    // byte range into DefiningClass's own Unit.Code
	Locals        int    // local-slot count
	DefiningClass string // canonical name of the class whose Code Start/End index into
}

// Unit is the product of compiling one class: a Compiled Unit.
type Unit struct {
	ClassName string
	Bases     []string // canonical names of the whole linearized base chain, excluding this class, nearest base first
	Fields    []FieldInfo
	FieldIdx  map[string]int
	Consts    []ConstInfo
	ConstIdx  map[string]int
	Funcs     []FuncInfo
	FuncIdx   map[string]int
	Code      []byte
	Pool      *strpool.Pool

	InstanceSize  int // bytes of per-instance storage, inherited fields included
	ClassSize     int // bytes of class-wide storage, inherited fields included
}

// Field looks up a field by canonical name.
func (u *Unit) Field(name string) (FieldInfo, bool) {
	i, ok := u.FieldIdx[name]
	if !ok {
		return FieldInfo{}, false
	}
	return u.Fields[i], true
}

// Const looks up a constant by canonical name.
func (u *Unit) Const(name string) (ConstInfo, bool) {
	i, ok := u.ConstIdx[name]
	if !ok {
		return ConstInfo{}, false
	}
	return u.Consts[i], true
}

// Func looks up a function by canonical name.
func (u *Unit) Func(name string) (FuncInfo, bool) {
	i, ok := u.FuncIdx[name]
	if !ok {
		return FuncInfo{}, false
	}
	return u.Funcs[i], true
}

// FuncBytes returns the bytecode slice for fn.
func (u *Unit) FuncBytes(fn FuncInfo) []byte {
	return u.Code[fn.Start:fn.End]
}
