package ast

// Expr is implemented by every expression node: literals, argN references,
// identifier, dynamic-name, member-access, call, index,
// unary/binary/assignment, ternary, null-coalesce, class-ref, global-ref.
type Expr interface {
	exprNode()
	Position() Position
}

type baseExpr struct{ Pos Position }

func (baseExpr) exprNode()              {}
func (e baseExpr) Position() Position { return e.Pos }

// LitKind says which literal alternative Lit holds.
type LitKind uint8

const (
	LitNull LitKind = iota
	LitInt
	LitReal
	LitText
)

// Lit is a literal null/int/real/text value.
type Lit struct {
	baseExpr
	Kind LitKind
	Int  int64
	Real float64
	Text string
}

// ArgRef is a positional argument reference (argN): arguments are accessed
// by small-integer opcode, 0..9 plus argument count. N == -1 denotes the
// special "argument count" reference.
type ArgRef struct {
	baseExpr
	N int
}

// Ident is a bare identifier: resolved at compile time to a local, a field
// (implicit `this`), a free function call target, or a built-in.
type Ident struct {
	baseExpr
	Name string
}

// Global is `$name`, a reference into the process-wide environment.
type Global struct {
	baseExpr
	Name string
}

// DynamicName is `prefix[expr]suffix`: Prefix and Suffix are the literal
// string segments and Index is the expression whose stringified value is
// spliced between them. Either affix may be empty.
type DynamicName struct {
	baseExpr
	Prefix string
	Index  Expr
	Suffix string
}

// Member is `recv.name` or `recv.name(args)` when wrapped in Call; as a bare
// Member it denotes a field read on recv (recv == nil means implicit this).
type Member struct {
	baseExpr
	Recv Expr // nil for implicit this
	Name string
}

// ClassRef is `Name:member`, a class-qualified reference, e.g. for
// class-wide fields/functions or explicit base dispatch.
type ClassRef struct {
	baseExpr
	Class string // may be "" when Dynamic != nil
	Dynamic Expr // set for `[expr]:member`, computes the class name
	Member  string
}

// Call is a function/method/built-in invocation. Recv is nil for a free
// call (resolved against the current class); non-nil makes it a
// call-method against Recv.
type Call struct {
	baseExpr
	Recv Expr
	Name string
	Args []Expr
}

// Index is `seq[i]`: array element access.
type Index struct {
	baseExpr
	Seq   Expr
	Index Expr
}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnNeg UnaryOp = iota
	UnNot
	UnBitNot
)

// Unary is a unary operator expression.
type Unary struct {
	baseExpr
	Op UnaryOp
	X  Expr
}

// BinOp enumerates binary operators, ordered roughly by the precedence
// climb the Compiler implements: arithmetic, bitwise, shifts, comparisons,
// logical with short-circuit, null-coalesce.
type BinOp uint8

const (
	BAdd BinOp = iota
	BSub
	BMul
	BDiv
	BMod
	BAnd // bitwise
	BOr  // bitwise
	BXor
	BShl
	BShr
	BEq
	BNe
	BLt
	BLe
	BGt
	BGe
	BEqType // strict, eq-type
	BNeType // strict, ne-type
	BLogicalAnd // &&, short-circuits
	BLogicalOr  // ||, short-circuits
	BNullCoalesce
)

// Binary is a binary operator expression.
type Binary struct {
	baseExpr
	Op   BinOp
	X, Y Expr
}

// Ternary is `cond ? then : else`.
type Ternary struct {
	baseExpr
	Cond, Then, Else Expr
}

// AssignOp enumerates plain and compound assignment operators.
type AssignOp uint8

const (
	AssignSet AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignAnd
	AssignOr
	AssignXor
	AssignShl
	AssignShr
)

// Assign is an assignment expression. Target must be an addressable
// expression: Ident (local or field), Global, Member, ClassRef, Index, or
// DynamicName, anything else is a non-addressable-assignment-target
// compiler error.
type Assign struct {
	baseExpr
	Op     AssignOp
	Target Expr
	Value  Expr
}
