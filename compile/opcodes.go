// Package compile lowers an already-parsed ast.ClassDef into a CompiledUnit:
// a field table, a constant table, a function table, and one bytecode
// stream per function. The emitter's label/patch API (emitter.go) uses
// named labels resolved immediately rather than at end-of-file, fit for a
// single-pass recursive-descent lowering pass.
package compile

// Op is a bytecode instruction opcode.
//
// Stack convention: the static store instructions (store-local,
// store-field, store-global) write the current top of the operand stack to
// their destination and leave the stack untouched, they do not pop.
// store-field-dynamic is the exception: it pops its receiver, name and
// value.
// Callers that don't need the value afterwards follow a store with an
// explicit pop. This is what lets an assignment double as an expression
// that evaluates to the value assigned: the compiler stores once and lets
// whichever copy it already left on the stack become the expression's
// result, instead of re-pushing after a popping store.
type Op byte

const (
	OpNop Op = iota
	OpPop
	OpDup
	OpSwap

	OpPushNull
	OpPushInt
	OpPushDouble
	OpPushString
	OpPushTrue
	OpPushFalse

	OpLoadLocal
	OpStoreLocal
	OpLoadArg
	OpLoadArgCount
	OpLoadThis
	OpLoadField
	OpStoreField
	OpLoadGlobal
	OpStoreGlobal
	OpLoadClass
	OpLoadClassDynamic
	OpLoadFieldDynamic
	OpStoreFieldDynamic

	OpJump
	OpJumpIfTrue
	OpJumpIfFalse
	OpCall
	OpCallMethod
	OpCallDynamic
	OpReturn
	OpReturnValue
	OpTerminate

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpEqType
	OpNeType

	OpLine
	OpInitSpecialType
)

var opNames = [...]string{
	"nop", "pop", "dup", "swap",
	"push-null", "push-int", "push-double", "push-string", "push-true", "push-false",
	"load-local", "store-local", "load-arg", "load-arg-count", "load-this",
	"load-field", "store-field", "load-global", "store-global", "load-class", "load-class-dynamic",
	"load-field-dynamic", "store-field-dynamic",
	"jump", "jump-if-true", "jump-if-false", "call", "call-method", "call-dynamic", "return", "return-value", "terminate",
	"add", "sub", "mul", "div", "mod", "neg", "bit-and", "bit-or", "bit-xor", "bit-not", "shl", "shr",
	"eq", "ne", "lt", "le", "gt", "ge", "eq-type", "ne-type",
	"line", "init-special-type",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(?)"
}

// operandWidth returns the number of bytes of immediate operand following
// the opcode byte itself (not counting the opcode byte), i.e. how far past
// the opcode byte the next instruction starts.
func operandWidth(o Op) int {
	switch o {
	case OpPushInt:
		return 8
	case OpPushDouble:
		return 8
	case OpPushString, OpLoadField, OpStoreField, OpLoadGlobal, OpStoreGlobal,
		OpLoadClass, OpInitSpecialType:
		return 2
	case OpCall, OpCallMethod:
		return 3 // 2-byte pool index + 1-byte argc
	case OpCallDynamic:
		return 1 // 1-byte argc; name and (for call-method) receiver come off the stack
	case OpLoadFieldDynamic, OpStoreFieldDynamic, OpLoadClassDynamic:
		return 0 // name comes off the stack
	case OpLoadLocal, OpStoreLocal:
		return 2
	case OpLoadArg:
		return 1
	case OpJump, OpJumpIfTrue, OpJumpIfFalse:
		return 2
	case OpLine:
		return 2
	default:
		return 0
	}
}

