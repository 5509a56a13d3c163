package compile

import (
	"encoding/binary"
	"math"
)

// Label is an unresolved jump target, numbered from zero in creation order;
// obtain one from Emitter.NewLabel.
type Label int

// Emitter is an append-only instruction stream builder with a label/patch
// API for forward jumps, built for a one-pass tree-walking lowering instead
// of a two-pass assembler: labels are always resolved by the time the
// enclosing statement finishes compiling, so there is no end-of-unit
// backpatch pass.
type Emitter struct {
	buf    []byte
	labels []label
	loops  []loopCtx
}

type label struct {
	resolved bool
	addr     int
	patches  []int // byte offsets of the rel-i16 operand to patch
}

// loopCtx names the labels a `quebra`/`continua` inside the
// currently-compiling loop jumps to: the continue label and the break
// label. The patch sites themselves are kept on each label.
type loopCtx struct {
	continueLabel Label
	breakLabel    Label
}

// NewEmitter returns an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Len returns the current length of the bytecode buffer, i.e. the address
// the next emitted instruction will land at.
func (e *Emitter) Len() int { return len(e.buf) }

// Bytes returns the emitted bytecode. The returned slice must not be
// retained across further Emitter calls.
func (e *Emitter) Bytes() []byte { return e.buf }

func (e *Emitter) byte(b byte) { e.buf = append(e.buf, b) }

func (e *Emitter) op(o Op) { e.byte(byte(o)) }

func (e *Emitter) u8(v uint8) { e.byte(v) }

func (e *Emitter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

func (e *Emitter) i64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Emitter) f64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
}

// Simple no-operand instructions.
func (e *Emitter) Nop()               { e.op(OpNop) }
func (e *Emitter) Pop()               { e.op(OpPop) }
func (e *Emitter) Dup()               { e.op(OpDup) }
func (e *Emitter) Swap()              { e.op(OpSwap) }
func (e *Emitter) PushNull()          { e.op(OpPushNull) }
func (e *Emitter) PushTrue()          { e.op(OpPushTrue) }
func (e *Emitter) PushFalse()         { e.op(OpPushFalse) }
func (e *Emitter) LoadArgCount()      { e.op(OpLoadArgCount) }
func (e *Emitter) LoadThis()          { e.op(OpLoadThis) }
func (e *Emitter) LoadClassDynamic()  { e.op(OpLoadClassDynamic) }
func (e *Emitter) LoadFieldDynamic()  { e.op(OpLoadFieldDynamic) }
func (e *Emitter) StoreFieldDynamic() { e.op(OpStoreFieldDynamic) }
func (e *Emitter) Return()            { e.op(OpReturn) }
func (e *Emitter) ReturnValue()       { e.op(OpReturnValue) }
func (e *Emitter) Terminate()         { e.op(OpTerminate) }
func (e *Emitter) Add()               { e.op(OpAdd) }
func (e *Emitter) Sub()               { e.op(OpSub) }
func (e *Emitter) Mul()               { e.op(OpMul) }
func (e *Emitter) Div()               { e.op(OpDiv) }
func (e *Emitter) Mod()               { e.op(OpMod) }
func (e *Emitter) Neg()               { e.op(OpNeg) }
func (e *Emitter) BitAnd()            { e.op(OpBitAnd) }
func (e *Emitter) BitOr()             { e.op(OpBitOr) }
func (e *Emitter) BitXor()            { e.op(OpBitXor) }
func (e *Emitter) BitNot()            { e.op(OpBitNot) }
func (e *Emitter) Shl()               { e.op(OpShl) }
func (e *Emitter) Shr()               { e.op(OpShr) }
func (e *Emitter) Eq()                { e.op(OpEq) }
func (e *Emitter) Ne()                { e.op(OpNe) }
func (e *Emitter) Lt()                { e.op(OpLt) }
func (e *Emitter) Le()                { e.op(OpLe) }
func (e *Emitter) Gt()                { e.op(OpGt) }
func (e *Emitter) Ge()                { e.op(OpGe) }
func (e *Emitter) EqType()            { e.op(OpEqType) }
func (e *Emitter) NeType()            { e.op(OpNeType) }

// Operand-carrying instructions.
func (e *Emitter) PushInt(v int64)      { e.op(OpPushInt); e.i64(v) }
func (e *Emitter) PushDouble(v float64) { e.op(OpPushDouble); e.f64(v) }
func (e *Emitter) PushString(idx int)   { e.op(OpPushString); e.u16(uint16(idx)) }
func (e *Emitter) LoadLocal(i int)      { e.op(OpLoadLocal); e.u16(uint16(i)) }
func (e *Emitter) StoreLocal(i int)     { e.op(OpStoreLocal); e.u16(uint16(i)) }
func (e *Emitter) LoadArg(n int)        { e.op(OpLoadArg); e.u8(uint8(n)) }
func (e *Emitter) LoadField(idx int)    { e.op(OpLoadField); e.u16(uint16(idx)) }
func (e *Emitter) StoreField(idx int)   { e.op(OpStoreField); e.u16(uint16(idx)) }
func (e *Emitter) LoadGlobal(idx int)   { e.op(OpLoadGlobal); e.u16(uint16(idx)) }
func (e *Emitter) StoreGlobal(idx int)  { e.op(OpStoreGlobal); e.u16(uint16(idx)) }
func (e *Emitter) LoadClass(idx int)    { e.op(OpLoadClass); e.u16(uint16(idx)) }
func (e *Emitter) InitSpecialType(idx int) { e.op(OpInitSpecialType); e.u16(uint16(idx)) }
func (e *Emitter) Line(n uint16)        { e.op(OpLine); e.u16(n) }

func (e *Emitter) Call(idx, argc int) {
	e.op(OpCall)
	e.u16(uint16(idx))
	e.u8(uint8(argc))
}

func (e *Emitter) CallMethod(idx, argc int) {
	e.op(OpCallMethod)
	e.u16(uint16(idx))
	e.u8(uint8(argc))
}

// NewLabel allocates an unresolved label.
func (e *Emitter) NewLabel() Label {
	e.labels = append(e.labels, label{addr: -1})
	return Label(len(e.labels) - 1)
}

// BindLabel resolves lbl to the current emit position and patches every
// jump already emitted against it.
func (e *Emitter) BindLabel(lbl Label) {
	l := &e.labels[lbl]
	l.resolved = true
	l.addr = e.Len()
	for _, site := range l.patches {
		e.patchRel(site, l.addr)
	}
	l.patches = nil
}

// patchRel writes the pc-relative 16-bit signed offset for a jump operand
// at byte offset site (the byte right after the opcode), measured from the
// byte immediately following the operand field.
func (e *Emitter) patchRel(site, target int) {
	rel := target - (site + 2)
	binary.LittleEndian.PutUint16(e.buf[site:site+2], uint16(int16(rel)))
}

// emitJump writes op followed by a 2-byte placeholder, then either patches
// it immediately (if lbl is already resolved) or registers it for patching
// when BindLabel(lbl) runs.
func (e *Emitter) emitJump(op Op, lbl Label) {
	e.op(op)
	site := e.Len()
	e.u16(0)
	l := &e.labels[lbl]
	if l.resolved {
		e.patchRel(site, l.addr)
		return
	}
	l.patches = append(l.patches, site)
}

func (e *Emitter) Jump(lbl Label)          { e.emitJump(OpJump, lbl) }
func (e *Emitter) JumpIfTrue(lbl Label)    { e.emitJump(OpJumpIfTrue, lbl) }
func (e *Emitter) JumpIfFalse(lbl Label)   { e.emitJump(OpJumpIfFalse, lbl) }

// PushLoop opens a new loop context; Break/Continue (via BreakLabel /
// ContinueLabel) resolve against the innermost one.
func (e *Emitter) PushLoop(continueLabel, breakLabel Label) {
	e.loops = append(e.loops, loopCtx{continueLabel, breakLabel})
}

// PopLoop closes the innermost loop context. Both its labels must already
// be bound by the caller before popping; a label must never be left
// unresolved at end of unit.
func (e *Emitter) PopLoop() {
	e.loops = e.loops[:len(e.loops)-1]
}

// InLoop reports whether a loop context is currently open, i.e. whether a
// `quebra`/`continua` statement is legal here.
func (e *Emitter) InLoop() bool { return len(e.loops) > 0 }

// Break emits a jump to the innermost loop's break label.
func (e *Emitter) Break() { e.Jump(e.loops[len(e.loops)-1].breakLabel) }

// Continue emits a jump to the innermost loop's continue label.
func (e *Emitter) Continue() { e.Jump(e.loops[len(e.loops)-1].continueLabel) }
