package vm

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/runtimeerr"
	"github.com/magoolation/intmud/value"
)

// Call runs fn (as defined on unit) with receiver this and positional
// arguments args, returning its result. A nil unit.Code range of zero length
// is a valid no-op function. Call is reentrant: a built-in invoked from
// inside a running script may call back into Call to dispatch a script
// callback.
func (i *Instance) Call(unit *compile.Unit, fn compile.FuncInfo, this value.Value, args []value.Value) (ret value.Value, err error) {
	if len(i.frames) == 0 {
		i.budget = i.maxBudget
	}
	if len(i.frames) >= i.maxDepth {
		return value.NullValue(), runtimeerr.New(runtimeerr.StackOverflow, unit.ClassName, fn.Name, 0)
	}

	i.frames = append(i.frames, frame{
		unit:   unit,
		code:   unit.FuncBytes(fn),
		locals: make([]value.Value, fn.Locals),
		args:   args,
		this:   this,
	})
	defer func() {
		i.frames = i.frames[:len(i.frames)-1]
		if e := recover(); e != nil {
			err = errors.Errorf("vm: %v (class %s func %s)", e, unit.ClassName, fn.Name)
		}
	}()
	return i.run()
}

func (i *Instance) cur() *frame {
	return &i.frames[len(i.frames)-1]
}

// run executes instructions from the current top frame until it returns,
// terminates, or faults: advance ip, decode operands inline, loop.
func (i *Instance) run() (value.Value, error) {
	f := i.cur()
	for {
		if i.budget <= 0 {
			return value.NullValue(), runtimeerr.New(runtimeerr.BudgetExceeded, f.unit.ClassName, "", f.ip)
		}
		i.budget--

		if f.ip >= len(f.code) {
			return value.NullValue(), nil
		}
		op := compile.Op(f.code[f.ip])
		switch op {
		case compile.OpNop:
			f.ip++

		case compile.OpPop:
			i.pop()
			f.ip++

		case compile.OpDup:
			i.push(i.top())
			f.ip++

		case compile.OpSwap:
			i.stack[i.sp-1], i.stack[i.sp-2] = i.stack[i.sp-2], i.stack[i.sp-1]
			f.ip++

		case compile.OpPushNull:
			i.push(value.NullValue())
			f.ip++

		case compile.OpPushTrue:
			i.push(value.Bool(true))
			f.ip++

		case compile.OpPushFalse:
			i.push(value.Bool(false))
			f.ip++

		case compile.OpPushInt:
			v := int64(binary.LittleEndian.Uint64(f.code[f.ip+1:]))
			i.push(value.Int64(v))
			f.ip += 9

		case compile.OpPushDouble:
			bits := binary.LittleEndian.Uint64(f.code[f.ip+1:])
			i.push(value.Float64(math.Float64frombits(bits)))
			f.ip += 9

		case compile.OpPushString:
			idx := u16At(f.code, f.ip+1)
			i.push(value.Str(f.unit.Pool.At(idx)))
			f.ip += 3

		case compile.OpLoadLocal:
			idx := u16At(f.code, f.ip+1)
			i.push(f.locals[idx])
			f.ip += 3

		case compile.OpStoreLocal:
			idx := u16At(f.code, f.ip+1)
			f.locals[idx] = i.top()
			f.ip += 3

		case compile.OpLoadArg:
			n := int(f.code[f.ip+1])
			if n < len(f.args) {
				i.push(f.args[n])
			} else {
				i.push(value.NullValue())
			}
			f.ip += 2

		case compile.OpLoadArgCount:
			i.push(value.Int64(int64(len(f.args))))
			f.ip++

		case compile.OpLoadThis:
			i.push(f.this)
			f.ip++

		case compile.OpLoadField:
			idx := u16At(f.code, f.ip+1)
			v, err := i.loadFieldAt(f.this, int(idx))
			if err != nil {
				return value.NullValue(), err
			}
			i.push(v)
			f.ip += 3

		case compile.OpStoreField:
			idx := u16At(f.code, f.ip+1)
			if err := i.storeFieldAt(f.this, int(idx), i.top()); err != nil {
				return value.NullValue(), err
			}
			f.ip += 3

		case compile.OpLoadGlobal:
			idx := u16At(f.code, f.ip+1)
			i.push(i.Globals[f.unit.Pool.At(idx)])
			f.ip += 3

		case compile.OpStoreGlobal:
			idx := u16At(f.code, f.ip+1)
			i.Globals[f.unit.Pool.At(idx)] = i.top()
			f.ip += 3

		case compile.OpLoadClass:
			idx := u16At(f.code, f.ip+1)
			i.push(value.Class(f.unit.Pool.At(idx)))
			f.ip += 3

		case compile.OpLoadClassDynamic:
			name := i.pop()
			i.push(value.Class(name.String()))
			f.ip++

		case compile.OpLoadFieldDynamic:
			name := i.pop()
			recv := i.pop()
			v, err := i.loadFieldByName(recv, name.String())
			if err != nil {
				return value.NullValue(), err
			}
			i.push(v)
			f.ip++

		case compile.OpStoreFieldDynamic:
			val := i.pop()
			name := i.pop()
			recv := i.pop()
			if err := i.storeFieldByName(recv, name.String(), val); err != nil {
				return value.NullValue(), err
			}
			f.ip++

		case compile.OpInitSpecialType:
			idx := u16At(f.code, f.ip+1)
			if i.onInitSpecialType != nil {
				i.onInitSpecialType(f.this, f.unit.Pool.At(int(idx)))
			}
			f.ip += 3

		case compile.OpJump:
			f.ip = jumpTarget(f.code, f.ip)

		case compile.OpJumpIfTrue:
			if i.pop().Truthy() {
				f.ip = jumpTarget(f.code, f.ip)
			} else {
				f.ip += 3
			}

		case compile.OpJumpIfFalse:
			if !i.pop().Truthy() {
				f.ip = jumpTarget(f.code, f.ip)
			} else {
				f.ip += 3
			}

		case compile.OpCall:
			idx := u16At(f.code, f.ip+1)
			argc := int(f.code[f.ip+3])
			name := f.unit.Pool.At(idx)
			args := i.popN(argc)
			// a free call runs against this only when this's class chain
			// defines name; a built-in reached from it gets a Null receiver
			recv := value.NullValue()
			if className, ok := i.receiverClass(f.this); ok {
				if _, _, found := i.Classes.ResolveFunc(className, name); found {
					recv = f.this
				}
			}
			v, err := i.dispatch(recv, name, args)
			if err != nil {
				return value.NullValue(), err
			}
			i.push(v)
			f.ip += 4

		case compile.OpCallMethod:
			idx := u16At(f.code, f.ip+1)
			argc := int(f.code[f.ip+3])
			name := f.unit.Pool.At(idx)
			args := i.popN(argc)
			recv := i.pop()
			v, err := i.dispatch(recv, name, args)
			if err != nil {
				return value.NullValue(), err
			}
			i.push(v)
			f.ip += 4

		case compile.OpCallDynamic:
			argc := int(f.code[f.ip+1])
			args := i.popN(argc)
			name := i.pop()
			recv := i.pop()
			v, err := i.dispatch(recv, name.String(), args)
			if err != nil {
				return value.NullValue(), err
			}
			i.push(v)
			f.ip += 2

		case compile.OpReturn:
			return value.NullValue(), nil

		case compile.OpReturnValue:
			return i.pop(), nil

		case compile.OpTerminate:
			return value.NullValue(), runtimeerr.New(runtimeerr.Terminate, f.unit.ClassName, "", f.ip)

		case compile.OpAdd, compile.OpSub, compile.OpMul, compile.OpDiv, compile.OpMod,
			compile.OpBitAnd, compile.OpBitOr, compile.OpBitXor, compile.OpShl, compile.OpShr:
			b := i.pop()
			a := i.pop()
			v, err := binOp(op, a, b, f.unit.ClassName, f.ip)
			if err != nil {
				return value.NullValue(), err
			}
			i.push(v)
			f.ip++

		case compile.OpNeg:
			a := i.pop()
			if a.Tag() == value.Double {
				i.push(value.Float64(-a.Double()))
			} else {
				i.push(value.Int64(-a.Int()))
			}
			f.ip++

		case compile.OpBitNot:
			a := i.pop()
			i.push(value.Int64(^a.Int()))
			f.ip++

		case compile.OpEq, compile.OpNe, compile.OpLt, compile.OpLe, compile.OpGt, compile.OpGe:
			b := i.pop()
			a := i.pop()
			i.push(value.Bool(cmpOp(op, a, b)))
			f.ip++

		case compile.OpEqType:
			b := i.pop()
			a := i.pop()
			i.push(value.Bool(value.StrictEqual(a, b)))
			f.ip++

		case compile.OpNeType:
			b := i.pop()
			a := i.pop()
			i.push(value.Bool(!value.StrictEqual(a, b)))
			f.ip++

		case compile.OpLine:
			f.ip += 3

		default:
			return value.NullValue(), errors.Errorf("vm: unknown opcode %v", op)
		}
	}
}

func u16At(code []byte, at int) int {
	return int(binary.LittleEndian.Uint16(code[at:]))
}

func jumpTarget(code []byte, siteOp int) int {
	site := siteOp + 1
	rel := int16(binary.LittleEndian.Uint16(code[site:]))
	return site + 2 + int(rel)
}

func (i *Instance) popN(n int) []value.Value {
	args := make([]value.Value, n)
	for k := n - 1; k >= 0; k-- {
		args[k] = i.pop()
	}
	return args
}
