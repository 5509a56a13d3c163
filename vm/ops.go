package vm

import (
	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/internal/norm"
	"github.com/magoolation/intmud/runtimeerr"
	"github.com/magoolation/intmud/value"
)

// canonText normalizes a Text operand for `eq`/`ne` comparison: case and
// accent folding, the same equivalence norm.Canon gives identifiers.
func canonText(s string) string {
	return string(norm.Canon(s))
}

// binOp implements the arithmetic and bitwise operators. `+` on two Text
// values concatenates, coercing a non-text operand via value.Value.String();
// `+`/`-`/`*`/`/` otherwise promote Int to Double if either operand is
// Double. Division or modulo by an exact zero divisor yields zero rather
// than faulting, per runtimeerr.DivideByZero's documented propagation rule.
func binOp(op compile.Op, a, b value.Value, class string, ip int) (value.Value, error) {
	if op == compile.OpAdd && (a.Tag() == value.Text || b.Tag() == value.Text) {
		return value.Str(a.String() + b.String()), nil
	}
	if !a.Numeric() || !b.Numeric() {
		return value.NullValue(), runtimeerr.New(runtimeerr.TypeMismatch, class, "", ip)
	}

	bitwise := op == compile.OpBitAnd || op == compile.OpBitOr || op == compile.OpBitXor ||
		op == compile.OpShl || op == compile.OpShr || op == compile.OpMod
	if bitwise || (a.Tag() == value.Int && b.Tag() == value.Int) {
		ai, bi := a.Int(), b.Int()
		switch op {
		case compile.OpAdd:
			return value.Int64(ai + bi), nil
		case compile.OpSub:
			return value.Int64(ai - bi), nil
		case compile.OpMul:
			return value.Int64(ai * bi), nil
		case compile.OpDiv:
			if bi == 0 {
				return value.Int64(0), nil
			}
			return value.Int64(ai / bi), nil
		case compile.OpMod:
			if bi == 0 {
				return value.Int64(0), nil
			}
			return value.Int64(ai % bi), nil
		case compile.OpBitAnd:
			return value.Int64(ai & bi), nil
		case compile.OpBitOr:
			return value.Int64(ai | bi), nil
		case compile.OpBitXor:
			return value.Int64(ai ^ bi), nil
		case compile.OpShl:
			return value.Int64(ai << uint(bi)), nil
		case compile.OpShr:
			return value.Int64(ai >> uint(bi)), nil
		}
	}

	af, bf := a.AsFloat(), b.AsFloat()
	switch op {
	case compile.OpAdd:
		return value.Float64(af + bf), nil
	case compile.OpSub:
		return value.Float64(af - bf), nil
	case compile.OpMul:
		return value.Float64(af * bf), nil
	case compile.OpDiv:
		if bf == 0 {
			return value.Float64(0), nil
		}
		return value.Float64(af / bf), nil
	}
	return value.NullValue(), runtimeerr.New(runtimeerr.TypeMismatch, class, "", ip)
}

// cmpOp implements the ordering and normalized-equality comparisons.
func cmpOp(op compile.Op, a, b value.Value) bool {
	switch op {
	case compile.OpEq:
		return value.Equal(a, b, canonText)
	case compile.OpNe:
		return !value.Equal(a, b, canonText)
	}
	if a.Numeric() && b.Numeric() {
		af, bf := a.AsFloat(), b.AsFloat()
		switch op {
		case compile.OpLt:
			return af < bf
		case compile.OpLe:
			return af <= bf
		case compile.OpGt:
			return af > bf
		case compile.OpGe:
			return af >= bf
		}
	}
	if a.Tag() == value.Text && b.Tag() == value.Text {
		switch op {
		case compile.OpLt:
			return a.Text() < b.Text()
		case compile.OpLe:
			return a.Text() <= b.Text()
		case compile.OpGt:
			return a.Text() > b.Text()
		case compile.OpGe:
			return a.Text() >= b.Text()
		}
	}
	return false
}
