package runtimeerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Fault enumerates the runtime fault kinds the VM can raise.
type Fault int

const (
	// NullReceiver: call-method or field access on a null object-ref.
	NullReceiver Fault = iota
	// UnknownMember: a call/field name does not resolve through the
	// receiver's class chain.
	UnknownMember
	// ArityMismatch: a built-in or function call received the wrong
	// argument count.
	ArityMismatch
	// DivideByZero is never actually surfaced as an error: div and mod
	// by zero return zero. It exists so callers can still log the event
	// without aborting the handler.
	DivideByZero
	// TypeMismatch: an operand or argument has the wrong value type for
	// the operation (arithmetic on non-numeric values, a bad built-in
	// argument). The strict comparisons eq-type/ne-type never raise it:
	// operands with different value tags simply compare unequal.
	TypeMismatch
	// StackOverflow: call depth exceeded the configured maximum.
	StackOverflow
	// BudgetExceeded: the handler's instruction budget ran out.
	BudgetExceeded
	// Terminate: the program explicitly requested a stop (the `termina`
	// statement / `terminate` opcode). Fatal to the event loop.
	Terminate
)

func (f Fault) String() string {
	switch f {
	case NullReceiver:
		return "NULL_RECEIVER"
	case UnknownMember:
		return "UNKNOWN_MEMBER"
	case ArityMismatch:
		return "ARITY_MISMATCH"
	case DivideByZero:
		return "DIVIDE_BY_ZERO"
	case TypeMismatch:
		return "TYPE_MISMATCH"
	case StackOverflow:
		return "STACK_OVERFLOW"
	case BudgetExceeded:
		return "BUDGET_EXCEEDED"
	case Terminate:
		return "TERMINATE"
	default:
		return fmt.Sprintf("Fault(%d)", int(f))
	}
}

// Error is the runtime's fault value: a Fault plus the call-frame context it
// occurred in. It is always produced through New/Wrap so that it carries a
// stack trace the way the rest of the repo's errors do.
type Error struct {
	Fault    Fault
	Class    string
	Function string
	Offset   int
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s in %s.%s@%d: %v", e.Fault, e.Class, e.Function, e.Offset, e.cause)
	}
	return fmt.Sprintf("%s in %s.%s@%d", e.Fault, e.Class, e.Function, e.Offset)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a fault Error with a stack trace attached via github.com/pkg/errors.
func New(f Fault, class, function string, offset int) error {
	return errors.WithStack(&Error{Fault: f, Class: class, Function: function, Offset: offset})
}

// Wrap builds a fault Error around an underlying cause (e.g. a builtin's own
// error), attaching a stack trace at the point the fault surfaced.
func Wrap(cause error, f Fault, class, function string, offset int) error {
	if cause == nil {
		return New(f, class, function, offset)
	}
	return errors.WithStack(&Error{Fault: f, Class: class, Function: function, Offset: offset, cause: cause})
}

// As reports whether err (or something it wraps) is a fault Error, and
// returns it.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Is reports whether err is (or wraps) a fault Error of kind f.
func Is(err error, f Fault) bool {
	fe, ok := As(err)
	return ok && fe.Fault == f
}
