package value

import "fmt"

// FieldType enumerates the declared field type tags a class can use. The
// Compiler uses these to size storage and pick the byte alignment/stride for
// a field; the VM uses them to know whether a store truncates.
type FieldType uint8

const (
	TBool FieldType = iota // boolean-bit: packed, 1 bit
	TInt8
	TInt16
	TInt32
	TUint8
	TUint16
	TUint32
	TFloat32
	TFloat64
	TText            // fixed-capacity text, parameterized by capacity
	TObjectRef
	TObjectList
	TListIterator
	TMultilineText
	TTextCursor      // text position cursor
	TTextVars        // text-with-variables
	TTextObject      // text-with-object
	TObjectNameIndex
	TDirHandle
	TLogFile
	TSaveFile
	TMemBuffer
	TTextFile
	TExecHandle
	TProgramHandle
	TTimer           // timer countdown (special type)
	TTrigger         // execution trigger (special type)
	TIncCounter
	TDecCounter
	TConsole         // terminal/console (special type)
	TClientSocket    // special type
	TServerSocket    // listening server (special type)
	TDebugHandle
	TObjectIndex
	TIndexIterator
	TDateTime
)

// Special reports whether t denotes one of the Special Type Manager's four
// event-source kinds: timer, trigger, console, socket/server.
func (t FieldType) Special() bool {
	switch t {
	case TTimer, TTrigger, TConsole, TClientSocket, TServerSocket:
		return true
	default:
		return false
	}
}

// Size returns the storage size in bytes for scalar field types. Bit fields
// (TBool) and variable-capacity fields (TText and friends, sized by their
// declared capacity) are not covered and return 0; callers must special-case
// them the same way the Compiler's field-table builder does.
func (t FieldType) Size() int {
	switch t {
	case TInt8, TUint8:
		return 1
	case TInt16, TUint16:
		return 2
	case TInt32, TUint32, TFloat32:
		return 4
	case TFloat64:
		return 8
	case TObjectRef, TObjectList, TListIterator, TTimer, TTrigger, TConsole,
		TClientSocket, TServerSocket, TIncCounter, TDecCounter, TObjectIndex,
		TIndexIterator, TDateTime:
		return 8
	default:
		return 0
	}
}

func (t FieldType) String() string {
	names := [...]string{
		"bool", "int8", "int16", "int32", "uint8", "uint16", "uint32",
		"float32", "float64", "text", "object-ref", "object-list",
		"list-iterator", "multiline-text", "text-cursor", "text-vars",
		"text-object", "object-name-index", "dir-handle", "log-file",
		"save-file", "mem-buffer", "text-file", "exec-handle",
		"program-handle", "timer", "trigger", "inc-counter", "dec-counter",
		"console", "client-socket", "server-socket", "debug-handle",
		"object-index", "index-iterator", "date-time",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return fmt.Sprintf("FieldType(%d)", uint8(t))
}

// TruncateInt truncates a 64-bit integer view to the storage width declared
// for t: a 64-bit Value wraps modulo 2^64, narrower declared widths truncate
// on store.
func TruncateInt(t FieldType, v int64) int64 {
	switch t {
	case TInt8:
		return int64(int8(v))
	case TUint8:
		return int64(uint8(v))
	case TInt16:
		return int64(int16(v))
	case TUint16:
		return int64(uint16(v))
	case TInt32:
		return int64(int32(v))
	case TUint32:
		return int64(uint32(v))
	default:
		return v
	}
}
