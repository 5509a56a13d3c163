package compile

import "github.com/magoolation/intmud/value"

// fieldTypeNames maps the declared field type tags accepted in source to
// value.FieldType.
var fieldTypeNames = map[string]value.FieldType{
	"boolean-bit":        value.TBool,
	"signed-8":           value.TInt8,
	"signed-16":          value.TInt16,
	"signed-32":          value.TInt32,
	"unsigned-8":         value.TUint8,
	"unsigned-16":        value.TUint16,
	"unsigned-32":        value.TUint32,
	"float32":            value.TFloat32,
	"float64":            value.TFloat64,
	"text":               value.TText,
	"object-reference":   value.TObjectRef,
	"object-list":        value.TObjectList,
	"list-iterator":      value.TListIterator,
	"multi-line-text":    value.TMultilineText,
	"text-position-cursor": value.TTextCursor,
	"text-with-variables": value.TTextVars,
	"text-with-object":   value.TTextObject,
	"object-name-index":  value.TObjectNameIndex,
	"directory-handle":   value.TDirHandle,
	"log-file":           value.TLogFile,
	"save-file":          value.TSaveFile,
	"memory-buffer":      value.TMemBuffer,
	"text-file":          value.TTextFile,
	"executable-handle":  value.TExecHandle,
	"program-handle":     value.TProgramHandle,
	"timer-countdown":    value.TTimer,
	"execution-trigger":  value.TTrigger,
	"increment-counter":  value.TIncCounter,
	"decrement-counter":  value.TDecCounter,
	"terminal-console":   value.TConsole,
	"client-socket":      value.TClientSocket,
	"listening-server":   value.TServerSocket,
	"debug-handle":       value.TDebugHandle,
	"object-index":       value.TObjectIndex,
	"index-iterator":     value.TIndexIterator,
	"date-time":          value.TDateTime,
}

func parseFieldType(label string) (value.FieldType, bool) {
	t, ok := fieldTypeNames[label]
	return t, ok
}
