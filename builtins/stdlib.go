package builtins

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/magoolation/intmud/runtimeerr"
	"github.com/magoolation/intmud/value"
)

// Console is the narrow interface a host (the special package's Console
// special-type handler, typically) provides so tela.msg has somewhere to
// write.
type Console interface {
	WriteMessage(recv value.Value, text string) error
}

// RegisterStandard installs the always-available name-normalized text and
// numeric built-ins (tela.msg, texto.tam, texto.parte, and friends) plus the
// synthetic element-access and iteration built-ins the Compiler lowers
// Index and ForEach through rather than dedicated opcodes (@index,
// @index-set, @iterator, @has-next, @next, @advance).
func RegisterStandard(r *Registry, console Console) {
	r.Register("tela.msg", func(recv value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.NullValue(), nil
		}
		if console == nil {
			return value.NullValue(), nil
		}
		return value.NullValue(), console.WriteMessage(recv, args[0].String())
	})

	r.Register("texto.tam", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.Int64(int64(len([]rune(textArg(recv, args, 0))))), nil
	})

	r.Register("texto.parte", func(recv value.Value, args []value.Value) (value.Value, error) {
		s := []rune(textArg(recv, args, 0))
		start := intArg(args, 1, 0)
		length := intArg(args, 2, int64(len(s))-start)
		if start < 0 || start > int64(len(s)) {
			return value.NullValue(), runtimeerr.New(runtimeerr.TypeMismatch, "", "texto.parte", 0)
		}
		end := start + length
		if end > int64(len(s)) {
			end = int64(len(s))
		}
		if end < start {
			end = start
		}
		return value.Str(string(s[start:end])), nil
	})

	r.Register("texto.maiusculas", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.Str(strings.ToUpper(textArg(recv, args, 0))), nil
	})

	r.Register("texto.minusculas", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.Str(strings.ToLower(textArg(recv, args, 0))), nil
	})

	r.Register("texto.num", func(recv value.Value, args []value.Value) (value.Value, error) {
		s := textArg(recv, args, 0)
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return value.Int64(i), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value.Int64(0), nil
		}
		return value.Float64(f), nil
	})

	// @index / @index-set treat a Text receiver as a 0-based rune array;
	// any other receiver is out of scope for this built-in set (a real
	// object-list element type is a Special Type Manager concern).
	r.Register("@index", func(recv value.Value, args []value.Value) (value.Value, error) {
		if recv.Tag() != value.Text || len(args) != 1 {
			return value.NullValue(), runtimeerr.New(runtimeerr.TypeMismatch, "", "@index", 0)
		}
		s := []rune(recv.Text())
		i := args[0].Int()
		if i < 0 || i >= int64(len(s)) {
			return value.NullValue(), runtimeerr.New(runtimeerr.TypeMismatch, "", "@index", 0)
		}
		return value.Str(string(s[i])), nil
	})

	r.Register("@index-set", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.NullValue(), errors.New("builtins: @index-set on text is not addressable")
	})

	// @iterator/@has-next/@next/@advance are placeholders: a bare Registry
	// has no Object Arena to walk, so every cursor is immediately exhausted.
	// vm.Instance overrides all four with Arena-backed versions the moment
	// it registers its own built-ins (vm/iterate.go), next to the
	// criar/deletar it installs; these only exist so RegisterStandard alone
	// (e.g. in a builtins-package test) does not panic on an unknown name.
	r.Register("@iterator", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.ListIter(value.Iterator{}), nil
	})

	r.Register("@has-next", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.Bool(false), nil
	})

	r.Register("@next", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.NullValue(), nil
	})

	r.Register("@advance", func(recv value.Value, args []value.Value) (value.Value, error) {
		return value.ListIter(value.Iterator{}), nil
	})
}

func textArg(recv value.Value, args []value.Value, i int) string {
	if i == 0 && recv.Tag() == value.Text {
		return recv.Text()
	}
	if i < len(args) {
		return args[i].String()
	}
	return ""
}

func intArg(args []value.Value, i int, def int64) int64 {
	if i < len(args) && args[i].Numeric() {
		return int64(args[i].AsFloat())
	}
	return def
}
