// Package builtins installs the VM's standard library: getters and
// methods on the builtin kinds Array, String and Object/Hash (nothing
// is registered for Int, Real or Bool) plus free functions exposed as
// globals, via the value.Engine registration hooks
// (RegisterGetter/RegisterMethod).
package builtins

import (
	"fmt"
	"time"

	"paserati/pkg/value"
)

// Install registers every builtin kind's getter/method against eng.
// Call once per VM instance before running user code. The free
// functions (Print, Clock, Args below) are not registered here since
// globals are per-module (spec §4.6); pkg/driver assigns them into
// each module's Globals table as it loads the module.
func Install(eng value.Engine) {
	installArray(eng)
	installString(eng)
	installObject(eng)
}

func nativeFn(f func(eng value.Engine, args []value.Value) (value.Value, error)) value.Value {
	return value.NativeFnValue(&value.NativeFn{Engine: f})
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Null
}

// --- Array: length getter, push/pop methods ---

func installArray(eng value.Engine) {
	eng.RegisterGetter("Array", "length", nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
		return value.Int(int64(len(arg(args, 0).AsArray().Elements))), nil
	}))

	eng.RegisterMethod("Array", "push", nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
		arr := arg(args, 0).AsArray()
		arr.Elements = append(arr.Elements, args[1:]...)
		return value.Int(int64(len(arr.Elements))), nil
	}))

	eng.RegisterMethod("Array", "pop", nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
		arr := arg(args, 0).AsArray()
		if len(arr.Elements) == 0 {
			return value.Null, nil
		}
		last := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return last, nil
	}))

	eng.RegisterMethod("Array", "join", nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
		sep := ""
		if len(args) > 1 && args[1].IsString() {
			sep = args[1].AsString()
		}
		elems := arg(args, 0).AsArray().Elements
		out := ""
		for i, e := range elems {
			if i > 0 {
				out += sep
			}
			out += value.String(e)
		}
		return value.Str(out), nil
	}))
}

// --- String: length getter, slice method ---

func installString(eng value.Engine) {
	eng.RegisterGetter("String", "length", nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
		return value.Int(int64(len(arg(args, 0).AsString()))), nil
	}))

	eng.RegisterMethod("String", "slice", nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
		s := arg(args, 0).AsString()
		start := int64(0)
		if len(args) > 1 {
			start = args[1].AsInt()
		}
		end := int64(len(s))
		if len(args) > 2 {
			end = args[2].AsInt()
		}
		start = clamp(start, 0, int64(len(s)))
		end = clamp(end, start, int64(len(s)))
		return value.Str(s[start:end]), nil
	}))
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- Object (Hash): length getter ---

func installObject(eng value.Engine) {
	eng.RegisterGetter("Object", "length", nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
		return value.Int(int64(len(arg(args, 0).AsHash().Fields))), nil
	}))
}

// --- Globals: print, clock, args ---

// Print implements the free `print` builtin: render every argument via
// value.String, space-separated, newline-terminated, to stdout.
var Print = nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
	for i, a := range args {
		if i > 0 {
			fmt.Print(" ")
		}
		fmt.Print(value.String(a))
	}
	fmt.Println()
	return value.Null, nil
})

// Clock implements the free `clock` builtin: seconds since the Unix
// epoch.
var Clock = nativeFn(func(_ value.Engine, args []value.Value) (value.Value, error) {
	return value.Real(float64(time.Now().UnixNano()) / 1e9), nil
})

// Args implements the free `args` builtin: the command-line arguments
// exposed via Engine.Arguments (spec §6).
var Args = nativeFn(func(eng value.Engine, args []value.Value) (value.Value, error) {
	raw := eng.Arguments()
	elems := make([]value.Value, len(raw))
	for i, s := range raw {
		elems[i] = value.Str(s)
	}
	return value.Object(eng.Heap().NewArray(elems)), nil
})
