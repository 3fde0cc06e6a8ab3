package vm

import (
	"paserati/pkg/gc"
	"paserati/pkg/value"
)

// findClassMethod walks start's own method table then its superclass
// chain, per spec §4.4's instance/GET_SUPER resolution order. Because
// INHERIT already copies the superclass's method table into the
// subclass at inherit time, this walk is mostly redundant for ordinary
// instance calls — it earns its keep for GET_SUPER, which must start
// the search at the superclass itself rather than the receiver's own
// (possibly overriding) class.
func findClassMethod(start *value.Class, name string) (value.Value, bool) {
	for c := start; c != nil; c = c.Superclass {
		if m, ok := c.Methods[name]; ok {
			return m, true
		}
	}
	return value.Null, false
}

// bindInstanceMethod wraps a Closure or NativeFn method found on a
// Class's method table into a value callable with inst already bound
// as the receiver, per spec §4.4: Closures become a proper BoundMethod
// heap object, native methods get a receiver-prepending wrapper.
func (vm *VM) bindInstanceMethod(inst *value.Instance, method value.Value) value.Value {
	if method.IsClosure() {
		bm := gc.NewObject(vm.heap, vm, value.NewBoundMethod(inst, method.AsClosure()))
		return value.Object(bm)
	}
	return vm.bindReceiver(value.Object(inst), method)
}

// bindReceiver wraps an arbitrary callable so that receiver is
// prepended to its argument vector on every call, used for builtin
// method registries on Hash/Array/String/Int/Real/Bool (getters are
// invoked directly by getMagicMethod instead) and for non-Closure
// class methods (spec
// §4.4: "wrapper that prepends V to the argument vector").
func (vm *VM) bindReceiver(receiver, method value.Value) value.Value {
	nf := &value.NativeFn{
		Engine: func(eng value.Engine, args []value.Value) (value.Value, error) {
			full := make([]value.Value, 0, len(args)+1)
			full = append(full, receiver)
			full = append(full, args...)
			return eng.Call(method, full)
		},
	}
	return value.NativeFnValue(nf)
}

// builtinKind names the builtin-type registry a Value's kind resolves
// through, per spec §4.4 ("kind Object" for Hash, etc).
func builtinKind(t value.Type) (string, bool) {
	switch t {
	case value.TypeArray:
		return "Array", true
	case value.TypeString:
		return "String", true
	case value.TypeInt:
		return "Int", true
	case value.TypeReal:
		return "Real", true
	case value.TypeBool:
		return "Bool", true
	case value.TypeHash:
		return "Object", true
	default:
		return "", false
	}
}

// getMagicMethod resolves what `v.name` means, per spec §4.4. The
// bool result reports whether resolution succeeded; a Hash/Object
// getter is invoked immediately (it is a property, not a method), so
// this can also return an error if that invocation throws.
func (vm *VM) getMagicMethod(v value.Value, name string) (value.Value, bool, error) {
	switch v.Type() {
	case value.TypeInstance:
		inst := v.AsInstance()
		if f, ok := inst.Fields[name]; ok {
			return f, true, nil
		}
		if m, ok := findClassMethod(inst.Class, name); ok {
			return vm.bindInstanceMethod(inst, m), true, nil
		}
		return value.Null, false, nil

	case value.TypeClass:
		cls := v.AsClass()
		if m, ok := findClassMethod(cls, name); ok {
			return m, true, nil
		}
		return value.Null, false, nil

	case value.TypeHash:
		h := v.AsHash()
		if f, ok := h.Fields[name]; ok {
			return f, true, nil
		}
		if g, ok := vm.getters["Object"][name]; ok {
			res, err := vm.call(g, []value.Value{v})
			return res, true, err
		}
		if m, ok := vm.methods["Object"][name]; ok {
			return vm.bindReceiver(v, m), true, nil
		}
		return value.Null, false, nil

	default:
		kind, ok := builtinKind(v.Type())
		if !ok {
			return value.Null, false, nil
		}
		if g, ok := vm.getters[kind][name]; ok {
			res, err := vm.call(g, []value.Value{v})
			return res, true, err
		}
		if m, ok := vm.methods[kind][name]; ok {
			return vm.bindReceiver(v, m), true, nil
		}
		return value.Null, false, nil
	}
}
