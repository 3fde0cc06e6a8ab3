// Package value defines the runtime value domain of the VM: the tagged
// Value union and every heap object kind it can point to (Array, Hash,
// Closure, Upvalue, Class, Instance, BoundMethod, Prototype, Module).
//
// Everything heap-shaped lives in this single package, rather than split
// across "value" and "object" packages, because the object graph is
// mutually recursive (a Closure holds Upvalues, a Prototype holds
// constant Values, an Instance holds a Class which holds method Values,
// ...) and Go has no forward-declared types to break the cycle the way
// the original C++ split (value.h / definitions.h, both under "common")
// got away with.
package value

import (
	"fmt"
	"math"
)

// Type tags the variant currently held by a Value.
type Type uint8

const (
	TypeNull Type = iota
	TypeBool
	TypeInt
	TypeReal
	TypeString
	TypeArray
	TypeHash
	TypeUpvalue
	TypeClosure
	TypeClass
	TypeInstance
	TypeBoundMethod
	TypeProto
	TypeModule
	TypeNativeFn
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeReal:
		return "real"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	case TypeHash:
		return "hash"
	case TypeUpvalue:
		return "upvalue"
	case TypeClosure:
		return "function"
	case TypeClass:
		return "class"
	case TypeInstance:
		return "instance"
	case TypeBoundMethod:
		return "bound_method"
	case TypeProto:
		return "proto"
	case TypeModule:
		return "module"
	case TypeNativeFn:
		return "native_fn"
	default:
		return "unknown"
	}
}

// Value is a tagged union over every primitive and heap-allocated kind
// the VM knows about. Primitives (Null, Bool, Int, Real) are held
// inline and copied by value; heap kinds hold a pointer into the arena
// owned by pkg/gc. Value itself never owns heap memory — the GC does.
type Value struct {
	typ Type
	i   int64
	f   float64
	s   string
	obj Traceable
}

// Traceable is implemented by every heap object kind so the collector
// can walk the object graph without a type switch in pkg/gc itself.
type Traceable interface {
	Trace(v Visitor)
}

// Visitor is handed to Trace implementations during a collection pass.
type Visitor interface {
	VisitValue(Value)
	VisitObject(Traceable)
}

var Null = Value{typ: TypeNull}

func Bool(b bool) Value {
	i := int64(0)
	if b {
		i = 1
	}
	return Value{typ: TypeBool, i: i}
}

func Int(n int64) Value   { return Value{typ: TypeInt, i: n} }
func Real(n float64) Value { return Value{typ: TypeReal, f: n} }
func Str(s string) Value   { return Value{typ: TypeString, s: s} }

func Object(o Traceable) Value {
	switch o.(type) {
	case *Array:
		return Value{typ: TypeArray, obj: o}
	case *Hash:
		return Value{typ: TypeHash, obj: o}
	case *Upvalue:
		return Value{typ: TypeUpvalue, obj: o}
	case *Closure:
		return Value{typ: TypeClosure, obj: o}
	case *Class:
		return Value{typ: TypeClass, obj: o}
	case *Instance:
		return Value{typ: TypeInstance, obj: o}
	case *BoundMethod:
		return Value{typ: TypeBoundMethod, obj: o}
	case *Prototype:
		return Value{typ: TypeProto, obj: o}
	case *Module:
		return Value{typ: TypeModule, obj: o}
	default:
		panic(fmt.Sprintf("value: Object() given unknown Traceable %T", o))
	}
}

// NativeFnValue wraps a *NativeFn as a Value. NativeFn is not itself
// Traceable (it owns no heap references the GC must trace beyond the
// closed-over receiver, which free functions don't have); it is kept
// out of Object() on purpose, see NativeFn's doc comment.
func NativeFnValue(nf *NativeFn) Value {
	return Value{typ: TypeNativeFn, obj: nativeFnHolder{nf}}
}

// nativeFnHolder adapts *NativeFn to Traceable so it can share the obj
// field with heap kinds without polluting NativeFn's own API.
type nativeFnHolder struct{ fn *NativeFn }

func (h nativeFnHolder) Trace(Visitor) {}

func (v Value) Type() Type { return v.typ }

func (v Value) IsNull() bool         { return v.typ == TypeNull }
func (v Value) IsBool() bool         { return v.typ == TypeBool }
func (v Value) IsInt() bool          { return v.typ == TypeInt }
func (v Value) IsReal() bool         { return v.typ == TypeReal }
func (v Value) IsNumber() bool       { return v.typ == TypeInt || v.typ == TypeReal }
func (v Value) IsString() bool       { return v.typ == TypeString }
func (v Value) IsArray() bool        { return v.typ == TypeArray }
func (v Value) IsHash() bool         { return v.typ == TypeHash }
func (v Value) IsUpvalue() bool      { return v.typ == TypeUpvalue }
func (v Value) IsClosure() bool      { return v.typ == TypeClosure }
func (v Value) IsClass() bool        { return v.typ == TypeClass }
func (v Value) IsInstance() bool     { return v.typ == TypeInstance }
func (v Value) IsBoundMethod() bool  { return v.typ == TypeBoundMethod }
func (v Value) IsProto() bool        { return v.typ == TypeProto }
func (v Value) IsModule() bool       { return v.typ == TypeModule }
func (v Value) IsNativeFn() bool     { return v.typ == TypeNativeFn }
func (v Value) IsCallable() bool {
	switch v.typ {
	case TypeClosure, TypeBoundMethod, TypeClass, TypeNativeFn:
		return true
	default:
		return false
	}
}

func (v Value) AsBool() bool       { return v.i != 0 }
func (v Value) AsInt() int64       { return v.i }
func (v Value) AsReal() float64    { return v.f }
func (v Value) AsString() string   { return v.s }
func (v Value) AsArray() *Array    { return v.obj.(*Array) }
func (v Value) AsHash() *Hash      { return v.obj.(*Hash) }
func (v Value) AsUpvalue() *Upvalue { return v.obj.(*Upvalue) }
func (v Value) AsClosure() *Closure { return v.obj.(*Closure) }
func (v Value) AsClass() *Class    { return v.obj.(*Class) }
func (v Value) AsInstance() *Instance { return v.obj.(*Instance) }
func (v Value) AsBoundMethod() *BoundMethod { return v.obj.(*BoundMethod) }
func (v Value) AsProto() *Prototype { return v.obj.(*Prototype) }
func (v Value) AsModule() *Module   { return v.obj.(*Module) }
func (v Value) AsNativeFn() *NativeFn { return v.obj.(nativeFnHolder).fn }

// AsTraceable exposes the underlying heap pointer for any heap-kinded
// Value, used by the GC root tracer which doesn't care which concrete
// kind it is, only that it has a Trace method.
func (v Value) AsTraceable() Traceable { return v.obj }

// Truthy implements the coercion rules of spec §4.1.
func Truthy(v Value) bool {
	switch v.typ {
	case TypeNull:
		return false
	case TypeBool:
		return v.AsBool()
	case TypeInt:
		return v.i != 0
	case TypeReal:
		return v.f != 0 && v.f == v.f // v.f == v.f is false for NaN
	case TypeString:
		return len(v.s) > 0
	case TypeArray:
		return len(v.AsArray().Elements) > 0
	case TypeHash:
		return len(v.AsHash().Fields) > 0
	default:
		return true
	}
}

// Equal implements structural equality for primitives and identity
// equality for heap kinds, with Int/Real comparing numerically across
// the type boundary, per spec §4.1. Real equality follows IEEE 754
// (NaN != NaN); see TotalEqual for the alternative spec §9 mentions.
func Equal(a, b Value) bool {
	if a.typ == TypeInt && b.typ == TypeReal {
		return float64(a.i) == b.f
	}
	if a.typ == TypeReal && b.typ == TypeInt {
		return a.f == float64(b.i)
	}
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeNull:
		return true
	case TypeBool:
		return a.i == b.i
	case TypeInt:
		return a.i == b.i
	case TypeReal:
		return a.f == b.f
	case TypeString:
		return a.s == b.s
	default:
		return a.obj == b.obj
	}
}

// TotalEqual is Equal except Real comparison uses bit representation,
// so NaN equals NaN and +0/-0 are distinct — spec §9 leaves this
// unspecified for user-visible `==` and steers toward exposing it
// separately rather than guessing.
func TotalEqual(a, b Value) bool {
	if a.typ == TypeReal && b.typ == TypeReal {
		return (a.f != a.f && b.f != b.f) || math.Float64bits(a.f) == math.Float64bits(b.f)
	}
	return Equal(a, b)
}

// String renders a Value for diagnostics, the Array join method, and
// the print builtin. Containers render shallowly to avoid infinite
// recursion on cyclic structures (spec §8 S6 explicitly allows cycles).
func String(v Value) string {
	switch v.typ {
	case TypeNull:
		return "null"
	case TypeBool:
		return fmt.Sprintf("%t", v.AsBool())
	case TypeInt:
		return fmt.Sprintf("%d", v.i)
	case TypeReal:
		return fmt.Sprintf("%g", v.f)
	case TypeString:
		return v.s
	case TypeArray:
		return fmt.Sprintf("<array(%d)>", len(v.AsArray().Elements))
	case TypeHash:
		return fmt.Sprintf("<hash(%d)>", len(v.AsHash().Fields))
	case TypeClosure:
		return fmt.Sprintf("<function %s>", v.AsClosure().Proto.SourceName)
	case TypeClass:
		return fmt.Sprintf("<class %s>", v.AsClass().Name)
	case TypeInstance:
		return fmt.Sprintf("<instance of %s>", v.AsInstance().Class.Name)
	case TypeBoundMethod:
		return "<bound method>"
	case TypeProto:
		return fmt.Sprintf("<proto %s>", v.AsProto().SourceName)
	case TypeModule:
		return fmt.Sprintf("<module %s>", v.AsModule().Path)
	case TypeNativeFn:
		return "<native fn>"
	default:
		return "<unknown>"
	}
}
