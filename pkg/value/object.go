package value

// Array is the heap object backing the Array value kind: an ordered,
// growable sequence of Values (spec §3).
type Array struct {
	Elements []Value
}

func NewArray(elements []Value) *Array { return &Array{Elements: elements} }

func (a *Array) Trace(v Visitor) {
	for _, e := range a.Elements {
		v.VisitValue(e)
	}
}

// Hash is the heap object backing the Object/Hash value kind: a
// string-keyed map whose insertion order is not observable (spec §3).
type Hash struct {
	Fields map[string]Value
}

func NewHash() *Hash { return &Hash{Fields: make(map[string]Value)} }

func (h *Hash) Trace(v Visitor) {
	for _, val := range h.Fields {
		v.VisitValue(val)
	}
}

// UpvalueState is OPEN (borrowing a live register) or CLOSED (owning
// its value), per spec §3. The OPEN->CLOSED transition is terminal.
type UpvalueState uint8

const (
	UpvalueOpen UpvalueState = iota
	UpvalueClosed
)

// Upvalue is a captured variable cell. While OPEN, SlotIndex names a
// slot in the VM's shared register stack that reads/writes indirect
// through; once closed, Closed holds the owned value and SlotIndex is
// meaningless (spec §3).
type Upvalue struct {
	State     UpvalueState
	SlotIndex int
	Closed    Value
}

func NewOpenUpvalue(slot int) *Upvalue {
	return &Upvalue{State: UpvalueOpen, SlotIndex: slot, Closed: Null}
}

// Close transitions the upvalue to CLOSED, copying v in as the owned
// value. Closing an already-closed upvalue is a programming error in
// the VM (the open-upvalue registry guarantees at most one close per
// upvalue) and is not guarded against here, matching the original's
// unchecked `close`.
func (u *Upvalue) Close(v Value) {
	u.Closed = v
	u.State = UpvalueClosed
}

func (u *Upvalue) Trace(v Visitor) {
	if u.State == UpvalueClosed {
		v.VisitValue(u.Closed)
	}
}

// Closure pairs a Prototype with exactly NumUpvalues upvalue
// references — the unit of callable function values (spec §3). Module
// is the module the closure was created in, carried here (rather than
// looked up some other way) so a call through the closure knows whose
// globals/exports GET_GLOBAL/SET_GLOBAL should read and write.
type Closure struct {
	Proto    *Prototype
	Upvalues []*Upvalue
	Module   *Module
}

func NewClosure(proto *Prototype, module *Module) *Closure {
	return &Closure{Proto: proto, Upvalues: make([]*Upvalue, proto.NumUpvalues), Module: module}
}

func (c *Closure) Trace(v Visitor) {
	v.VisitObject(c.Proto)
	for _, uv := range c.Upvalues {
		if uv != nil {
			v.VisitObject(uv)
		}
	}
	if c.Module != nil {
		v.VisitObject(c.Module)
	}
}

// Class holds a name, optional superclass, and its method table
// (method name -> callable Value), per spec §3.
type Class struct {
	Name       string
	Superclass *Class
	Methods    map[string]Value
}

func NewClass(name string) *Class {
	return &Class{Name: name, Methods: make(map[string]Value)}
}

func (c *Class) Trace(v Visitor) {
	if c.Superclass != nil {
		v.VisitObject(c.Superclass)
	}
	for _, m := range c.Methods {
		v.VisitValue(m)
	}
}

// Instance is a Class reference plus a field-name -> Value mapping
// (spec §3).
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: make(map[string]Value)}
}

func (i *Instance) Trace(v Visitor) {
	v.VisitObject(i.Class)
	for _, f := range i.Fields {
		v.VisitValue(f)
	}
}

// BoundMethod pairs an Instance receiver with a Closure (spec §3).
type BoundMethod struct {
	Receiver *Instance
	Method   *Closure
}

func NewBoundMethod(receiver *Instance, method *Closure) *BoundMethod {
	return &BoundMethod{Receiver: receiver, Method: method}
}

func (b *BoundMethod) Trace(v Visitor) {
	v.VisitObject(b.Receiver)
	v.VisitObject(b.Method)
}

// Module is the unit of import and of global scope: a canonical path,
// its own globals/exports tables, its main Prototype, and the
// IsExecuted/IsExecuting lifecycle flags that break import cycles
// (spec §3, §4.6).
type Module struct {
	Name        string
	Path        string
	Globals     map[string]Value
	Exports     map[string]Value
	MainProto   *Prototype
	IsExecuted  bool
	IsExecuting bool
}

func NewModule(name, path string) *Module {
	return &Module{
		Name:    name,
		Path:    path,
		Globals: make(map[string]Value),
		Exports: make(map[string]Value),
	}
}

func (m *Module) Trace(v Visitor) {
	for _, g := range m.Globals {
		v.VisitValue(g)
	}
	for _, e := range m.Exports {
		v.VisitValue(e)
	}
	if m.MainProto != nil {
		v.VisitObject(m.MainProto)
	}
}

// NativeFn is a two-flavoured native callable, per spec §3: Simple
// takes only the argument vector, Engine additionally takes a handle
// back into the VM (for native functions that need to allocate, call
// back into user code, or read registered builtins). Exactly one of
// Simple/Engine is set. NativeFn does not implement Traceable itself
// — it is wrapped by value.nativeFnHolder, a no-op tracer, because a
// bare function value closes over no heap state the tracer needs to
// reach beyond what the wrapping BoundMethod/receiver (traced
// separately by the call site that constructed the wrapper) already
// covers.
type NativeFn struct {
	Simple func(args []Value) (Value, error)
	Engine func(eng Engine, args []Value) (Value, error)
}

// IsEngineAware reports which of the two call conventions applies.
func (n *NativeFn) IsEngineAware() bool { return n.Engine != nil }

// Call invokes whichever variant is populated.
func (n *NativeFn) Call(eng Engine, args []Value) (Value, error) {
	if n.Engine != nil {
		return n.Engine(eng, args)
	}
	return n.Simple(args)
}

// Engine is the interface native functions are handed so they can
// re-enter the VM, allocate, and install further builtins, without
// depending on the concrete *vm.VM type (avoids an import cycle:
// pkg/vm depends on pkg/value, not the reverse). Grounded on
// original_source's MeowEngine abstract base.
type Engine interface {
	Call(callee Value, args []Value) (Value, error)
	Heap() Allocator
	RegisterMethod(typeName, methodName string, fn Value)
	RegisterGetter(typeName, propName string, fn Value)
	Arguments() []string
}

// Allocator is the subset of the GC's allocation API native functions
// may use to create new heap objects, without exposing collection
// internals (register/collect/enable/disable) to user-facing code.
type Allocator interface {
	NewArray(elements []Value) *Array
	NewHash() *Hash
	NewInstance(class *Class) *Instance
}

// CallFrame is the activation record of one in-progress call: active
// closure, register-stack base, owning module, instruction pointer,
// and the caller's destination register (spec §3).
type CallFrame struct {
	Closure  *Closure
	SlotStart int
	Module   *Module
	IP       int
	RetReg   int
}

// ExceptionHandler is captured when a guarded region (SETUP_TRY) is
// entered; THROW unwinds to exactly these depths (spec §3, §4.5).
type ExceptionHandler struct {
	CatchIP    int
	FrameDepth int
	StackDepth int
}
