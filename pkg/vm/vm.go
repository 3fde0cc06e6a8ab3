// Package vm implements the register-based interpreter: the
// fetch/decode/dispatch loop, call/register stacks, upvalue machinery,
// exception unwinding, method binding, and module loader glue.
//
// Grounded on the control-flow idiom of nooga-paserati's pkg/vm
// (vm.go, call.go, exceptions.go, property_helpers.go — frame-pointer
// style access via vm.frames[vm.frameCount-1], a dedicated runtimeError
// helper, property-resolution helper functions returning (Value, bool))
// and on original_source/include/vm/meow_vm.h + src/vm/handle_method.cpp
// for exact opcode and method-resolution semantics (spec §4.3-§4.6).
package vm

import (
	"fmt"

	"paserati/pkg/errors"
	"paserati/pkg/gc"
	"paserati/pkg/operators"
	"paserati/pkg/value"
)

// ModuleResolver turns an import path (as written in source) plus the
// canonical path of the importing module into the canonical path and
// source text of the target module. Implemented by pkg/driver, which
// knows about the filesystem; kept as an interface here so pkg/vm
// doesn't import "os" or "path/filepath" itself (spec §1 treats module
// discovery on disk as an external collaborator).
type ModuleResolver interface {
	Resolve(importPath, importerPath string) (canonicalPath string, source string, err error)
}

// VM is one instance of the interpreter: its own register stack, call
// stack, module cache, heap, and builtin registries (spec §5: these
// are all owned by the VM instance, never global).
type VM struct {
	regs         []value.Value
	frames       []value.CallFrame
	handlers     []value.ExceptionHandler
	openUpvalues map[int]*value.Upvalue

	modules  map[string]*value.Module
	resolver ModuleResolver

	heap *gc.Heap
	ops  *operators.Dispatcher

	methods map[string]map[string]value.Value
	getters map[string]map[string]value.Value

	args       []string
	globalSeed map[string]value.Value
}

// SeedGlobals records name/value pairs that every newly loaded module
// starts with in its Globals table (spec §4.6 gives each module its
// own globals; free builtins like `print` need to appear in all of
// them). Call before Entry; pkg/driver uses this to install
// pkg/builtins' free functions.
func (vm *VM) SeedGlobals(seed map[string]value.Value) {
	vm.globalSeed = seed
}

// New constructs a VM. heapThreshold is the allocation count between
// automatic collections (0 disables automatic collection).
func New(resolver ModuleResolver, heapThreshold int, args []string) *VM {
	return &VM{
		openUpvalues: make(map[int]*value.Upvalue),
		modules:      make(map[string]*value.Module),
		resolver:     resolver,
		heap:         gc.New(heapThreshold),
		ops:          operators.New(),
		methods:      make(map[string]map[string]value.Value),
		getters:      make(map[string]map[string]value.Value),
		args:         args,
	}
}

// --- value.Engine / value.Allocator ---

func (vm *VM) Call(callee value.Value, args []value.Value) (value.Value, error) {
	result, err := vm.call(callee, args)
	if uw, ok := err.(*unwindPending); ok {
		// A native function re-entering the VM has no floor of its own
		// to retry at; the handler it bubbled past belongs to whatever
		// script frame is currently executing, which is exactly the
		// top of vm.frames right now.
		err = vm.raise(uw.thrown, len(vm.frames))
	}
	return result, err
}

func (vm *VM) Heap() value.Allocator { return vm }

func (vm *VM) RegisterMethod(typeName, methodName string, fn value.Value) {
	if vm.methods[typeName] == nil {
		vm.methods[typeName] = make(map[string]value.Value)
	}
	vm.methods[typeName][methodName] = fn
}

func (vm *VM) RegisterGetter(typeName, propName string, fn value.Value) {
	if vm.getters[typeName] == nil {
		vm.getters[typeName] = make(map[string]value.Value)
	}
	vm.getters[typeName][propName] = fn
}

func (vm *VM) Arguments() []string { return vm.args }

func (vm *VM) NewArray(elements []value.Value) *value.Array {
	return gc.NewObject(vm.heap, vm, value.NewArray(elements))
}

func (vm *VM) NewHash() *value.Hash {
	return gc.NewObject(vm.heap, vm, value.NewHash())
}

func (vm *VM) NewInstance(class *value.Class) *value.Instance {
	return gc.NewObject(vm.heap, vm, value.NewInstance(class))
}

// --- gc.RootProvider ---

// TraceRoots visits every root class spec §4.2 enumerates.
func (vm *VM) TraceRoots(v value.Visitor) {
	for _, r := range vm.regs { // 1. live register slots
		v.VisitValue(r)
	}
	for _, m := range vm.modules { // 2. module cache (globals/exports/mainProto via Module.Trace)
		v.VisitObject(m)
	}
	for _, f := range vm.frames { // 3. frame closures/modules
		if f.Closure != nil {
			v.VisitObject(f.Closure)
		}
		if f.Module != nil {
			v.VisitObject(f.Module)
		}
	}
	for _, uv := range vm.openUpvalues { // 5. open upvalues
		v.VisitObject(uv)
	}
	for _, tbl := range vm.methods { // 6. builtin registries
		for _, fn := range tbl {
			v.VisitValue(fn)
		}
	}
	for _, tbl := range vm.getters {
		for _, fn := range tbl {
			v.VisitValue(fn)
		}
	}
	// 4 and 7 (active instruction's target registers, prototype
	// constants reached through closures) fall out of 1 and 3: a
	// closure's Trace already walks its Proto's constant pool.
}

// Entry runs the module at path to completion (spec §6's
// interpret(entryPath, isBinary)). isBinary is rejected with a
// LoadError: this port only implements the text loader.
func (vm *VM) Entry(path string, isBinary bool) error {
	if isBinary {
		return errors.NewLoadError(errors.Position{SourceName: path}, "binary module loading is not supported by this build")
	}
	_, err := vm.getOrLoadModule(path, "", 0)
	return err
}

// --- call dispatch ---

// unwindPending signals that an active THROW found a handler, but that
// handler's frame lies at or before the floor of the runLoop that is
// currently trying to service it — i.e. it belongs to an enclosing,
// shallower invocation of (*VM).call. The caller of call() is expected
// to retry vm.raise at its own (shallower) floor; see (*VM).call.
type unwindPending struct {
	thrown value.Value
}

func (e *unwindPending) Error() string { return "unwind pending at an outer call frame" }

// call is the single entry point for invoking any callable Value:
// Closure, BoundMethod, Class (construction), or NativeFn. Every
// script-level CALL instruction, every implicit class-init call, every
// super-bound call, and every native function re-entering the VM via
// Engine.Call funnels through here, which keeps exception unwinding
// uniform regardless of who is making the call (spec §5: native
// re-entry "shares the register stack and call stack linearly").
func (vm *VM) call(callee value.Value, args []value.Value) (value.Value, error) {
	switch callee.Type() {
	case value.TypeNativeFn:
		return callee.AsNativeFn().Call(vm, args)

	case value.TypeBoundMethod:
		bm := callee.AsBoundMethod()
		full := make([]value.Value, 0, len(args)+1)
		full = append(full, value.Object(bm.Receiver))
		full = append(full, args...)
		return vm.call(value.Object(bm.Method), full)

	case value.TypeClass:
		class := callee.AsClass()
		inst := vm.NewInstance(class)
		if initFn, ok := findClassMethod(class, "init"); ok {
			bound := vm.bindInstanceMethod(inst, initFn)
			if _, err := vm.call(bound, args); err != nil {
				return value.Null, err
			}
		}
		return value.Object(inst), nil

	case value.TypeClosure:
		closure := callee.AsClosure()
		// Strict by default (spec §7's ArityError), but only enforced
		// when the proto declares a required count: .proto's PARAMS
		// field is optional, and a proto that omits it gets spec §9's
		// Null-padding alternative instead (see DESIGN.md).
		if closure.Proto.NumParams > 0 && len(args) < closure.Proto.NumParams {
			return value.Null, vm.runtimeErrorValue(errors.ArityError, closure.Proto.SourceName,
				"too few arguments: want at least %d, got %d", closure.Proto.NumParams, len(args))
		}
		floor := len(vm.frames)
		vm.pushClosureFrame(closure, args)
		result, err := vm.runLoop(floor)
		if err != nil {
			return value.Null, err
		}
		return result, nil

	default:
		return value.Null, vm.runtimeErrorValue(errors.NotCallable, "", "value of type %s is not callable", callee.Type())
	}
}

// runtimeErrorValue constructs the thrown representation of an
// internal runtime error (spec §7: "all non-fatal runtime errors
// convert into a thrown value via an internal throwVMError primitive").
// A plain Hash with kind/message fields is used as that representation
// since the VM doesn't yet have a built-in Error class of its own.
func (vm *VM) runtimeErrorValue(kind errors.Kind, sourceName, format string, a ...interface{}) error {
	h := vm.NewHash()
	h.Fields["kind"] = value.Str(string(kind))
	h.Fields["message"] = value.Str(fmt.Sprintf(format, a...))
	return &unwindPending{thrown: value.Object(h)}
}

// raise implements the SETUP_TRY/THROW unwinding algorithm of spec
// §4.5, restricted to handlers whose FrameDepth is strictly deeper
// than floor (i.e. belong to this invocation or a nested one). A
// shallower handler is reported back as *unwindPending so the caller —
// one floor up the Go call stack — gets a chance to service it itself.
func (vm *VM) raise(thrown value.Value, floor int) error {
	if len(vm.handlers) == 0 {
		pos := errors.Position{}
		if len(vm.frames) > 0 {
			pos.SourceName = vm.frames[len(vm.frames)-1].Closure.Proto.SourceName
		}
		return errors.NewUncaughtError(pos, value.String(thrown))
	}
	h := vm.handlers[len(vm.handlers)-1]
	if h.FrameDepth <= floor {
		return &unwindPending{thrown: thrown}
	}
	vm.handlers = vm.handlers[:len(vm.handlers)-1]

	vm.frames = vm.frames[:h.FrameDepth]
	vm.closeUpvaluesFrom(h.StackDepth)
	vm.regs = vm.regs[:h.StackDepth]
	vm.regs = append(vm.regs, thrown)

	target := &vm.frames[h.FrameDepth-1]
	target.IP = h.CatchIP
	return nil
}

// runLoop is the fetch/decode/dispatch loop (spec §4.3). It runs until
// the call stack shrinks back to floor (the normal RETURN path) and
// returns the value written by that RETURN, or until an error (fatal,
// or an *unwindPending bubbling past floor) escapes.
func (vm *VM) runLoop(floor int) (value.Value, error) {
	result := value.Null
	for len(vm.frames) > floor {
		frame := &vm.frames[len(vm.frames)-1]
		proto := frame.Closure.Proto
		instr := proto.Code[frame.IP]
		frame.IP++

		ret, done, err := vm.step(frame, instr, floor)
		if err != nil {
			if uw, ok := err.(*unwindPending); ok {
				err = vm.raise(uw.thrown, floor)
				if err == nil {
					continue
				}
			}
			return value.Null, err
		}
		if done {
			if len(vm.frames) == floor {
				result = ret
			}
		}
	}
	return result, nil
}
