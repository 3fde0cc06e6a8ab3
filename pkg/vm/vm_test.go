package vm

import (
	"fmt"
	"testing"

	"paserati/pkg/gc"
	"paserati/pkg/loader"
	"paserati/pkg/value"
)

// noResolver is used by tests that never import another module.
type noResolver struct{}

func (noResolver) Resolve(importPath, importerPath string) (string, string, error) {
	return "", "", fmt.Errorf("no module resolution configured for %q", importPath)
}

// runProgram parses src as a single-module program and runs its "main"
// prototype to completion via vm.Call, returning whatever it RETURNs
// (or Null, for a program that HALTs instead).
func runProgram(t *testing.T, src string) (value.Value, *VM) {
	t.Helper()
	prog, err := loader.ParseSource(src, "test.vm")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	machine := New(noResolver{}, 0, nil)
	mod := value.NewModule("test", "test.vm")
	closure := gc.NewObject(machine.heap, machine, value.NewClosure(prog.Main, mod))
	result, err := machine.Call(value.Object(closure), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result, machine
}

// --- S1: arithmetic ---

func TestS1Arithmetic(t *testing.T) {
	src := `
.proto main 3 0
  LOAD_INT 0 2
  LOAD_INT 1 3
  BINARY 2 0 0 1
  RETURN 2
.end
`
	result, machine := runProgram(t, src)
	if !result.IsInt() || result.AsInt() != 5 {
		t.Errorf("got %v, want Int(5)", result)
	}
	// Property 1: CALL/RETURN-balanced programs leave the register
	// stack exactly as deep as it started.
	if len(machine.regs) != 0 {
		t.Errorf("register stack depth after RETURN = %d, want 0", len(machine.regs))
	}
}

// --- S2: closure counter ---

func TestS2ClosureCounter(t *testing.T) {
	src := `
.proto increment 2 1
  .upvalue local 0
  .const int 1
  GET_UPVALUE 0 0
  LOAD_CONST 1 0
  BINARY 0 0 0 1
  SET_UPVALUE 0 0
  RETURN 0
.end

.proto main 2 0
  .const int 0
  .const proto increment
  LOAD_CONST 0 0
  CLOSURE 1 1
  RETURN 1
.end
`
	counter, machine := runProgram(t, src)
	if !counter.IsClosure() {
		t.Fatalf("expected main to return a closure, got %v", counter.Type())
	}
	// Property 2: the outer frame has already returned, closing the
	// counter's upvalue, yet three successive calls still work.
	if len(machine.openUpvalues) != 0 {
		t.Errorf("open upvalues after the outer frame returned = %d, want 0", len(machine.openUpvalues))
	}
	want := []int64{1, 2, 3}
	for i, w := range want {
		got, err := machine.Call(counter, nil)
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if !got.IsInt() || got.AsInt() != w {
			t.Errorf("call %d = %v, want Int(%d)", i+1, got, w)
		}
	}
}

// --- S3: try/throw ---

func TestS3TryThrow(t *testing.T) {
	src := `
.proto main 2 0
  .const string "boom"
  SETUP_TRY handler
  LOAD_CONST 0 0
  THROW 0
.label handler
  RETURN 2
.end
`
	result, machine := runProgram(t, src)
	if !result.IsString() || result.AsString() != "boom" {
		t.Errorf("got %v, want String(\"boom\")", result)
	}
	if len(machine.handlers) != 0 {
		t.Errorf("handler stack at return = %d, want 0", len(machine.handlers))
	}
}

// --- S4: inheritance ---

func TestS4InheritNoOverride(t *testing.T) {
	src := `
.proto bm 1 0
  LOAD_INT 0 1
  RETURN 0
.end

.proto main 6 0
  .const string "B"
  .const string "A"
  .const string "m"
  .const proto bm
  NEW_CLASS 0 0
  NEW_CLASS 1 1
  CLOSURE 2 3
  SET_METHOD 0 2 2
  INHERIT 1 0
  NEW_INSTANCE 3 1 4 0
  GET_PROP 2 3 2
  CALL 2 3 0
  RETURN 2
.end
`
	result, _ := runProgram(t, src)
	if !result.IsInt() || result.AsInt() != 1 {
		t.Errorf("A().m() with no override = %v, want Int(1)", result)
	}
}

func TestS4InheritWithOverride(t *testing.T) {
	src := `
.proto bm 1 0
  LOAD_INT 0 1
  RETURN 0
.end

.proto am 1 0
  LOAD_INT 0 2
  RETURN 0
.end

.proto main 6 0
  .const string "B"
  .const string "A"
  .const string "m"
  .const proto bm
  .const proto am
  NEW_CLASS 0 0
  NEW_CLASS 1 1
  CLOSURE 2 3
  SET_METHOD 0 2 2
  INHERIT 1 0
  CLOSURE 4 4
  SET_METHOD 1 2 4
  NEW_INSTANCE 3 1 5 0
  GET_PROP 2 3 2
  CALL 2 3 0
  RETURN 2
.end
`
	result, _ := runProgram(t, src)
	if !result.IsInt() || result.AsInt() != 2 {
		t.Errorf("A().m() with an override = %v, want Int(2)", result)
	}
}

func TestS4SuperCall(t *testing.T) {
	src := `
.proto bm 1 0
  LOAD_INT 0 1
  RETURN 0
.end

.proto am 3 1
  .upvalue local 0
  .const string "m"
  GET_UPVALUE 1 0
  GET_SUPER 2 1 0
  CALL 2 3 0
  RETURN 2
.end

.proto main 6 0
  .const string "B"
  .const string "A"
  .const string "m"
  .const proto bm
  .const proto am
  NEW_CLASS 0 0
  NEW_CLASS 1 1
  CLOSURE 2 3
  SET_METHOD 0 2 2
  INHERIT 1 0
  CLOSURE 3 4
  SET_METHOD 1 2 3
  NEW_INSTANCE 4 1 5 0
  GET_PROP 3 4 2
  CALL 3 4 0
  RETURN 3
.end
`
	result, _ := runProgram(t, src)
	if !result.IsInt() || result.AsInt() != 1 {
		t.Errorf("super.m() from inside an override = %v, want Int(1)", result)
	}
}

// --- S5: module cycle ---

// cycleResolver serves two fixed module sources by canonical path.
type cycleResolver struct {
	sources map[string]string
}

func (r cycleResolver) Resolve(importPath, importerPath string) (string, string, error) {
	src, ok := r.sources[importPath]
	if !ok {
		return "", "", fmt.Errorf("unknown module %q", importPath)
	}
	return importPath, src, nil
}

func TestS5ModuleCycle(t *testing.T) {
	aSrc := `
.proto main 3 0
  .const string "b.vm"
  .const string "name"
  .const string "A"
  IMPORT_MODULE 0 0
  LOAD_CONST 1 2
  EXPORT 1 1
  LOAD_NULL 2
  RETURN 2
.end
`
	bSrc := `
.proto main 5 0
  .const string "a.vm"
  .const string "fromB"
  .const string "B"
  .const string "name"
  .const string "bSawIncomplete"
  SETUP_TRY handler
  IMPORT_MODULE 0 0
  GET_EXPORT 1 0 3
  POP_TRY
  LOAD_FALSE 2
  JUMP after
.label handler
  LOAD_TRUE 2
.label after
  LOAD_CONST 1 2
  EXPORT 1 1
  SET_GLOBAL 2 4
  LOAD_NULL 4
  RETURN 4
.end
`
	machine := New(cycleResolver{sources: map[string]string{"a.vm": aSrc, "b.vm": bSrc}}, 0, nil)
	if err := machine.Entry("a.vm", false); err != nil {
		t.Fatalf("Entry: %v", err)
	}

	a, ok := machine.modules["a.vm"]
	if !ok || !a.IsExecuted {
		t.Fatal("expected module a.vm to be cached and fully executed")
	}
	b, ok := machine.modules["b.vm"]
	if !ok || !b.IsExecuted {
		t.Fatal("expected module b.vm to be cached and fully executed")
	}

	if got := a.Exports["name"]; !got.IsString() || got.AsString() != "A" {
		t.Errorf("a.vm export \"name\" = %v, want \"A\"", got)
	}
	if got := b.Exports["fromB"]; !got.IsString() || got.AsString() != "B" {
		t.Errorf("b.vm export \"fromB\" = %v, want \"B\"", got)
	}
	// b re-entered a while a was still executing, before a had run its
	// EXPORT: b must have observed the partially-populated module, not
	// blocked or magically seen the eventual value.
	sawIncomplete, ok := b.Globals["bSawIncomplete"]
	if !ok || !sawIncomplete.IsBool() || !sawIncomplete.AsBool() {
		t.Error("expected b.vm to observe a.vm's export table as incomplete at the cycle re-entry point")
	}
}

// --- S6: GC of a reference cycle ---

func TestS6GCReclaimsCycle(t *testing.T) {
	src := `
.proto main 3 0
  .const string "Node"
  .const string "peer"
  NEW_CLASS 0 0
  NEW_INSTANCE 1 0 3 0
  NEW_INSTANCE 2 0 3 0
  SET_PROP 1 1 2
  SET_PROP 2 1 1
  HALT
.end
`
	_, machine := runProgram(t, src)
	if machine.heap.Len() == 0 {
		t.Fatal("expected the class and the two mutually-referencing instances to still be registered before collection")
	}
	machine.heap.Collect(machine)
	if machine.heap.Len() != 0 {
		t.Errorf("objects left after collecting a root-free cycle: %d, want 0", machine.heap.Len())
	}
}

// --- Property 5: dispatch totality surfaces errors, not crashes ---

func TestUnsupportedBinaryOperandsThrowTypeMismatch(t *testing.T) {
	src := `
.proto main 3 0
  .const string "x"
  SETUP_TRY handler
  LOAD_CONST 0 0
  LOAD_INT 1 1
  BINARY 2 0 0 1
  RETURN 2
.label handler
  RETURN 3
.end
`
	prog, perr := loader.ParseSource(src, "test.vm")
	if perr != nil {
		t.Fatal(perr)
	}
	machine := New(noResolver{}, 0, nil)
	mod := value.NewModule("test", "test.vm")
	closure := gc.NewObject(machine.heap, machine, value.NewClosure(prog.Main, mod))
	thrown, err := machine.Call(value.Object(closure), nil)
	if err != nil {
		t.Fatalf("expected String + Int to throw a catchable TypeMismatch, not panic or escape the handler: %v", err)
	}
	if !thrown.IsHash() {
		t.Fatalf("expected the caught value to be a Hash, got %v", thrown.Type())
	}
	if kind := thrown.AsHash().Fields["kind"]; !kind.IsString() || kind.AsString() != "TypeMismatch" {
		t.Errorf("thrown kind = %v, want %q", kind, "TypeMismatch")
	}
}

// --- Property 6: module idempotence ---

func TestModuleIdempotence(t *testing.T) {
	src := `
.proto main 1 0
  LOAD_NULL 0
  RETURN 0
.end
`
	machine := New(cycleResolver{sources: map[string]string{"m.vm": src}}, 0, nil)
	if err := machine.Entry("m.vm", false); err != nil {
		t.Fatal(err)
	}
	first := machine.modules["m.vm"]
	if err := machine.Entry("m.vm", false); err != nil {
		t.Fatal(err)
	}
	second := machine.modules["m.vm"]
	if first != second {
		t.Error("importing the same canonical path twice should yield the identical module object")
	}
}

// --- Property 7: binding round-trip ---

func TestBindingRoundTrip(t *testing.T) {
	class := value.NewClass("Greeter")
	machine := New(noResolver{}, 0, nil)

	prog, err := loader.ParseSource(`
.proto main 2 0
  .const string "hi"
  LOAD_CONST 1 0
  RETURN 1
.end
`, "greet.vm")
	if err != nil {
		t.Fatal(err)
	}
	mod := value.NewModule("test", "test.vm")
	method := gc.NewObject(machine.heap, machine, value.NewClosure(prog.Main, mod))
	class.Methods["greet"] = value.Object(method)
	inst := machine.NewInstance(class)

	bound, ok, err := machine.getMagicMethod(value.Object(inst), "greet")
	if err != nil || !ok {
		t.Fatalf("getMagicMethod: ok=%v err=%v", ok, err)
	}
	viaBinding, err := machine.Call(bound, nil)
	if err != nil {
		t.Fatal(err)
	}
	viaDirect, err := machine.Call(value.Object(method), []value.Value{value.Object(inst)})
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(viaBinding, viaDirect) {
		t.Errorf("bound call = %v, direct call with receiver prepended = %v, want equal", viaBinding, viaDirect)
	}
}
