package vm

import (
	"paserati/pkg/gc"
	"paserati/pkg/value"
)

// pushClosureFrame opens a new activation record for closure at the
// top of the shared register stack, laying args into its leading
// registers and Null-filling the rest, per spec §4.3's call semantics
// step 1.
func (vm *VM) pushClosureFrame(closure *value.Closure, args []value.Value) {
	slotStart := len(vm.regs)
	nregs := closure.Proto.NumRegisters
	if nregs < len(args) {
		nregs = len(args)
	}
	window := make([]value.Value, nregs)
	copy(window, args)
	vm.regs = append(vm.regs, window...)
	vm.frames = append(vm.frames, value.CallFrame{
		Closure:   closure,
		SlotStart: slotStart,
		Module:    closure.Module,
		IP:        0,
	})
}

// popFrame discards the top frame's register window, closing any
// upvalue still open into it (spec §4.3's RETURN semantics, §9's
// upvalue-closing-on-frame-exit rule).
func (vm *VM) popFrame() {
	top := vm.frames[len(vm.frames)-1]
	vm.closeUpvaluesFrom(top.SlotStart)
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.regs = vm.regs[:top.SlotStart]
}

// captureUpvalue returns the single OPEN upvalue for absolute register
// slot, creating it if this is the first capture (spec §3's "at most
// one OPEN upvalue per slot" invariant, §9's open-upvalue registry).
func (vm *VM) captureUpvalue(slot int) *value.Upvalue {
	if uv, ok := vm.openUpvalues[slot]; ok {
		return uv
	}
	uv := gc.NewObject(vm.heap, vm, value.NewOpenUpvalue(slot))
	vm.openUpvalues[slot] = uv
	return uv
}

// closeUpvaluesFrom closes every open upvalue whose slot is >=
// fromSlot, copying in the slot's current value (spec §4.3's
// CLOSE_UPVALUES / RETURN behavior, testable property 2).
func (vm *VM) closeUpvaluesFrom(fromSlot int) {
	for slot, uv := range vm.openUpvalues {
		if slot < fromSlot {
			continue
		}
		val := value.Null
		if slot < len(vm.regs) {
			val = vm.regs[slot]
		}
		uv.Close(val)
		delete(vm.openUpvalues, slot)
	}
}

func (vm *VM) readUpvalue(uv *value.Upvalue) value.Value {
	if uv.State == value.UpvalueOpen {
		return vm.regs[uv.SlotIndex]
	}
	return uv.Closed
}

func (vm *VM) writeUpvalue(uv *value.Upvalue, v value.Value) {
	if uv.State == value.UpvalueOpen {
		vm.regs[uv.SlotIndex] = v
		return
	}
	uv.Closed = v
}
