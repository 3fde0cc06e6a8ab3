package vm

import (
	"paserati/pkg/errors"
	"paserati/pkg/gc"
	"paserati/pkg/value"
)

// step executes one instruction of frame. It returns (returnValue,
// true, nil) when the instruction popped frame via RETURN/HALT, or
// (_, false, err) when an error needs to propagate — either an
// *unwindPending the caller (runLoop) should retry at floor, or a
// fatal error (LoadError, UncaughtError) to return as-is.
func (vm *VM) step(frame *value.CallFrame, instr value.Instruction, floor int) (value.Value, bool, error) {
	proto := frame.Closure.Proto
	base := frame.SlotStart
	a := instr.Args

	reg := func(i int) value.Value { return vm.regs[base+i] }
	setReg := func(i int, v value.Value) { vm.regs[base+i] = v }

	switch instr.Op {
	case value.OpMove:
		setReg(int(a[0]), reg(int(a[1])))

	case value.OpLoadConst:
		setReg(int(a[0]), proto.ConstantPool[a[1]])

	case value.OpLoadInt:
		setReg(int(a[0]), value.Int(a[1]))

	case value.OpLoadNull:
		setReg(int(a[0]), value.Null)

	case value.OpLoadTrue:
		setReg(int(a[0]), value.Bool(true))

	case value.OpLoadFalse:
		setReg(int(a[0]), value.Bool(false))

	case value.OpBinary:
		dst, op, l, r := int(a[0]), value.BinaryOp(a[1]), reg(int(a[2])), reg(int(a[3]))
		fn, ok := vm.ops.Binary(op, l, r)
		if !ok {
			return vm.err(errors.TypeMismatch, proto.SourceName,
				"unsupported operand types for %s: %s, %s", op, l.Type(), r.Type())
		}
		res, err := fn(l, r)
		if err != nil {
			return vm.err(errors.DivisionByZero, proto.SourceName, "%s", err)
		}
		if res.IsArray() {
			// Array + Array builds a fresh Array outside the heap; register it.
			res = value.Object(gc.NewObject(vm.heap, vm, res.AsArray()))
		}
		setReg(dst, res)

	case value.OpUnary:
		dst, op, operand := int(a[0]), value.UnaryOp(a[1]), reg(int(a[2]))
		fn, ok := vm.ops.Unary(op, operand)
		if !ok {
			return vm.err(errors.TypeMismatch, proto.SourceName, "unsupported operand type for %s: %s", op, operand.Type())
		}
		res, _ := fn(operand)
		setReg(dst, res)

	case value.OpGetGlobal:
		name := proto.ConstantPool[a[1]].AsString()
		v, ok := frame.Module.Globals[name]
		if !ok {
			return vm.err(errors.NameError, proto.SourceName, "undefined global %q", name)
		}
		setReg(int(a[0]), v)

	case value.OpSetGlobal:
		name := proto.ConstantPool[a[1]].AsString()
		frame.Module.Globals[name] = reg(int(a[0]))

	case value.OpGetUpvalue:
		uv := frame.Closure.Upvalues[a[1]]
		setReg(int(a[0]), vm.readUpvalue(uv))

	case value.OpSetUpvalue:
		uv := frame.Closure.Upvalues[a[1]]
		vm.writeUpvalue(uv, reg(int(a[0])))

	case value.OpClosure:
		dst, protoK := int(a[0]), a[1]
		target := proto.ConstantPool[protoK].AsProto()
		closure := value.NewClosure(target, frame.Module)
		for i, d := range target.UpvalueDescs {
			if d.IsLocal {
				closure.Upvalues[i] = vm.captureUpvalue(base + d.Index)
			} else {
				closure.Upvalues[i] = frame.Closure.Upvalues[d.Index]
			}
		}
		setReg(dst, value.Object(gc.NewObject(vm.heap, vm, closure)))

	case value.OpCloseUpvalues:
		vm.closeUpvaluesFrom(base + int(a[0]))

	case value.OpJump:
		frame.IP += int(a[0])

	case value.OpJumpIfFalse:
		if !value.Truthy(reg(int(a[0]))) {
			frame.IP += int(a[1])
		}

	case value.OpJumpIfTrue:
		if value.Truthy(reg(int(a[0]))) {
			frame.IP += int(a[1])
		}

	case value.OpCall:
		dst, firstArg, argc := int(a[0]), int(a[1]), int(a[2])
		callee := reg(firstArg - 1)
		args := append([]value.Value(nil), vm.regs[base+firstArg:base+firstArg+argc]...)
		result, err := vm.call(callee, args)
		if err != nil {
			return value.Null, false, err
		}
		setReg(dst, result)

	case value.OpReturn:
		v := reg(int(a[0]))
		vm.popFrame()
		return v, true, nil

	case value.OpHalt:
		// HALT stops the whole program (spec §4.3), not just the
		// current frame: every nested runLoop on the Go call stack sees
		// its own "len(vm.frames) > floor" go false on the next check
		// and unwinds in turn, cascading back to the entry call.
		vm.closeUpvaluesFrom(0)
		vm.frames = vm.frames[:0]
		vm.regs = vm.regs[:0]
		return value.Null, true, nil

	case value.OpNewArray:
		first, count := int(a[1]), int(a[2])
		elems := append([]value.Value(nil), vm.regs[base+first:base+first+count]...)
		setReg(int(a[0]), value.Object(vm.NewArray(elems)))

	case value.OpNewHash:
		first, pairs := int(a[1]), int(a[2])
		h := vm.NewHash()
		for i := 0; i < pairs; i++ {
			k := reg(first + 2*i)
			v := reg(first + 2*i + 1)
			h.Fields[k.AsString()] = v
		}
		setReg(int(a[0]), value.Object(h))

	case value.OpGetIndex:
		return vm.execGetIndex(frame, a, proto)

	case value.OpSetIndex:
		return vm.execSetIndex(frame, a, proto)

	case value.OpGetKeys:
		h := reg(int(a[1])).AsHash()
		keys := make([]value.Value, 0, len(h.Fields))
		for k := range h.Fields {
			keys = append(keys, value.Str(k))
		}
		setReg(int(a[0]), value.Object(vm.NewArray(keys)))

	case value.OpGetValues:
		h := reg(int(a[1])).AsHash()
		vals := make([]value.Value, 0, len(h.Fields))
		for _, v := range h.Fields {
			vals = append(vals, v)
		}
		setReg(int(a[0]), value.Object(vm.NewArray(vals)))

	case value.OpNewClass:
		name := proto.ConstantPool[a[1]].AsString()
		cls := gc.NewObject(vm.heap, vm, value.NewClass(name))
		setReg(int(a[0]), value.Object(cls))

	case value.OpNewInstance:
		dst, classReg, firstArg, argc := int(a[0]), int(a[1]), int(a[2]), int(a[3])
		classVal := reg(classReg)
		if !classVal.IsClass() {
			return vm.err(errors.NotCallable, proto.SourceName, "cannot instantiate non-class value of type %s", classVal.Type())
		}
		args := append([]value.Value(nil), vm.regs[base+firstArg:base+firstArg+argc]...)
		result, err := vm.call(classVal, args)
		if err != nil {
			return value.Null, false, err
		}
		setReg(dst, result)

	case value.OpGetProp:
		dst, objReg, nameK := int(a[0]), int(a[1]), a[2]
		name := proto.ConstantPool[nameK].AsString()
		v, ok, err := vm.getMagicMethod(reg(objReg), name)
		if err != nil {
			return value.Null, false, err
		}
		if !ok {
			return vm.err(errors.NameError, proto.SourceName, "no property %q on value of type %s", name, reg(objReg).Type())
		}
		setReg(dst, v)

	case value.OpSetProp:
		objReg, nameK, srcReg := int(a[0]), a[1], int(a[2])
		name := proto.ConstantPool[nameK].AsString()
		obj := reg(objReg)
		switch obj.Type() {
		case value.TypeInstance:
			obj.AsInstance().Fields[name] = reg(srcReg)
		case value.TypeHash:
			obj.AsHash().Fields[name] = reg(srcReg)
		default:
			return vm.err(errors.TypeMismatch, proto.SourceName, "cannot set property %q on value of type %s", name, obj.Type())
		}

	case value.OpSetMethod:
		classReg, nameK, fnReg := int(a[0]), a[1], int(a[2])
		name := proto.ConstantPool[nameK].AsString()
		reg(classReg).AsClass().Methods[name] = reg(fnReg)

	case value.OpInherit:
		subReg, superReg := int(a[0]), int(a[1])
		sub := reg(subReg).AsClass()
		super := reg(superReg).AsClass()
		sub.Superclass = super
		for name, m := range super.Methods {
			sub.Methods[name] = m
		}

	case value.OpGetSuper:
		dst, superReg, nameK := int(a[0]), int(a[1]), a[2]
		name := proto.ConstantPool[nameK].AsString()
		super := reg(superReg).AsClass()
		m, ok := findClassMethod(super, name)
		if !ok {
			return vm.err(errors.NameError, proto.SourceName, "no superclass method %q", name)
		}
		receiver := reg(0).AsInstance()
		setReg(dst, vm.bindInstanceMethod(receiver, m))

	case value.OpImportModule:
		dst := int(a[0])
		path := proto.ConstantPool[a[1]].AsString()
		m, err := vm.getOrLoadModule(path, frame.Module.Path, floor)
		if err != nil {
			return value.Null, false, err
		}
		setReg(dst, value.Object(m))

	case value.OpExport:
		name := proto.ConstantPool[a[0]].AsString()
		frame.Module.Exports[name] = reg(int(a[1]))

	case value.OpGetExport:
		dst, modReg, nameK := int(a[0]), int(a[1]), a[2]
		name := proto.ConstantPool[nameK].AsString()
		m := reg(modReg).AsModule()
		v, ok := m.Exports[name]
		if !ok {
			return vm.err(errors.NameError, proto.SourceName, "module %s has no export %q", m.Path, name)
		}
		setReg(dst, v)

	case value.OpGetModuleExport:
		dst := int(a[0])
		path := proto.ConstantPool[a[1]].AsString()
		name := proto.ConstantPool[a[2]].AsString()
		m, err := vm.getOrLoadModule(path, frame.Module.Path, floor)
		if err != nil {
			return value.Null, false, err
		}
		v, ok := m.Exports[name]
		if !ok {
			return vm.err(errors.NameError, proto.SourceName, "module %s has no export %q", m.Path, name)
		}
		setReg(dst, v)

	case value.OpImportAll:
		dst := int(a[0])
		path := proto.ConstantPool[a[1]].AsString()
		m, err := vm.getOrLoadModule(path, frame.Module.Path, floor)
		if err != nil {
			return value.Null, false, err
		}
		h := vm.NewHash()
		for k, v := range m.Exports {
			h.Fields[k] = v
		}
		setReg(dst, value.Object(h))

	case value.OpSetupTry:
		vm.handlers = append(vm.handlers, value.ExceptionHandler{
			CatchIP:    int(a[0]),
			FrameDepth: len(vm.frames),
			StackDepth: len(vm.regs),
		})

	case value.OpPopTry:
		if len(vm.handlers) > 0 {
			vm.handlers = vm.handlers[:len(vm.handlers)-1]
		}

	case value.OpThrow:
		thrown := reg(int(a[0]))
		if err := vm.raise(thrown, floor); err != nil {
			return value.Null, false, err
		}

	default:
		return vm.err(errors.UnsupportedOp, proto.SourceName, "unimplemented opcode %s", instr.Op)
	}

	return value.Null, false, nil
}

// err builds a catchable runtime-error thrown value and wraps it as an
// *unwindPending, matching the shape vm.raise/runLoop expects from
// every error-producing site (spec §7: non-fatal errors become thrown
// values).
func (vm *VM) err(kind errors.Kind, sourceName, format string, args ...interface{}) (value.Value, bool, error) {
	return value.Null, false, vm.runtimeErrorValue(kind, sourceName, format, args...)
}
