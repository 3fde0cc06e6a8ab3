package vm

import (
	"paserati/pkg/errors"
	"paserati/pkg/value"
)

// execGetIndex implements GET_INDEX (spec §4.1): Array[Int] bounds-checks,
// Hash[String] looks up a field, String[Int] yields a one-character
// string, Instance[String] looks up a field by key the same way a Hash
// does. Any other combination is a TypeMismatch.
func (vm *VM) execGetIndex(frame *value.CallFrame, a []int64, proto *value.Prototype) (value.Value, bool, error) {
	base := frame.SlotStart
	dst, containerReg, keyReg := int(a[0]), int(a[1]), int(a[2])
	container := vm.regs[base+containerReg]
	key := vm.regs[base+keyReg]

	switch container.Type() {
	case value.TypeArray:
		if !key.IsInt() {
			return vm.err(errors.TypeMismatch, proto.SourceName, "array index must be an int, got %s", key.Type())
		}
		elems := container.AsArray().Elements
		idx := key.AsInt()
		if idx < 0 || idx >= int64(len(elems)) {
			return vm.err(errors.IndexError, proto.SourceName, "array index %d out of range (len %d)", idx, len(elems))
		}
		vm.regs[base+dst] = elems[idx]

	case value.TypeHash:
		if !key.IsString() {
			return vm.err(errors.TypeMismatch, proto.SourceName, "hash key must be a string, got %s", key.Type())
		}
		v, ok := container.AsHash().Fields[key.AsString()]
		if !ok {
			return vm.err(errors.KeyError, proto.SourceName, "no such key %q", key.AsString())
		}
		vm.regs[base+dst] = v

	case value.TypeString:
		if !key.IsInt() {
			return vm.err(errors.TypeMismatch, proto.SourceName, "string index must be an int, got %s", key.Type())
		}
		s := container.AsString()
		idx := key.AsInt()
		if idx < 0 || idx >= int64(len(s)) {
			return vm.err(errors.IndexError, proto.SourceName, "string index %d out of range (len %d)", idx, len(s))
		}
		vm.regs[base+dst] = value.Str(string(s[idx]))

	case value.TypeInstance:
		if !key.IsString() {
			return vm.err(errors.TypeMismatch, proto.SourceName, "instance field key must be a string, got %s", key.Type())
		}
		v, ok := container.AsInstance().Fields[key.AsString()]
		if !ok {
			return vm.err(errors.KeyError, proto.SourceName, "no such field %q", key.AsString())
		}
		vm.regs[base+dst] = v

	default:
		return vm.err(errors.TypeMismatch, proto.SourceName, "cannot index into value of type %s", container.Type())
	}

	return value.Null, false, nil
}

// execSetIndex implements SET_INDEX: Array[Int] = V bounds-checks,
// Hash[String] = V and Instance[String] = V insert or overwrite a
// field. Strings are immutable and not indexable for assignment.
func (vm *VM) execSetIndex(frame *value.CallFrame, a []int64, proto *value.Prototype) (value.Value, bool, error) {
	base := frame.SlotStart
	containerReg, keyReg, srcReg := int(a[0]), int(a[1]), int(a[2])
	container := vm.regs[base+containerReg]
	key := vm.regs[base+keyReg]
	src := vm.regs[base+srcReg]

	switch container.Type() {
	case value.TypeArray:
		if !key.IsInt() {
			return vm.err(errors.TypeMismatch, proto.SourceName, "array index must be an int, got %s", key.Type())
		}
		elems := container.AsArray().Elements
		idx := key.AsInt()
		if idx < 0 || idx >= int64(len(elems)) {
			return vm.err(errors.IndexError, proto.SourceName, "array index %d out of range (len %d)", idx, len(elems))
		}
		elems[idx] = src

	case value.TypeHash:
		if !key.IsString() {
			return vm.err(errors.TypeMismatch, proto.SourceName, "hash key must be a string, got %s", key.Type())
		}
		container.AsHash().Fields[key.AsString()] = src

	case value.TypeInstance:
		if !key.IsString() {
			return vm.err(errors.TypeMismatch, proto.SourceName, "instance field key must be a string, got %s", key.Type())
		}
		container.AsInstance().Fields[key.AsString()] = src

	default:
		return vm.err(errors.TypeMismatch, proto.SourceName, "cannot assign an index on value of type %s", container.Type())
	}

	return value.Null, false, nil
}
