package vm

import (
	"paserati/pkg/gc"
	"paserati/pkg/loader"
	"paserati/pkg/value"
)

// getOrLoadModule implements _getOrLoadModule from spec §4.6: resolve
// the canonical path, serve a cached module if its main has run or is
// currently running (breaking import cycles by returning the
// partially-populated module), otherwise parse, cache, execute.
func (vm *VM) getOrLoadModule(importPath, importerPath string, floor int) (*value.Module, error) {
	canon, src, err := vm.resolver.Resolve(importPath, importerPath)
	if err != nil {
		return nil, err
	}

	if m, ok := vm.modules[canon]; ok {
		if m.IsExecuted || m.IsExecuting {
			return m, nil
		}
	}

	prog, err := loader.ParseSource(src, canon)
	if err != nil {
		return nil, err
	}

	m := gc.NewObject(vm.heap, vm, value.NewModule(canon, canon))
	for name, v := range vm.globalSeed {
		m.Globals[name] = v
	}
	m.MainProto = prog.Main
	vm.modules[canon] = m // inserted before execution: re-entrant imports observe it mid-run
	m.IsExecuting = true

	mainClosure := gc.NewObject(vm.heap, vm, value.NewClosure(prog.Main, m))
	if _, err := vm.call(value.Object(mainClosure), nil); err != nil {
		if uw, ok := err.(*unwindPending); ok {
			err = vm.raise(uw.thrown, floor)
		}
		if err != nil {
			m.IsExecuting = false
			return nil, err
		}
	}

	m.IsExecuting = false
	m.IsExecuted = true
	return m, nil
}
