// Package driver wires together the VM, the text bytecode loader, and
// the standard library into a runnable session, and resolves import
// paths against the filesystem.
package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"paserati/pkg/builtins"
	"paserati/pkg/value"
	"paserati/pkg/vm"
)

// FSResolver resolves import paths against the filesystem, relative to
// the importing module's own directory (or the working directory for
// the entry module), appending ".vm" if the path has no extension.
// Canonical paths are absolute, so the same file imported two
// different relative ways still hits one cache entry in *vm.VM (spec
// §4.6's module-cache keying requirement).
type FSResolver struct{}

func (FSResolver) Resolve(importPath, importerPath string) (string, string, error) {
	path := importPath
	if filepath.Ext(path) == "" {
		path += ".vm"
	}
	if !filepath.IsAbs(path) {
		dir := "."
		if importerPath != "" {
			dir = filepath.Dir(importerPath)
		}
		path = filepath.Join(dir, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("resolving %q: %w", importPath, err)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return "", "", fmt.Errorf("reading module %q: %w", abs, err)
	}
	return abs, string(src), nil
}

// Session owns one VM instance configured with the standard library
// and filesystem module resolution, ready to run an entry file.
type Session struct {
	VM *vm.VM
}

// New constructs a Session. heapThreshold is forwarded to the GC (spec
// §4.2); 0 disables automatic collection. args is exposed to user code
// via the `args` builtin and the Engine.Arguments() hook (spec §6).
func New(heapThreshold int, args []string) *Session {
	machine := vm.New(FSResolver{}, heapThreshold, args)
	builtins.Install(machine)
	machine.SeedGlobals(map[string]value.Value{
		"print": builtins.Print,
		"clock": builtins.Clock,
		"args":  builtins.Args,
	})
	return &Session{VM: machine}
}

// Interpret runs the module at entryPath to completion (spec §6's sole
// entry point). isBinary is always rejected with a LoadError: only the
// text loader is implemented.
func (s *Session) Interpret(entryPath string, isBinary bool) error {
	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return fmt.Errorf("resolving entry path %q: %w", entryPath, err)
	}
	return s.VM.Entry(abs, isBinary)
}
