// Package gc implements the VM's tracing mark-sweep garbage collector.
//
// Ported from original_source/src/memory/mark_sweep_gc.cpp and
// include/memory/garbage_collector.h. The C++ original keys a
// std::unordered_map<MeowObject*, GCMetadata> by raw pointer; the Go
// port keys map[value.Traceable]*metadata the same way, since a Go
// interface value wrapping a pointer compares equal by pointer
// identity — the arena-of-handles design spec §9 calls for falls out
// of that for free, without needing to invent an integer handle type.
package gc

import "paserati/pkg/value"

type metadata struct {
	marked bool
}

// Heap owns every heap object the VM has allocated and performs
// tracing mark-and-sweep collection over them (spec §4.2).
type Heap struct {
	objects      map[value.Traceable]*metadata
	disableDepth int
	allocSinceGC int
	threshold    int
}

// RootProvider is implemented by the VM so the collector can ask it to
// visit every root (spec §4.2 enumerates seven root classes) without
// the gc package depending on pkg/vm.
type RootProvider interface {
	TraceRoots(v value.Visitor)
}

// New creates an empty heap. threshold is the number of allocations
// between automatic collections when MaybeCollect is used; 0 disables
// automatic collection (collect must then be triggered explicitly).
func New(threshold int) *Heap {
	return &Heap{
		objects:   make(map[value.Traceable]*metadata),
		threshold: threshold,
	}
}

// Register records obj as live immediately after allocation, before
// any pointer to it escapes to a visible location — spec §4.2's
// contract for register(obj).
func (h *Heap) Register(obj value.Traceable) {
	h.objects[obj] = &metadata{}
	h.allocSinceGC++
}

// NewObject allocates via the supplied constructor, registers the
// result, and (if enabled and past the allocation threshold) triggers
// a collection — spec §4.2's newObject<T>(...) contract. roots is
// consulted only if a collection actually runs.
func NewObject[T value.Traceable](h *Heap, roots RootProvider, obj T) T {
	h.Register(obj)
	h.MaybeCollect(roots)
	return obj
}

// Enabled reports whether collection is currently permitted.
func (h *Heap) Enabled() bool { return h.disableDepth == 0 }

// Disable suppresses collection; reference-counted, so nested
// Disable/Enable pairs compose (spec §4.2).
func (h *Heap) Disable() { h.disableDepth++ }

// Enable lifts one level of suppression.
func (h *Heap) Enable() {
	if h.disableDepth > 0 {
		h.disableDepth--
	}
}

// DisableScope is a scoped GC-disable guard: construct with
// NewDisableScope, `defer scope.Release()` to guarantee re-enable on
// every exit path including panics, mirroring original_source's
// GCScopeGuard (meow_vm.h) — spec §9's "Scoped GC disable" design note.
type DisableScope struct {
	heap *Heap
	done bool
}

// NewDisableScope disables collection on the given heap and returns a
// guard that re-enables it exactly once.
func NewDisableScope(h *Heap) *DisableScope {
	h.Disable()
	return &DisableScope{heap: h}
}

// Release re-enables collection. Safe to call multiple times; only
// the first call has an effect, so a deferred Release composes safely
// with an explicit early one.
func (s *DisableScope) Release() {
	if s.done {
		return
	}
	s.done = true
	s.heap.Enable()
}

// MaybeCollect runs a collection if the heap is enabled and enough
// allocations have accumulated since the last one.
func (h *Heap) MaybeCollect(roots RootProvider) {
	if !h.Enabled() {
		return
	}
	if h.threshold <= 0 || h.allocSinceGC < h.threshold {
		return
	}
	h.Collect(roots)
}

// Collect runs one full mark-and-sweep pass: mark every root reachable
// object via roots.TraceRoots, then sweep (drop) every unmarked entry
// from the arena, letting Go's own allocator reclaim the underlying
// memory once the last reference disappears. Collect must only be
// called while the collector is enabled (spec §4.2, §5); calling it
// while disabled is a caller error and is not guarded against here,
// matching the original's unchecked contract — callers wanting safety
// should check Enabled() or just use MaybeCollect.
func (h *Heap) Collect(roots RootProvider) {
	mv := &markVisitor{heap: h}
	roots.TraceRoots(mv)

	for obj, md := range h.objects {
		if md.marked {
			md.marked = false
			continue
		}
		delete(h.objects, obj)
	}
	h.allocSinceGC = 0
}

// Len reports how many objects the arena currently tracks, useful for
// GC-reachability tests (spec §8.3/§8 S6).
func (h *Heap) Len() int { return len(h.objects) }

// Contains reports whether obj is still tracked by the arena — used by
// tests asserting an object was (or wasn't) swept.
func (h *Heap) Contains(obj value.Traceable) bool {
	_, ok := h.objects[obj]
	return ok
}

// markVisitor implements value.Visitor for the mark phase: visiting a
// value dispatches to visiting its underlying object (if heap-kinded);
// visiting an object marks it and, the first time it's marked, asks it
// to trace its own out-edges — cycles are tolerated by the mark bit
// exactly as spec §4.2's tracing policy requires.
type markVisitor struct {
	heap *Heap
}

func (mv *markVisitor) VisitValue(v value.Value) {
	switch v.Type() {
	case value.TypeArray, value.TypeHash, value.TypeUpvalue, value.TypeClosure,
		value.TypeClass, value.TypeInstance, value.TypeBoundMethod, value.TypeProto,
		value.TypeModule:
		mv.VisitObject(v.AsTraceable())
	}
}

func (mv *markVisitor) VisitObject(obj value.Traceable) {
	if obj == nil {
		return
	}
	md, ok := mv.heap.objects[obj]
	if !ok {
		return
	}
	if md.marked {
		return
	}
	md.marked = true
	obj.Trace(mv)
}
