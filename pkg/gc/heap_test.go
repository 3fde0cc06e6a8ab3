package gc

import (
	"testing"

	"paserati/pkg/value"
)

// fakeRoots implements RootProvider over an explicit root list, letting
// tests control exactly what's reachable without a real VM.
type fakeRoots struct {
	roots []value.Value
}

func (r *fakeRoots) TraceRoots(v value.Visitor) {
	for _, root := range r.roots {
		v.VisitValue(root)
	}
}

func TestCollectSweepsUnreachable(t *testing.T) {
	h := New(0)
	roots := &fakeRoots{}

	kept := NewObject(h, roots, value.NewArray(nil))
	garbage := NewObject(h, roots, value.NewArray(nil))
	roots.roots = []value.Value{value.Object(kept)}

	if !h.Contains(kept) || !h.Contains(garbage) {
		t.Fatal("both objects should be registered before collection")
	}

	h.Collect(roots)

	if !h.Contains(kept) {
		t.Error("reachable array should survive collection")
	}
	if h.Contains(garbage) {
		t.Error("unreachable array should be swept")
	}
}

func TestCollectTracesCycle(t *testing.T) {
	h := New(0)
	roots := &fakeRoots{}

	a := NewObject(h, roots, value.NewHash())
	b := NewObject(h, roots, value.NewHash())
	a.Fields["b"] = value.Object(b)
	b.Fields["a"] = value.Object(a)
	roots.roots = []value.Value{value.Object(a)}

	h.Collect(roots)

	if !h.Contains(a) || !h.Contains(b) {
		t.Error("a reference cycle reachable from a root must survive collection")
	}
}

func TestCollectSweepsUnreachableCycle(t *testing.T) {
	h := New(0)
	roots := &fakeRoots{}

	a := NewObject(h, roots, value.NewHash())
	b := NewObject(h, roots, value.NewHash())
	a.Fields["b"] = value.Object(b)
	b.Fields["a"] = value.Object(a)
	// No root references a or b: the cycle is garbage.

	h.Collect(roots)

	if h.Contains(a) || h.Contains(b) {
		t.Error("an unreachable cycle must be swept, not kept alive by its self-reference")
	}
}

func TestDisableScopeSuppressesAutomaticCollection(t *testing.T) {
	h := New(1)
	roots := &fakeRoots{}

	scope := NewDisableScope(h)
	defer scope.Release()

	garbage := NewObject(h, roots, value.NewArray(nil))
	NewObject(h, roots, value.NewArray(nil))

	if !h.Contains(garbage) {
		t.Error("collection should not run while a DisableScope is active")
	}
}

func TestDisableScopeReleaseIsIdempotent(t *testing.T) {
	h := New(0)
	scope := NewDisableScope(h)
	scope.Release()
	scope.Release()
	if !h.Enabled() {
		t.Error("heap should be enabled after Release, even called twice")
	}
}

func TestNestedDisableComposes(t *testing.T) {
	h := New(0)
	h.Disable()
	h.Disable()
	h.Enable()
	if h.Enabled() {
		t.Error("heap should remain disabled until every Disable has a matching Enable")
	}
	h.Enable()
	if !h.Enabled() {
		t.Error("heap should be enabled once every Disable has a matching Enable")
	}
}

func TestMaybeCollectRespectsThreshold(t *testing.T) {
	h := New(2)
	roots := &fakeRoots{}

	first := NewObject(h, roots, value.NewArray(nil))
	// threshold is 2: one allocation shouldn't trigger a sweep yet.
	if !h.Contains(first) {
		t.Error("object should survive below the allocation threshold even though unreachable")
	}
}
