package driver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFSResolverAppendsVMExtension(t *testing.T) {
	dir := t.TempDir()
	importer := filepath.Join(dir, "main.vm")
	target := filepath.Join(dir, "helper.vm")
	if err := os.WriteFile(target, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	canon, src, err := (FSResolver{}).Resolve("helper", importer)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(canon) != ".vm" {
		t.Errorf("canonical path = %q, want a .vm extension appended", canon)
	}
	if src != "hello" {
		t.Errorf("source = %q, want %q", src, "hello")
	}
}

func TestFSResolverResolvesRelativeToImporter(t *testing.T) {
	dir := t.TempDir()
	importer := filepath.Join(dir, "main.vm")
	helper := filepath.Join(dir, "helper.vm")
	if err := os.WriteFile(helper, []byte("helper body"), 0o644); err != nil {
		t.Fatal(err)
	}

	canon, src, err := (FSResolver{}).Resolve("helper", importer)
	if err != nil {
		t.Fatal(err)
	}
	wantCanon, err := filepath.Abs(helper)
	if err != nil {
		t.Fatal(err)
	}
	if canon != wantCanon {
		t.Errorf("canonical path = %q, want %q", canon, wantCanon)
	}
	if src != "helper body" {
		t.Errorf("source = %q, want %q", src, "helper body")
	}
}

func TestFSResolverTwoRelativePathsToSameFileCanonicalizeEqual(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	importerA := filepath.Join(dir, "a.vm")
	importerB := filepath.Join(sub, "b.vm")
	shared := filepath.Join(dir, "shared.vm")
	if err := os.WriteFile(shared, []byte("shared"), 0o644); err != nil {
		t.Fatal(err)
	}

	canonFromA, _, err := (FSResolver{}).Resolve("shared", importerA)
	if err != nil {
		t.Fatal(err)
	}
	canonFromB, _, err := (FSResolver{}).Resolve("../shared", importerB)
	if err != nil {
		t.Fatal(err)
	}
	if canonFromA != canonFromB {
		t.Errorf("same file imported two ways canonicalized to %q and %q, want equal", canonFromA, canonFromB)
	}
}

func TestFSResolverMissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := (FSResolver{}).Resolve("nope", filepath.Join(dir, "main.vm")); err == nil {
		t.Error("expected an error resolving a missing module")
	}
}

func TestInterpretRunsEntryModule(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.vm")
	src := `
.proto main 1 0
  LOAD_NULL 0
  RETURN 0
.end
`
	if err := os.WriteFile(entry, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	sess := New(0, nil)
	if err := sess.Interpret(entry, false); err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
}

func TestInterpretRejectsBinary(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.vm")
	if err := os.WriteFile(entry, []byte(".proto main 1 0\nHALT\n.end\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sess := New(0, nil)
	if err := sess.Interpret(entry, true); err == nil {
		t.Error("expected an error for isBinary=true, only the text loader is implemented")
	}
}
