package errors

import (
	"strings"
	"testing"
)

func TestPositionStringOmitsLineWhenUnset(t *testing.T) {
	p := Position{SourceName: "mod.vm"}
	if got := p.String(); got != "mod.vm" {
		t.Errorf("String() = %q, want %q", got, "mod.vm")
	}
}

func TestPositionStringIncludesLine(t *testing.T) {
	p := Position{SourceName: "mod.vm", Line: 12}
	if got := p.String(); got != "mod.vm:12" {
		t.Errorf("String() = %q, want %q", got, "mod.vm:12")
	}
}

func TestRuntimeErrorImplementsVMError(t *testing.T) {
	var err VMError = NewRuntimeError(DivisionByZero, Position{SourceName: "m", Line: 3}, "divide %s by zero", "x")
	if err.Kind() != string(DivisionByZero) {
		t.Errorf("Kind() = %q, want %q", err.Kind(), DivisionByZero)
	}
	if err.Message() != "divide x by zero" {
		t.Errorf("Message() = %q", err.Message())
	}
	if !strings.Contains(err.Error(), "m:3") {
		t.Errorf("Error() = %q, want it to mention the position", err.Error())
	}
}

func TestLoadErrorNeverReportsRuntimeKind(t *testing.T) {
	var err VMError = NewLoadError(Position{SourceName: "m", Line: 1}, "unknown opcode %s", "FOO")
	if err.Kind() != string(LoadErrorKind) {
		t.Errorf("Kind() = %q, want %q", err.Kind(), LoadErrorKind)
	}
}

func TestUncaughtErrorCarriesThrownRepr(t *testing.T) {
	var err VMError = NewUncaughtError(Position{SourceName: "m", Line: 7}, `"boom"`)
	if err.Kind() != string(Uncaught) {
		t.Errorf("Kind() = %q, want %q", err.Kind(), Uncaught)
	}
	if err.Message() != `"boom"` {
		t.Errorf("Message() = %q", err.Message())
	}
}
