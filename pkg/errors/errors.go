package errors

import "fmt"

// VMError is the interface implemented by every error this module
// produces.
type VMError interface {
	error
	Pos() Position
	Kind() string
	Message() string
}

// Kind enumerates spec §7's error taxonomy.
type Kind string

const (
	TypeMismatch   Kind = "TypeMismatch"
	UnsupportedOp  Kind = "UnsupportedOp"
	NameError      Kind = "NameError"
	IndexError     Kind = "IndexError"
	KeyError       Kind = "KeyError"
	ArityError     Kind = "ArityError"
	DivisionByZero Kind = "DivisionByZero"
	NotCallable    Kind = "NotCallable"
	LoadErrorKind  Kind = "LoadError"
	Uncaught       Kind = "Uncaught"
)

// RuntimeError is any of the catchable runtime error kinds (every kind
// but LoadError and Uncaught, per spec §7's propagation rules: the
// other kinds convert into thrown Values reachable from SETUP_TRY/THROW,
// while those two are surfaced to the host).
type RuntimeError struct {
	Position
	ErrKind Kind
	Msg     string
}

func NewRuntimeError(kind Kind, pos Position, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Position: pos, ErrKind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.ErrKind, e.Msg, e.Position)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return string(e.ErrKind) }
func (e *RuntimeError) Message() string { return e.Msg }

// LoadError reports malformed bytecode at load time: unresolved
// labels, bad directives, bad constants. Surfaced directly to the
// host, never caught by SETUP_TRY (spec §7).
type LoadError struct {
	Position
	Msg string
}

func NewLoadError(pos Position, format string, args ...interface{}) *LoadError {
	return &LoadError{Position: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Load Error at %s: %s", e.Position, e.Msg)
}
func (e *LoadError) Pos() Position   { return e.Position }
func (e *LoadError) Kind() string    { return string(LoadErrorKind) }
func (e *LoadError) Message() string { return e.Msg }

// UncaughtError wraps a thrown Value that reached the base frame with
// no active handler (spec §7). It carries the thrown value's printable
// form rather than the value itself, since pkg/errors doesn't import
// pkg/value (kept as a leaf package).
type UncaughtError struct {
	Position
	ThrownRepr string
}

func NewUncaughtError(pos Position, thrownRepr string) *UncaughtError {
	return &UncaughtError{Position: pos, ThrownRepr: thrownRepr}
}

func (e *UncaughtError) Error() string {
	return fmt.Sprintf("Uncaught exception at %s: %s", e.Position, e.ThrownRepr)
}
func (e *UncaughtError) Pos() Position   { return e.Position }
func (e *UncaughtError) Kind() string    { return string(Uncaught) }
func (e *UncaughtError) Message() string { return e.ThrownRepr }
