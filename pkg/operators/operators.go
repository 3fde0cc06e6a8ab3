// Package operators implements the VM's operator dispatch table: a
// flat 3-D array (opcode, left type, right type) for binary operators
// and a 2-D array (opcode, operand type) for unary operators, per
// spec §4.1 and original_source/include/runtime/operator_dispatcher.h.
//
// A missing entry means "unsupported combination"; Dispatcher.Binary
// and Dispatcher.Unary report that via a boolean rather than a nil
// function pointer, since Go has no null function-pointer idiom as
// clean as C++'s — the caller (pkg/vm) turns a false into a
// TypeMismatch/UnsupportedOp thrown value (spec §7, §8.5).
package operators

import (
	"fmt"

	"paserati/pkg/value"
)

type BinaryFn func(left, right value.Value) (value.Value, error)
type UnaryFn func(operand value.Value) (value.Value, error)

// Dispatcher holds the populated tables. Construct once per VM with
// New(); it is read-only thereafter and safe to share.
type Dispatcher struct {
	binary [][][]BinaryFn
	unary  [][]UnaryFn
}

func New() *Dispatcher {
	nOps := value.NumBinaryOps()
	nUOps := value.NumUnaryOps()
	nTypes := value.NumTypes()

	d := &Dispatcher{
		binary: make([][][]BinaryFn, nOps),
		unary:  make([][]UnaryFn, nUOps),
	}
	for op := range d.binary {
		d.binary[op] = make([][]BinaryFn, nTypes)
		for lt := range d.binary[op] {
			d.binary[op][lt] = make([]BinaryFn, nTypes)
		}
	}
	for op := range d.unary {
		d.unary[op] = make([]UnaryFn, nTypes)
	}

	d.populate()
	return d
}

// Binary looks up the handler for (op, left's type, right's type). The
// second return is false when no entry was populated.
func (d *Dispatcher) Binary(op value.BinaryOp, left, right value.Value) (BinaryFn, bool) {
	fn := d.binary[op][left.Type()][right.Type()]
	return fn, fn != nil
}

// Unary looks up the handler for (op, operand's type).
func (d *Dispatcher) Unary(op value.UnaryOp, operand value.Value) (UnaryFn, bool) {
	fn := d.unary[op][operand.Type()]
	return fn, fn != nil
}

func (d *Dispatcher) setBinary(op value.BinaryOp, l, r value.Type, fn BinaryFn) {
	d.binary[op][l][r] = fn
}

func (d *Dispatcher) setUnary(op value.UnaryOp, t value.Type, fn UnaryFn) {
	d.unary[op][t] = fn
}

// populate fills every supported (opcode, left, right) entry. Numeric
// rules follow spec §4.1: Int op Int wraps for + - *, promotes to Real
// when mixed with Real; Int / Int with a zero divisor is an error,
// otherwise truncates toward zero (Go's native int64 division already
// truncates toward zero, so no extra work is needed there).
func (d *Dispatcher) populate() {
	ii := value.TypeInt
	rr := value.TypeReal
	ss := value.TypeString
	aa := value.TypeArray

	// --- ADD ---
	d.setBinary(value.OpAdd, ii, ii, func(l, r value.Value) (value.Value, error) {
		return value.Int(l.AsInt() + r.AsInt()), nil
	})
	d.setBinary(value.OpAdd, ii, rr, func(l, r value.Value) (value.Value, error) {
		return value.Real(float64(l.AsInt()) + r.AsReal()), nil
	})
	d.setBinary(value.OpAdd, rr, ii, func(l, r value.Value) (value.Value, error) {
		return value.Real(l.AsReal() + float64(r.AsInt())), nil
	})
	d.setBinary(value.OpAdd, rr, rr, func(l, r value.Value) (value.Value, error) {
		return value.Real(l.AsReal() + r.AsReal()), nil
	})
	d.setBinary(value.OpAdd, ss, ss, func(l, r value.Value) (value.Value, error) {
		return value.Str(l.AsString() + r.AsString()), nil
	})
	d.setBinary(value.OpAdd, aa, aa, func(l, r value.Value) (value.Value, error) {
		out := make([]value.Value, 0, len(l.AsArray().Elements)+len(r.AsArray().Elements))
		out = append(out, l.AsArray().Elements...)
		out = append(out, r.AsArray().Elements...)
		return value.Object(value.NewArray(out)), nil
	})

	// --- SUB / MUL ---
	for _, spec := range []struct {
		op  value.BinaryOp
		ii  func(a, b int64) int64
		rr  func(a, b float64) float64
	}{
		{value.OpSub, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }},
		{value.OpMul, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }},
	} {
		s := spec
		d.setBinary(s.op, ii, ii, func(l, r value.Value) (value.Value, error) {
			return value.Int(s.ii(l.AsInt(), r.AsInt())), nil
		})
		d.setBinary(s.op, ii, rr, func(l, r value.Value) (value.Value, error) {
			return value.Real(s.rr(float64(l.AsInt()), r.AsReal())), nil
		})
		d.setBinary(s.op, rr, ii, func(l, r value.Value) (value.Value, error) {
			return value.Real(s.rr(l.AsReal(), float64(r.AsInt()))), nil
		})
		d.setBinary(s.op, rr, rr, func(l, r value.Value) (value.Value, error) {
			return value.Real(s.rr(l.AsReal(), r.AsReal())), nil
		})
	}

	// --- DIV ---
	d.setBinary(value.OpDiv, ii, ii, func(l, r value.Value) (value.Value, error) {
		if r.AsInt() == 0 {
			return value.Null, fmt.Errorf("division by zero")
		}
		return value.Int(l.AsInt() / r.AsInt()), nil
	})
	d.setBinary(value.OpDiv, ii, rr, func(l, r value.Value) (value.Value, error) {
		return value.Real(float64(l.AsInt()) / r.AsReal()), nil
	})
	d.setBinary(value.OpDiv, rr, ii, func(l, r value.Value) (value.Value, error) {
		return value.Real(l.AsReal() / float64(r.AsInt())), nil
	})
	d.setBinary(value.OpDiv, rr, rr, func(l, r value.Value) (value.Value, error) {
		return value.Real(l.AsReal() / r.AsReal()), nil
	})

	// --- MOD (integer only) ---
	d.setBinary(value.OpMod, ii, ii, func(l, r value.Value) (value.Value, error) {
		if r.AsInt() == 0 {
			return value.Null, fmt.Errorf("division by zero")
		}
		return value.Int(l.AsInt() % r.AsInt()), nil
	})

	// --- Equality: every type combination is legal (spec §4.1) ---
	for lt := value.Type(0); int(lt) < value.NumTypes(); lt++ {
		for rt := value.Type(0); int(rt) < value.NumTypes(); rt++ {
			d.setBinary(value.OpEq, lt, rt, eqFn)
			d.setBinary(value.OpNeq, lt, rt, neqFn)
		}
	}

	// --- Ordering: numeric and string only ---
	d.setBinary(value.OpLt, ii, ii, cmpFn(func(a, b float64) bool { return a < b }))
	d.setBinary(value.OpLt, ii, rr, cmpFn(func(a, b float64) bool { return a < b }))
	d.setBinary(value.OpLt, rr, ii, cmpFn(func(a, b float64) bool { return a < b }))
	d.setBinary(value.OpLt, rr, rr, cmpFn(func(a, b float64) bool { return a < b }))
	d.setBinary(value.OpLe, ii, ii, cmpFn(func(a, b float64) bool { return a <= b }))
	d.setBinary(value.OpLe, ii, rr, cmpFn(func(a, b float64) bool { return a <= b }))
	d.setBinary(value.OpLe, rr, ii, cmpFn(func(a, b float64) bool { return a <= b }))
	d.setBinary(value.OpLe, rr, rr, cmpFn(func(a, b float64) bool { return a <= b }))
	d.setBinary(value.OpGt, ii, ii, cmpFn(func(a, b float64) bool { return a > b }))
	d.setBinary(value.OpGt, ii, rr, cmpFn(func(a, b float64) bool { return a > b }))
	d.setBinary(value.OpGt, rr, ii, cmpFn(func(a, b float64) bool { return a > b }))
	d.setBinary(value.OpGt, rr, rr, cmpFn(func(a, b float64) bool { return a > b }))
	d.setBinary(value.OpGe, ii, ii, cmpFn(func(a, b float64) bool { return a >= b }))
	d.setBinary(value.OpGe, ii, rr, cmpFn(func(a, b float64) bool { return a >= b }))
	d.setBinary(value.OpGe, rr, ii, cmpFn(func(a, b float64) bool { return a >= b }))
	d.setBinary(value.OpGe, rr, rr, cmpFn(func(a, b float64) bool { return a >= b }))

	d.setBinary(value.OpLt, ss, ss, func(l, r value.Value) (value.Value, error) {
		return value.Bool(l.AsString() < r.AsString()), nil
	})
	d.setBinary(value.OpLe, ss, ss, func(l, r value.Value) (value.Value, error) {
		return value.Bool(l.AsString() <= r.AsString()), nil
	})
	d.setBinary(value.OpGt, ss, ss, func(l, r value.Value) (value.Value, error) {
		return value.Bool(l.AsString() > r.AsString()), nil
	})
	d.setBinary(value.OpGe, ss, ss, func(l, r value.Value) (value.Value, error) {
		return value.Bool(l.AsString() >= r.AsString()), nil
	})

	// --- Unary ---
	d.setUnary(value.OpNeg, ii, func(v value.Value) (value.Value, error) {
		return value.Int(-v.AsInt()), nil
	})
	d.setUnary(value.OpNeg, rr, func(v value.Value) (value.Value, error) {
		return value.Real(-v.AsReal()), nil
	})
	for t := value.Type(0); int(t) < value.NumTypes(); t++ {
		tt := t
		d.setUnary(value.OpNot, tt, func(v value.Value) (value.Value, error) {
			return value.Bool(!value.Truthy(v)), nil
		})
	}
}

func eqFn(l, r value.Value) (value.Value, error)  { return value.Bool(value.Equal(l, r)), nil }
func neqFn(l, r value.Value) (value.Value, error) { return value.Bool(!value.Equal(l, r)), nil }

func numeric(v value.Value) float64 {
	if v.IsInt() {
		return float64(v.AsInt())
	}
	return v.AsReal()
}

func cmpFn(pred func(a, b float64) bool) BinaryFn {
	return func(l, r value.Value) (value.Value, error) {
		return value.Bool(pred(numeric(l), numeric(r))), nil
	}
}
