package operators

import (
	"testing"

	"paserati/pkg/value"
)

func TestBinaryNumericPromotion(t *testing.T) {
	d := New()

	fn, ok := d.Binary(value.OpAdd, value.Int(1), value.Real(2.5))
	if !ok {
		t.Fatal("expected Int+Real to be populated")
	}
	got, err := fn(value.Int(1), value.Real(2.5))
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsReal() || got.AsReal() != 3.5 {
		t.Errorf("1 + 2.5 = %v, want 3.5", got)
	}

	fn, ok = d.Binary(value.OpAdd, value.Int(1), value.Int(2))
	if !ok {
		t.Fatal("expected Int+Int to be populated")
	}
	got, err = fn(value.Int(1), value.Int(2))
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsInt() || got.AsInt() != 3 {
		t.Errorf("1 + 2 = %v, want 3", got)
	}
}

func TestBinaryDivisionByZero(t *testing.T) {
	d := New()
	fn, ok := d.Binary(value.OpDiv, value.Int(1), value.Int(0))
	if !ok {
		t.Fatal("expected Int/Int to be populated")
	}
	if _, err := fn(value.Int(1), value.Int(0)); err == nil {
		t.Error("expected division by zero to error")
	}
}

func TestBinaryModTruncation(t *testing.T) {
	d := New()
	fn, _ := d.Binary(value.OpMod, value.Int(-7), value.Int(2))
	got, err := fn(value.Int(-7), value.Int(2))
	if err != nil {
		t.Fatal(err)
	}
	if got.AsInt() != -1 {
		t.Errorf("-7 %% 2 = %v, want -1 (Go truncation semantics)", got.AsInt())
	}
}

func TestBinaryStringConcatAndOrder(t *testing.T) {
	d := New()
	fn, ok := d.Binary(value.OpAdd, value.Str("a"), value.Str("b"))
	if !ok {
		t.Fatal("expected String+String to be populated")
	}
	got, _ := fn(value.Str("a"), value.Str("b"))
	if got.AsString() != "ab" {
		t.Errorf("got %q, want \"ab\"", got.AsString())
	}

	lt, ok := d.Binary(value.OpLt, value.Str("a"), value.Str("b"))
	if !ok {
		t.Fatal("expected String < String to be populated")
	}
	res, _ := lt(value.Str("a"), value.Str("b"))
	if !res.AsBool() {
		t.Error("\"a\" < \"b\" should be true")
	}
}

func TestBinaryUnsupportedCombinationMissing(t *testing.T) {
	d := New()
	if _, ok := d.Binary(value.OpLt, value.Object(value.NewArray(nil)), value.Int(1)); ok {
		t.Error("Array < Int should not be populated")
	}
	if _, ok := d.Binary(value.OpAdd, value.Int(1), value.Str("x")); ok {
		t.Error("Int + String should not be populated")
	}
}

func TestBinaryEqEverywhere(t *testing.T) {
	d := New()
	fn, ok := d.Binary(value.OpEq, value.Null, value.Object(value.NewArray(nil)))
	if !ok {
		t.Fatal("OpEq must be populated for every type combination")
	}
	got, _ := fn(value.Null, value.Object(value.NewArray(nil)))
	if got.AsBool() {
		t.Error("null == array should be false, not error")
	}
}

func TestUnaryNegAndNot(t *testing.T) {
	d := New()
	neg, ok := d.Unary(value.OpNeg, value.Int(5))
	if !ok {
		t.Fatal("expected Neg(Int) to be populated")
	}
	got, _ := neg(value.Int(5))
	if got.AsInt() != -5 {
		t.Errorf("-5 got %v", got.AsInt())
	}

	not, ok := d.Unary(value.OpNot, value.Bool(false))
	if !ok {
		t.Fatal("expected Not(Bool) to be populated")
	}
	got, _ = not(value.Bool(false))
	if !got.AsBool() {
		t.Error("!false should be true")
	}

	if _, ok := d.Unary(value.OpNeg, value.Str("x")); ok {
		t.Error("Neg(String) should not be populated")
	}
}
