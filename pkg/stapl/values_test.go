package stapl

import (
	"math/big"
	"testing"
)

func TestBoolArraySliceAscendingAndDescending(t *testing.T) {
	// bits[0]=LSB ... bits[7]=MSB, value 0b10110010
	v := NewBoolArray([]bool{false, true, false, false, true, true, false, true})

	asc, err := v.Slice(3, 0)
	if err != nil {
		t.Fatalf("Slice(3,0): %v", err)
	}
	if asc.String() != "0010" {
		t.Fatalf("Slice(3,0) = %s, want 0010", asc.String())
	}

	desc, err := v.Slice(0, 3)
	if err != nil {
		t.Fatalf("Slice(0,3): %v", err)
	}
	if desc.String() != "0100" {
		t.Fatalf("Slice(0,3) = %s, want 0100", desc.String())
	}
}

func TestBoolArraySliceOutOfRange(t *testing.T) {
	v := NewBoolArray([]bool{true, false, true})
	if _, err := v.Slice(5, 0); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestIntArraySlice(t *testing.T) {
	v := IntArrayValue{Elems: []IntValue{NewInt(1), NewInt(2), NewInt(3), NewInt(4)}}
	got, err := v.Slice(2, 1)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(got.Elems) != 2 || got.Elems[0].V.Int64() != 2 || got.Elems[1].V.Int64() != 3 {
		t.Fatalf("Slice(2,1) = %v", got)
	}
}

func TestToIntToBoolCoercion(t *testing.T) {
	if _, err := ToInt(NewBool(true)); err != nil {
		t.Fatalf("ToInt(Bool): %v", err)
	}
	if _, err := ToBool(NewAny(1)); err != nil {
		t.Fatalf("ToBool(Any(1)): %v", err)
	}
	if _, err := ToBool(NewAny(2)); err == nil {
		t.Fatal("expected error converting Any(2) to Bool")
	}
	if _, err := ToBool(NewInt(5)); err == nil {
		t.Fatal("expected error converting Int(5) to Bool")
	}
}

func TestDivModFloorSemantics(t *testing.T) {
	cases := []struct {
		a, b, wantQ, wantR int64
	}{
		{7, 2, 3, 1},
		{-7, 2, -4, 1},
		{7, -2, -4, -1},
		{-7, -2, 3, -1},
	}
	for _, c := range cases {
		q, err := Div(NewInt(c.a), NewInt(c.b))
		if err != nil {
			t.Fatalf("Div(%d,%d): %v", c.a, c.b, err)
		}
		if q.(IntValue).V.Int64() != c.wantQ {
			t.Errorf("Div(%d,%d) = %d, want %d", c.a, c.b, q.(IntValue).V.Int64(), c.wantQ)
		}
		r, err := Mod(NewInt(c.a), NewInt(c.b))
		if err != nil {
			t.Fatalf("Mod(%d,%d): %v", c.a, c.b, err)
		}
		if r.(IntValue).V.Int64() != c.wantR {
			t.Errorf("Mod(%d,%d) = %d, want %d", c.a, c.b, r.(IntValue).V.Int64(), c.wantR)
		}
	}
}

func TestDivByZero(t *testing.T) {
	if _, err := Div(NewInt(1), NewInt(0)); err == nil {
		t.Fatal("expected division by zero error")
	}
	if _, err := Mod(NewInt(1), NewInt(0)); err == nil {
		t.Fatal("expected modulo by zero error")
	}
}

func TestAndOrXorBoolVsInt(t *testing.T) {
	b, err := And(NewBool(true), NewBool(false))
	if err != nil {
		t.Fatalf("And(bool): %v", err)
	}
	if b.(BoolValue).V != false {
		t.Fatalf("And(true,false) = %v, want false", b)
	}

	i, err := And(NewInt(0b1100), NewInt(0b1010))
	if err != nil {
		t.Fatalf("And(int): %v", err)
	}
	if i.(IntValue).V.Int64() != 0b1000 {
		t.Fatalf("And(0b1100,0b1010) = %d, want %d", i.(IntValue).V.Int64(), 0b1000)
	}
}

func TestNotBoolVsBitwise(t *testing.T) {
	b, err := Not(NewBool(true))
	if err != nil {
		t.Fatalf("Not(bool): %v", err)
	}
	if b.(BoolValue).V != false {
		t.Fatalf("Not(true) = %v, want false", b)
	}
	i, err := Not(NewInt(0))
	if err != nil {
		t.Fatalf("Not(int): %v", err)
	}
	if i.(IntValue).V.Int64() != -1 {
		t.Fatalf("Not(0) = %d, want -1", i.(IntValue).V.Int64())
	}
}

func TestValueToBoolArrayRoundTrip(t *testing.T) {
	ba, err := ValueToBoolArray(NewInt(-1))
	if err != nil {
		t.Fatalf("ValueToBoolArray(-1): %v", err)
	}
	if ba.Len() != 32 {
		t.Fatalf("BOOL(-1) length = %d, want 32", ba.Len())
	}
	for i, bit := range ba.Bits {
		if !bit {
			t.Fatalf("BOOL(-1) bit %d = false, want true", i)
		}
	}
	iv := BoolArrayToInt(ba)
	if iv.V.Int64() != -1 {
		t.Fatalf("INT(BOOL(-1)) = %d, want -1", iv.V.Int64())
	}
}

func TestBoolArrayToIntSignExtends(t *testing.T) {
	bits := make([]bool, 8)
	bits[7] = true // 0b10000000 = -128 as an 8-bit value, sign-extended from bit 7
	iv := BoolArrayToInt(BoolArrayValue{Bits: bits})
	if iv.V.Cmp(big.NewInt(-128)) != 0 {
		t.Fatalf("INT(10000000b) = %s, want -128", iv.V.String())
	}
}

func TestChrString(t *testing.T) {
	s, err := ChrString(NewInt(65))
	if err != nil {
		t.Fatalf("ChrString: %v", err)
	}
	if s.V != "A" {
		t.Fatalf("CHR$(65) = %q, want %q", s.V, "A")
	}
}

func TestUnboundedArithmetic(t *testing.T) {
	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	v, err := Add(IntValue{V: big1}, NewInt(1))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	want, _ := new(big.Int).SetString("123456789012345678901234567891", 10)
	if v.(IntValue).V.Cmp(want) != 0 {
		t.Fatalf("Add overflowed: got %s, want %s", v.(IntValue).V.String(), want.String())
	}
}
