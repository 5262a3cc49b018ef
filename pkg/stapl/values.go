package stapl

import (
	"fmt"
	"math/big"
	"strings"
)

// Value is the closed tagged union STAPL expressions evaluate to: Int,
// Bool, Any, BoolArray, IntArray, String (§3/§4.4). Polymorphism here is a
// tagged union, not an inheritance hierarchy, per §9's design note.
type Value interface {
	fmt.Stringer
	valueTag()
}

// IntValue is an unbounded two's-complement signed integer.
type IntValue struct{ V *big.Int }

func NewInt(v int64) IntValue { return IntValue{V: big.NewInt(v)} }

func (IntValue) valueTag()      {}
func (v IntValue) String() string { return v.V.String() }

// BoolValue is a 0/1 flag.
type BoolValue struct{ V bool }

func NewBool(v bool) BoolValue { return BoolValue{V: v} }

func (BoolValue) valueTag() {}
func (v BoolValue) String() string {
	if v.V {
		return "1"
	}
	return "0"
}

// AnyValue is produced only by bare 0/1 literals; it behaves like an Int
// until first used in a typed (Bool) context, at which point ToBool errors
// if its magnitude is not 0 or 1.
type AnyValue struct{ V *big.Int }

func NewAny(v int64) AnyValue { return AnyValue{V: big.NewInt(v)} }

func (AnyValue) valueTag()      {}
func (v AnyValue) String() string { return v.V.String() }

// BoolArrayValue is a mutable little-endian bit vector: index 0 is the
// least significant bit.
type BoolArrayValue struct{ Bits []bool }

func NewBoolArray(bits []bool) BoolArrayValue {
	cp := make([]bool, len(bits))
	copy(cp, bits)
	return BoolArrayValue{Bits: cp}
}

func (BoolArrayValue) valueTag() {}
func (v BoolArrayValue) String() string {
	var sb strings.Builder
	for i := len(v.Bits) - 1; i >= 0; i-- {
		if v.Bits[i] {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func (v BoolArrayValue) Len() int { return len(v.Bits) }

// Slice extracts bits [hi..lo] inclusive, in either order; if hi < lo the
// result is logically reversed, per §4.4.
func (v BoolArrayValue) Slice(hi, lo int) (BoolArrayValue, error) {
	if hi >= lo {
		if lo < 0 || hi >= len(v.Bits) {
			return BoolArrayValue{}, fmt.Errorf("stapl: bit array slice [%d:%d] out of range (len %d)", hi, lo, len(v.Bits))
		}
		out := make([]bool, hi-lo+1)
		copy(out, v.Bits[lo:hi+1])
		return BoolArrayValue{Bits: out}, nil
	}
	if hi < 0 || lo >= len(v.Bits) {
		return BoolArrayValue{}, fmt.Errorf("stapl: bit array slice [%d:%d] out of range (len %d)", hi, lo, len(v.Bits))
	}
	out := make([]bool, lo-hi+1)
	for i := 0; i <= lo-hi; i++ {
		out[i] = v.Bits[lo-i]
	}
	return BoolArrayValue{Bits: out}, nil
}

// IntArrayValue is an ordered vector of integer-valued elements, sliced the
// same way as BoolArrayValue.
type IntArrayValue struct{ Elems []IntValue }

func (IntArrayValue) valueTag() {}
func (v IntArrayValue) String() string {
	parts := make([]string, len(v.Elems))
	for i, e := range v.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (v IntArrayValue) Len() int { return len(v.Elems) }

func (v IntArrayValue) Slice(hi, lo int) (IntArrayValue, error) {
	if hi >= lo {
		if lo < 0 || hi >= len(v.Elems) {
			return IntArrayValue{}, fmt.Errorf("stapl: int array slice [%d:%d] out of range (len %d)", hi, lo, len(v.Elems))
		}
		out := make([]IntValue, hi-lo+1)
		copy(out, v.Elems[lo:hi+1])
		return IntArrayValue{Elems: out}, nil
	}
	if hi < 0 || lo >= len(v.Elems) {
		return IntArrayValue{}, fmt.Errorf("stapl: int array slice [%d:%d] out of range (len %d)", hi, lo, len(v.Elems))
	}
	out := make([]IntValue, lo-hi+1)
	for i := 0; i <= lo-hi; i++ {
		out[i] = v.Elems[lo-i]
	}
	return IntArrayValue{Elems: out}, nil
}

// StringValue carries CHR$ results and quoted literals for PRINT/EXPORT.
type StringValue struct{ V string }

func (StringValue) valueTag()      {}
func (v StringValue) String() string { return v.V }

// --- coercions -------------------------------------------------------------

// ToInt converts v to an IntValue. Int and Any convert directly; Bool
// converts its 0/1; anything else errors.
func ToInt(v Value) (IntValue, error) {
	switch t := v.(type) {
	case IntValue:
		return t, nil
	case AnyValue:
		return IntValue{V: new(big.Int).Set(t.V)}, nil
	case BoolValue:
		return NewInt(boolToInt64(t.V)), nil
	default:
		return IntValue{}, fmt.Errorf("stapl: cannot convert %s to Int", describe(v))
	}
}

// ToBool converts v to a BoolValue. Bool and Any(0|1) convert directly;
// Int(0|1) converts; anything else (including Any with magnitude >= 2)
// errors.
func ToBool(v Value) (BoolValue, error) {
	switch t := v.(type) {
	case BoolValue:
		return t, nil
	case AnyValue:
		if t.V.IsInt64() && (t.V.Int64() == 0 || t.V.Int64() == 1) {
			return NewBool(t.V.Int64() == 1), nil
		}
		return BoolValue{}, fmt.Errorf("stapl: %s is not convertible to Bool", describe(v))
	case IntValue:
		if t.V.IsInt64() && (t.V.Int64() == 0 || t.V.Int64() == 1) {
			return NewBool(t.V.Int64() == 1), nil
		}
		return BoolValue{}, fmt.Errorf("stapl: %s is not convertible to Bool", describe(v))
	default:
		return BoolValue{}, fmt.Errorf("stapl: cannot convert %s to Bool", describe(v))
	}
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func describe(v Value) string {
	return fmt.Sprintf("%T(%s)", v, v.String())
}

// --- arithmetic (Int/Any promote to Int; comparisons return Bool) ----------

func Add(a, b Value) (Value, error) { return intBinOp(a, b, (*big.Int).Add) }
func Sub(a, b Value) (Value, error) { return intBinOp(a, b, (*big.Int).Sub) }
func Mul(a, b Value) (Value, error) { return intBinOp(a, b, (*big.Int).Mul) }
func And(a, b Value) (Value, error) { return intOrBoolBinOp(a, b, (*big.Int).And, func(x, y bool) bool { return x && y }) }
func Or(a, b Value) (Value, error)  { return intOrBoolBinOp(a, b, (*big.Int).Or, func(x, y bool) bool { return x || y }) }
func Xor(a, b Value) (Value, error) { return intOrBoolBinOp(a, b, (*big.Int).Xor, func(x, y bool) bool { return x != y }) }

func Div(a, b Value) (Value, error) {
	ai, err := ToInt(a)
	if err != nil {
		return nil, err
	}
	bi, err := ToInt(b)
	if err != nil {
		return nil, err
	}
	if bi.V.Sign() == 0 {
		return nil, fmt.Errorf("stapl: division by zero")
	}
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(ai.V, bi.V, m)
	// Go's DivMod is Euclidean; STAPL/Python use floor division/modulo.
	if m.Sign() != 0 && (m.Sign() < 0) != (bi.V.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return IntValue{V: q}, nil
}

func Mod(a, b Value) (Value, error) {
	ai, err := ToInt(a)
	if err != nil {
		return nil, err
	}
	bi, err := ToInt(b)
	if err != nil {
		return nil, err
	}
	if bi.V.Sign() == 0 {
		return nil, fmt.Errorf("stapl: modulo by zero")
	}
	m := new(big.Int).Mod(ai.V, bi.V)
	if m.Sign() != 0 && bi.V.Sign() < 0 {
		m.Add(m, bi.V)
	}
	return IntValue{V: m}, nil
}

func Shl(a, b Value) (Value, error) {
	ai, err := ToInt(a)
	if err != nil {
		return nil, err
	}
	bi, err := ToInt(b)
	if err != nil {
		return nil, err
	}
	return IntValue{V: new(big.Int).Lsh(ai.V, uint(bi.V.Int64()))}, nil
}

func Shr(a, b Value) (Value, error) {
	ai, err := ToInt(a)
	if err != nil {
		return nil, err
	}
	bi, err := ToInt(b)
	if err != nil {
		return nil, err
	}
	return IntValue{V: new(big.Int).Rsh(ai.V, uint(bi.V.Int64()))}, nil
}

func Neg(a Value) (Value, error) {
	ai, err := ToInt(a)
	if err != nil {
		return nil, err
	}
	return IntValue{V: new(big.Int).Neg(ai.V)}, nil
}

// Not implements unary "!": Bool inputs negate logically, Int/Any invert
// bitwise (two's complement), matching expressions.py's distinct `!`
// handling per operand type.
func Not(a Value) (Value, error) {
	if b, ok := a.(BoolValue); ok {
		return NewBool(!b.V), nil
	}
	ai, err := ToInt(a)
	if err != nil {
		return nil, err
	}
	return IntValue{V: new(big.Int).Not(ai.V)}, nil
}

func cmp(a, b Value) (int, error) {
	ai, err := ToInt(a)
	if err != nil {
		return 0, err
	}
	bi, err := ToInt(b)
	if err != nil {
		return 0, err
	}
	return ai.V.Cmp(bi.V), nil
}

func Eq(a, b Value) (Value, error) {
	if _, ok := a.(BoolValue); ok {
		ab, err := ToBool(a)
		if err != nil {
			return nil, err
		}
		bb, err := ToBool(b)
		if err != nil {
			return nil, err
		}
		return NewBool(ab.V == bb.V), nil
	}
	c, err := cmp(a, b)
	if err != nil {
		return nil, err
	}
	return NewBool(c == 0), nil
}

func Ne(a, b Value) (Value, error) {
	v, err := Eq(a, b)
	if err != nil {
		return nil, err
	}
	return NewBool(!v.(BoolValue).V), nil
}

func Lt(a, b Value) (Value, error) { c, err := cmp(a, b); return boolCmp(c, err, func(c int) bool { return c < 0 }) }
func Le(a, b Value) (Value, error) { c, err := cmp(a, b); return boolCmp(c, err, func(c int) bool { return c <= 0 }) }
func Gt(a, b Value) (Value, error) { c, err := cmp(a, b); return boolCmp(c, err, func(c int) bool { return c > 0 }) }
func Ge(a, b Value) (Value, error) { c, err := cmp(a, b); return boolCmp(c, err, func(c int) bool { return c >= 0 }) }

func boolCmp(c int, err error, pred func(int) bool) (Value, error) {
	if err != nil {
		return nil, err
	}
	return NewBool(pred(c)), nil
}

func intBinOp(a, b Value, op func(z, x, y *big.Int) *big.Int) (Value, error) {
	ai, err := ToInt(a)
	if err != nil {
		return nil, err
	}
	bi, err := ToInt(b)
	if err != nil {
		return nil, err
	}
	return IntValue{V: op(new(big.Int), ai.V, bi.V)}, nil
}

// intOrBoolBinOp implements &, |, ^: Bool operands use boolOp (logical),
// everything else promotes to Int and uses intOp (bitwise two's complement).
func intOrBoolBinOp(a, b Value, intOp func(z, x, y *big.Int) *big.Int, boolOp func(x, y bool) bool) (Value, error) {
	_, aIsBool := a.(BoolValue)
	_, bIsBool := b.(BoolValue)
	if aIsBool && bIsBool {
		ab, _ := ToBool(a)
		bb, _ := ToBool(b)
		return NewBool(boolOp(ab.V, bb.V)), nil
	}
	return intBinOp(a, b, intOp)
}

// --- BOOL()/INT()/CHR$() conversions (§9 design notes) ---------------------

// ValueToBoolArray implements STAPL's BOOL(x): a 32-bit, little-endian,
// two's-complement BoolArray.
func ValueToBoolArray(v Value) (BoolArrayValue, error) {
	i, err := ToInt(v)
	if err != nil {
		return BoolArrayValue{}, err
	}
	bits := make([]bool, 32)
	// Two's complement encoding via mod 2^32.
	mod := new(big.Int).Lsh(big.NewInt(1), 32)
	u := new(big.Int).Mod(i.V, mod)
	for bIdx := 0; bIdx < 32; bIdx++ {
		bits[bIdx] = u.Bit(bIdx) == 1
	}
	return BoolArrayValue{Bits: bits}, nil
}

// BoolArrayToInt implements STAPL's INT(ba): sign-extend/truncate to 32
// bits and interpret as a signed two's-complement integer.
func BoolArrayToInt(ba BoolArrayValue) IntValue {
	n := len(ba.Bits)
	if n > 32 {
		n = 32
	}
	u := new(big.Int)
	for i := n - 1; i >= 0; i-- {
		u.Lsh(u, 1)
		if ba.Bits[i] {
			u.Or(u, big.NewInt(1))
		}
	}
	// Sign-extend from bit 31 (or bit n-1 if shorter than 32).
	signBit := 31
	if n-1 < signBit {
		signBit = n - 1
	}
	if signBit >= 0 && u.Bit(signBit) == 1 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(signBit+1))
		u.Sub(u, mod)
	}
	return IntValue{V: u}
}

// ChrString implements CHR$(x): a one-character string from the low byte
// of x.
func ChrString(v Value) (StringValue, error) {
	i, err := ToInt(v)
	if err != nil {
		return StringValue{}, err
	}
	b := byte(new(big.Int).And(i.V, big.NewInt(0xFF)).Int64())
	return StringValue{V: string([]byte{b})}, nil
}
