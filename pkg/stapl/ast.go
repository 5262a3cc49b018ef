package stapl

import "fmt"

// Expr is a parsed STAPL expression: everything from a bare literal up to a
// full "||"-chain. Eval resolves variable references against scope and
// performs the arithmetic/comparison described in §4.4.
type Expr interface {
	Eval(s *Scope) (Value, error)
}

type litExpr struct{ v Value }

func (e litExpr) Eval(*Scope) (Value, error) { return e.v, nil }

// varExpr is a variable reference, optionally indexed or sliced:
// NAME, NAME[i], or NAME[hi..lo].
type varExpr struct {
	name   string
	first  Expr // index, or slice bound; nil if bare reference
	second Expr // second slice bound; nil if single index or bare reference
}

func (e varExpr) Eval(s *Scope) (Value, error) {
	v, err := s.MustLookup(e.name)
	if err != nil {
		return nil, err
	}
	if e.first == nil {
		return v.Val, nil
	}
	fi, err := evalIndex(e.first, s)
	if err != nil {
		return nil, err
	}
	if e.second == nil {
		switch arr := v.Val.(type) {
		case BoolArrayValue:
			if fi < 0 || fi >= len(arr.Bits) {
				return nil, fmt.Errorf("stapl: index %d out of range for %s", fi, e.name)
			}
			return NewBool(arr.Bits[fi]), nil
		case IntArrayValue:
			if fi < 0 || fi >= len(arr.Elems) {
				return nil, fmt.Errorf("stapl: index %d out of range for %s", fi, e.name)
			}
			return arr.Elems[fi], nil
		default:
			return nil, fmt.Errorf("stapl: %s is not indexable", e.name)
		}
	}
	si, err := evalIndex(e.second, s)
	if err != nil {
		return nil, err
	}
	switch arr := v.Val.(type) {
	case BoolArrayValue:
		return arr.Slice(fi, si)
	case IntArrayValue:
		return arr.Slice(fi, si)
	default:
		return nil, fmt.Errorf("stapl: %s is not sliceable", e.name)
	}
}

func evalIndex(e Expr, s *Scope) (int, error) {
	v, err := e.Eval(s)
	if err != nil {
		return 0, err
	}
	i, err := ToInt(v)
	if err != nil {
		return 0, err
	}
	return int(i.V.Int64()), nil
}

type callExpr struct {
	fn  string // BOOL, INT, CHR$
	arg Expr
}

func (e callExpr) Eval(s *Scope) (Value, error) {
	v, err := e.arg.Eval(s)
	if err != nil {
		return nil, err
	}
	switch e.fn {
	case "BOOL":
		return ValueToBoolArray(v)
	case "INT":
		ba, ok := v.(BoolArrayValue)
		if !ok {
			return nil, fmt.Errorf("stapl: INT() requires a BOOLEAN array argument")
		}
		return BoolArrayToInt(ba), nil
	case "CHR$":
		return ChrString(v)
	default:
		return nil, fmt.Errorf("stapl: unknown function %s", e.fn)
	}
}

type unaryExpr struct {
	op string // "-", "!", "~"
	x  Expr
}

func (e unaryExpr) Eval(s *Scope) (Value, error) {
	v, err := e.x.Eval(s)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case "-":
		return Neg(v)
	case "!":
		b, err := ToBool(v)
		if err != nil {
			return nil, err
		}
		return Not(b)
	case "~":
		return Not(v)
	default:
		return nil, fmt.Errorf("stapl: unknown unary operator %q", e.op)
	}
}

type binaryExpr struct {
	op   string
	l, r Expr
}

func (e binaryExpr) Eval(s *Scope) (Value, error) {
	lv, err := e.l.Eval(s)
	if err != nil {
		return nil, err
	}
	rv, err := e.r.Eval(s)
	if err != nil {
		return nil, err
	}
	switch e.op {
	case "*":
		return Mul(lv, rv)
	case "/":
		return Div(lv, rv)
	case "%":
		return Mod(lv, rv)
	case "+":
		return Add(lv, rv)
	case "-":
		return Sub(lv, rv)
	case "<<":
		return Shl(lv, rv)
	case ">>":
		return Shr(lv, rv)
	case "<=":
		return Le(lv, rv)
	case "<":
		return Lt(lv, rv)
	case ">=":
		return Ge(lv, rv)
	case ">":
		return Gt(lv, rv)
	case "==":
		return Eq(lv, rv)
	case "!=":
		return Ne(lv, rv)
	case "&":
		return And(lv, rv)
	case "^":
		return Xor(lv, rv)
	case "|":
		return Or(lv, rv)
	case "&&":
		lb, err := ToBool(lv)
		if err != nil {
			return nil, err
		}
		rb, err := ToBool(rv)
		if err != nil {
			return nil, err
		}
		return And(lb, rb)
	case "||":
		lb, err := ToBool(lv)
		if err != nil {
			return nil, err
		}
		rb, err := ToBool(rv)
		if err != nil {
			return nil, err
		}
		return Or(lb, rb)
	default:
		return nil, fmt.Errorf("stapl: unknown binary operator %q", e.op)
	}
}
