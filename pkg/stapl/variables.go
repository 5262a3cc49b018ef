package stapl

import "fmt"

// VarKind pins a declared variable to the type it was declared with;
// subsequent assignment through SET/assignment statements must produce a
// Value convertible to that kind (§4.4, §9 "checked variable scope").
type VarKind int

const (
	KindInt VarKind = iota
	KindBool
	KindBoolArray
	KindIntArray
)

func (k VarKind) String() string {
	switch k {
	case KindInt:
		return "INTEGER"
	case KindBool:
		return "BOOLEAN"
	case KindBoolArray:
		return "BOOLEAN array"
	case KindIntArray:
		return "INTEGER array"
	default:
		return "unknown"
	}
}

// Variable is one declared STAPL variable: its fixed kind, current value,
// and (for arrays) its declared length.
type Variable struct {
	Name string
	Kind VarKind
	Len  int // declared length for array kinds; 0 otherwise
	Val  Value
}

// coerce converts v into this variable's declared kind, or errors — this is
// the "checked" part of the checked-variable scope: STAPL forbids silently
// storing a Bool into an Int variable or vice versa, though Any always
// succeeds.
func (vr *Variable) coerce(v Value) (Value, error) {
	switch vr.Kind {
	case KindInt:
		if _, ok := v.(BoolValue); ok {
			return nil, fmt.Errorf("stapl: cannot assign BOOLEAN to INTEGER variable %s", vr.Name)
		}
		return ToInt(v)
	case KindBool:
		switch v.(type) {
		case IntValue:
			return nil, fmt.Errorf("stapl: cannot assign INTEGER to BOOLEAN variable %s", vr.Name)
		}
		return ToBool(v)
	case KindBoolArray:
		ba, ok := v.(BoolArrayValue)
		if !ok {
			return nil, fmt.Errorf("stapl: cannot assign %T to BOOLEAN array variable %s", v, vr.Name)
		}
		return ba, nil
	case KindIntArray:
		ia, ok := v.(IntArrayValue)
		if !ok {
			return nil, fmt.Errorf("stapl: cannot assign %T to INTEGER array variable %s", v, vr.Name)
		}
		return ia, nil
	default:
		return v, nil
	}
}

// Set assigns v (coerced) to this variable.
func (vr *Variable) Set(v Value) error {
	cv, err := vr.coerce(v)
	if err != nil {
		return err
	}
	vr.Val = cv
	return nil
}

// Scope is a flat, case-sensitive variable namespace with no nested lexical
// scoping, populated by BOOLEAN/INTEGER/BOOLEAN ARRAY/INTEGER ARRAY
// declarations. The interpreter gives each DATA block and each top-level
// procedure run its own Scope; a procedure's Scope also holds the variables
// of the DATA blocks it USES, shared by pointer.
type Scope struct {
	vars map[string]*Variable
}

// NewScope returns an empty variable namespace.
func NewScope() *Scope {
	return &Scope{vars: make(map[string]*Variable)}
}

// Declare registers a new variable. Redeclaring an existing name is an
// error, matching STAPL's requirement that each NOTE/declaration name be
// unique within a program.
func (s *Scope) Declare(name string, kind VarKind, length int, initial Value) error {
	if _, exists := s.vars[name]; exists {
		return fmt.Errorf("stapl: variable %q already declared", name)
	}
	v := &Variable{Name: name, Kind: kind, Len: length}
	if initial != nil {
		if err := v.Set(initial); err != nil {
			return err
		}
	}
	s.vars[name] = v
	return nil
}

// Lookup finds a declared variable by name.
func (s *Scope) Lookup(name string) (*Variable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// MustLookup finds a declared variable, erroring with a STAPL-flavoured
// message if it isn't declared (covers the "undeclared variable" class of
// runtime error in §7).
func (s *Scope) MustLookup(name string) (*Variable, error) {
	v, ok := s.vars[name]
	if !ok {
		return nil, fmt.Errorf("stapl: undeclared variable %q", name)
	}
	return v, nil
}
