package device

import "testing"

func TestNewCellSafeValueSeedsOutValue(t *testing.T) {
	c0 := NewCell(0, "BC_1", "D0", FunctionOutput2, "0", nil, nil)
	if c0.OutValue != false {
		t.Errorf("safe=0: OutValue = %v, want false", c0.OutValue)
	}
	c1 := NewCell(1, "BC_1", "D1", FunctionOutput2, "1", nil, nil)
	if c1.OutValue != true {
		t.Errorf("safe=1: OutValue = %v, want true", c1.OutValue)
	}
	cx := NewCell(2, "BC_1", "D2", FunctionOutput2, "X", nil, nil)
	if cx.OutValue != false {
		t.Errorf("safe=X: OutValue = %v, want false (reset default)", cx.OutValue)
	}
}

func TestCellString(t *testing.T) {
	c := NewCell(3, "BC_1", "D3", FunctionInput, "X", nil, nil)
	if got := c.String(); got != "BC_1@3" {
		t.Errorf("String() = %q, want %q", got, "BC_1@3")
	}
}
