package device

import "testing"

func intPtr(i int) *int { return &i }

func TestPinOutputEnableWithControlCell(t *testing.T) {
	out := NewCell(0, "BC_1", "D0", FunctionOutput3, "X", nil, intPtr(0))
	ctl := NewCell(1, "BC_1", "D0", FunctionControl, "0", nil, nil)
	p := &Pin{Name: "D0", OutputCell: out, ControlCell: ctl}

	if p.OutputEnabled() {
		t.Fatal("expected disabled: control cell OutValue starts at disable value 0")
	}
	if err := p.OutputEnable(true); err != nil {
		t.Fatalf("OutputEnable(true): %v", err)
	}
	if !p.OutputEnabled() {
		t.Fatal("expected enabled after OutputEnable(true)")
	}
	if err := p.OutputEnable(false); err != nil {
		t.Fatalf("OutputEnable(false): %v", err)
	}
	if p.OutputEnabled() {
		t.Fatal("expected disabled after OutputEnable(false)")
	}
}

func TestPinOutputEnableNoControlCellPermanentlyDriven(t *testing.T) {
	out := NewCell(0, "BC_1", "D0", FunctionOutput2, "X", nil, nil)
	p := &Pin{Name: "D0", OutputCell: out}
	if !p.OutputEnabled() {
		t.Fatal("an output-only pin with no control cell is permanently driven")
	}
	if err := p.OutputEnable(false); err == nil {
		t.Fatal("expected error: cannot change output enable with no control cell and no input fallback")
	}
}

func TestPinOutputEnableNoOutputCellErrors(t *testing.T) {
	p := &Pin{Name: "IN0"}
	if err := p.OutputEnable(true); err == nil {
		t.Fatal("expected error: no output cell")
	}
	if p.OutputEnabled() {
		t.Fatal("a pin with no output cell is never enabled")
	}
}

func TestPinSetAndGetValue(t *testing.T) {
	out := NewCell(0, "BC_1", "D0", FunctionOutput2, "0", nil, nil)
	in := NewCell(1, "BC_1", "D0", FunctionInput, "X", nil, nil)
	p := &Pin{Name: "D0", InputCell: in, OutputCell: out}

	if _, ok := p.GetValue(); ok {
		t.Fatal("expected ok=false before any capture")
	}
	if err := p.SetValue(true); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if !out.OutValue {
		t.Fatal("SetValue should have written the output cell")
	}

	v := true
	in.InValue = &v
	got, ok := p.GetValue()
	if !ok || got != true {
		t.Fatalf("GetValue = (%v, %v), want (true, true)", got, ok)
	}
}

func TestDiffPinDrivesComplementary(t *testing.T) {
	pOut := NewCell(0, "BC_1", "P", FunctionOutput2, "0", nil, nil)
	nOut := NewCell(1, "BC_1", "N", FunctionOutput2, "0", nil, nil)
	pIn := NewCell(2, "BC_1", "P", FunctionInput, "X", nil, nil)
	d := &DiffPin{
		P: &Pin{Name: "P", OutputCell: pOut, InputCell: pIn},
		N: &Pin{Name: "N", OutputCell: nOut},
	}
	if err := d.SetValue(true); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if !pOut.OutValue || nOut.OutValue {
		t.Fatalf("P.OutValue=%v N.OutValue=%v, want true/false", pOut.OutValue, nOut.OutValue)
	}

	v := true
	pIn.InValue = &v
	got, ok := d.GetValue()
	if !ok || !got {
		t.Fatalf("DiffPin.GetValue = (%v, %v), want (true, true)", got, ok)
	}
}

func TestPinGroupSetValueBitsLengthMismatch(t *testing.T) {
	g := PinGroup{{Name: "A"}, {Name: "B"}}
	if err := g.SetValueBits([]bool{true}); err == nil {
		t.Fatal("expected length-mismatch error")
	}
}

func TestPinGroupSetValueIntIsLSBFirst(t *testing.T) {
	cells := make([]*Cell, 4)
	pins := make(PinGroup, 4)
	for i := range cells {
		cells[i] = NewCell(i, "BC_1", "D", FunctionOutput2, "0", nil, nil)
		pins[i] = &Pin{Name: "D", OutputCell: cells[i]}
	}
	if err := pins.SetValueInt(0b0101); err != nil {
		t.Fatalf("SetValueInt: %v", err)
	}
	want := []bool{true, false, true, false}
	for i, w := range want {
		if cells[i].OutValue != w {
			t.Errorf("pin %d = %v, want %v", i, cells[i].OutValue, w)
		}
	}
}

func TestPinGroupGetValue(t *testing.T) {
	in0 := NewCell(0, "BC_1", "A", FunctionInput, "X", nil, nil)
	in1 := NewCell(1, "BC_1", "B", FunctionInput, "X", nil, nil)
	v0, v1 := true, false
	in0.InValue, in1.InValue = &v0, &v1
	g := PinGroup{{Name: "A", InputCell: in0}, {Name: "B", InputCell: in1}}
	got := g.GetValue()
	want := []bool{true, false}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("pin %d = %v, want %v", i, got[i], w)
		}
	}
}
