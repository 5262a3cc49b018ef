package device

import "fmt"

// Pin is a logical I/O at a device port, layered over at most one input
// cell, one output cell and one control cell. The pin stores no state of
// its own; every read/write goes through the underlying cells.
type Pin struct {
	Name        string
	InputCell   *Cell
	OutputCell  *Cell
	ControlCell *Cell
}

// OutputEnabled reports whether the pin's driver is currently enabled.
func (p *Pin) OutputEnabled() bool {
	if p.OutputCell == nil {
		return false
	}
	if p.ControlCell == nil {
		// No control cell: permanently driven unless there's also an input
		// cell (bidir without a control cell is not a valid BSDL shape, but
		// guard against it defensively by falling back to "no input").
		return p.InputCell == nil
	}
	disable := 0
	if p.OutputCell.DisableValue != nil {
		disable = *p.OutputCell.DisableValue
	}
	return boolToBit(p.ControlCell.OutValue) != disable
}

// OutputEnable drives the pin's control cell to enable or disable its
// output driver. Requires an output cell. A pin with neither a control cell
// nor an input cell is permanently driven: enabling it is a no-op and
// disabling it is an error. A pin with an input cell but no control cell
// has nothing to drive and errors either way.
func (p *Pin) OutputEnable(enable bool) error {
	if p.OutputCell == nil {
		return fmt.Errorf("device: pin %q has no output cell", p.Name)
	}
	if p.ControlCell == nil {
		if p.InputCell == nil {
			if enable {
				return nil
			}
			return fmt.Errorf("device: pin %q is permanently driven, cannot change output enable", p.Name)
		}
		return fmt.Errorf("device: pin %q has no control cell", p.Name)
	}
	disable := 0
	if p.OutputCell.DisableValue != nil {
		disable = *p.OutputCell.DisableValue
	}
	if enable {
		p.ControlCell.OutValue = bitToBool(1 - disable)
	} else {
		p.ControlCell.OutValue = bitToBool(disable)
	}
	return nil
}

// SetValue writes the pin's output cell.
func (p *Pin) SetValue(v bool) error {
	if p.OutputCell == nil {
		return fmt.Errorf("device: pin %q has no output cell", p.Name)
	}
	p.OutputCell.OutValue = v
	return nil
}

// GetValue reads the pin's last captured input value. ok is false if the
// pin has no input cell, or the cell has never been captured.
func (p *Pin) GetValue() (v bool, ok bool) {
	if p.InputCell == nil {
		return false, false
	}
	if p.InputCell.InValue == nil {
		return false, false
	}
	return *p.InputCell.InValue, true
}

func boolToBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

func bitToBool(b int) bool {
	return b != 0
}

// DiffPin is a differential pair forwarding set/get with complementary
// driving: SetValue(v) drives p=v, n=!v.
type DiffPin struct {
	P, N *Pin
}

func (d *DiffPin) SetValue(v bool) error {
	if err := d.P.SetValue(v); err != nil {
		return err
	}
	return d.N.SetValue(!v)
}

func (d *DiffPin) GetValue() (bool, bool) {
	return d.P.GetValue()
}

// PinGroup is an ordered collection of pins with vector set/get.
type PinGroup []*Pin

// SetValueBits drives element i of bits to pin i.
func (g PinGroup) SetValueBits(bits []bool) error {
	if len(bits) != len(g) {
		return fmt.Errorf("device: pin group has %d pins, got %d bits", len(g), len(bits))
	}
	for i, pin := range g {
		if err := pin.SetValue(bits[i]); err != nil {
			return err
		}
	}
	return nil
}

// SetValueInt drives bit i of v (LSB first) to pin i.
func (g PinGroup) SetValueInt(v uint64) error {
	for i, pin := range g {
		if err := pin.SetValue((v>>uint(i))&1 != 0); err != nil {
			return err
		}
	}
	return nil
}

// GetValue reads every pin's captured value in order.
func (g PinGroup) GetValue() []bool {
	out := make([]bool, len(g))
	for i, pin := range g {
		out[i], _ = pin.GetValue()
	}
	return out
}
