package device

import "fmt"

// Chain is an ordered list of devices from TDI-most to TDO-most.
type Chain struct {
	Devices   []*Device
	Validated bool

	// loaded tracks each device's currently-loaded instruction bits
	// (shift order), defaulting to BYPASS. Controllers mutate this via
	// SetLoadedOpcode when they load a new instruction.
	loaded map[*Device][]bool
}

// NewChain builds an empty chain.
func NewChain() *Chain {
	return &Chain{loaded: make(map[*Device][]bool)}
}

// AddDevice appends a device to the TDO end of the chain. Illegal once the
// chain has been validated without first clearing the flag.
func (c *Chain) AddDevice(d *Device) error {
	if c.Validated {
		return fmt.Errorf("device: cannot add a device to a validated chain")
	}
	c.Devices = append(c.Devices, d)
	c.loaded[d] = d.Opcodes[InstrBypass]
	return nil
}

// Clear empties the chain and resets the validated flag.
func (c *Chain) Clear() {
	c.Devices = nil
	c.Validated = false
	c.loaded = make(map[*Device][]bool)
}

// TotalIRLen is the sum of every device's instruction register length.
func (c *Chain) TotalIRLen() int {
	total := 0
	for _, d := range c.Devices {
		total += d.IRLen
	}
	return total
}

// TotalBRLen is the sum of every device's boundary register length.
func (c *Chain) TotalBRLen() int {
	total := 0
	for _, d := range c.Devices {
		total += len(d.Cells)
	}
	return total
}

// SetLoadedOpcode records the instruction bits currently shifted into a
// device's instruction register.
func (c *Chain) SetLoadedOpcode(d *Device, bits []bool) {
	c.loaded[d] = bits
}

// LoadedOpcode returns the bits currently loaded into a device's IR.
func (c *Chain) LoadedOpcode(d *Device) []bool {
	return c.loaded[d]
}

// GenerateIR concatenates every device's currently-loaded instruction bits.
// Per §4.1/§4.2's bit-ordering convention, each device in chain order is
// prepended ahead of the devices already accumulated, so the TDI-most
// device (Devices[0]) ends up occupying the highest-index (last-shifted)
// bits of the result.
func (c *Chain) GenerateIR() []bool {
	var result []bool
	for _, d := range c.Devices {
		bits := c.loaded[d]
		if bits == nil {
			bits = d.Opcodes[InstrBypass]
		}
		result = prepend(bits, result)
	}
	return result
}

// GenerateBR concatenates every device's boundary register with the same
// prepend convention as GenerateIR.
func (c *Chain) GenerateBR() []bool {
	var result []bool
	for _, d := range c.Devices {
		result = prepend(d.GenerateBR(), result)
	}
	return result
}

// UpdateBR distributes a freshly captured global boundary register back to
// each device's cells. The stream is consumed TDO-most device first (the
// reverse of chain order), mirroring GenerateBR's prepend construction.
func (c *Chain) UpdateBR(br []bool) error {
	if len(br) != c.TotalBRLen() {
		return fmt.Errorf("device: chain BR length %d, want %d", len(br), c.TotalBRLen())
	}
	offset := 0
	for i := len(c.Devices) - 1; i >= 0; i-- {
		d := c.Devices[i]
		n := len(d.Cells)
		if err := d.UpdateBR(br[offset : offset+n]); err != nil {
			return err
		}
		offset += n
	}
	return nil
}

// DeviceByPin looks up a device whose pinmap contains the given port, used
// by higher layers that address devices by an arbitrary label; callers that
// need strict identity should keep their own *Device reference instead.
func (c *Chain) DeviceByPin(pinName string) (*Device, *Pin, bool) {
	for _, d := range c.Devices {
		if p, ok := d.Pinmap[pinName]; ok {
			return d, p, true
		}
	}
	return nil, nil, false
}

// DeviceByName looks up a device by its BSDL entity name.
func (c *Chain) DeviceByName(name string) (*Device, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

func prepend(bits, rest []bool) []bool {
	out := make([]bool, 0, len(bits)+len(rest))
	out = append(out, bits...)
	out = append(out, rest...)
	return out
}
