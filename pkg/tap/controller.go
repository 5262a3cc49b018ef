package tap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/device"
	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/transport"
)

// Controller is the IEEE 1149.1 TAP controller: it owns a Chain and drives
// it over a Transport, exposing the operations of §4.1.
type Controller struct {
	Transport transport.Transport
	Chain     *device.Chain
	machine   *StateMachine

	InExtest     bool
	CycleCounter int

	log *slog.Logger
}

// NewController builds a controller over an (empty) chain and a transport.
func NewController(t transport.Transport) *Controller {
	return &Controller{
		Transport: t,
		Chain:     device.NewChain(),
		machine:   NewStateMachine(),
		log:       slog.Default().With("component", "tap.controller"),
	}
}

// State reports the controller's believed current TAP state.
func (c *Controller) State() State { return c.machine.state }

// Reset forces TEST_LOGIC_RESET by issuing ≥5 TMS=1 cycles.
func (c *Controller) Reset() {
	c.Transport.Reset()
	c.machine.state = StateTestLogicReset
	c.InExtest = false
}

// EnterState routes to s using the §4.1 greedy algorithm.
func (c *Controller) EnterState(s State) {
	seq := c.machine.EnterState(s)
	if len(seq.TMS) > 0 {
		c.Transport.TransmitTMSStr(seq.TMS, false)
	}
}

// AddDevice appends a device to the chain. Illegal once the chain is
// validated.
func (c *Controller) AddDevice(d *device.Device) error {
	return c.Chain.AddDevice(d)
}

// DetectChain shifts an all-ones pattern through IR (forcing every device's
// instruction register to BYPASS, as IEEE 1149.1 mandates an all-ones
// opcode be BYPASS for every compliant device regardless of its IR length)
// while capturing TDO. Per §11.3 of the standard the LSB of every device's
// IR capture is forced to 1; counting the captured 1 bits yields the device
// count and the position of the last one yields the total IR length. Fails
// ("TDO stuck") if no 1 bit appears within maxLen cycles.
func (c *Controller) DetectChain(maxLen int) (deviceCount int, totalIRLen int, err error) {
	c.Reset()
	c.EnterState(StateShiftIR)

	captured := make([]bool, maxLen)
	for i := 0; i < maxLen; i++ {
		captured[i] = c.Transport.Transfer(i == maxLen-1, true)
	}
	c.EnterState(StateRunTestIdle)

	last := -1
	for i, b := range captured {
		if b {
			deviceCount++
			last = i
		}
	}
	if deviceCount == 0 {
		c.Reset()
		return 0, 0, fmt.Errorf("tap: TDO stuck at 0, no devices detected")
	}
	if last == maxLen-1 {
		c.Reset()
		return 0, 0, fmt.Errorf("tap: TDO stuck at 1, or IR length exceeds %d", maxLen)
	}
	return deviceCount, last + 1, nil
}

// ValidateChain freezes the chain, validates every device's IDCODE, then
// issues SAMPLE and captures the initial boundary register.
func (c *Controller) ValidateChain() error {
	if err := c.LoadInstruction(device.InstrIDCode); err != nil {
		return err
	}
	total := 32 * len(c.Chain.Devices)
	captured := c.ReadRegister(total)

	// TDI-most device (index 0) ends up at the highest bit offset, matching
	// the chain-level shift-order convention used throughout.
	offset := 0
	for i := len(c.Chain.Devices) - 1; i >= 0; i-- {
		dev := c.Chain.Devices[i]
		slice := captured[offset : offset+32]
		offset += 32
		raw := device.BitsToUint32(slice)
		if dev.IDCode != nil && !dev.IDCode.Matches(raw) {
			c.Reset()
			return fmt.Errorf("tap: IDCODE mismatch for device %d: got %08x", i, raw)
		}
	}

	if err := c.LoadInstruction(device.InstrSample); err != nil {
		return err
	}
	br := c.ReadWriteRegister(make([]bool, c.Chain.TotalBRLen()))
	if err := c.Chain.UpdateBR(br); err != nil {
		return err
	}

	c.Chain.Validated = true
	return nil
}

// LoadInstruction routes to SHIFT_IR, shifts the chain's per-device opcode
// for `name` (failing if any device lacks it), and routes to UPDATE_IR.
func (c *Controller) LoadInstruction(name string) error {
	for _, d := range c.Chain.Devices {
		bits, ok := d.Opcodes[name]
		if !ok {
			return fmt.Errorf("tap: instruction %q not supported by all devices in chain", name)
		}
		c.Chain.SetLoadedOpcode(d, bits)
	}
	ir := c.Chain.GenerateIR()
	c.EnterState(StateShiftIR)
	c.shift(ir)
	c.EnterState(StateUpdateIR)
	return nil
}

// ReadRegister routes to SHIFT_DR, shifts n zero bits, routes to UPDATE_DR,
// and returns the captured bits.
func (c *Controller) ReadRegister(n int) []bool {
	return c.ReadWriteRegister(make([]bool, n))
}

// WriteRegister routes to SHIFT_DR, shifts tdi, routes to UPDATE_DR,
// discarding TDO.
func (c *Controller) WriteRegister(tdi []bool) {
	c.ReadWriteRegister(tdi)
}

// ReadWriteRegister routes to SHIFT_DR, shifts tdi (full duplex), routes to
// UPDATE_DR, and returns captured TDO. A single-bit shift is emitted with
// TMS=1 on that one clock, per the shift discipline.
func (c *Controller) ReadWriteRegister(tdi []bool) []bool {
	c.EnterState(StateShiftDR)
	tdo := c.shift(tdi)
	c.EnterState(StateUpdateDR)
	return tdo
}

// shift clocks bits through whatever scan register the TAP is currently
// shifting, the last bit with TMS=1 to leave SHIFT in one clock (also
// correct for a single-bit shift).
func (c *Controller) shift(bits []bool) []bool {
	if len(bits) == 0 {
		return nil
	}
	tdo := make([]bool, len(bits))
	for i, b := range bits {
		tdo[i] = c.Transport.Transfer(i == len(bits)-1, b)
	}
	c.machine.Clock(true) // the final TMS=1 bit moved SHIFT to EXIT1
	return tdo
}

// Extest captures the current boundary register via SAMPLE, distributes it
// to cells, then loads EXTEST.
func (c *Controller) Extest() error {
	if err := c.LoadInstruction(device.InstrSample); err != nil {
		return err
	}
	br := c.ReadWriteRegister(c.Chain.GenerateBR())
	if err := c.Chain.UpdateBR(br); err != nil {
		return err
	}
	if err := c.LoadInstruction(device.InstrExtest); err != nil {
		return err
	}
	c.InExtest = true
	return nil
}

// ExtestPulse loads EXTEST_PULSE and resets per-cell captured state.
func (c *Controller) ExtestPulse() error {
	if err := c.LoadInstruction(device.InstrExtestPulse); err != nil {
		return err
	}
	for _, d := range c.Chain.Devices {
		for _, cell := range d.Cells {
			cell.InValue = nil
		}
	}
	return nil
}

// Cycle performs one boundary-register scan: generate BR from all cells,
// read_write_register, distribute captured bits back to cells, increment
// the cycle counter. This is the non-cooperative primitive pkg/scan builds
// its multiplexed cycle() on top of.
func (c *Controller) Cycle() error {
	br := c.ReadWriteRegister(c.Chain.GenerateBR())
	if err := c.Chain.UpdateBR(br); err != nil {
		return err
	}
	c.CycleCounter++
	return nil
}

// DRScan shifts bits through DR and leaves the TAP in endState.
func (c *Controller) DRScan(bits []bool, endState State) []bool {
	c.EnterState(StateShiftDR)
	tdo := c.shift(bits)
	c.EnterState(endState)
	return tdo
}

// IRScan shifts bits through IR and leaves the TAP in endState.
func (c *Controller) IRScan(bits []bool, endState State) []bool {
	c.EnterState(StateShiftIR)
	tdo := c.shift(bits)
	c.EnterState(endState)
	return tdo
}

// holdStates are the TAP states in which clocking with a constant TMS value
// does not change state, valid places to "wait".
var holdStates = map[State]bool{
	StateRunTestIdle:    true,
	StatePauseDR:        true,
	StatePauseIR:        true,
	StateTestLogicReset: true,
}

// Wait emits `cycles` TMS bits that keep the current hold state, then (if
// usec > 500) additionally blocks wall-clock time.
func (c *Controller) Wait(cycles int, usec float64) error {
	s := c.machine.State()
	if !holdStates[s] {
		return fmt.Errorf("tap: wait() requires a hold state, got %s", s)
	}
	tms := s == StateTestLogicReset // TLR holds on TMS=1, the others on TMS=0
	for i := 0; i < cycles; i++ {
		c.Transport.Transfer(tms, false)
	}
	if usec > 500 {
		time.Sleep(time.Duration(usec) * time.Microsecond)
	}
	return nil
}

// SetFrequency forwards to the transport, best-effort.
func (c *Controller) SetFrequency(hz float64) {
	c.Transport.SetFreq(hz)
}
