package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/bsdl"
)

// Canonical instruction names the controller looks up by.
const (
	InstrBypass      = "BYPASS"
	InstrIDCode      = "IDCODE"
	InstrSample      = "SAMPLE"
	InstrExtest      = "EXTEST"
	InstrExtestPulse = "EXTEST_PULSE"
	InstrPreload     = "PRELOAD"
)

// IDCodePattern is a 32-bit IDCODE match pattern with optional don't-care
// ('X') bits, already reversed to shift order (bit 0 is the first bit
// shifted out of the device).
type IDCodePattern struct {
	Value uint32
	Mask  uint32 // 1 = bit is significant
}

// Matches reports whether a captured 32-bit IDCODE (bit 0 = first bit
// shifted) satisfies the pattern.
func (p IDCodePattern) Matches(raw uint32) bool {
	return raw&p.Mask == p.Value&p.Mask
}

// Device is a single device on the scan chain.
type Device struct {
	Name    string // BSDL entity name, empty for synthetic devices
	IRLen   int
	IDCode  *IDCodePattern
	Opcodes map[string][]bool // shift order (bit 0 first), per instruction name
	Cells   []*Cell           // dense [0, brlen)
	Pinmap  map[string]*Pin
	MaxFreq float64 // Hz, 0 if unknown
}

// NewDevice validates and assembles a Device from its already-parsed parts.
// BYPASS must be present and cell indices must be dense starting at 0.
func NewDevice(irlen int, idcode *IDCodePattern, opcodes map[string][]bool, cells []*Cell) (*Device, error) {
	if _, ok := opcodes[InstrBypass]; !ok {
		return nil, fmt.Errorf("device: BYPASS opcode is required")
	}
	for i, c := range cells {
		if c == nil {
			return nil, fmt.Errorf("device: boundary register has a gap at index %d", i)
		}
		if c.Index != i {
			return nil, fmt.Errorf("device: cell at position %d has index %d", i, c.Index)
		}
	}

	d := &Device{
		IRLen:   irlen,
		IDCode:  idcode,
		Opcodes: opcodes,
		Cells:   cells,
		Pinmap:  make(map[string]*Pin),
	}
	d.buildPinmap()
	return d, nil
}

// buildPinmap implements the §4.2 pin overlay: for every cell whose port is
// not "*", attach it to a Pin keyed by port name as input/output/control
// depending on function.
func (d *Device) buildPinmap() {
	for _, c := range d.Cells {
		if c.Port == "*" || c.Port == "" {
			continue
		}
		pin, ok := d.Pinmap[c.Port]
		if !ok {
			pin = &Pin{Name: c.Port}
			d.Pinmap[c.Port] = pin
		}
		switch c.Function {
		case FunctionOutput3, FunctionOutput2, FunctionBidir:
			pin.OutputCell = c
			if c.ControlCell != nil && *c.ControlCell >= 0 && *c.ControlCell < len(d.Cells) {
				pin.ControlCell = d.Cells[*c.ControlCell]
			}
		}
		switch c.Function {
		case FunctionInput, FunctionBidir:
			pin.InputCell = c
		}
	}
}

// GenerateBR concatenates every cell's OutValue, index 0 low.
func (d *Device) GenerateBR() []bool {
	out := make([]bool, len(d.Cells))
	for i, c := range d.Cells {
		out[i] = c.OutValue
	}
	return out
}

// UpdateBR distributes a freshly captured boundary register back to the
// cells' InValue.
func (d *Device) UpdateBR(br []bool) error {
	if len(br) != len(d.Cells) {
		return fmt.Errorf("device: invalid BR length %d, want %d", len(br), len(d.Cells))
	}
	for i, v := range br {
		v := v
		d.Cells[i].InValue = &v
	}
	return nil
}

// NewDeviceFromBSDL builds a Device from a parsed BSDL file, applying the
// §4.2 bit-order reversal to opcodes and the IDCODE pattern at intake time
// so that downstream code only ever sees shift-order bitstrings.
func NewDeviceFromBSDL(file *bsdl.BSDLFile) (*Device, error) {
	if file == nil || file.Entity == nil {
		return nil, fmt.Errorf("device: nil BSDL file")
	}
	entity := file.Entity

	info := entity.GetDeviceInfo()
	if info.InstructionLength <= 0 {
		return nil, fmt.Errorf("device: missing or invalid INSTRUCTION_LENGTH")
	}

	opcodes := make(map[string][]bool)
	for _, instr := range entity.GetInstructionOpcodes() {
		bits, err := reverseBitPattern(instr.Opcode)
		if err != nil {
			// Multi-pattern / malformed opcodes are silently ignored per §4.2.
			continue
		}
		opcodes[strings.ToUpper(instr.Name)] = bits
	}

	idcode, err := parseIDCodePattern(info.IDCode)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	rawCells, err := entity.GetBoundaryCells()
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	brlen := info.BoundaryLength
	if brlen == 0 {
		brlen = len(rawCells)
	}
	cells := make([]*Cell, brlen)
	for _, rc := range rawCells {
		if rc.Number < 0 || rc.Number >= brlen {
			return nil, fmt.Errorf("device: boundary cell index %d out of range [0,%d)", rc.Number, brlen)
		}
		var controlCell, disableValue *int
		if rc.Control >= 0 {
			v := rc.Control
			controlCell = &v
		}
		if rc.Disable >= 0 {
			v := rc.Disable
			disableValue = &v
		}
		cells[rc.Number] = NewCell(rc.Number, rc.CellType, rc.Port, Function(strings.ToLower(rc.Function)), rc.Safe, controlCell, disableValue)
	}

	tap := entity.GetTAPConfig()

	dev, err := NewDevice(info.InstructionLength, idcode, opcodes, cells)
	if err != nil {
		return nil, err
	}
	dev.Name = entity.Name
	dev.MaxFreq = tap.MaxFreq
	return dev, nil
}

// reverseBitPattern parses a textual binary pattern (MSB-first, possibly
// with whitespace) and returns it bit-reversed, matching the "store
// reversed so bit 0 is the first bit to shift" rule of §4.2.
func reverseBitPattern(pattern string) ([]bool, error) {
	pattern = strings.TrimSpace(pattern)
	bits := make([]bool, 0, len(pattern))
	for _, ch := range pattern {
		switch ch {
		case '0':
			bits = append(bits, false)
		case '1':
			bits = append(bits, true)
		default:
			return nil, fmt.Errorf("device: invalid opcode character %q", ch)
		}
	}
	if len(bits) == 0 {
		return nil, fmt.Errorf("device: empty opcode pattern")
	}
	reverse(bits)
	return bits, nil
}

func reverse(bits []bool) {
	for i, j := 0, len(bits)-1; i < j; i, j = i+1, j-1 {
		bits[i], bits[j] = bits[j], bits[i]
	}
}

// parseIDCodePattern parses a textual IDCODE pattern (MSB-first, '0'/'1' plus
// don't-care 'X'/'x') directly into shift-order Value/Mask: character i from
// the left sits at bit (len-i-1), matching the numbering BitsToUint32 uses
// for a captured register, so Matches can compare the two without any extra
// reversal.
func parseIDCodePattern(pattern string) (*IDCodePattern, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil
	}
	var value, mask uint32
	n := len(pattern)
	for i, ch := range pattern {
		bit := uint(n - 1 - i)
		switch ch {
		case '1':
			value |= 1 << bit
			mask |= 1 << bit
		case '0':
			mask |= 1 << bit
		case 'X', 'x':
		default:
			return nil, fmt.Errorf("invalid IDCODE character %q", ch)
		}
	}
	return &IDCodePattern{Value: value, Mask: mask}, nil
}

// BitsToUint32 packs a shift-order (bit 0 first / LSB) bit slice into a
// uint32, most-significant captured bit occupying the highest index.
func BitsToUint32(bits []bool) uint32 {
	var v uint32
	for i, b := range bits {
		if b {
			v |= 1 << uint(i)
		}
	}
	return v
}

// FormatOpcode renders a shift-order opcode back to the textual MSB-first
// representation, mostly useful for diagnostics and tests.
func FormatOpcode(bits []bool) string {
	var sb strings.Builder
	for i := len(bits) - 1; i >= 0; i-- {
		if bits[i] {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// ParseUintBits is a convenience used by tests to build a shift-order bit
// slice of a given width from an unsigned integer, LSB first.
func ParseUintBits(v uint64, width int) []bool {
	bits := make([]bool, width)
	for i := 0; i < width; i++ {
		bits[i] = (v>>uint(i))&1 != 0
	}
	return bits
}

// MustAtoi is a small helper kept for callers building synthetic cells in
// tests without importing strconv themselves.
func MustAtoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	return v
}
