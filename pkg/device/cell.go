// Package device builds the in-memory boundary-scan device model (cells,
// pins, devices, chain) from a parsed BSDL attribute bag.
package device

import "fmt"

// Function names a boundary cell's role in the boundary register, matching
// the function strings BSDL's BOUNDARY_REGISTER attribute uses.
type Function string

const (
	FunctionInput    Function = "input"
	FunctionOutput2  Function = "output2"
	FunctionOutput3  Function = "output3"
	FunctionBidir    Function = "bidir"
	FunctionControl  Function = "control"
	FunctionControlR Function = "controlr"
	FunctionInternal Function = "internal"
	FunctionClock    Function = "clock"
)

// Cell is a single boundary-scan cell at a fixed index in the boundary
// register. Its identity is its index; two cells compare equal iff their
// indices match.
type Cell struct {
	Index    int
	CellType string
	Port     string
	Function Function
	Safe     string // "0", "1" or "X"

	// ControlCell, when non-nil, names the index of the cell that gates this
	// cell's output driver (BSDL's "control_cell" field of an output3/bidir
	// entry). DisableValue is the control cell's out value that disables
	// the driver.
	ControlCell  *int
	DisableValue *int

	InValue  *bool // last captured bit; nil until the first capture
	OutValue bool  // bit shifted out next cycle; initialised from Safe
}

// NewCell builds a cell and sets its initial OutValue from the safe value.
func NewCell(index int, cellType, port string, fn Function, safe string, controlCell, disableValue *int) *Cell {
	c := &Cell{
		Index:        index,
		CellType:     cellType,
		Port:         port,
		Function:     fn,
		Safe:         safe,
		ControlCell:  controlCell,
		DisableValue: disableValue,
	}
	c.setSafe()
	return c
}

func (c *Cell) setSafe() {
	switch c.Safe {
	case "0":
		c.OutValue = false
	case "1":
		c.OutValue = true
	default:
		// "X" (don't care): leave the conventional reset value of 0.
	}
}

func (c *Cell) String() string {
	return fmt.Sprintf("%s@%d", c.CellType, c.Index)
}

// Equal reports whether two cells share the same boundary-register index.
func (c *Cell) Equal(o *Cell) bool {
	return c.Index == o.Index
}
