package stapl

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/tap"
)

// Host is everything a running STAPL program needs from the world outside
// the interpreter: the TAP itself (scan/state/wait/reset) and a sink for
// EXPORT key/value pairs. pkg/tap.Controller implements it via
// ControllerHost below; a test double can implement it directly.
type Host interface {
	DRScan(bits []bool, endState string) ([]bool, error)
	IRScan(bits []bool, endState string) ([]bool, error)
	EnterState(name string) error
	Wait(cycles int, usec float64, endState string) error
	TRST(cycles int, usec float64) error
	SetFrequency(hz float64)
	Export(key, value string)
}

// staplStateNames are the canonical STAPL state identifiers (as used by
// STATE/DRSTOP/IRSTOP/WAIT) mapped to IEEE 1149.1 TAP states.
var staplStateNames = map[string]tap.State{
	"RESET":     tap.StateTestLogicReset,
	"IDLE":      tap.StateRunTestIdle,
	"DRSELECT":  tap.StateSelectDRScan,
	"DRCAPTURE": tap.StateCaptureDR,
	"DRSHIFT":   tap.StateShiftDR,
	"DREXIT1":   tap.StateExit1DR,
	"DRPAUSE":   tap.StatePauseDR,
	"DREXIT2":   tap.StateExit2DR,
	"DRUPDATE":  tap.StateUpdateDR,
	"IRSELECT":  tap.StateSelectIRScan,
	"IRCAPTURE": tap.StateCaptureIR,
	"IRSHIFT":   tap.StateShiftIR,
	"IREXIT1":   tap.StateExit1IR,
	"IRPAUSE":   tap.StatePauseIR,
	"IREXIT2":   tap.StateExit2IR,
	"IRUPDATE":  tap.StateUpdateIR,
}

func lookupState(name string) (tap.State, error) {
	s, ok := staplStateNames[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("stapl: unknown state name %q", name)
	}
	return s, nil
}

// ControllerHost adapts a tap.Controller to the Host interface, exporting
// collected EXPORT key/value pairs for the caller to retrieve afterwards.
type ControllerHost struct {
	Ctl     *tap.Controller
	Exports []ExportedValue
}

type ExportedValue struct{ Key, Value string }

func NewControllerHost(ctl *tap.Controller) *ControllerHost {
	return &ControllerHost{Ctl: ctl}
}

func (h *ControllerHost) DRScan(bits []bool, endState string) ([]bool, error) {
	st, err := lookupState(endState)
	if err != nil {
		return nil, err
	}
	return h.Ctl.DRScan(bits, st), nil
}

func (h *ControllerHost) IRScan(bits []bool, endState string) ([]bool, error) {
	st, err := lookupState(endState)
	if err != nil {
		return nil, err
	}
	return h.Ctl.IRScan(bits, st), nil
}

func (h *ControllerHost) EnterState(name string) error {
	st, err := lookupState(name)
	if err != nil {
		return err
	}
	h.Ctl.EnterState(st)
	return nil
}

func (h *ControllerHost) Wait(cycles int, usec float64, endState string) error {
	if endState != "" {
		if err := h.EnterState(endState); err != nil {
			return err
		}
	}
	return h.Ctl.Wait(cycles, usec)
}

func (h *ControllerHost) TRST(cycles int, usec float64) error {
	return h.Ctl.Wait(cycles, usec)
}

func (h *ControllerHost) SetFrequency(hz float64) {
	h.Ctl.SetFrequency(hz)
}

func (h *ControllerHost) Export(key, value string) {
	h.Exports = append(h.Exports, ExportedValue{Key: key, Value: value})
}
