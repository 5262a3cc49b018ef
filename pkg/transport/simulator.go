package transport

import (
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/device"
)

// simState is the simulator's own copy of the 16 IEEE 1149.1 TAP states.
// It intentionally does not import pkg/tap (which itself depends on this
// package's Transport interface) and instead hardcodes the next-state
// table directly, the same way original_source's drivers/sim.py does.
type simState int

const (
	simTestLogicReset simState = iota
	simRunTestIdle
	simSelectDRScan
	simCaptureDR
	simShiftDR
	simExit1DR
	simPauseDR
	simExit2DR
	simUpdateDR
	simSelectIRScan
	simCaptureIR
	simShiftIR
	simExit1IR
	simPauseIR
	simExit2IR
	simUpdateIR
)

// DeviceSimulator simulates a single device sitting on the TAP, bit for
// bit, for use as a Transport in tests and the `sim://` CLI target.
type DeviceSimulator struct {
	Base

	dev   *device.Device
	state simState

	shiftIR []bool
	ir      []bool
	shiftDR []bool
	log     *slog.Logger
}

// NewDeviceSimulator wraps a single device behind the bit-serial transport
// contract, starting in TEST_LOGIC_RESET with BYPASS loaded.
func NewDeviceSimulator(dev *device.Device) *DeviceSimulator {
	s := &DeviceSimulator{dev: dev, log: slog.Default().With("component", "transport.sim")}
	s.TransferFunc = s.transfer
	s.resetState()
	return s
}

func (s *DeviceSimulator) Reset() {
	s.resetState()
}

func (s *DeviceSimulator) resetState() {
	s.state = simTestLogicReset
	s.shiftIR = nil
	s.ir = make([]bool, s.dev.IRLen)
	for i := range s.ir {
		s.ir[i] = true // BYPASS convention: IR resets to all-ones
	}
	s.shiftDR = nil
}

func (s *DeviceSimulator) transfer(tms, tdi bool) bool {
	tdo := false
	next := s.state

	switch s.state {
	case simTestLogicReset:
		if !tms {
			next = simRunTestIdle
		}
	case simRunTestIdle:
		if tms {
			next = simSelectDRScan
		}
	case simSelectDRScan:
		if !tms {
			next = simCaptureDR
		} else {
			next = simSelectIRScan
		}
	case simCaptureDR:
		s.shiftDR = s.captureDR()
		if !tms {
			next = simShiftDR
		} else {
			next = simExit1DR
		}
	case simShiftDR:
		tdo = s.shiftDR[0]
		s.shiftDR = append(s.shiftDR[1:], tdi)
		if tms {
			next = simExit1DR
		}
	case simExit1DR:
		if !tms {
			next = simPauseDR
		} else {
			next = simUpdateDR
		}
	case simPauseDR:
		if tms {
			next = simExit2DR
		}
	case simExit2DR:
		if !tms {
			next = simShiftDR
		} else {
			next = simUpdateDR
		}
	case simUpdateDR:
		if !tms {
			next = simRunTestIdle
		} else {
			next = simSelectDRScan
		}
	case simSelectIRScan:
		if !tms {
			next = simCaptureIR
		} else {
			next = simTestLogicReset
		}
	case simCaptureIR:
		s.ir = device.ParseUintBits(0, s.dev.IRLen) // INSTRUCTION_CAPTURE not modelled; all-zero capture
		s.shiftIR = append([]bool(nil), s.ir...)
		if !tms {
			next = simShiftIR
		} else {
			next = simExit1IR
		}
	case simShiftIR:
		tdo = s.shiftIR[0]
		s.shiftIR = append(s.shiftIR[1:], tdi)
		if tms {
			next = simExit1IR
		}
	case simExit1IR:
		if !tms {
			next = simPauseIR
		} else {
			next = simUpdateIR
		}
	case simPauseIR:
		if tms {
			next = simExit2IR
		}
	case simExit2IR:
		if !tms {
			next = simShiftIR
		} else {
			next = simUpdateIR
		}
	case simUpdateIR:
		s.ir = s.shiftIR
		if !tms {
			next = simRunTestIdle
		} else {
			next = simSelectDRScan
		}
	}

	if s.state != next {
		s.state = next
	}
	return tdo
}

func (s *DeviceSimulator) currentInstruction() string {
	for name, opcode := range s.dev.Opcodes {
		if bitsEqual(opcode, s.ir) {
			return name
		}
	}
	return ""
}

func (s *DeviceSimulator) captureDR() []bool {
	switch s.currentInstruction() {
	case device.InstrIDCode:
		if s.dev.IDCode != nil {
			return device.ParseUintBits(uint64(s.dev.IDCode.Value), 32)
		}
		return make([]bool, 32)
	case device.InstrSample, device.InstrExtest:
		return s.dev.GenerateBR()
	default: // BYPASS and anything unrecognised
		return make([]bool, 1)
	}
}

func bitsEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ChainSimulator composes several DeviceSimulators into one Transport,
// feeding TDO of device i into TDI of device i+1, matching tap_controller.py's
// SimChain.
type ChainSimulator struct {
	Base
	devices []*DeviceSimulator
}

// NewChainSimulator builds a simulator for devices ordered TDI-most first.
func NewChainSimulator(devs ...*device.Device) *ChainSimulator {
	c := &ChainSimulator{}
	for _, d := range devs {
		c.devices = append(c.devices, NewDeviceSimulator(d))
	}
	c.TransferFunc = c.transfer
	return c
}

func (c *ChainSimulator) transfer(tms, tdi bool) bool {
	for _, d := range c.devices {
		tdi = d.transfer(tms, tdi)
	}
	return tdi
}

func (c *ChainSimulator) Reset() {
	for _, d := range c.devices {
		d.Reset()
	}
}
