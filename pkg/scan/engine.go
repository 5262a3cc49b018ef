package scan

import (
	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/device"
	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/tap"
)

// Sample is what a trace listener receives after a scan: the current
// values of the pins it registered for, plus the cycle index they were
// captured on.
type Sample struct {
	Cycle  int
	Values []bool
}

// Listener is a trace fan-out registration: a named pin set and the
// channel that receives a Sample after every real scan.
type Listener struct {
	Names []string
	Pins  device.PinGroup
	C     chan Sample
}

// Engine drives the §4.3 boundary-scan cycle on top of a tap.Controller:
// generate BR from all cells, shift, distribute captured bits, notify
// trace listeners, advance the cycle counter — with the cooperative
// multiplexing contract so multiple tasks calling Cycle share one scan.
type Engine struct {
	Ctl       *tap.Controller
	NoParallel bool // skip the initial yield; correctness of multi-task use is then undefined, per §4.3

	listeners []*Listener
}

// NewEngine wraps a controller already sitting in EXTEST.
func NewEngine(ctl *tap.Controller) *Engine {
	return &Engine{Ctl: ctl}
}

// Trace registers a trace listener over the given pins, returning a channel
// that receives one Sample per real scan. The caller must keep draining it
// (a buffered channel of size 1 is used so a slow consumer only ever misses
// intermediate samples, never blocks the engine).
func (e *Engine) Trace(names []string, pins device.PinGroup) *Listener {
	l := &Listener{Names: names, Pins: pins, C: make(chan Sample, 1)}
	e.listeners = append(e.listeners, l)
	return l
}

func (e *Engine) notify() {
	for _, l := range e.listeners {
		sample := Sample{Cycle: e.Ctl.CycleCounter, Values: l.Pins.GetValue()}
		select {
		case l.C <- sample:
		default:
			// Drop the stale sample rather than block the scan on a slow
			// listener; the next cycle's sample will supersede it.
			select {
			case <-l.C:
			default:
			}
			l.C <- sample
		}
	}
}

// Cycle implements the cooperative-multiplexing contract of §4.3: read the
// cycle counter, yield once, and only the first task to resume with the
// counter unchanged actually performs the scan. y may be nil, in which case
// no yield occurs (equivalent to NoParallel for this one call).
func (e *Engine) Cycle(y *Yield) error {
	observed := e.Ctl.CycleCounter
	if y != nil && !e.NoParallel {
		y.Yield()
	}
	if e.Ctl.CycleCounter != observed {
		// Another task already performed the scan while we were yielded;
		// we still observe its freshly captured inputs.
		return nil
	}
	if err := e.Ctl.Cycle(); err != nil {
		return err
	}
	e.notify()
	return nil
}
