package scan

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/device"
	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/tap"
	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/transport"
)

type echoTransport struct{ transport.Base }

func newEchoTransport() *echoTransport {
	e := &echoTransport{}
	e.TransferFunc = func(tms, tdi bool) bool { return tdi }
	return e
}

func TestEngineCycleAdvancesCounterAndNotifiesListeners(t *testing.T) {
	ctl := tap.NewController(newEchoTransport())
	e := NewEngine(ctl)

	in := device.NewCell(0, "BC_1", "D0", device.FunctionInput, "X", nil, nil)
	v := true
	in.InValue = &v
	pins := device.PinGroup{{Name: "D0", InputCell: in}}
	l := e.Trace([]string{"D0"}, pins)

	if err := e.Cycle(nil); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if ctl.CycleCounter != 1 {
		t.Fatalf("CycleCounter = %d, want 1", ctl.CycleCounter)
	}

	select {
	case s := <-l.C:
		if s.Cycle != 1 || len(s.Values) != 1 || !s.Values[0] {
			t.Fatalf("sample = %+v, want Cycle=1 Values=[true]", s)
		}
	default:
		t.Fatal("expected a sample on the trace channel")
	}
}

func TestEngineCycleCooperativeYieldSkipsSecondTask(t *testing.T) {
	ctl := tap.NewController(newEchoTransport())
	e := NewEngine(ctl)

	s := NewScheduler()
	var aErr, bErr error
	s.Run(
		func(y *Yield) { aErr = e.Cycle(y) },
		func(y *Yield) { bErr = e.Cycle(y) },
	)
	if aErr != nil || bErr != nil {
		t.Fatalf("Cycle errors: a=%v b=%v", aErr, bErr)
	}
	if ctl.CycleCounter != 1 {
		t.Fatalf("CycleCounter = %d, want 1 (both tasks share one real scan)", ctl.CycleCounter)
	}
}

func TestEngineCycleNoParallelSkipsYield(t *testing.T) {
	ctl := tap.NewController(newEchoTransport())
	e := NewEngine(ctl)
	e.NoParallel = true
	if err := e.Cycle(nil); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if ctl.CycleCounter != 1 {
		t.Fatalf("CycleCounter = %d, want 1", ctl.CycleCounter)
	}
}

func TestEngineTraceDropsStaleSampleRatherThanBlocking(t *testing.T) {
	ctl := tap.NewController(newEchoTransport())
	e := NewEngine(ctl)
	pins := device.PinGroup{}
	l := e.Trace(nil, pins)

	for i := 0; i < 3; i++ {
		if err := e.Cycle(nil); err != nil {
			t.Fatalf("Cycle: %v", err)
		}
	}
	select {
	case sample := <-l.C:
		if sample.Cycle != 3 {
			t.Fatalf("sample.Cycle = %d, want 3 (latest sample, stale ones dropped)", sample.Cycle)
		}
	default:
		t.Fatal("expected the latest sample to be available")
	}
}
