package jtag

import (
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceJTAG/pkg/transport"
)

// AdapterTransport bridges an Adapter's byte-buffer shift contract to the
// bit-serial transport.Transport contract pkg/tap.Controller drives,
// clocking one TCK cycle per Transfer call. ShiftDR is used for every
// cycle regardless of which register is actually being shifted: at the
// raw-adapter level IR and DR shifts are the same electrical operation,
// and Controller (not the adapter) is what tracks TAP state.
type AdapterTransport struct {
	transport.Base

	adapter Adapter
	log     *slog.Logger
}

// NewAdapterTransport wraps a connected Adapter for use as a Controller's
// Transport.
func NewAdapterTransport(a Adapter) *AdapterTransport {
	t := &AdapterTransport{adapter: a, log: slog.Default().With("component", "jtag.bridge")}
	t.TransferFunc = t.transfer
	return t
}

func (t *AdapterTransport) transfer(tms, tdi bool) bool {
	var tmsByte, tdiByte byte
	if tms {
		tmsByte = 1
	}
	if tdi {
		tdiByte = 1
	}
	tdo, err := t.adapter.ShiftDR([]byte{tmsByte}, []byte{tdiByte}, 1)
	if err != nil {
		t.log.Error("adapter shift failed", "error", err)
		return false
	}
	if len(tdo) == 0 {
		return false
	}
	return tdo[0]&1 != 0
}

// Reset issues a real TAP reset through the adapter rather than Base's
// generic five-TMS-high fallback.
func (t *AdapterTransport) Reset() {
	if err := t.adapter.ResetTAP(false); err != nil {
		t.log.Warn("adapter reset failed", "error", err)
	}
}

// SetFreq forwards to the adapter's own speed control.
func (t *AdapterTransport) SetFreq(hz float64) {
	if err := t.adapter.SetSpeed(int(hz)); err != nil {
		t.log.Warn("adapter set speed failed", "error", err)
	}
}
