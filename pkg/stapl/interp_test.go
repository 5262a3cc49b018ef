package stapl

import "testing"

// fakeHost is a minimal Host double for exercising the interpreter without
// a real tap.Controller.
type fakeHost struct {
	states     []string
	drScans    int
	tdiHistory [][]bool
	tdoToReturn []bool
	exports    map[string]string
}

func newFakeHost() *fakeHost {
	return &fakeHost{exports: make(map[string]string)}
}

func (h *fakeHost) DRScan(bits []bool, endState string) ([]bool, error) {
	h.drScans++
	cp := make([]bool, len(bits))
	copy(cp, bits)
	h.tdiHistory = append(h.tdiHistory, cp)
	if h.tdoToReturn != nil {
		return h.tdoToReturn, nil
	}
	return cp, nil
}

func (h *fakeHost) IRScan(bits []bool, endState string) ([]bool, error) {
	return h.DRScan(bits, endState)
}

func (h *fakeHost) EnterState(name string) error {
	h.states = append(h.states, name)
	return nil
}

func (h *fakeHost) Wait(cycles int, usec float64, endState string) error { return nil }
func (h *fakeHost) TRST(cycles int, usec float64) error                 { return nil }
func (h *fakeHost) SetFrequency(hz float64)                             {}
func (h *fakeHost) Export(key, value string) {
	h.exports[key] = value
}

func runAction(t *testing.T, src, action string, host Host) *Interpreter {
	t.Helper()
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := NewInterpreter(prog, host)
	if err := in.Run(action); err != nil {
		t.Fatalf("Run(%s): %v", action, err)
	}
	return in
}

func TestForNextAccumulates(t *testing.T) {
	src := "ACTION MAIN = P;\n" +
		"PROCEDURE P;\n" +
		"INTEGER SUM;\n" +
		"SUM = 0;\n" +
		"INTEGER I;\n" +
		"FOR I = 1 TO 5;\n" +
		"SUM = SUM + I;\n" +
		"NEXT I;\n" +
		"EXPORT \"SUM\", SUM;\n" +
		"ENDPROC;\n" +
		"CRC 0000;\n"
	host := newFakeHost()
	in := runAction(t, src, "MAIN", host)
	_ = in
	got := host.exports["SUM"]
	if got != "15" {
		t.Fatalf("SUM export = %q, want %q (1+2+3+4+5=15, end-inclusive)", got, "15")
	}
}

func TestForNextStepDownward(t *testing.T) {
	src := "ACTION MAIN = P;\n" +
		"PROCEDURE P;\n" +
		"INTEGER N;\n" +
		"N = 0;\n" +
		"INTEGER I;\n" +
		"FOR I = 5 TO 0 STEP -1;\n" +
		"N = N + 1;\n" +
		"NEXT I;\n" +
		"EXPORT \"N\", N;\n" +
		"ENDPROC;\n" +
		"CRC 0000;\n"
	host := newFakeHost()
	in := runAction(t, src, "MAIN", host)
	_ = in
	if host.exports["N"] != "6" {
		t.Fatalf("N export = %q, want %q (i=5,4,3,2,1,0 is 6 iterations, end-inclusive)", host.exports["N"], "6")
	}
}

func TestDRScanCaptureAndCompare(t *testing.T) {
	src := "ACTION MAIN = P;\n" +
		"PROCEDURE P;\n" +
		"BOOLEAN TDI = #1010;\n" +
		"BOOLEAN TDO[4];\n" +
		"BOOLEAN MASK = #1111;\n" +
		"BOOLEAN EXPECT = #1010;\n" +
		"DRSCAN 4, TDI, CAPTURE TDO, COMPARE TDO, MASK, EXPECT;\n" +
		"ENDPROC;\n" +
		"CRC 0000;\n"
	host := newFakeHost()
	in := runAction(t, src, "MAIN", host)
	if host.drScans != 1 {
		t.Fatalf("drScans = %d, want 1", host.drScans)
	}
	_ = in
}

func TestDRScanCompareMismatchErrors(t *testing.T) {
	src := "ACTION MAIN = P;\n" +
		"PROCEDURE P;\n" +
		"BOOLEAN TDI = #1010;\n" +
		"BOOLEAN TDO[4];\n" +
		"BOOLEAN MASK = #1111;\n" +
		"BOOLEAN EXPECT = #0000;\n" +
		"DRSCAN 4, TDI, CAPTURE TDO, COMPARE TDO, MASK, EXPECT;\n" +
		"ENDPROC;\n" +
		"CRC 0000;\n"
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := NewInterpreter(prog, newFakeHost())
	if err := in.Run("MAIN"); err == nil {
		t.Fatal("expected COMPARE mismatch error")
	}
}

func TestExitStatementPropagatesCode(t *testing.T) {
	src := "ACTION MAIN = P;\n" +
		"PROCEDURE P;\n" +
		"EXIT 7;\n" +
		"ENDPROC;\n" +
		"CRC 0000;\n"
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := NewInterpreter(prog, newFakeHost())
	err = in.Run("MAIN")
	if err == nil {
		t.Fatal("expected exit error")
	}
	var ee *ExitError
	if !asExitError(err, &ee) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if ee.Code != 7 {
		t.Fatalf("exit code = %d, want 7", ee.Code)
	}
}

// asExitError unwraps fmt.Errorf-wrapped *ExitError without importing
// errors.As in this tiny helper (kept local since it's the only call site).
func asExitError(err error, target **ExitError) bool {
	for err != nil {
		if e, ok := err.(*ExitError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestProcedureUsesSharesDataScope(t *testing.T) {
	src := "ACTION MAIN = P;\n" +
		"DATA D;\n" +
		"INTEGER COUNTER = 0;\n" +
		"ENDDATA;\n" +
		"PROCEDURE P USES D;\n" +
		"COUNTER = COUNTER + 1;\n" +
		"EXPORT \"COUNTER\", COUNTER;\n" +
		"ENDPROC;\n" +
		"CRC 0000;\n"
	host := newFakeHost()
	in := runAction(t, src, "MAIN", host)
	if host.exports["COUNTER"] != "1" {
		t.Fatalf("COUNTER export = %q, want %q", host.exports["COUNTER"], "1")
	}
	dScope := in.dataScopes["D"]
	vr, _ := dScope.Lookup("COUNTER")
	if vr.Val.(IntValue).V.Int64() != 1 {
		t.Fatalf("data scope COUNTER = %v, want 1 (shared reference with procedure)", vr.Val)
	}
}

func TestIfStatementGatesAssignment(t *testing.T) {
	src := "ACTION MAIN = P;\n" +
		"PROCEDURE P;\n" +
		"INTEGER X;\n" +
		"X = 0;\n" +
		"IF 1 == 1 THEN X = 42;\n" +
		"EXPORT \"X\", X;\n" +
		"ENDPROC;\n" +
		"CRC 0000;\n"
	host := newFakeHost()
	runAction(t, src, "MAIN", host)
	if host.exports["X"] != "42" {
		t.Fatalf("X export = %q, want 42", host.exports["X"])
	}
}

func TestOptionalProcedureFailureIsSuppressed(t *testing.T) {
	src := "ACTION MAIN = P, Q OPTIONAL;\n" +
		"PROCEDURE P;\n" +
		"ENDPROC;\n" +
		"PROCEDURE Q;\n" +
		"EXIT 1;\n" +
		"ENDPROC;\n" +
		"CRC 0000;\n"
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := NewInterpreter(prog, newFakeHost())
	if err := in.Run("MAIN"); err != nil {
		t.Fatalf("Run: %v, want nil (Q's EXIT is suppressed by OPTIONAL)", err)
	}
}
