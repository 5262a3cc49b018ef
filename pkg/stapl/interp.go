package stapl

import (
	"fmt"
	"log/slog"
)

// ExitError is raised by an EXIT statement and propagates out of Run.
type ExitError struct{ Code int64 }

func (e *ExitError) Error() string { return fmt.Sprintf("stapl: EXIT %d", e.Code) }

type loopFrame struct {
	varName string
	step    IntValue
	end     IntValue
	bodyPC  int
}

type callFrame struct {
	pc        int
	scope     *Scope
	loopStack []loopFrame
}

// Interpreter walks a parsed Program's flat statement vector, driving a
// Host for every TAP-facing instruction (§4.6).
type Interpreter struct {
	Prog *Program
	Host Host
	log  *slog.Logger

	dataScopes map[string]*Scope
	callStack  []callFrame
	scope      *Scope
	loopStack  []loopFrame
	pushStack  []Value
	pc         int

	drEndState string
	irEndState string
}

// NewInterpreter builds an interpreter for prog driving host. Default
// DRSTOP/IRSTOP end state is IDLE, per STAPL's default.
func NewInterpreter(prog *Program, host Host) *Interpreter {
	return &Interpreter{
		Prog:       prog,
		Host:       host,
		log:        slog.Default().With("component", "stapl.interp"),
		dataScopes: make(map[string]*Scope),
		drEndState: "IDLE",
		irEndState: "IDLE",
	}
}

// Run initializes every DATA block, then executes the named ACTION's
// procedures in order. Every listed procedure runs, OPTIONAL ones included;
// there is no way to leave OPTIONAL procedures out. An OPTIONAL procedure
// that is missing is skipped and one that fails is logged and skipped; any
// other missing or failing procedure ends the run with an error.
func (in *Interpreter) Run(action string) error {
	for _, name := range in.Prog.DataBlockOrder {
		in.log.Info("initializing data block", "name", name)
		pc := in.Prog.DataBlocks[name]
		scope, err := in.runScope(pc, nil)
		if err != nil {
			return fmt.Errorf("stapl: data %s: %w", name, err)
		}
		in.dataScopes[name] = scope
	}

	a, ok := in.Prog.Actions[action]
	if !ok {
		return fmt.Errorf("stapl: action %q not found", action)
	}
	in.log.Info("running action", "name", action)
	for _, ref := range a.Procedures {
		pc, ok := in.Prog.Procedures[ref.Name]
		if !ok {
			if ref.Optional {
				continue
			}
			return fmt.Errorf("stapl: procedure %q not found", ref.Name)
		}
		if _, err := in.runScope(pc, in.Prog.ProcUses[ref.Name]); err != nil {
			if ref.Optional {
				in.log.Warn("optional procedure failed", "name", ref.Name, "error", err)
				continue
			}
			return fmt.Errorf("stapl: procedure %s: %w", ref.Name, err)
		}
	}
	in.log.Info("action completed", "name", action)
	return nil
}

// runScope executes one top-level procedure/data body to completion (not
// via CALL — this is the outermost entry, so its own EndProc/EndData just
// stops rather than popping a caller).
func (in *Interpreter) runScope(pc int, uses []string) (*Scope, error) {
	in.pc = pc
	in.scope = NewScope()
	in.loopStack = nil
	for _, dep := range uses {
		data, ok := in.dataScopes[dep]
		if !ok {
			return nil, fmt.Errorf("stapl: dependency %q not initialized", dep)
		}
		for name, v := range data.vars {
			in.scope.vars[name] = v // shared reference: procedure mutations are visible to the data scope
		}
	}
	for {
		done, err := in.step()
		if err != nil {
			return nil, err
		}
		if !done {
			return in.scope, nil
		}
	}
}

// step executes the statement at in.pc, advancing pc past it first, and
// reports whether execution should continue.
func (in *Interpreter) step() (bool, error) {
	if in.pc >= len(in.Prog.Statements) {
		return false, fmt.Errorf("stapl: program counter %d out of range", in.pc)
	}
	instr := in.Prog.Statements[in.pc].Instr
	in.pc++
	cont, err := in.exec(instr)
	return cont, err
}

// exec dispatches one instruction. The returned bool is true to keep
// running, false when the enclosing procedure/data body has ended.
func (in *Interpreter) exec(instr Instruction) (bool, error) {
	switch ins := instr.(type) {
	case AssignStmt:
		return true, in.execAssign(ins)
	case BooleanDecl:
		return true, in.execBooleanDecl(ins)
	case IntegerDecl:
		return true, in.execIntegerDecl(ins)
	case CallStmt:
		pc, ok := in.Prog.Procedures[ins.Name]
		if !ok {
			return false, fmt.Errorf("stapl: procedure %q not found", ins.Name)
		}
		in.callStack = append(in.callStack, callFrame{pc: in.pc, scope: in.scope, loopStack: in.loopStack})
		in.pc = pc
		in.scope = NewScope()
		in.loopStack = nil
		for _, dep := range in.Prog.ProcUses[ins.Name] {
			data, ok := in.dataScopes[dep]
			if !ok {
				return false, fmt.Errorf("stapl: dependency %q not initialized for procedure %s", dep, ins.Name)
			}
			for name, v := range data.vars {
				in.scope.vars[name] = v
			}
		}
		return true, nil
	case EndProcStmt:
		if len(in.callStack) > 0 {
			f := in.callStack[len(in.callStack)-1]
			in.callStack = in.callStack[:len(in.callStack)-1]
			in.pc, in.scope, in.loopStack = f.pc, f.scope, f.loopStack
			return true, nil
		}
		return false, nil
	case EndDataStmt:
		return false, nil
	case ExitStmt:
		v, err := ins.Code.Eval(in.scope)
		if err != nil {
			return false, err
		}
		iv, err := ToInt(v)
		if err != nil {
			return false, err
		}
		return false, &ExitError{Code: iv.V.Int64()}
	case ExportStmt:
		s, err := in.renderParts(ins.Parts)
		if err != nil {
			return false, err
		}
		in.Host.Export(ins.Key, s)
		return true, nil
	case PrintStmt:
		s, err := in.renderParts(ins.Parts)
		if err != nil {
			return false, err
		}
		in.log.Info("PRINT", "text", s)
		return true, nil
	case ForStmt:
		return true, in.execFor(ins)
	case NextStmt:
		return true, in.execNext(ins)
	case GotoStmt:
		idx, ok := in.Prog.Labels[ins.Label]
		if !ok {
			return false, fmt.Errorf("stapl: label %q not defined", ins.Label)
		}
		in.pc = idx
		return true, nil
	case IfStmt:
		v, err := ins.Cond.Eval(in.scope)
		if err != nil {
			return false, err
		}
		b, err := ToBool(v)
		if err != nil {
			return false, err
		}
		if b.V {
			return in.exec(ins.Then.Instr)
		}
		return true, nil
	case PopStmt:
		// POP restores a previously PUSHed value into the named variable.
		return true, in.execPop(ins)
	case PushStmt:
		v, err := ins.Value.Eval(in.scope)
		if err != nil {
			return false, err
		}
		in.pushStack = append(in.pushStack, v)
		return true, nil
	case StateStmt:
		for _, s := range ins.States {
			if err := in.Host.EnterState(s); err != nil {
				return false, err
			}
		}
		return true, nil
	case DRStopStmt:
		in.drEndState = ins.State
		return true, nil
	case IRStopStmt:
		in.irEndState = ins.State
		return true, nil
	case DRScanStmt:
		return true, in.execScan(ins.ScanStmt, true)
	case IRScanStmt:
		return true, in.execScan(ins.ScanStmt, false)
	case TRSTStmt:
		cycles, usec, err := in.evalWaitSpec(ins.Wait)
		if err != nil {
			return false, err
		}
		return true, in.Host.TRST(cycles, usec)
	case WaitStmt:
		cycles, usec, err := in.evalWaitSpec(ins.Wait)
		if err != nil {
			return false, err
		}
		return true, in.Host.Wait(cycles, usec, ins.EndState)
	default:
		return false, fmt.Errorf("stapl: unimplemented instruction %T", instr)
	}
}

func (in *Interpreter) evalWaitSpec(w WaitSpec) (cycles int, usec float64, err error) {
	if w.Cycles != nil {
		v, err := w.Cycles.Eval(in.scope)
		if err != nil {
			return 0, 0, err
		}
		iv, err := ToInt(v)
		if err != nil {
			return 0, 0, err
		}
		cycles = int(iv.V.Int64())
	}
	if w.Usec != nil {
		v, err := w.Usec.Eval(in.scope)
		if err != nil {
			return 0, 0, err
		}
		iv, err := ToInt(v)
		if err != nil {
			return 0, 0, err
		}
		usec = float64(iv.V.Int64())
	}
	return cycles, usec, nil
}

func (in *Interpreter) renderParts(parts []ExportPart) (string, error) {
	s := ""
	for _, p := range parts {
		if p.Value == nil {
			s += p.Text
			continue
		}
		v, err := p.Value.Eval(in.scope)
		if err != nil {
			return "", err
		}
		s += v.String()
	}
	return s, nil
}

func (in *Interpreter) execAssign(ins AssignStmt) error {
	v, err := ins.Value.Eval(in.scope)
	if err != nil {
		return err
	}
	vr, err := in.scope.MustLookup(ins.Name)
	if err != nil {
		return err
	}
	if ins.First == nil {
		return vr.Set(v)
	}
	firstIdx, err := evalIndex(ins.First, in.scope)
	if err != nil {
		return err
	}
	if ins.Last == nil {
		switch arr := vr.Val.(type) {
		case BoolArrayValue:
			b, err := ToBool(v)
			if err != nil {
				return err
			}
			if firstIdx < 0 || firstIdx >= len(arr.Bits) {
				return fmt.Errorf("stapl: index %d out of range for %s", firstIdx, ins.Name)
			}
			arr.Bits[firstIdx] = b.V
			return nil
		case IntArrayValue:
			iv, err := ToInt(v)
			if err != nil {
				return err
			}
			if firstIdx < 0 || firstIdx >= len(arr.Elems) {
				return fmt.Errorf("stapl: index %d out of range for %s", firstIdx, ins.Name)
			}
			arr.Elems[firstIdx] = iv
			return nil
		default:
			return fmt.Errorf("stapl: %s is not indexable", ins.Name)
		}
	}
	lastIdx, err := evalIndex(ins.Last, in.scope)
	if err != nil {
		return err
	}
	length := lastIdx - firstIdx + 1
	if length < 0 {
		length = -length
	}
	switch arr := vr.Val.(type) {
	case BoolArrayValue:
		src, ok := v.(BoolArrayValue)
		if !ok || len(src.Bits) != length {
			return fmt.Errorf("stapl: can't assign slice of length %d to slice of length %d", valLen(v), length)
		}
		for i := 0; i < length; i++ {
			arr.Bits[firstIdx+i] = src.Bits[i]
		}
		return nil
	case IntArrayValue:
		src, ok := v.(IntArrayValue)
		if !ok || len(src.Elems) != length {
			return fmt.Errorf("stapl: can't assign slice of length %d to slice of length %d", valLen(v), length)
		}
		for i := 0; i < length; i++ {
			arr.Elems[firstIdx+i] = src.Elems[i]
		}
		return nil
	default:
		return fmt.Errorf("stapl: %s is not sliceable", ins.Name)
	}
}

func valLen(v Value) int {
	switch t := v.(type) {
	case BoolArrayValue:
		return t.Len()
	case IntArrayValue:
		return t.Len()
	default:
		return -1
	}
}

func (in *Interpreter) execBooleanDecl(ins BooleanDecl) error {
	if ins.Length == nil {
		var init Value
		if len(ins.Values) == 1 {
			v, err := ins.Values[0].Eval(in.scope)
			if err != nil {
				return err
			}
			init = v
		}
		return in.scope.Declare(ins.Name, KindBool, 0, init)
	}
	n, err := evalIndex(ins.Length, in.scope)
	if err != nil {
		return err
	}
	var init Value
	if len(ins.Values) == 1 {
		v, err := ins.Values[0].Eval(in.scope)
		if err != nil {
			return err
		}
		ba, ok := v.(BoolArrayValue)
		if !ok {
			return fmt.Errorf("stapl: BOOLEAN array initializer for %s must be a bit array", ins.Name)
		}
		init = ba
	} else {
		init = NewBoolArray(make([]bool, n))
	}
	return in.scope.Declare(ins.Name, KindBoolArray, n, init)
}

func (in *Interpreter) execIntegerDecl(ins IntegerDecl) error {
	if ins.Length == nil {
		var init Value
		if len(ins.Values) == 1 {
			v, err := ins.Values[0].Eval(in.scope)
			if err != nil {
				return err
			}
			init = v
		}
		return in.scope.Declare(ins.Name, KindInt, 0, init)
	}
	n, err := evalIndex(ins.Length, in.scope)
	if err != nil {
		return err
	}
	elems := make([]IntValue, n)
	for i := 0; i < n && i < len(ins.Values); i++ {
		v, err := ins.Values[i].Eval(in.scope)
		if err != nil {
			return err
		}
		iv, err := ToInt(v)
		if err != nil {
			return err
		}
		elems[i] = iv
	}
	for i := len(ins.Values); i < n; i++ {
		elems[i] = NewInt(0)
	}
	return in.scope.Declare(ins.Name, KindIntArray, n, IntArrayValue{Elems: elems})
}

func (in *Interpreter) execFor(ins ForStmt) error {
	start, err := ins.Start.Eval(in.scope)
	if err != nil {
		return err
	}
	step, err := ins.Step.Eval(in.scope)
	if err != nil {
		return err
	}
	end, err := ins.End.Eval(in.scope)
	if err != nil {
		return err
	}
	stepI, err := ToInt(step)
	if err != nil {
		return err
	}
	endI, err := ToInt(end)
	if err != nil {
		return err
	}
	in.loopStack = append(in.loopStack, loopFrame{varName: ins.Var, step: stepI, end: endI, bodyPC: in.pc})
	if err := in.scope.Declare(ins.Var, KindInt, 0, nil); err != nil {
		return err
	}
	vr, _ := in.scope.Lookup(ins.Var)
	return vr.Set(start)
}

func (in *Interpreter) execNext(ins NextStmt) error {
	if len(in.loopStack) == 0 {
		return fmt.Errorf("stapl: NEXT without FOR")
	}
	top := in.loopStack[len(in.loopStack)-1]
	if ins.Var != top.varName {
		return fmt.Errorf("stapl: NEXT variable %s doesn't match FOR variable %s", ins.Var, top.varName)
	}
	vr, err := in.scope.MustLookup(top.varName)
	if err != nil {
		return err
	}
	cur, err := ToInt(vr.Val)
	if err != nil {
		return err
	}
	var loops bool
	if top.step.V.Sign() > 0 {
		loops = cur.V.Cmp(top.end.V) < 0
	} else {
		loops = cur.V.Cmp(top.end.V) > 0
	}
	if !loops {
		in.loopStack = in.loopStack[:len(in.loopStack)-1]
		return nil
	}
	next, err := Add(cur, top.step)
	if err != nil {
		return err
	}
	if err := vr.Set(next); err != nil {
		return err
	}
	in.pc = top.bodyPC
	return nil
}

func (in *Interpreter) execPop(ins PopStmt) error {
	if len(in.pushStack) == 0 {
		return fmt.Errorf("stapl: POP with empty stack")
	}
	v := in.pushStack[len(in.pushStack)-1]
	in.pushStack = in.pushStack[:len(in.pushStack)-1]
	vr, err := in.scope.MustLookup(ins.Name)
	if err != nil {
		return err
	}
	return vr.Set(v)
}

func (in *Interpreter) execScan(ins ScanStmt, isDR bool) error {
	n, err := evalIndex(ins.Length, in.scope)
	if err != nil {
		return err
	}
	tdiVal, err := ins.TDI.Eval(in.scope)
	if err != nil {
		return err
	}
	tdi, ok := tdiVal.(BoolArrayValue)
	if !ok || len(tdi.Bits) != n {
		return fmt.Errorf("stapl: scan TDI value length mismatch: want %d bits", n)
	}

	endState := in.drEndState
	if !isDR {
		endState = in.irEndState
	}
	var tdo []bool
	if isDR {
		tdo, err = in.Host.DRScan(tdi.Bits, endState)
	} else {
		tdo, err = in.Host.IRScan(tdi.Bits, endState)
	}
	if err != nil {
		return err
	}

	if ins.Capture != "" {
		vr, err := in.scope.MustLookup(ins.Capture)
		if err != nil {
			return err
		}
		if err := vr.Set(NewBoolArray(tdo)); err != nil {
			return err
		}
	}

	if ins.HasCompare {
		dataVal, err := ins.CompareData.Eval(in.scope)
		if err != nil {
			return err
		}
		maskVal, err := ins.CompareMask.Eval(in.scope)
		if err != nil {
			return err
		}
		expVal, err := ins.CompareExpected.Eval(in.scope)
		if err != nil {
			return err
		}
		data, _ := dataVal.(BoolArrayValue)
		mask, _ := maskVal.(BoolArrayValue)
		exp, _ := expVal.(BoolArrayValue)
		if len(data.Bits) != n || len(mask.Bits) != n || len(exp.Bits) != n {
			return fmt.Errorf("stapl: COMPARE operand length mismatch")
		}
		_ = data // data names the captured-result source variable per the STAPL CAPTURE/COMPARE contract; tdo is what was actually shifted
		for i := 0; i < n; i++ {
			if mask.Bits[i] && tdo[i] != exp.Bits[i] {
				return fmt.Errorf("stapl: COMPARE mismatch at bit %d", i)
			}
		}
	}
	return nil
}
