package stapl

import (
	"fmt"
	"strconv"
	"strings"
)

// builder accumulates the flat statement vector and its index tables while
// parseFile walks the top-level grammar.
type builder struct {
	prog *Program
}

func newBuilder() *builder {
	return &builder{prog: &Program{
		Procedures: make(map[string]int),
		ProcUses:   make(map[string][]string),
		DataBlocks: make(map[string]int),
		Labels:     make(map[string]int),
		Actions:    make(map[string]*ActionDecl),
	}}
}

func (b *builder) emit(label string, instr Instruction) int {
	idx := len(b.prog.Statements)
	b.prog.Statements = append(b.prog.Statements, Statement{Label: label, Instr: instr})
	if label != "" {
		b.prog.Labels[label] = idx
	}
	return idx
}

// parseFile implements stapl_file: notes*, (label? action)*, (procedure |
// data)*, label? crc.
func (p *parser) parseFile() (*Program, error) {
	b := newBuilder()

	for p.isKeyword("NOTE") {
		n, err := p.parseNote()
		if err != nil {
			return nil, err
		}
		b.prog.Notes = append(b.prog.Notes, n)
	}

	for {
		label := p.parseOptLabel()
		if p.isKeyword("ACTION") {
			a, err := p.parseAction()
			if err != nil {
				return nil, err
			}
			b.prog.Actions[a.Name] = a
			b.prog.ActionOrder = append(b.prog.ActionOrder, a.Name)
			continue
		}
		if label != "" {
			return nil, fmt.Errorf("stapl: line %d: label %q not followed by ACTION", p.cur().line, label)
		}
		break
	}

	for {
		if p.isKeyword("PROCEDURE") {
			if err := p.parseProcedure(b); err != nil {
				return nil, err
			}
			continue
		}
		if p.isKeyword("DATA") {
			if err := p.parseDataBlock(b); err != nil {
				return nil, err
			}
			continue
		}
		// A leading label belongs to PROCEDURE/DATA; peek past it.
		save := p.pos
		label := p.parseOptLabel()
		if label != "" && (p.isKeyword("PROCEDURE") || p.isKeyword("DATA")) {
			continue
		}
		p.pos = save
		break
	}

	p.parseOptLabel()
	if err := p.expectKeyword("CRC"); err != nil {
		return nil, err
	}
	crcTok := p.cur()
	if crcTok.kind != tokIdent && crcTok.kind != tokNumber {
		return nil, fmt.Errorf("stapl: line %d: expected CRC value", crcTok.line)
	}
	p.advance()
	crcVal, err := strconv.ParseUint(crcTok.text, 16, 16)
	if err != nil {
		return nil, fmt.Errorf("stapl: line %d: invalid CRC value %q", crcTok.line, crcTok.text)
	}
	b.prog.CRC = uint16(crcVal)
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}

	return b.prog, nil
}

func (p *parser) parseOptLabel() string {
	if p.cur().kind != tokIdent {
		return ""
	}
	save := p.pos
	name := p.advance().text
	if p.isPunct(":") {
		p.advance()
		return name
	}
	p.pos = save
	return ""
}

func (p *parser) parseNote() (Note, error) {
	if err := p.expectKeyword("NOTE"); err != nil {
		return Note{}, err
	}
	key, err := p.expectString()
	if err != nil {
		return Note{}, err
	}
	val, err := p.expectString()
	if err != nil {
		return Note{}, err
	}
	if err := p.expectPunct(";"); err != nil {
		return Note{}, err
	}
	return Note{Key: key, Value: val}, nil
}

func (p *parser) parseAction() (*ActionDecl, error) {
	if err := p.expectKeyword("ACTION"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	descr := ""
	if p.cur().kind == tokString {
		descr, _ = p.expectString()
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	a := &ActionDecl{Name: name, Descr: descr}
	for {
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		opt := false
		if p.isKeyword("OPTIONAL") || p.isKeyword("RECOMMENDED") {
			opt = p.isKeyword("OPTIONAL")
			p.advance()
		}
		a.Procedures = append(a.Procedures, ActionProcRef{Name: pname, Optional: opt})
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return a, nil
}

func (p *parser) parseProcedure(b *builder) error {
	if err := p.expectKeyword("PROCEDURE"); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	var uses []string
	if p.isKeyword("USES") {
		p.advance()
		for {
			dep, err := p.expectIdent()
			if err != nil {
				return err
			}
			uses = append(uses, dep)
			if p.isPunct(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}
	b.prog.ProcUses[name] = uses
	b.prog.Procedures[name] = len(b.prog.Statements)

	for !p.isKeyword("ENDPROC") {
		if err := p.parseProcStatement(b); err != nil {
			return err
		}
	}
	p.parseOptLabel()
	if err := p.expectKeyword("ENDPROC"); err != nil {
		return err
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}
	b.emit("", EndProcStmt{})
	return nil
}

func (p *parser) parseDataBlock(b *builder) error {
	if err := p.expectKeyword("DATA"); err != nil {
		return err
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}
	b.prog.DataBlocks[name] = len(b.prog.Statements)
	b.prog.DataBlockOrder = append(b.prog.DataBlockOrder, name)

	for !p.isKeyword("ENDDATA") {
		label := p.parseOptLabel()
		var instr Instruction
		switch {
		case p.isKeyword("BOOLEAN"):
			d, err := p.parseBooleanDecl()
			if err != nil {
				return err
			}
			instr = d
		case p.isKeyword("INTEGER"):
			d, err := p.parseIntegerDecl()
			if err != nil {
				return err
			}
			instr = d
		default:
			return fmt.Errorf("stapl: line %d: DATA block allows only BOOLEAN/INTEGER declarations", p.cur().line)
		}
		b.emit(label, instr)
	}
	p.parseOptLabel()
	if err := p.expectKeyword("ENDDATA"); err != nil {
		return err
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}
	b.emit("", EndDataStmt{})
	return nil
}

// parseProcStatement parses one labelled proc_statement and emits it.
func (p *parser) parseProcStatement(b *builder) error {
	label := p.parseOptLabel()
	instr, isFor, err := p.parseInstructionOrFor(b, label)
	if err != nil {
		return err
	}
	if !isFor {
		b.emit(label, instr)
	}
	return nil
}

// parseInstructionOrFor handles every proc_instruction alternative. FOR is
// special-cased because it consumes its own body and NEXT terminator
// directly (mirroring the nested grammar rule in stapl.py), emitting
// several statements itself; isFor reports that emit was already done.
func (p *parser) parseInstructionOrFor(b *builder, label string) (Instruction, bool, error) {
	switch {
	case p.isKeyword("FOR"):
		return nil, true, p.parseForLoop(b)
	case p.isKeyword("IF"):
		i, err := p.parseIf(b)
		return i, false, err
	case p.isKeyword("CALL"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, false, err
		}
		return CallStmt{Name: name}, false, p.expectPunct(";")
	case p.isKeyword("DRSCAN"):
		s, err := p.parseScan()
		return DRScanStmt{s}, false, err
	case p.isKeyword("IRSCAN"):
		s, err := p.parseScan()
		return IRScanStmt{s}, false, err
	case p.isKeyword("DRSTOP"):
		p.advance()
		st, err := p.expectIdent()
		if err != nil {
			return nil, false, err
		}
		return DRStopStmt{State: st}, false, p.expectPunct(";")
	case p.isKeyword("IRSTOP"):
		p.advance()
		st, err := p.expectIdent()
		if err != nil {
			return nil, false, err
		}
		return IRStopStmt{State: st}, false, p.expectPunct(";")
	case p.isKeyword("EXIT"):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		return ExitStmt{Code: e}, false, p.expectPunct(";")
	case p.isKeyword("EXPORT"):
		p.advance()
		key, err := p.expectString()
		if err != nil {
			return nil, false, err
		}
		if err := p.expectPunct(","); err != nil {
			return nil, false, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		if err := p.expectPunct(";"); err != nil {
			return nil, false, err
		}
		return ExportStmt{Key: key, Parts: []ExportPart{{Value: e}}}, false, nil
	case p.isKeyword("GOTO"):
		p.advance()
		l, err := p.expectIdent()
		if err != nil {
			return nil, false, err
		}
		return GotoStmt{Label: l}, false, p.expectPunct(";")
	case p.isKeyword("BOOLEAN"):
		d, err := p.parseBooleanDecl()
		return d, false, err
	case p.isKeyword("INTEGER"):
		d, err := p.parseIntegerDecl()
		return d, false, err
	case p.isKeyword("NOTE"):
		// NOTE inside a procedure is not part of the grammar; reject.
		return nil, false, fmt.Errorf("stapl: line %d: NOTE not allowed here", p.cur().line)
	case p.isKeyword("POP"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, false, err
		}
		return PopStmt{Name: name}, false, p.expectPunct(";")
	case p.isKeyword("PRINT"):
		parts, err := p.parsePrintParts()
		if err != nil {
			return nil, false, err
		}
		return PrintStmt{Parts: parts}, false, p.expectPunct(";")
	case p.isKeyword("PUSH"):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		return PushStmt{Value: e}, false, p.expectPunct(";")
	case p.isKeyword("STATE"):
		p.advance()
		var states []string
		for p.cur().kind == tokIdent {
			states = append(states, p.advance().text)
		}
		return StateStmt{States: states}, false, p.expectPunct(";")
	case p.isKeyword("TRST"):
		p.advance()
		w, err := p.parseWaitType()
		if err != nil {
			return nil, false, err
		}
		return TRSTStmt{Wait: w}, false, p.expectPunct(";")
	case p.isKeyword("WAIT"):
		s, err := p.parseWait()
		return s, false, err
	case p.cur().kind == tokIdent:
		return p.parseAssignmentOrError()
	default:
		return nil, false, fmt.Errorf("stapl: line %d: unexpected token %q", p.cur().line, p.cur().text)
	}
}

func (p *parser) parseAssignmentOrError() (Instruction, bool, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, false, err
	}
	var first, last Expr
	if p.isPunct("[") {
		p.advance()
		first, err = p.parseExpr()
		if err != nil {
			return nil, false, err
		}
		if p.isPunct("..") {
			p.advance()
			last, err = p.parseExpr()
			if err != nil {
				return nil, false, err
			}
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, false, err
		}
	}
	if err := p.expectPunct("="); err != nil {
		return nil, false, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, false, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, false, err
	}
	return AssignStmt{Name: name, First: first, Last: last, Value: val}, false, nil
}

func (p *parser) parseIf(b *builder) (Instruction, error) {
	p.advance() // IF
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("THEN"); err != nil {
		return nil, err
	}
	label := p.parseOptLabel()
	inner, isFor, err := p.parseInstructionOrFor(b, label)
	if err != nil {
		return nil, err
	}
	if isFor {
		return nil, fmt.Errorf("stapl: FOR cannot directly follow IF...THEN")
	}
	return IfStmt{Cond: cond, Then: &Statement{Label: label, Instr: inner}}, nil
}

func (p *parser) parseForLoop(b *builder) error {
	p.advance() // FOR
	v, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct("="); err != nil {
		return err
	}
	start, err := p.parseExpr()
	if err != nil {
		return err
	}
	if err := p.expectKeyword("TO"); err != nil {
		return err
	}
	end, err := p.parseExpr()
	if err != nil {
		return err
	}
	step := Expr(litExpr{v: NewInt(1)})
	if p.isKeyword("STEP") {
		p.advance()
		step, err = p.parseExpr()
		if err != nil {
			return err
		}
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}
	b.emit("", ForStmt{Var: v, Start: start, End: end, Step: step})

	for !p.isKeyword("NEXT") {
		if err := p.parseProcStatement(b); err != nil {
			return err
		}
	}
	p.parseOptLabel()
	if err := p.expectKeyword("NEXT"); err != nil {
		return err
	}
	nv, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectPunct(";"); err != nil {
		return err
	}
	b.emit("", NextStmt{Var: nv})
	return nil
}

// parseBooleanDecl: BOOLEAN declarations take at most one initializer
// expression, whether scalar or array — an array initializer is a single
// expression (typically a bit literal) evaluating to the whole array.
func (p *parser) parseBooleanDecl() (BooleanDecl, error) {
	p.advance() // BOOLEAN
	name, length, err := p.parseDeclVariable()
	if err != nil {
		return BooleanDecl{}, err
	}
	var init []Expr
	if p.isPunct("=") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return BooleanDecl{}, err
		}
		init = []Expr{e}
	}
	if err := p.expectPunct(";"); err != nil {
		return BooleanDecl{}, err
	}
	return BooleanDecl{Name: name, VarArrayInit: VarArrayInit{Length: length, Values: init}}, nil
}

// parseIntegerDecl: a scalar INTEGER takes one initializer expression; an
// INTEGER array takes a comma-separated expression per element.
func (p *parser) parseIntegerDecl() (IntegerDecl, error) {
	p.advance() // INTEGER
	name, length, err := p.parseDeclVariable()
	if err != nil {
		return IntegerDecl{}, err
	}
	var init []Expr
	if p.isPunct("=") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return IntegerDecl{}, err
		}
		init = append(init, e)
		for length != nil && p.isPunct(",") {
			p.advance()
			e, err := p.parseExpr()
			if err != nil {
				return IntegerDecl{}, err
			}
			init = append(init, e)
		}
	}
	if err := p.expectPunct(";"); err != nil {
		return IntegerDecl{}, err
	}
	return IntegerDecl{Name: name, VarArrayInit: VarArrayInit{Length: length, Values: init}}, nil
}

// parseDeclVariable parses the "variable" production: identifier, optionally
// followed by [length] declaring an array.
func (p *parser) parseDeclVariable() (string, Expr, error) {
	name, err := p.expectIdent()
	if err != nil {
		return "", nil, err
	}
	if !p.isPunct("[") {
		return name, nil, nil
	}
	p.advance()
	length, err := p.parseExpr()
	if err != nil {
		return "", nil, err
	}
	if err := p.expectPunct("]"); err != nil {
		return "", nil, err
	}
	return name, length, nil
}

func (p *parser) parseScan() (ScanStmt, error) {
	p.advance() // DRSCAN/IRSCAN
	var s ScanStmt
	var err error
	s.Length, err = p.parseExpr()
	if err != nil {
		return s, err
	}
	if err := p.expectPunct(","); err != nil {
		return s, err
	}
	s.TDI, err = p.parseExpr()
	if err != nil {
		return s, err
	}
	if p.isPunct(",") {
		p.advance()
		if p.isKeyword("CAPTURE") {
			p.advance()
			name, err := p.expectIdent()
			if err != nil {
				return s, err
			}
			s.Capture = name
			if p.isPunct(",") {
				p.advance()
			}
		}
		if p.isKeyword("COMPARE") {
			p.advance()
			s.HasCompare = true
			s.CompareData, err = p.parseExpr()
			if err != nil {
				return s, err
			}
			if err := p.expectPunct(","); err != nil {
				return s, err
			}
			s.CompareMask, err = p.parseExpr()
			if err != nil {
				return s, err
			}
			if err := p.expectPunct(","); err != nil {
				return s, err
			}
			s.CompareExpected, err = p.parseExpr()
			if err != nil {
				return s, err
			}
		}
	}
	return s, p.expectPunct(";")
}

func (p *parser) parseWaitType() (WaitSpec, error) {
	var w WaitSpec
	e, err := p.parseExpr()
	if err != nil {
		return w, err
	}
	switch {
	case p.isKeyword("CYCLES"):
		p.advance()
		w.Cycles = e
		if p.isPunct(",") {
			p.advance()
			usec, err := p.parseExpr()
			if err != nil {
				return w, err
			}
			if err := p.expectKeyword("USEC"); err != nil {
				return w, err
			}
			w.Usec = usec
		}
	case p.isKeyword("USEC"):
		p.advance()
		w.Usec = e
	default:
		return w, fmt.Errorf("stapl: line %d: expected CYCLES or USEC", p.cur().line)
	}
	return w, nil
}

func (p *parser) parseWait() (WaitStmt, error) {
	p.advance() // WAIT
	var w WaitStmt
	if p.cur().kind == tokIdent && !strings.EqualFold(p.cur().text, "MAX") {
		save := p.pos
		name := p.advance().text
		if p.isPunct(",") {
			p.advance()
			w.Port = name
		} else {
			p.pos = save
		}
	}
	wt, err := p.parseWaitType()
	if err != nil {
		return w, err
	}
	w.Wait = wt
	if p.isPunct(",") {
		p.advance()
		st, err := p.expectIdent()
		if err != nil {
			return w, err
		}
		w.EndState = st
	}
	if p.isKeyword("MAX") {
		p.advance()
		mx, err := p.parseWaitType()
		if err != nil {
			return w, err
		}
		w.Max = &mx
	}
	return w, p.expectPunct(";")
}

// parsePrintParts parses the comma-separated string_expression list shared
// by PRINT and (inline) EXPORT's value formatting.
func (p *parser) parsePrintParts() ([]ExportPart, error) {
	p.advance() // PRINT
	var parts []ExportPart
	for {
		if p.cur().kind == tokString {
			parts = append(parts, ExportPart{Text: p.advance().text})
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			parts = append(parts, ExportPart{Value: e})
		}
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return parts, nil
}
