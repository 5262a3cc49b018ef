package stapl

import "testing"

func TestTokenizeBasicProgram(t *testing.T) {
	src := "BOOLEAN x = #101; `comment\nINTEGER y[4];"
	toks, err := tokenize(src)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	var kinds []tokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.kind)
	}
	want := []tokenKind{
		tokIdent, tokIdent, tokPunct, tokBitLiteral, tokPunct,
		tokIdent, tokIdent, tokPunct, tokNumber, tokPunct, tokPunct,
		tokEOF,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(kinds), len(want), toks)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d kind = %v, want %v (text %q)", i, kinds[i], want[i], toks[i].text)
		}
	}
}

func TestTokenizeTwoCharOperators(t *testing.T) {
	toks, err := tokenize("a <= b && c != d")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	var ops []string
	for _, tok := range toks {
		if tok.kind == tokPunct {
			ops = append(ops, tok.text)
		}
	}
	want := []string{"<=", "&&", "!="}
	if len(ops) != len(want) {
		t.Fatalf("got ops %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestTokenizeChrDollarIdent(t *testing.T) {
	toks, err := tokenize("CHR$(65)")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if toks[0].kind != tokIdent || toks[0].text != "CHR$" {
		t.Fatalf("first token = %+v, want ident CHR$", toks[0])
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	if _, err := tokenize(`"abc`); err == nil {
		t.Fatal("expected unterminated string error")
	}
}

func TestParseBitLiteralHashReversesToLSBFirst(t *testing.T) {
	// "#1011" is typed MSB-first; bit0 of storage must be the literal's
	// last-typed character (LSB-first storage convention).
	v, err := parseBitLiteral("#1011")
	if err != nil {
		t.Fatalf("parseBitLiteral: %v", err)
	}
	ba := v.(BoolArrayValue)
	want := []bool{true, true, false, true} // bit0..bit3
	if len(ba.Bits) != len(want) {
		t.Fatalf("len = %d, want %d", len(ba.Bits), len(want))
	}
	for i := range want {
		if ba.Bits[i] != want[i] {
			t.Errorf("bit %d = %v, want %v", i, ba.Bits[i], want[i])
		}
	}
}

func TestParseBitLiteralHexReversesNibbles(t *testing.T) {
	v, err := parseBitLiteral("$A")
	if err != nil {
		t.Fatalf("parseBitLiteral: %v", err)
	}
	ba := v.(BoolArrayValue)
	// $A = 0b1010 typed MSB-first -> reversed storage is 0b0101 (bit0=0).
	want := []bool{false, true, false, true}
	if len(ba.Bits) != len(want) {
		t.Fatalf("len = %d, want %d", len(ba.Bits), len(want))
	}
	for i := range want {
		if ba.Bits[i] != want[i] {
			t.Errorf("bit %d = %v, want %v", i, ba.Bits[i], want[i])
		}
	}
}
