package lineparser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/nasmgo/core/internal/collab"
	"github.com/nasmgo/core/internal/extop"
	"github.com/nasmgo/core/internal/instr"
	"github.com/nasmgo/core/internal/operand"
	"github.com/nasmgo/core/internal/regtable"
	"github.com/nasmgo/core/internal/token"
)

// sliceScanner is a minimal collab.Scanner backed by a fixed token slice.
type sliceScanner struct {
	toks []token.Token
	pos  int
	pb   []token.Token
}

func newSliceScanner(toks []token.Token) *sliceScanner { return &sliceScanner{toks: toks} }

func (s *sliceScanner) Next() token.Token {
	if n := len(s.pb); n > 0 {
		tok := s.pb[n-1]
		s.pb = s.pb[:n-1]
		return tok
	}
	if s.pos >= len(s.toks) {
		return token.Token{Kind: token.KindEOS}
	}
	tok := s.toks[s.pos]
	s.pos++
	return tok
}

func (s *sliceScanner) Mark() int             { return s.pos }
func (s *sliceScanner) Reset(pos int)         { s.pos = pos; s.pb = nil }
func (s *sliceScanner) Pushback(t token.Token) { s.pb = append(s.pb, t) }

// exprEvaluator is a small test-only stand-in for the external expression
// evaluator: it recognises a '+'-joined list of bare numbers and registers
// (a register optionally scaled by a trailing "* N"), stopping at the
// first comma, ']', ':', or end-of-statement — enough surface to exercise
// every operand-classification path without reimplementing arithmetic.
type exprEvaluator struct{}

func (exprEvaluator) Evaluate(s collab.Scanner, flags collab.OpFlagsSink, hints *collab.Hints) ([]collab.ExprTerm, error) {
	var terms []collab.ExprTerm
	for {
		tok := s.Next()
		if isStop(tok) {
			s.Pushback(tok)
			break
		}
		switch {
		case tok.Punct('+'):
			continue
		case tok.Kind == token.KindIdentifier && strings.EqualFold(tok.Text, "unknown"):
			terms = append(terms, collab.ExprTerm{Type: collab.ExprUnknown})
		case tok.Kind == token.KindNumber:
			terms = append(terms, collab.ExprTerm{Type: collab.ExprSimple, Value: tok.IntPayload})
		case tok.Kind == token.KindRegister:
			value := int64(1)
			nxt := s.Next()
			if nxt.Punct('*') {
				n := s.Next()
				if n.Kind == token.KindNumber {
					value = n.IntPayload
				} else {
					s.Pushback(n)
					s.Pushback(nxt)
				}
			} else {
				s.Pushback(nxt)
			}
			terms = append(terms, collab.ExprTerm{Type: collab.ExprRegStart, Reg: tok.Text, Value: value})
		default:
			return nil, fmt.Errorf("exprEvaluator: unexpected token %+v", tok)
		}
	}
	return terms, nil
}

func isStop(tok token.Token) bool {
	switch tok.Kind {
	case token.KindEOS, token.KindOpmask, token.KindDecorator,
		token.KindPrefix, token.KindInstruction, token.KindTimes:
		return true
	}
	return tok.Punct(',') || tok.Punct(']') || tok.Punct(':')
}

type stubFloat struct{}

func (stubFloat) Encode(literal string, width int) ([]byte, error) { return make([]byte, width), nil }

type stubStrFn struct{}

func (stubStrFn) Transform(name, arg string) ([]byte, error) { return []byte(arg), nil }

type recordingLabels struct {
	defined []string
}

func (r *recordingLabels) Define(name string, line, column int) {
	r.defined = append(r.defined, name)
}

type recordedDiag struct {
	sev collab.Severity
	msg string
}

type recordingDiags struct {
	entries []recordedDiag
}

func (d *recordingDiags) Report(sev collab.Severity, line, column int, message string) {
	d.entries = append(d.entries, recordedDiag{sev: sev, msg: message})
}

type mapMnemonics map[string]int

func (m mapMnemonics) Lookup(mnemonic string) (int, bool) {
	v, ok := m[strings.ToUpper(mnemonic)]
	return v, ok
}

func regTok(name string) token.Token { return token.Token{Kind: token.KindRegister, Text: name} }
func numTok(v int64) token.Token     { return token.Token{Kind: token.KindNumber, IntPayload: v} }
func puncTok(ch byte) token.Token    { return token.Token{Kind: token.KindPunct, Text: string(ch)} }
func instrTok(name string) token.Token {
	return token.Token{Kind: token.KindInstruction, Text: name}
}

func newTestParser(toks []token.Token, mnemonics mapMnemonics) (*Parser, *recordingLabels, *recordingDiags) {
	scanner := newSliceScanner(toks)
	labels := &recordingLabels{}
	diags := &recordingDiags{}
	extOp := extop.NewParser(scanner, exprEvaluator{}, stubFloat{}, stubStrFn{}, diags)
	p := NewParser(scanner, exprEvaluator{}, labels, diags, mnemonics, extOp, 32)
	return p, labels, diags
}

func TestParseLine_LabelAndRegisterImmediate(t *testing.T) {
	toks := []token.Token{
		{Kind: token.KindIdentifier, Text: "start"},
		puncTok(':'),
		instrTok("MOV"),
		regTok("eax"),
		puncTok(','),
		numTok(5),
	}
	p, labels, diags := newTestParser(toks, mapMnemonics{"MOV": 1})

	var rec instr.Record
	p.ParseLine(&rec)

	if len(diags.entries) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags.entries)
	}
	if !rec.HasLabel || rec.Label != "start" {
		t.Fatalf("expected label %q, got %+v", "start", rec)
	}
	if len(labels.defined) != 1 || labels.defined[0] != "start" {
		t.Fatalf("expected label binder called once with 'start', got %v", labels.defined)
	}
	if rec.Opcode != 1 {
		t.Fatalf("expected opcode 1, got %d", rec.Opcode)
	}
	if rec.OperandCount != 2 {
		t.Fatalf("expected 2 operands, got %d", rec.OperandCount)
	}
	if !rec.Operands[0].Type.Is(operand.Register) || rec.Operands[0].BaseReg != 0 {
		t.Fatalf("expected eax register operand, got %+v", rec.Operands[0])
	}
	if !rec.Operands[1].Type.Is(operand.Immediate) || rec.Operands[1].Offset != 5 {
		t.Fatalf("expected immediate 5, got %+v", rec.Operands[1])
	}
}

func TestParseLine_TimesAndLockPrefix(t *testing.T) {
	toks := []token.Token{
		{Kind: token.KindTimes},
		numTok(3),
		{Kind: token.KindPrefix, Text: "lock"},
		instrTok("XADD"),
		regTok("eax"),
		puncTok(','),
		regTok("ecx"),
	}
	p, _, diags := newTestParser(toks, mapMnemonics{"XADD": 2})

	var rec instr.Record
	p.ParseLine(&rec)

	if len(diags.entries) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags.entries)
	}
	if rec.Times != 3 {
		t.Fatalf("expected times=3, got %d", rec.Times)
	}
	value, set := rec.Prefix(instr.SlotLockRep)
	if !set || value != "lock" {
		t.Fatalf("expected lock prefix recorded, got %q set=%v", value, set)
	}
}

func TestParseLine_MemoryOperandBaseIndexScaleOffset(t *testing.T) {
	// mov eax, [ebx+ecx*4+8]
	toks := []token.Token{
		instrTok("MOV"),
		regTok("eax"),
		puncTok(','),
		puncTok('['),
		regTok("ebx"),
		puncTok('+'),
		regTok("ecx"),
		puncTok('*'),
		numTok(4),
		puncTok('+'),
		numTok(8),
		puncTok(']'),
	}
	p, _, diags := newTestParser(toks, mapMnemonics{"MOV": 1})

	var rec instr.Record
	p.ParseLine(&rec)

	if len(diags.entries) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags.entries)
	}
	mem := rec.Operands[1]
	if !mem.Type.IsMemory() {
		t.Fatalf("expected memory operand, got %+v", mem)
	}
	ebxInfo, _ := regtable.Lookup("ebx")
	ecxInfo, _ := regtable.Lookup("ecx")
	if mem.BaseReg != ebxInfo.Encoding {
		t.Fatalf("expected base=ebx encoding %d, got %d", ebxInfo.Encoding, mem.BaseReg)
	}
	if mem.IndexReg != ecxInfo.Encoding || mem.Scale != 4 {
		t.Fatalf("expected index=ecx*4, got index=%d scale=%d", mem.IndexReg, mem.Scale)
	}
	if mem.Offset != 8 {
		t.Fatalf("expected offset=8, got %d", mem.Offset)
	}
}

func TestParseLine_OpmaskAndZeroingDecorator(t *testing.T) {
	// vaddps xmm0{k1}{z}, xmm1
	toks := []token.Token{
		instrTok("VADDPS"),
		regTok("xmm0"),
		{Kind: token.KindOpmask, IntPayload: 1},
		{Kind: token.KindDecorator, Text: "z"},
		puncTok(','),
		regTok("xmm1"),
	}
	p, _, diags := newTestParser(toks, mapMnemonics{"VADDPS": 3})

	var rec instr.Record
	p.ParseLine(&rec)

	if len(diags.entries) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags.entries)
	}
	op0 := rec.Operands[0]
	if op0.OpmaskReg != 1 {
		t.Fatalf("expected opmask reg 1, got %d", op0.OpmaskReg)
	}
	if op0.DecoFlags&operand.DecoZMask == 0 {
		t.Fatalf("expected zeroing decorator flag set, got %+v", op0.DecoFlags)
	}
}

func TestParseLine_BroadcastDecoratorRecordsEvexBrErOp(t *testing.T) {
	// vaddps xmm0, [ebx]{1to4}
	toks := []token.Token{
		instrTok("VADDPS"),
		regTok("xmm0"),
		puncTok(','),
		puncTok('['),
		regTok("ebx"),
		puncTok(']'),
		{Kind: token.KindDecorator, Text: "1to4"},
	}
	p, _, diags := newTestParser(toks, mapMnemonics{"VADDPS": 3})

	var rec instr.Record
	p.ParseLine(&rec)

	if len(diags.entries) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags.entries)
	}
	mem := rec.Operands[1]
	if mem.BroadcastNum != 4 {
		t.Fatalf("expected broadcast num 4, got %d", mem.BroadcastNum)
	}
	if rec.EvexBrErOp != 1 {
		t.Fatalf("expected evexBrErOp=1, got %d", rec.EvexBrErOp)
	}
}

func TestParseLine_UnrecognisedMnemonicReportsError(t *testing.T) {
	toks := []token.Token{instrTok("BOGUS")}
	p, _, diags := newTestParser(toks, mapMnemonics{})

	var rec instr.Record
	p.ParseLine(&rec)

	if rec.Opcode != instr.INone {
		t.Fatalf("expected opcode to remain INone, got %d", rec.Opcode)
	}
	if len(diags.entries) == 0 || diags.entries[0].sev != collab.SeverityError {
		t.Fatalf("expected an error diagnostic, got %+v", diags.entries)
	}
}

func TestParseLine_DataDirectiveDelegatesToExtOp(t *testing.T) {
	// DB 1, 2, 3
	toks := []token.Token{
		instrTok("DB"),
		numTok(1),
		puncTok(','),
		numTok(2),
		puncTok(','),
		numTok(3),
	}
	p, _, diags := newTestParser(toks, mapMnemonics{})

	var rec instr.Record
	p.ParseLine(&rec)

	if len(diags.entries) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags.entries)
	}
	if rec.ExtOp == nil {
		t.Fatal("expected ExtOp chain to be populated")
	}
	count := 0
	for n := rec.ExtOp; n != nil; n = n.Next {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 DB_NUMBER nodes, got %d", count)
	}
}
