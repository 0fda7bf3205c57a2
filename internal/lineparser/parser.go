// Package lineparser implements the line parser: the state machine that
// turns one pre-processed source line into a populated instruction
// record. It is a pure function of the scanner's token stream plus its
// collaborators (evaluator, label binder, diagnostics, mnemonic table) —
// no state survives between ParseLine calls beyond what the caller's own
// Record carries forward.
package lineparser

import (
	"strings"

	"github.com/nasmgo/core/internal/collab"
	"github.com/nasmgo/core/internal/extop"
	"github.com/nasmgo/core/internal/instr"
	"github.com/nasmgo/core/internal/operand"
	"github.com/nasmgo/core/internal/regtable"
	"github.com/nasmgo/core/internal/token"
)

// Parser holds every external collaborator the line-parser state machine
// needs. Bits is the current addressing mode width (16/32/64), consulted
// when classifying a resolved memory reference as MEM_OFFS vs IP_REL.
type Parser struct {
	Scanner   collab.Scanner
	Evaluator collab.Evaluator
	Labels    collab.LabelBinder
	Diags     collab.Diagnostics
	Mnemonics collab.MnemonicLookup
	ExtOp     *extop.Parser

	Bits      int
	GlobalRel bool
}

// NewParser constructs a Parser from its collaborators.
func NewParser(s collab.Scanner, eval collab.Evaluator, labels collab.LabelBinder, diags collab.Diagnostics, mnemonics collab.MnemonicLookup, extOp *extop.Parser, bits int) *Parser {
	return &Parser{
		Scanner: s, Evaluator: eval, Labels: labels, Diags: diags,
		Mnemonics: mnemonics, ExtOp: extOp, Bits: bits,
	}
}

// ParseLine runs the full state machine against rec, which the caller must
// have allocated (but need not have reset — ParseLine resets it first).
// rec.Opcode == instr.INone on return means no opcode was stored: either a
// catastrophic failure, which the diagnostic sink has already received, or
// a legal line without one (blank, label-only, or a line whose mnemonic —
// a DB-family op, INCBIN, or a prefix-only line's RESB — the mnemonic table
// does not list).
func (p *Parser) ParseLine(rec *instr.Record) {
	rec.Reset()

	labelTok, hasLabel := p.labelPhase(rec)
	p.prefixPhase(rec)

	tok := p.Scanner.Next()
	if tok.Kind != token.KindInstruction {
		p.Scanner.Pushback(tok)
		if hasLabel {
			p.Labels.Define(rec.Label, labelTok.Line, labelTok.Column)
		}
		p.synthesizeNonInstruction(rec)
		return
	}

	// A label is defined here unless the following mnemonic is EQU, in
	// which case the assembler itself defines the label from EQU's value.
	if hasLabel && !isEqu(tok.Text) {
		p.Labels.Define(rec.Label, labelTok.Line, labelTok.Column)
	}

	opcode, known := p.Mnemonics.Lookup(tok.Text)
	if known {
		rec.Opcode = instr.Opcode(opcode)
	}

	if elem, ok := dbElemFor(tok.Text); ok {
		p.dataDirectivePhase(rec, elem, tok)
		return
	}
	if isIncbin(tok.Text) {
		p.incbinPhase(rec, tok)
		return
	}

	if !known {
		p.Diags.Report(collab.SeverityError, tok.Line, tok.Column, "unrecognised instruction mnemonic \""+tok.Text+"\"")
		return
	}

	p.standardOperandPhase(rec)
}

// labelPhase implements step 2: a leading identifier becomes the record's
// label, consuming a trailing ':' if present and warning on a bare
// label-without-colon that ends the line. It returns the label token (for
// its line/column) and whether a label was actually found; ParseLine
// defers the Labels.Define call until the following mnemonic is known, to
// honor the EQU exception.
func (p *Parser) labelPhase(rec *instr.Record) (token.Token, bool) {
	tok := p.Scanner.Next()
	if tok.Kind != token.KindIdentifier {
		p.Scanner.Pushback(tok)
		return token.Token{}, false
	}

	next := p.Scanner.Next()
	switch {
	case next.Punct(':'):
		rec.Label = tok.Text
		rec.HasLabel = true
	case next.Kind == token.KindEOS:
		p.Diags.Report(collab.SeverityWarning, tok.Line, tok.Column, "label alone on a line without a colon")
		rec.Label = tok.Text
		rec.HasLabel = true
		p.Scanner.Pushback(next)
	default:
		rec.Label = tok.Text
		rec.HasLabel = true
		p.Scanner.Pushback(next)
	}
	return tok, true
}

// prefixPhase implements step 3: repeatedly consumes TIMES, legacy
// lock/rep/size-override prefixes, and segment-register prefixes, stopping
// at the first token that is none of those.
func (p *Parser) prefixPhase(rec *instr.Record) {
	for {
		tok := p.Scanner.Next()
		switch {
		case tok.Kind == token.KindTimes:
			terms, err := p.Evaluator.Evaluate(p.Scanner, discardFlags{}, &collab.Hints{Base: -1})
			if err != nil {
				p.Diags.Report(collab.SeverityError, tok.Line, tok.Column, "TIMES requires a valid expression")
				rec.Times = 0
				continue
			}
			count, simple := simpleValue(terms)
			if !simple {
				p.Diags.Report(collab.SeverityError, tok.Line, tok.Column, "TIMES count must be a simple constant expression")
				rec.Times = 0
				continue
			}
			if count < 0 {
				p.Diags.Report(collab.SeverityError, tok.Line, tok.Column, "TIMES count is negative")
				rec.Times = 0
				continue
			}
			rec.Times = int(count)

		case tok.Kind == token.KindPrefix:
			slot, ok := prefixSlotFor(tok.Text)
			if !ok {
				p.Diags.Report(collab.SeverityWarning, tok.Line, tok.Column, "unrecognised prefix \""+tok.Text+"\"")
				continue
			}
			if redundant, conflict := rec.SetPrefix(slot, strings.ToLower(tok.Text)); conflict {
				p.Diags.Report(collab.SeverityError, tok.Line, tok.Column, "conflicting prefixes in the same slot")
			} else if redundant {
				p.Diags.Report(collab.SeverityWarning, tok.Line, tok.Column, "redundant repeated prefix")
			}

		case tok.Kind == token.KindRegister && regtable.IsSegment(tok.Text):
			if redundant, conflict := rec.SetPrefix(instr.SlotSegment, strings.ToLower(tok.Text)); conflict {
				p.Diags.Report(collab.SeverityError, tok.Line, tok.Column, "conflicting segment prefixes")
			} else if redundant {
				p.Diags.Report(collab.SeverityWarning, tok.Line, tok.Column, "redundant repeated segment prefix")
			}

		default:
			p.Scanner.Pushback(tok)
			return
		}
	}
}

// synthesizeNonInstruction implements step 4's fallback: a line with a
// label and/or prefixes but no opcode mnemonic is either a prefix-only
// line (synthesized as RESB 0 when the mnemonic table lists RESB, and left
// at INone otherwise), a blank line, or a lone label — all legal, none of
// them an error.
func (p *Parser) synthesizeNonInstruction(rec *instr.Record) {
	rec.Opcode = instr.INone
	tok := p.Scanner.Next()
	if tok.Kind != token.KindEOS {
		p.Diags.Report(collab.SeverityError, tok.Line, tok.Column, "expected an instruction, found \""+tok.Text+"\"")
		p.recoverToNextOperand()
		return
	}
	for slot := instr.SlotLockRep; slot <= instr.SlotRex; slot++ {
		if _, set := rec.Prefix(slot); !set {
			continue
		}
		if opcode, ok := p.Mnemonics.Lookup("RESB"); ok {
			rec.Opcode = instr.Opcode(opcode)
			rec.Operands[0].Type |= operand.Immediate
			rec.OperandCount = 1
		}
		return
	}
}

// dataDirectivePhase implements step 5 for DB-family mnemonics: parse the
// operand list via the extended-operand parser and validate non-emptiness.
func (p *Parser) dataDirectivePhase(rec *instr.Record, elem int, mnemonicTok token.Token) {
	node, err := p.ExtOp.ParseList(elem)
	if err != nil {
		p.Diags.Report(collab.SeverityError, mnemonicTok.Line, mnemonicTok.Column, err.Error())
		return
	}
	if node == nil {
		p.Diags.Report(collab.SeverityWarning, mnemonicTok.Line, mnemonicTok.Column, "empty operand list for data declaration")
	}
	rec.ExtOp = node
}

// incbinPhase implements step 5's INCBIN arity rule: exactly one string
// operand plus up to two numeric operands.
func (p *Parser) incbinPhase(rec *instr.Record, mnemonicTok token.Token) {
	node, err := p.ExtOp.ParseList(1)
	if err != nil {
		p.Diags.Report(collab.SeverityError, mnemonicTok.Line, mnemonicTok.Column, err.Error())
		return
	}
	count := 0
	for n := node; n != nil; n = n.Next {
		count++
	}
	if node == nil || node.Kind != extop.DBString || count > 3 {
		p.Diags.Report(collab.SeverityError, mnemonicTok.Line, mnemonicTok.Column, "INCBIN expects one string filename plus up to two numeric operands")
	}
	rec.ExtOp = node
}

func simpleValue(terms []collab.ExprTerm) (int64, bool) {
	var total int64
	for _, term := range terms {
		switch term.Type {
		case collab.ExprSimple:
			total += term.Value
		case collab.ExprEnd:
		default:
			return 0, false
		}
	}
	return total, true
}

// discardFlags is a throwaway collab.OpFlagsSink for contexts (the TIMES
// count) that evaluate an expression but have no Operand of their own to
// stash side-channel flags into.
type discardFlags struct{}

func (discardFlags) SetForwardReference() {}
func (discardFlags) SetUnknown()          {}
func (discardFlags) SetRelative()         {}

// recoverToNextOperand implements the documented error-recovery strategy:
// skip tokens until the next comma or end-of-statement.
func (p *Parser) recoverToNextOperand() {
	for {
		tok := p.Scanner.Next()
		if tok.Punct(',') || tok.Kind == token.KindEOS {
			if tok.Kind == token.KindEOS {
				p.Scanner.Pushback(tok)
			}
			return
		}
	}
}
