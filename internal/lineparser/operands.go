package lineparser

import (
	"strconv"
	"strings"

	"github.com/nasmgo/core/internal/collab"
	"github.com/nasmgo/core/internal/instr"
	"github.com/nasmgo/core/internal/memref"
	"github.com/nasmgo/core/internal/operand"
	"github.com/nasmgo/core/internal/regtable"
	"github.com/nasmgo/core/internal/token"
)

// standardOperandPhase implements step 6: parses up to MaxOperands
// comma-separated operands into rec.Operands, then step 7's finalize.
func (p *Parser) standardOperandPhase(rec *instr.Record) {
	opnum := 0
	for opnum < instr.MaxOperands {
		tok := p.Scanner.Next()
		if tok.Kind == token.KindEOS {
			p.Scanner.Pushback(tok)
			break
		}
		p.Scanner.Pushback(tok)

		newOperand, ok := p.parseOneOperand(rec, opnum)
		if !ok {
			p.recoverToNextOperand()
		}
		if newOperand {
			opnum++
		}

		sep := p.Scanner.Next()
		if sep.Punct(',') {
			continue
		}
		p.Scanner.Pushback(sep)
		break
	}
	rec.OperandCount = opnum
}

// parseOneOperand parses the operand occupying slot opnum. newOperand
// reports whether a slot was actually consumed — a bare trailing decorator
// that only amends the previous operand (EXPR_RDSAE) consumes no slot of
// its own.
func (p *Parser) parseOneOperand(rec *instr.Record, opnum int) (newOperand, ok bool) {
	if opnum == 0 {
		p.consumeBracedEncodingPrefixes(rec)
	}

	lead := p.Scanner.Next()
	if opnum > 0 && (lead.Kind == token.KindDecorator || lead.Kind == token.KindOpmask) {
		p.Scanner.Pushback(lead)
		p.consumeDecorators(rec, opnum-1)
		return false, true
	}

	if lead.Kind == token.KindBraceConst {
		op := &rec.Operands[opnum]
		*op = operand.New()
		op.Type |= operand.Immediate
		op.Offset = lead.IntPayload
		op.ImmFlags(false)
		p.consumeDecorators(rec, opnum)
		return true, true
	}
	p.Scanner.Pushback(lead)

	op := &rec.Operands[opnum]
	*op = operand.New()
	op.Line, op.Column = lead.Line, lead.Column

	explicitBits := operand.Type(0)
	for {
		tok := p.Scanner.Next()
		switch {
		case tok.Kind == token.KindSize:
			if bits, ok := sizeTypeBits(tok.IntPayload); ok {
				if explicitBits == 0 {
					op.Type |= bits
					explicitBits = bits
				}
				continue
			}
			p.Scanner.Pushback(tok)
		case tok.Kind == token.KindSpecial:
			if bit, ok := modifierBit(tok.Text); ok {
				op.Type |= bit
				continue
			}
			p.Scanner.Pushback(tok)
		default:
			p.Scanner.Pushback(tok)
		}
		break
	}

	if !p.parseOperandValue(op, explicitBits) {
		return true, false
	}

	p.consumeDecorators(rec, opnum)
	return true, true
}

// consumeBracedEncodingPrefixes absorbs braced encoding-selection prefixes
// (e.g. {evex}, {vex3}) that may appear between the mnemonic and the first
// operand.
func (p *Parser) consumeBracedEncodingPrefixes(rec *instr.Record) {
	for {
		tok := p.Scanner.Next()
		if tok.Kind == token.KindSpecial && tok.Is(token.FlagBraceWrapped) {
			if redundant, conflict := rec.SetPrefix(instr.SlotVexEvex, strings.ToLower(tok.Text)); conflict {
				p.Diags.Report(collab.SeverityError, tok.Line, tok.Column, "conflicting encoding-selection prefix")
			} else if redundant {
				p.Diags.Report(collab.SeverityWarning, tok.Line, tok.Column, "redundant encoding-selection prefix")
			}
			continue
		}
		p.Scanner.Pushback(tok)
		return
	}
}

// parseOperandValue dispatches to the memory-reference or plain-value
// branch based on lookahead, per step 6's opener detection rule.
func (p *Parser) parseOperandValue(op *operand.Operand, explicitBits operand.Type) bool {
	lookahead := p.Scanner.Next()
	isMemOpener := lookahead.Punct('[') || lookahead.Kind == token.KindMasmPtr || lookahead.Punct('&')
	p.Scanner.Pushback(lookahead)
	if isMemOpener {
		return p.parseMemoryOperand(op)
	}
	return p.parseNonMemoryValue(op, explicitBits)
}

// parseMemoryOperand implements the bracketed-memory-reference sub-machine:
// opener recognition, inner size/FLAT: absorption, segment-override colon,
// MIB detection, bracket-depth tracking, and final classification.
func (p *Parser) parseMemoryOperand(op *operand.Operand) bool {
	opener := p.Scanner.Next()
	depth := 0
	switch {
	case opener.Punct('['):
		depth = 1
	case opener.Kind == token.KindMasmPtr:
		next := p.Scanner.Next()
		if !next.Punct('[') {
			p.Diags.Report(collab.SeverityError, next.Line, next.Column, "expected '[' after PTR")
			return false
		}
		depth = 1
	case opener.Punct('&'):
		depth = 0
	}

	for {
		t := p.Scanner.Next()
		switch {
		case t.Kind == token.KindSize:
			continue
		case t.Kind == token.KindMasmFlat:
			colon := p.Scanner.Next()
			if !colon.Punct(':') {
				p.Scanner.Pushback(colon)
			}
			continue
		case t.Punct('['):
			depth++
			continue
		default:
			p.Scanner.Pushback(t)
		}
		break
	}

	terms, err := p.Evaluator.Evaluate(p.Scanner, op, &collab.Hints{Base: -1})
	if err != nil {
		p.Diags.Report(collab.SeverityError, op.Line, op.Column, "invalid memory-reference expression: "+err.Error())
		return false
	}

	if colon := p.Scanner.Next(); colon.Punct(':') {
		segTerm, isSeg := singleSegment(terms)
		if !isSeg {
			p.Diags.Report(collab.SeverityError, colon.Line, colon.Column, "segment override must be a single segment register")
			return false
		}
		idx, _ := regtable.SegmentIndex(segTerm.Reg)
		op.Segment = idx
		if regtable.IsFSGS(segTerm.Reg) {
			op.EAFlags |= operand.EAFFSGS
		}
		rhs, err := p.Evaluator.Evaluate(p.Scanner, op, &collab.Hints{Base: -1})
		if err != nil {
			p.Diags.Report(collab.SeverityError, colon.Line, colon.Column, "invalid expression after segment override: "+err.Error())
			return false
		}
		terms = rhs
	} else {
		p.Scanner.Pushback(colon)
	}

	vecClass := indexVectorClass(terms)

	if comma := p.Scanner.Next(); comma.Punct(',') && depth > 0 {
		second, err := p.Evaluator.Evaluate(p.Scanner, op, &collab.Hints{Base: -1})
		if err != nil {
			p.Diags.Report(collab.SeverityError, comma.Line, comma.Column, "invalid MIB index expression: "+err.Error())
			return false
		}
		if err := memref.ResolveMIB(op, terms, second); err != nil {
			p.Diags.Report(collab.SeverityError, comma.Line, comma.Column, err.Error())
			return false
		}
		if c := indexVectorClass(second); c != regtable.ClassNone {
			vecClass = c
		}
	} else {
		p.Scanner.Pushback(comma)
		if err := memref.Resolve(op, terms); err != nil {
			p.Diags.Report(collab.SeverityError, op.Line, op.Column, err.Error())
			return false
		}
	}

	for depth > 0 {
		closeTok := p.Scanner.Next()
		if closeTok.Punct(']') {
			depth--
			continue
		}
		p.Diags.Report(collab.SeverityError, closeTok.Line, closeTok.Column, "unmatched '[' in memory reference")
		p.Scanner.Pushback(closeTok)
		break
	}

	op.Type |= operand.MemoryAny
	p.classifyMemory(op, vecClass)
	return true
}

// classifyMemory attaches MEM_OFFS/IP_REL for a register-free memory
// reference, or tags the vector-index size class (XMEM/YMEM/ZMEM) when the
// effective address's index register is a vector register.
func (p *Parser) classifyMemory(op *operand.Operand, vecClass regtable.Class) {
	switch vecClass {
	case regtable.ClassXMM:
		op.Type |= operand.XMem
	case regtable.ClassYMM:
		op.Type |= operand.YMem
	case regtable.ClassZMM:
		op.Type |= operand.ZMem
	default:
		if op.BaseReg == -1 && op.IndexReg == -1 {
			if p.Bits == 64 && p.GlobalRel {
				op.Type |= operand.IPRel
			} else {
				op.Type |= operand.MemOffs
			}
		}
	}
}

// parseNonMemoryValue implements the non-bracketed value classification:
// register, unknown immediate, or resolved immediate.
func (p *Parser) parseNonMemoryValue(op *operand.Operand, explicitBits operand.Type) bool {
	terms, err := p.Evaluator.Evaluate(p.Scanner, op, &collab.Hints{Base: -1})
	if err != nil {
		p.Diags.Report(collab.SeverityError, op.Line, op.Column, "invalid operand expression: "+err.Error())
		return false
	}

	if reg, isReg := singleRegister(terms); isReg {
		return p.finishRegisterOperand(op, reg, explicitBits)
	}

	if hasRegisterTerm(terms) {
		p.Diags.Report(collab.SeverityError, op.Line, op.Column, "register not valid outside a memory reference")
		return false
	}

	if hasUnknown(terms) {
		op.MarkUnknownImmediate(false)
		return true
	}

	op.Type |= operand.Immediate
	if err := memref.Resolve(op, terms); err != nil {
		p.Diags.Report(collab.SeverityError, op.Line, op.Column, err.Error())
		return false
	}
	if op.IsSimpleImmediate() {
		op.ImmFlags(false)
	}
	return true
}

// finishRegisterOperand implements the register-classification bullet:
// demand coefficient 1 (already checked by singleRegister), accept at most
// a trailing "+N" register-set-size marker, and warn on an explicit size
// override that disagrees with the register's own width (opmask registers
// are size-polymorphic and exempt).
func (p *Parser) finishRegisterOperand(op *operand.Operand, reg collab.ExprTerm, explicitBits operand.Type) bool {
	info, ok := regtable.Lookup(reg.Reg)
	if !ok {
		p.Diags.Report(collab.SeverityError, op.Line, op.Column, "unrecognised register \""+reg.Reg+"\"")
		return false
	}

	op.Type |= operand.Register
	op.BaseReg = info.Encoding

	if plus := p.Scanner.Next(); plus.Punct('+') {
		n := p.Scanner.Next()
		if n.Kind == token.KindNumber && isPowerOfTwo(n.IntPayload) && n.IntPayload < (1<<regSetBits) {
			op.Scale = int(n.IntPayload)
		} else {
			p.Diags.Report(collab.SeverityError, n.Line, n.Column, "register-set size marker must be a power of two less than 2^REGSET_BITS")
		}
	} else {
		p.Scanner.Pushback(plus)
	}

	if explicitBits == 0 {
		if bits, ok := sizeTypeBits(int64(info.Bits / 8)); ok {
			op.Type |= bits
		}
		return true
	}

	if info.Class == regtable.ClassMask {
		return true // size-polymorphic, no mismatch warning
	}
	nativeBits, _ := sizeTypeBits(int64(info.Bits / 8))
	if explicitBits != nativeBits {
		p.Diags.Report(collab.SeverityWarning, op.Line, op.Column, "REGSIZE: explicit size specifier disagrees with register width")
	}
	return true
}

// regSetBits bounds the AVX10/APX register-set size marker's magnitude.
const regSetBits = 4

// consumeDecorators absorbs zero or more opmask/decorator tokens trailing
// an operand and folds them into rec.Operands[idx], recording idx in
// rec.EvexBrErOp whenever a broadcast/SAE/rounding decorator is seen.
func (p *Parser) consumeDecorators(rec *instr.Record, idx int) {
	if idx < 0 || idx >= instr.MaxOperands {
		return
	}
	op := &rec.Operands[idx]
	for {
		tok := p.Scanner.Next()
		switch tok.Kind {
		case token.KindOpmask:
			op.OpmaskReg = int(tok.IntPayload)
		case token.KindDecorator:
			p.applyOneDecorator(rec, idx, op, tok)
		default:
			p.Scanner.Pushback(tok)
			return
		}
	}
}

func (p *Parser) applyOneDecorator(rec *instr.Record, idx int, op *operand.Operand, tok token.Token) {
	switch strings.ToLower(tok.Text) {
	case "z":
		op.DecoFlags |= operand.DecoZMask
	case "sae":
		op.DecoFlags |= operand.DecoSAE
		rec.EvexBrErOp = idx
	case "rn", "rd", "ru", "rz":
		op.DecoFlags |= operand.DecoEmbeddedRound
		mode, recMode := roundingModeFor(tok.Text)
		op.Rounding = mode
		rec.EvexBrErOp = idx
		rec.EvexRounding = recMode
	default:
		if n, ok := broadcastWidth(tok.Text); ok {
			op.DecoFlags |= operand.DecoBroadcast
			op.BroadcastNum = n
			rec.EvexBrErOp = idx
			return
		}
		p.Diags.Report(collab.SeverityWarning, tok.Line, tok.Column, "unrecognised decorator {"+tok.Text+"}")
	}
}

func roundingModeFor(text string) (operand.RoundingMode, instr.RoundingMode) {
	switch strings.ToLower(text) {
	case "rn":
		return operand.RoundNearest, instr.RoundNearest
	case "rd":
		return operand.RoundDown, instr.RoundDown
	case "ru":
		return operand.RoundUp, instr.RoundUp
	case "rz":
		return operand.RoundTruncate, instr.RoundTruncate
	}
	return operand.RoundNone, instr.RoundNone
}

func broadcastWidth(text string) (int, bool) {
	lower := strings.ToLower(text)
	if !strings.HasPrefix(lower, "1to") {
		return 0, false
	}
	n, err := strconv.Atoi(lower[3:])
	if err != nil {
		return 0, false
	}
	switch n {
	case 2, 4, 8, 16, 32:
		return n, true
	default:
		return 0, false
	}
}

func modifierBit(text string) (operand.Type, bool) {
	switch strings.ToUpper(text) {
	case "TO":
		return operand.ModTo, true
	case "STRICT":
		return operand.ModStrict, true
	case "FAR":
		return operand.ModFar, true
	case "NEAR":
		return operand.ModNear, true
	case "SHORT":
		return operand.ModShort, true
	default:
		return 0, false
	}
}

func sizeTypeBits(width int64) (operand.Type, bool) {
	switch width {
	case 1:
		return operand.Bits8, true
	case 2:
		return operand.Bits16, true
	case 4:
		return operand.Bits32, true
	case 8:
		return operand.Bits64, true
	case 10:
		return operand.Bits80, true
	case 16:
		return operand.Bits128, true
	case 32:
		return operand.Bits256, true
	case 64:
		return operand.Bits512, true
	default:
		return 0, false
	}
}

func isPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}

func nonEnd(terms []collab.ExprTerm) []collab.ExprTerm {
	out := make([]collab.ExprTerm, 0, len(terms))
	for _, t := range terms {
		if t.Type == collab.ExprEnd {
			continue
		}
		out = append(out, t)
	}
	return out
}

func singleRegister(terms []collab.ExprTerm) (collab.ExprTerm, bool) {
	filtered := nonEnd(terms)
	if len(filtered) != 1 {
		return collab.ExprTerm{}, false
	}
	t := filtered[0]
	if t.Type >= collab.ExprRegStart && t.Type <= collab.ExprRegEnd && t.Value == 1 {
		return t, true
	}
	return collab.ExprTerm{}, false
}

func singleSegment(terms []collab.ExprTerm) (collab.ExprTerm, bool) {
	filtered := nonEnd(terms)
	if len(filtered) != 1 {
		return collab.ExprTerm{}, false
	}
	t := filtered[0]
	if t.Type >= collab.ExprRegStart && t.Type <= collab.ExprRegEnd && t.Value == 1 {
		if info, ok := regtable.Lookup(t.Reg); ok && info.Class == regtable.ClassSegment {
			return t, true
		}
	}
	return collab.ExprTerm{}, false
}

func hasRegisterTerm(terms []collab.ExprTerm) bool {
	for _, t := range nonEnd(terms) {
		if t.Type >= collab.ExprRegStart && t.Type <= collab.ExprRegEnd {
			return true
		}
	}
	return false
}

func hasUnknown(terms []collab.ExprTerm) bool {
	for _, t := range nonEnd(terms) {
		if t.Type == collab.ExprUnknown {
			return true
		}
	}
	return false
}

func indexVectorClass(terms []collab.ExprTerm) regtable.Class {
	for _, t := range nonEnd(terms) {
		if t.Type < collab.ExprRegStart || t.Type > collab.ExprRegEnd {
			continue
		}
		if info, ok := regtable.Lookup(t.Reg); ok {
			switch info.Class {
			case regtable.ClassXMM, regtable.ClassYMM, regtable.ClassZMM:
				return info.Class
			}
		}
	}
	return regtable.ClassNone
}
