// Package memref implements the memory-reference resolver: given an
// operand and an expression-term vector, it accumulates base/index/scale,
// offset, segment, and WRT fields, enforcing the base-vs-index and
// register-class rules a bracketed effective address must satisfy.
package memref

import (
	"fmt"

	"github.com/nasmgo/core/internal/collab"
	"github.com/nasmgo/core/internal/operand"
	"github.com/nasmgo/core/internal/regtable"
)

// Resolve walks terms, filling op's BaseReg, IndexReg, Scale, Offset,
// Segment, and WRT fields. op must already be operand.New()-initialized
// (BaseReg/IndexReg/Segment/WRT at -1) so repeated calls can detect
// "already occupied" slots.
func Resolve(op *operand.Operand, terms []collab.ExprTerm) error {
	for _, term := range terms {
		switch {
		case term.Type == collab.ExprSimple:
			op.Offset += term.Value

		case term.Type == collab.ExprUnknown:
			op.SetUnknown()

		case term.Type == collab.ExprWRT:
			op.WRT = int(term.Value)

		case term.Type >= collab.ExprRegStart && term.Type <= collab.ExprRegEnd:
			if err := resolveRegisterTerm(op, term); err != nil {
				return err
			}

		case term.Type >= collab.ExprSegBase:
			segIdx := int(term.Type - collab.ExprSegBase)
			switch term.Value {
			case 1:
				if op.Segment != -1 {
					return fmt.Errorf("memref: multiple base segments")
				}
				op.Segment = segIdx
			case -1:
				op.SetRelative()
			default:
				return fmt.Errorf("memref: invalid segment-base coefficient %d", term.Value)
			}
		}
	}
	return nil
}

// resolveRegisterTerm places a register term into the base or index slot
// per the GPR/coefficient-1/free-base rule, or rejects non-GPR registers
// that would otherwise need the base slot.
func resolveRegisterTerm(op *operand.Operand, term collab.ExprTerm) error {
	info, ok := regtable.Lookup(term.Reg)
	if !ok {
		return fmt.Errorf("memref: unrecognised register %q", term.Reg)
	}

	isGPR := info.Class == regtable.ClassGPR || info.Class == regtable.ClassIP

	// A GPR with coefficient 1 becomes base if the base slot is free;
	// otherwise (or for any non-GPR register) it becomes index, carrying
	// its coefficient as scale.
	if isGPR && term.Value == 1 && op.BaseReg == -1 {
		op.BaseReg = info.Encoding
		return nil
	}

	if !isGPR && info.Class != regtable.ClassXMM && info.Class != regtable.ClassYMM && info.Class != regtable.ClassZMM {
		return fmt.Errorf("memref: impossible register %q in effective address", term.Reg)
	}

	if op.IndexReg != -1 {
		return fmt.Errorf("memref: too many registers in effective address")
	}

	op.IndexReg = info.Encoding
	op.Scale = int(term.Value)
	return nil
}

// ResolveMIB resolves the two sub-expressions of a compound (MIB) memory
// operand. The second sub-expression must contribute only an index and
// scale — any offset/segment/WRT/base there is an error.
func ResolveMIB(op *operand.Operand, first, second []collab.ExprTerm) error {
	if err := Resolve(op, first); err != nil {
		return err
	}

	idx := operand.New()
	if err := Resolve(&idx, second); err != nil {
		return err
	}
	if idx.BaseReg != -1 || idx.Offset != 0 || idx.Segment != -1 || idx.WRT != -1 {
		return fmt.Errorf("memref: MIB index sub-expression may only contribute index and scale")
	}
	if idx.IndexReg == -1 {
		return fmt.Errorf("memref: MIB index sub-expression must name a register")
	}

	op.IndexReg = idx.IndexReg
	op.Scale = idx.Scale

	// The combined operand's base/index slots are no longer ambiguous the
	// way a single bracketed expression's lone GPR would be: record which
	// reading the MIB syntax itself settled, so a downstream encoder
	// never needs to re-guess it.
	if op.BaseReg != -1 {
		op.HintType = operand.MakeBase
		op.HintBase = op.BaseReg
	} else {
		op.HintType = operand.NotBase
		op.HintBase = op.IndexReg
	}
	return nil
}
