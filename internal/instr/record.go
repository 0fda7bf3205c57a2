// Package instr defines the instruction record the line parser fills in:
// label, prefix set, mnemonic, operand array, and (for data-declaration
// pseudo-ops) an extended-operand chain.
package instr

import (
	"github.com/nasmgo/core/internal/extop"
	"github.com/nasmgo/core/internal/operand"
)

// Opcode is the mnemonic enumeration. INone is the sentinel value a fresh
// or catastrophically-failed record carries.
type Opcode int

// INone marks "no instruction recognised" — the record's opcode field
// starts here and a parse failure resets it here.
const INone Opcode = -1

// MaxOperands bounds the fixed-size operand array a record carries.
const MaxOperands = 5

// PrefixSlot indexes the fixed prefix-slot array. Each slot accepts at
// most one value; re-specifying the same value is a warning, a different
// value is an error.
type PrefixSlot int

const (
	SlotLockRep PrefixSlot = iota
	SlotSegment
	SlotOpSize
	SlotAddrSize
	SlotVexEvex
	SlotWait
	SlotRex
	slotCount
)

// RoundingMode mirrors operand.RoundingMode for the record-level EVEX
// rounding field (the record only stores what a post-parse encoder needs,
// not how the decorator was recognised).
type RoundingMode int

const (
	RoundNone RoundingMode = iota
	RoundNearest
	RoundDown
	RoundUp
	RoundTruncate
)

// Record is the parser's output: the caller-owned instruction record reset
// at parse start, filled during parsing, and handed to the assembler
// backend. ExtOp, when non-nil, and its child sub-expression lists are
// reclaimed by the Go garbage collector once the record is no longer
// retained; there is no explicit release routine.
type Record struct {
	Label   string
	HasLabel bool

	Opcode Opcode

	Prefixes [slotCount]prefixValue

	Times int

	Operands     [MaxOperands]operand.Operand
	OperandCount int

	ExtOp *extop.Node

	EvexBrErOp   int // -1 = none
	EvexRounding RoundingMode

	ForwardRef bool
}

type prefixValue struct {
	set   bool
	value string
}

// Reset zeroes r to the state step 1 of the line-parser state machine
// requires: opcode = INone, times = 1, evex_brerop = -1, every operand
// slot reset to its own "none" convention.
func (r *Record) Reset() {
	*r = Record{
		Opcode:     INone,
		Times:      1,
		EvexBrErOp: -1,
	}
	for i := range r.Operands {
		r.Operands[i] = operand.New()
	}
}

// SetPrefix records value into slot, reporting whether this is a conflict
// (a different value already occupies the slot) versus a harmless repeat
// (the same value specified twice — a warning, not an error, is the
// caller's responsibility to report).
func (r *Record) SetPrefix(slot PrefixSlot, value string) (redundant, conflict bool) {
	p := &r.Prefixes[slot]
	if !p.set {
		p.set = true
		p.value = value
		return false, false
	}
	if p.value == value {
		return true, false
	}
	return false, true
}

// Prefix returns the value stored in slot and whether it was ever set.
func (r *Record) Prefix(slot PrefixSlot) (string, bool) {
	p := r.Prefixes[slot]
	return p.value, p.set
}
