package instr

import "testing"

func TestReset(t *testing.T) {
	var r Record
	r.Label = "stale"
	r.HasLabel = true
	r.Opcode = Opcode(7)
	r.Times = 9
	r.EvexBrErOp = 3
	r.Operands[0].BaseReg = 4

	r.Reset()

	if r.Opcode != INone {
		t.Fatalf("expected opcode reset to INone, got %v", r.Opcode)
	}
	if r.Times != 1 {
		t.Fatalf("expected times reset to 1, got %d", r.Times)
	}
	if r.EvexBrErOp != -1 {
		t.Fatalf("expected evex_brerop reset to -1, got %d", r.EvexBrErOp)
	}
	if r.HasLabel {
		t.Fatal("expected label cleared")
	}
	if r.Operands[0].BaseReg != -1 {
		t.Fatalf("expected operand base reg reset to -1, got %d", r.Operands[0].BaseReg)
	}
}

func TestSetPrefix(t *testing.T) {
	var r Record

	redundant, conflict := r.SetPrefix(SlotSegment, "fs")
	if redundant || conflict {
		t.Fatalf("first set should be clean, got redundant=%v conflict=%v", redundant, conflict)
	}

	redundant, conflict = r.SetPrefix(SlotSegment, "fs")
	if !redundant || conflict {
		t.Fatalf("repeat of the same value should be redundant, got redundant=%v conflict=%v", redundant, conflict)
	}

	redundant, conflict = r.SetPrefix(SlotSegment, "gs")
	if redundant || !conflict {
		t.Fatalf("different value in an occupied slot should conflict, got redundant=%v conflict=%v", redundant, conflict)
	}

	value, set := r.Prefix(SlotSegment)
	if !set || value != "fs" {
		t.Fatalf("expected slot to retain first value 'fs', got %q set=%v", value, set)
	}
}

func TestEvexBrErOpInvariant(t *testing.T) {
	var r Record
	r.Reset()
	r.Operands[2].DecoFlags = 0
	if r.EvexBrErOp != -1 {
		t.Fatalf("no decorator present, expected evex_brerop == -1, got %d", r.EvexBrErOp)
	}
}
