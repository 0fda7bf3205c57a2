package gen

import (
	"testing"

	"github.com/nasmgo/core/internal/insndb"
)

func TestBuild_InternsPoolAndIndexesDisassembly(t *testing.T) {
	patterns := []insndb.Pattern{
		{Mnemonic: "NOP", Operands: []string{"void"}, Encoding: "[90]", Flags: "", SourceLine: 1},
		{Mnemonic: "ADD", Operands: []string{"rm", "reg"}, Encoding: "[mr: 01 /r]", Flags: "SM", SourceLine: 2},
		{Mnemonic: "RET", Operands: []string{"void"}, Encoding: "[c3]", Flags: "", SourceLine: 3},
	}

	tbl, err := Build(patterns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantPool := []byte{1, 1, 0x41, 0, 1, 0x90, 0, 1, 0xc3, 0}
	if len(tbl.Bytecodes()) != len(wantPool) {
		t.Fatalf("pool length = %d, want %d (%x)", len(tbl.Bytecodes()), len(wantPool), tbl.Bytecodes())
	}
	for i, b := range wantPool {
		if tbl.Bytecodes()[i] != b {
			t.Fatalf("pool[%d] = %#x, want %#x", i, tbl.Bytecodes()[i], b)
		}
	}

	wantOpcodes := []string{"ADD", "NOP", "RET"}
	if len(tbl.OpcodeEnum()) != len(wantOpcodes) {
		t.Fatalf("OpcodeEnum = %v, want %v", tbl.OpcodeEnum(), wantOpcodes)
	}
	for i, name := range wantOpcodes {
		if tbl.OpcodeEnum()[i] != name {
			t.Fatalf("OpcodeEnum[%d] = %s, want %s", i, tbl.OpcodeEnum()[i], name)
		}
	}

	if len(tbl.Flags()) != 1 || tbl.Flags()[0] != "SM" {
		t.Fatalf("Flags() = %v, want [SM]", tbl.Flags())
	}
	if !tbl.Flags().Has("SM") || tbl.Flags().Has("ND") {
		t.Fatalf("Flags().Has behaved unexpectedly: %v", tbl.Flags())
	}

	addTpl, ok := tbl.Templates()["ADD"]
	if !ok || len(addTpl) != 1 {
		t.Fatalf("Templates()[ADD] = %v", addTpl)
	}
	if addTpl[0].BytecodeOffset != 0 || len(addTpl[0].Flags) != 1 || addTpl[0].Flags[0] != "SM" {
		t.Fatalf("unexpected ADD template: %+v", addTpl[0])
	}

	plain := tbl.DisasmTables().Tables[""]
	if plain == nil {
		t.Fatal("expected a plain-class disassembly table")
	}
	if len(plain.Entries[0x01]) != 1 || plain.Entries[0x01][0].Mnemonic != "ADD" {
		t.Fatalf("disasm[0x01] = %v, want [ADD]", plain.Entries[0x01])
	}
	if len(plain.Entries[0x90]) != 1 || plain.Entries[0x90][0].Mnemonic != "NOP" {
		t.Fatalf("disasm[0x90] = %v, want [NOP]", plain.Entries[0x90])
	}
	if len(plain.Entries[0xc3]) != 1 || plain.Entries[0xc3][0].Mnemonic != "RET" {
		t.Fatalf("disasm[0xc3] = %v, want [RET]", plain.Entries[0xc3])
	}
}

func TestBuild_NDFlaggedPatternSkipsDisassembly(t *testing.T) {
	patterns := []insndb.Pattern{
		{Mnemonic: "POPE", Operands: []string{"void"}, Encoding: "[0f 1a]", Flags: "ND", SourceLine: 1},
	}
	tbl, err := Build(patterns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := tbl.Templates()["POPE"]; !ok {
		t.Fatal("ND-flagged pattern must still produce a template")
	}
	for class, table := range tbl.DisasmTables().Tables {
		for key, entries := range table.Entries {
			if len(entries) != 0 {
				t.Fatalf("ND-flagged pattern must not be indexed, found [%s][%#x] = %v", class, key, entries)
			}
		}
	}
}
