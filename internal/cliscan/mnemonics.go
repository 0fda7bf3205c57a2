package cliscan

import "strings"

// Table is a minimal collab.MnemonicLookup backed by a plain map from
// upper-cased mnemonic text to its opcode enumeration value.
type Table map[string]int

func (t Table) Lookup(mnemonic string) (int, bool) {
	v, ok := t[strings.ToUpper(mnemonic)]
	return v, ok
}

// Names returns the set of mnemonic spellings t recognises, usable as the
// Scanner's classification set.
func (t Table) Names() map[string]bool {
	out := make(map[string]bool, len(t))
	for name := range t {
		out[name] = true
	}
	return out
}

// FromNames builds a Table assigning each name its position in the slice
// — the convention internal/gen's OpcodeEnum documents (I_none sits one
// below index 0 by convention, not by slice position).
func FromNames(names []string) Table {
	t := make(Table, len(names))
	for i, name := range names {
		t[strings.ToUpper(name)] = i
	}
	return t
}

// demoMnemonics is the table the CLI's parse subcommand always uses: a
// small fixed set of common mnemonics, enough to drive a parse
// demonstration without a real insns.dat file.
var demoMnemonics = []string{
	"MOV", "ADD", "SUB", "CMP", "AND", "OR", "XOR", "TEST",
	"PUSH", "POP", "LEA", "INC", "DEC", "NOT", "NEG",
	"JMP", "JE", "JNE", "JZ", "JNZ", "CALL", "RET", "NOP", "SYSCALL",
	"SHL", "SHR", "SAR", "ROL", "ROR", "IMUL", "MUL", "DIV", "IDIV",
	"VADDPS", "VMOVAPS", "EQU", "DB", "DW", "DD", "DQ", "INCBIN",
}

// DemoTable returns the built-in demonstration mnemonic table.
func DemoTable() Table {
	return FromNames(demoMnemonics)
}
