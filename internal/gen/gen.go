// Package gen builds the complete table-compiler output from a database of
// already-expanded instruction patterns: the interned bytecode pool,
// per-mnemonic assembler templates, the disassembly dispatch index, the
// mnemonic enumeration, and the instruction-flag table. It is the Go-native
// equivalent of the historical generator's five C-source and two
// flag-table outputs — this package returns data, and cmd/cli's gentables
// subcommand is responsible for printing any of it to standard output.
package gen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nasmgo/core/internal/bytecode"
	"github.com/nasmgo/core/internal/disasm"
	"github.com/nasmgo/core/internal/insndb"
)

// ItemTemplate is one expanded pattern's assembler-facing template entry:
// its operand-type strings, the offset its compiled program occupies in
// the shared bytecode pool, and the flags/ND-override the pattern carries.
type ItemTemplate struct {
	Operands       []string
	BytecodeOffset int
	Flags          []string
	NDOverride     *bool
	SourceLine     int
}

// Table is the complete output of compiling an instruction database.
type Table struct {
	bytecodes []byte
	templates map[string][]ItemTemplate
	disasm    *disasm.Index
	opcodes   []string
	flags     FlagTable
}

// Bytecodes returns the flat, suffix-shared byte pool every template's
// BytecodeOffset indexes into — the equivalent of insnsb.c's
// nasm_bytecodes array.
func (t *Table) Bytecodes() []byte { return t.bytecodes }

// Templates returns every mnemonic's expanded template list, keyed by the
// upper-cased mnemonic — the equivalent of insnsa.c's per-mnemonic arrays.
func (t *Table) Templates() map[string][]ItemTemplate { return t.templates }

// DisasmTables returns the disassembly dispatch index built over every
// non-ND-flagged pattern — the equivalent of insnsd.c.
func (t *Table) DisasmTables() *disasm.Index { return t.disasm }

// OpcodeEnum returns the sorted, deduplicated mnemonic enumeration. By
// convention (not slice position, since Go has no negative slice index)
// the sentinel I_none sits at enum value -1, one below index 0 of this
// slice — the equivalent of insnsi.h's `enum opcode`.
func (t *Table) OpcodeEnum() []string { return t.opcodes }

// Names returns the same mnemonic set as OpcodeEnum, in the same order,
// as display text rather than enum identifiers — the equivalent of
// insnsn.c's nasm_insn_names.
func (t *Table) Names() []string { return t.opcodes }

// Flags returns the deduplicated, sorted instruction-flag vocabulary seen
// across the whole database — the equivalent of the -fh/-fc outputs.
func (t *Table) Flags() FlagTable { return t.flags }

// Build compiles patterns into a complete Table. Each pattern's bracketed
// DSL is compiled independently with bytecode.Compile; the resulting
// programs are interned into one shared pool; every pattern feeds its
// mnemonic's template list; and every pattern not carrying the ND
// (disassembly-suppressed) flag is additionally enrolled in the
// disassembly index.
func Build(patterns []insndb.Pattern) (*Table, error) {
	programs := make([]bytecode.Program, len(patterns))
	sequences := make([][]byte, len(patterns))

	for i, p := range patterns {
		prog, err := bytecode.Compile(p.Encoding, p.RelaxMask)
		if err != nil {
			return nil, fmt.Errorf("gen: line %d: mnemonic %s: %w", p.SourceLine, p.Mnemonic, err)
		}
		programs[i] = prog
		sequences[i] = prog.Bytes
	}

	pool, offsets := bytecode.Intern(sequences)

	templates := make(map[string][]ItemTemplate)
	seen := make(map[string]bool)
	var opcodeOrder []string
	idx := disasm.NewIndex()

	for i, p := range patterns {
		mnemonic := strings.ToUpper(p.Mnemonic)
		if !seen[mnemonic] {
			seen[mnemonic] = true
			opcodeOrder = append(opcodeOrder, mnemonic)
		}

		flagTokens := splitFlags(p.Flags)
		templates[mnemonic] = append(templates[mnemonic], ItemTemplate{
			Operands:       p.Operands,
			BytecodeOffset: offsets[i],
			Flags:          flagTokens,
			NDOverride:     p.NDOverride,
			SourceLine:     p.SourceLine,
		})

		if hasFlag(flagTokens, "ND") {
			continue
		}

		ss, err := startingSequenceFor(programs[i])
		if err != nil {
			return nil, fmt.Errorf("gen: line %d: mnemonic %s: %w", p.SourceLine, p.Mnemonic, err)
		}
		if err := idx.Insert(ss, disasm.Entry{Mnemonic: mnemonic, Program: programs[i]}); err != nil {
			return nil, fmt.Errorf("gen: line %d: %w", p.SourceLine, err)
		}
	}

	sort.Strings(opcodeOrder)

	return &Table{
		bytecodes: pool.Flat,
		templates: templates,
		disasm:    idx,
		opcodes:   opcodeOrder,
		flags:     flagsOf(patterns),
	}, nil
}

// startingSequenceFor derives a compiled program's disassembly starting
// sequence, synthesizing the VEX/XOP/EVEX key from the program's own
// VexMap/PP/W/L fields when the prefix flags say one applies.
func startingSequenceFor(prog bytecode.Program) (disasm.StartingSequence, error) {
	switch {
	case prog.Flags.EVEX:
		key := vexKey(disasm.VexEVEX, prog)
		return disasm.Compute(prog, &key)
	case prog.Flags.VEX:
		key := vexKey(disasm.VexVEX, prog)
		return disasm.Compute(prog, &key)
	default:
		return disasm.Compute(prog, nil)
	}
}

// vexKey packs a program's w/l/pp fields into the single-nibble WLP a
// SyntheticPrefixKey carries: W in bit 3, the low bit of L in bit 2, pp in
// bits 0-1 (the high bit of an EVEX L'L is not kept). The packing only
// needs to separate dispatch-table cells from one another, not to be
// reversible — it is not the literal VEX/EVEX byte encoding.
func vexKey(kind disasm.VexKind, prog bytecode.Program) disasm.SyntheticPrefixKey {
	wlp := ((prog.VexW & 1) << 3) | ((prog.VexL & 1) << 2) | (prog.VexPP & 3)
	return disasm.SyntheticPrefixKey{Kind: kind, Map: prog.VexMap, WLP: wlp}
}
