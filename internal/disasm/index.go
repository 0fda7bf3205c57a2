// Package disasm builds the disassembly decision structure: for each
// non-ND compiled pattern, the set of starting byte sequences that should
// dispatch to it, organized into per-prefix-class 256-entry tables plus
// the 3-D VEX/XOP/EVEX class table.
package disasm

import (
	"fmt"

	"github.com/nasmgo/core/internal/bytecode"
)

// PrefixClass identifies which 256-entry dispatch table a starting byte
// belongs to: the plain legacy-opcode space, or one of the named
// multi-byte opcode-map prefix classes that get stripped before indexing.
type PrefixClass string

const (
	ClassPlain PrefixClass = ""
	Class0F    PrefixClass = "0f"
	Class0F38  PrefixClass = "0f38"
	Class0F3A  PrefixClass = "0f3a"
	Class0F24  PrefixClass = "0f24"
	Class0F25  PrefixClass = "0f25"
	Class0F7A  PrefixClass = "0f7a"
	Class0FA6  PrefixClass = "0fa6"
	Class0FA7  PrefixClass = "0fa7"
)

var knownPrefixClasses = []struct {
	bytes []byte
	class PrefixClass
}{
	{[]byte{0x0f, 0x38}, Class0F38},
	{[]byte{0x0f, 0x3a}, Class0F3A},
	{[]byte{0x0f, 0x24}, Class0F24},
	{[]byte{0x0f, 0x25}, Class0F25},
	{[]byte{0x0f, 0x7a}, Class0F7A},
	{[]byte{0x0f, 0xa6}, Class0FA6},
	{[]byte{0x0f, 0xa7}, Class0FA7},
	{[]byte{0x0f}, Class0F},
}

// VexKind distinguishes the three vector-prefix families that each get
// their own synthetic-prefix-key dispatch path.
type VexKind int

const (
	VexNone VexKind = iota
	VexVEX
	VexXOP
	VexEVEX
)

// SyntheticPrefixKey is the "{vex|xop|evex}{map:02X}{wlp:X}" key a
// VEX/XOP/EVEX-prefixed pattern's starting sequence reduces to.
type SyntheticPrefixKey struct {
	Kind VexKind
	Map  int
	WLP  int
}

func (k SyntheticPrefixKey) String() string {
	var prefix string
	switch k.Kind {
	case VexVEX:
		prefix = "vex"
	case VexXOP:
		prefix = "xop"
	case VexEVEX:
		prefix = "evex"
	}
	return fmt.Sprintf("%s%02X%X", prefix, k.Map, k.WLP)
}

// Entry binds one instruction pattern's compiled program to the index.
type Entry struct {
	Mnemonic string
	Program  bytecode.Program
}

// Table is one 256-entry dispatch table keyed by the byte that follows a
// given prefix class (or, for class == ClassPlain, the very first opcode
// byte).
type Table struct {
	Class    PrefixClass
	Entries  [256][]Entry
	IsPrefix [256]bool
}

// Index is the complete disassembly structure: one Table per prefix class
// plus the 3-D VEX/XOP/EVEX table.
type Index struct {
	Tables   map[PrefixClass]*Table
	VexTable map[SyntheticPrefixKey][]Entry
}

// NewIndex returns an empty Index ready for Insert calls.
func NewIndex() *Index {
	return &Index{
		Tables:   make(map[PrefixClass]*Table),
		VexTable: make(map[SyntheticPrefixKey][]Entry),
	}
}

func (idx *Index) tableFor(class PrefixClass) *Table {
	t, ok := idx.Tables[class]
	if !ok {
		t = &Table{Class: class}
		idx.Tables[class] = t
	}
	return t
}

// StartingSequence computes a pattern's starting-byte-sequence
// classification: the literal prefix-class bytes to strip (if any), the
// byte (or the base byte of a register-range form) that keys the
// resulting table, how many consecutive table cells the sequence enrols
// (> 1 for `+r` forms), and whether the pattern uses a VEX/XOP/EVEX
// synthetic key instead of a literal byte.
type StartingSequence struct {
	Class      PrefixClass
	Key        byte
	RangeWidth int // > 1 for +r forms that expand into multiple cells
	Vex        *SyntheticPrefixKey
}

// rangeFormRegBase and rangeFormMixedBase mirror internal/bytecode's
// unexported opModRMRegBase/opModRMMixedBase VM opcode bytes: the marker
// that precedes a `+r` register-range literal byte (010..013, 8 derived
// starting bytes) and a mixed-ModR/M slot form (0144..0147, 2 derived
// starting bytes), respectively. Duplicated here as raw byte values,
// matching how this file already recognises the 01..04 literal-run
// opcodes without importing bytecode's private constants.
const (
	rangeFormRegBase   byte = 010
	rangeFormMixedBase byte = 0144
)

// Compute walks prog's byte program from the front, honoring literal
// runs (stripping the longest known prefix class first), `+r` opcode
// range forms (and the 0144-class mixed-ModR/M 2-byte set), and
// VEX/XOP/EVEX prefix triples, returning the resulting starting sequence
// or an error if the program is empty or malformed.
func Compute(prog bytecode.Program, vex *SyntheticPrefixKey) (StartingSequence, error) {
	if vex != nil {
		return StartingSequence{RangeWidth: 1}.withVex(vex), nil
	}

	bytes := prog.Bytes
	if len(bytes) == 0 {
		return StartingSequence{}, fmt.Errorf("disasm: empty bytecode program")
	}

	literal, next := leadingLiteralRun(bytes)
	class, rest := stripKnownPrefixClass(literal)

	if len(rest) > 0 {
		return StartingSequence{Class: class, Key: rest[0], RangeWidth: 1}, nil
	}

	// No literal byte survived the prefix-class strip (or there was no
	// literal run at all): the pattern may instead open directly on a
	// `+r` / mixed-ModR/M register-range marker, whose single literal
	// base byte keys a multi-cell range rather than one cell.
	if width, base, ok := rangeFormAt(bytes, next); ok {
		return StartingSequence{Class: class, Key: base, RangeWidth: width}, nil
	}

	if len(literal) == 0 {
		return StartingSequence{}, fmt.Errorf("disasm: pattern has no leading literal bytes to key on")
	}
	return StartingSequence{}, fmt.Errorf("disasm: pattern's literal run is entirely consumed by its prefix class")
}

func (s StartingSequence) withVex(vex *SyntheticPrefixKey) StartingSequence {
	s.Vex = vex
	return s
}

// leadingLiteralRun extracts the literal-byte payload from the front of a
// compiled program, stopping at the first non-literal VM opcode, and
// reports the index of that opcode (len(program) if the run reaches the
// end) so the caller can inspect what follows.
func leadingLiteralRun(program []byte) (literal []byte, next int) {
	i := 0
	for i < len(program) {
		op := program[i]
		switch op {
		case 01, 02, 03, 04:
			n := int(op)
			i++
			if i+n > len(program) {
				return literal, i
			}
			literal = append(literal, program[i:i+n]...)
			i += n
		default:
			return literal, i
		}
	}
	return literal, i
}

// rangeFormAt recognises a `+r` or mixed-ModR/M register-range opcode
// marker at position i in program, returning the range width it expands
// into and the literal base byte (the byte immediately following the
// marker) the range keys from.
func rangeFormAt(program []byte, i int) (width int, base byte, ok bool) {
	if i+1 >= len(program) {
		return 0, 0, false
	}
	switch op := program[i]; {
	case op >= rangeFormRegBase && op < rangeFormRegBase+4:
		return 8, program[i+1], true
	case op >= rangeFormMixedBase && op < rangeFormMixedBase+4:
		return 2, program[i+1], true
	default:
		return 0, 0, false
	}
}

// stripKnownPrefixClass removes the longest matching known
// multi-byte-opcode-map prefix class from the front of literal, returning
// the class it stripped (or ClassPlain for none) and the remaining bytes.
func stripKnownPrefixClass(literal []byte) (PrefixClass, []byte) {
	best := -1
	var bestClass PrefixClass
	for _, kp := range knownPrefixClasses {
		if len(kp.bytes) > len(literal) {
			continue
		}
		if !hasPrefix(literal, kp.bytes) {
			continue
		}
		if len(kp.bytes) > best {
			best = len(kp.bytes)
			bestClass = kp.class
		}
	}
	if best < 0 {
		return ClassPlain, literal
	}
	return bestClass, literal[best:]
}

func hasPrefix(s, prefix []byte) bool {
	if len(prefix) > len(s) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Insert enrolls entry into idx at every cell ss describes — a single
// key, or ss.RangeWidth consecutive keys starting at ss.Key for a `+r` /
// mixed-ModR/M register-range form — reporting a hard build error if any
// of those cells is already occupied by a prefix-table marker (an
// "ambiguous cell": a prefix-table entry and an instruction entry may
// never share one key).
func (idx *Index) Insert(ss StartingSequence, entry Entry) error {
	if ss.Vex != nil {
		idx.VexTable[*ss.Vex] = append(idx.VexTable[*ss.Vex], entry)
		return nil
	}

	width := ss.RangeWidth
	if width < 1 {
		width = 1
	}

	t := idx.tableFor(ss.Class)
	for i := 0; i < width; i++ {
		key := ss.Key + byte(i)
		if t.IsPrefix[key] {
			return fmt.Errorf("disasm: ambiguous cell [%s][%02x]: already a prefix-table entry", ss.Class, key)
		}
	}
	for i := 0; i < width; i++ {
		key := ss.Key + byte(i)
		t.Entries[key] = append(t.Entries[key], entry)
	}
	return nil
}

// MarkPrefix flags key within class as a prefix-table cell (one more
// opcode-map byte follows, rather than a ModR/M byte or immediate). It is
// an error to mark a cell that already holds instruction entries.
func (idx *Index) MarkPrefix(class PrefixClass, key byte) error {
	t := idx.tableFor(class)
	if len(t.Entries[key]) > 0 {
		return fmt.Errorf("disasm: ambiguous cell [%s][%02x]: already an instruction-table entry", class, key)
	}
	t.IsPrefix[key] = true
	return nil
}
