// Package regtable is the register-name authority shared by the line
// parser and the memory-reference resolver. It generalises a flat
// register-constant table into the full register universe the line parser must
// classify: general-purpose registers of every width, segment registers,
// the instruction pointer, vector registers (XMM/YMM/ZMM), and opmask
// registers (K0-K7).
package regtable

import "strings"

// Class identifies which register family a name belongs to. The line
// parser and memory-reference resolver branch on Class to decide whether a
// register may occupy a base/index slot, a segment-override slot, or an
// opmask decorator slot.
type Class int

const (
	ClassNone Class = iota
	ClassGPR        // general-purpose, eligible for base/index
	ClassSegment
	ClassIP // RIP/EIP, used only in [rel ...] addressing
	ClassXMM
	ClassYMM
	ClassZMM
	ClassMask // opmask K0-K7
)

// Info describes one register name: its class, bit width, and encoding
// number (0-15 for GPRs, 0-7 for opmask registers). Extended registers
// (R8-R15 and friends) carry Encoding >= 8, which is the line parser's
// signal that a REX/REX2/VEX.B extension bit will eventually be needed by
// the encoder — this package only classifies, it never emits prefixes.
type Info struct {
	Name     string
	Class    Class
	Bits     int
	Encoding int
}

var table = buildTable()

// Lookup returns the Info for a register name (case-insensitive) and
// whether it was found.
func Lookup(name string) (Info, bool) {
	info, ok := table[strings.ToLower(name)]
	return info, ok
}

// IsRegister reports whether name is any known register.
func IsRegister(name string) bool {
	_, ok := table[strings.ToLower(name)]
	return ok
}

// IsSegment reports whether name is a segment register (CS/DS/ES/SS/FS/GS).
func IsSegment(name string) bool {
	info, ok := Lookup(name)
	return ok && info.Class == ClassSegment
}

// IsFSGS reports whether name is specifically FS or GS — the only segment
// overrides that require an EAF_FSGS tag on the resulting effective
// address.
func IsFSGS(name string) bool {
	lower := strings.ToLower(name)
	return lower == "fs" || lower == "gs"
}

// SegmentIndex returns the 0-based segment-register index (CS=0, DS=1,
// ES=2, SS=3, FS=4, GS=5 — the classic x86 segment-selector ordering) used
// by memref.Resolve's EXPR_SEGBASE accumulation.
func SegmentIndex(name string) (int, bool) {
	order := []string{"cs", "ds", "es", "ss", "fs", "gs"}
	lower := strings.ToLower(name)
	for i, n := range order {
		if n == lower {
			return i, true
		}
	}
	return 0, false
}

func buildTable() map[string]Info {
	t := make(map[string]Info)

	add := func(name string, class Class, bits, enc int) {
		t[name] = Info{Name: name, Class: class, Bits: bits, Encoding: enc}
	}

	gpr64 := []string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
		"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
	gpr32 := []string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi",
		"r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
	gpr16 := []string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di",
		"r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w"}
	gpr8 := []string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil",
		"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}
	gpr8legacy := []string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}

	for i, n := range gpr64 {
		add(n, ClassGPR, 64, i)
	}
	for i, n := range gpr32 {
		add(n, ClassGPR, 32, i)
	}
	for i, n := range gpr16 {
		add(n, ClassGPR, 16, i)
	}
	for i, n := range gpr8 {
		add(n, ClassGPR, 8, i)
	}
	for i, n := range gpr8legacy {
		// ah/ch/dh/bh (encodings 4-7) shadow spl/bpl/sil/dil only when no
		// REX prefix is present; the line parser does not disambiguate —
		// that is an encoder-time concern — so both names simply resolve
		// to their own Info entries.
		if i < 4 {
			continue
		}
		add(n, ClassGPR, 8, i)
	}

	for _, n := range []string{"cs", "ds", "es", "ss", "fs", "gs"} {
		idx, _ := SegmentIndex(n)
		add(n, ClassSegment, 16, idx)
	}

	add("rip", ClassIP, 64, 0)
	add("eip", ClassIP, 32, 0)

	for i := 0; i < 32; i++ {
		add(xmmName(i), ClassXMM, 128, i)
		add(ymmName(i), ClassYMM, 256, i)
		add(zmmName(i), ClassZMM, 512, i)
	}

	for i := 0; i < 8; i++ {
		add(kName(i), ClassMask, 64, i)
	}

	return t
}

func xmmName(i int) string { return "xmm" + itoa(i) }
func ymmName(i int) string { return "ymm" + itoa(i) }
func zmmName(i int) string { return "zmm" + itoa(i) }
func kName(i int) string   { return "k" + itoa(i) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [4]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
