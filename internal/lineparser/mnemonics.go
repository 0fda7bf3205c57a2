package lineparser

import (
	"strings"

	"github.com/nasmgo/core/internal/instr"
)

// dbElemSize maps a DB-family mnemonic to its element size in bytes — the
// elem argument the extended-operand parser needs.
var dbElemSize = map[string]int{
	"DB": 1, "DW": 2, "DD": 4, "DQ": 8,
	"DT": 10, "DO": 16, "DY": 32, "DZ": 64,
}

func dbElemFor(mnemonic string) (int, bool) {
	n, ok := dbElemSize[strings.ToUpper(mnemonic)]
	return n, ok
}

func isIncbin(mnemonic string) bool {
	return strings.EqualFold(mnemonic, "INCBIN")
}

func isEqu(mnemonic string) bool {
	return strings.EqualFold(mnemonic, "EQU")
}

// prefixSlots maps a recognised prefix keyword (case-insensitive) to the
// record prefix slot it occupies. Segment-register prefixes and braced
// vex/evex-selection prefixes are handled separately since they are not
// fixed keywords.
var prefixSlots = map[string]instr.PrefixSlot{
	"lock": instr.SlotLockRep, "rep": instr.SlotLockRep, "repe": instr.SlotLockRep,
	"repz": instr.SlotLockRep, "repne": instr.SlotLockRep, "repnz": instr.SlotLockRep,
	"o16": instr.SlotOpSize, "o32": instr.SlotOpSize, "o64": instr.SlotOpSize,
	"a16": instr.SlotAddrSize, "a32": instr.SlotAddrSize, "a64": instr.SlotAddrSize,
	"wait": instr.SlotWait,
	"rex":  instr.SlotRex,
}

func prefixSlotFor(text string) (instr.PrefixSlot, bool) {
	slot, ok := prefixSlots[strings.ToLower(text)]
	return slot, ok
}
