package insndb

// Condition describes one x86 condition-code name and the 4-bit nibble it
// encodes. CCOnly codes expand only into cc-style (Jcc/CMOVcc) patterns;
// SCCOnly codes expand only into scc-style (SETcc) patterns; everything
// else is shared by both.
type Condition struct {
	Name   string
	Nibble int
	CCOnly bool // excluded from scc-style expansion
	SCCOnly bool // excluded from cc-style expansion
	// NDOnly marks an alias condition whose disassembly-only status means
	// an expansion using it auto-sets the ND flag.
	NDOnly bool
}

// conditions is the 18-entry condition-code table: 12 codes shared by both
// styles, 4 codes usable only by the cc style, 2 usable only by the scc
// style — giving the documented 16 cc-style and 14 scc-style pattern
// counts (12+4=16, 12+2=14).
var conditions = []Condition{
	{Name: "o", Nibble: 0x0},
	{Name: "no", Nibble: 0x1},
	{Name: "b", Nibble: 0x2},
	{Name: "ae", Nibble: 0x3},
	{Name: "e", Nibble: 0x4},
	{Name: "ne", Nibble: 0x5},
	{Name: "be", Nibble: 0x6},
	{Name: "a", Nibble: 0x7},
	{Name: "l", Nibble: 0xC},
	{Name: "ge", Nibble: 0xD},
	{Name: "le", Nibble: 0xE},
	{Name: "g", Nibble: 0xF},

	{Name: "p", Nibble: 0xA, CCOnly: true},
	{Name: "np", Nibble: 0xB, CCOnly: true},
	{Name: "pe", Nibble: 0xA, CCOnly: true, NDOnly: true},
	{Name: "po", Nibble: 0xB, CCOnly: true, NDOnly: true},

	{Name: "f", Nibble: 0x8, SCCOnly: true},
	{Name: "t", Nibble: 0x9, SCCOnly: true},
}

// ccStyleConditions returns the 16 conditions valid for Jcc/CMOVcc-style
// (additive) expansion.
func ccStyleConditions() []Condition {
	out := make([]Condition, 0, 16)
	for _, c := range conditions {
		if !c.SCCOnly {
			out = append(out, c)
		}
	}
	return out
}

// sccStyleConditions returns the 14 conditions valid for SETcc-style
// (nibble-substitution) expansion.
func sccStyleConditions() []Condition {
	out := make([]Condition, 0, 14)
	for _, c := range conditions {
		if !c.CCOnly {
			out = append(out, c)
		}
	}
	return out
}
