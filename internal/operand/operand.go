package operand

// Operand is the parser's Operand record: register, immediate, memory
// reference, or special-immediate, discriminated by Type's role bits
// rather than by a Go interface — a bitmask newtype fits here, not a
// tagged union (that treatment is reserved for extop.Node, where the
// variants genuinely differ in payload shape).
type Operand struct {
	Type     Type
	OpFlags  OpFlag
	BaseReg  int // -1 = none
	IndexReg int // -1 = none
	Scale    int
	Offset   int64
	Segment  int // -1 = none
	WRT      int // -1 = none
	DispSize int // bytes; 0 = not yet determined

	EAFlags EAFlag

	DecoFlags    DecoFlag
	OpmaskReg    int // 0-7, or -1 if no opmask decorator
	BroadcastNum int // 1:N — N is one of 2,4,8,16,32; 0 = no broadcast
	Rounding     RoundingMode

	HintBase int // -1 = none
	HintType HintType

	Line   int
	Column int
}

// New returns a zeroed Operand with every "none" field set to -1, the
// convention a freshly-reset record follows throughout this module.
func New() Operand {
	return Operand{
		BaseReg:   -1,
		IndexReg:  -1,
		Segment:   -1,
		WRT:       -1,
		OpmaskReg: -1,
		HintBase:  -1,
	}
}

// --- collab.OpFlagsSink ------------------------------------------------

// SetForwardReference implements collab.OpFlagsSink.
func (o *Operand) SetForwardReference() { o.OpFlags |= OpFlagForward }

// SetUnknown implements collab.OpFlagsSink.
func (o *Operand) SetUnknown() { o.OpFlags |= OpFlagUnknown }

// SetRelative implements collab.OpFlagsSink.
func (o *Operand) SetRelative() { o.OpFlags |= OpFlagRelative }

// HasBroadcastSAEOrRound reports whether this operand carries any of the
// three decorators of which at most one operand of an instruction may
// carry (BRDCAST, SAE, embedded-rounding).
func (o *Operand) HasBroadcastSAEOrRound() bool {
	return o.DecoFlags&(DecoBroadcast|DecoSAE|DecoEmbeddedRound) != 0
}

// IsSimpleImmediate reports whether the operand is a fully-resolved
// (non-forward, non-unknown, non-relative) immediate value — the
// precondition for ImmFlags to add compact-encoding bits.
func (o *Operand) IsSimpleImmediate() bool {
	return o.Type.Is(Immediate) && o.OpFlags&(OpFlagForward|OpFlagUnknown|OpFlagRelative) == 0
}

// ImmFlags adds the compact-encoding modifier bits
// (UNITY|SBYTEWORD|SBYTEDWORD|UDWORD|SDWORD) based on which widths can
// losslessly represent Offset. strict, when true, suppresses every
// optimistic bit.
func (o *Operand) ImmFlags(strict bool) {
	if strict {
		return
	}
	v := o.Offset
	if v == 1 {
		o.Type |= ModUnity
	}
	if v >= -128 && v <= 127 {
		o.Type |= ModSByteWord | ModSByteDWord
	} else if v >= -32768 && v <= 32767 {
		o.Type |= ModSByteDWord
	}
	if v >= 0 && v <= 0xFFFFFFFF {
		o.Type |= ModUDWord
	}
	if v >= -2147483648 && v <= 2147483647 {
		o.Type |= ModSDWord
	}
}

// MarkUnknownImmediate implements the "Immediate-unknown" branch of the
// classification step: mark OPFLAG_UNKNOWN and optimistically add every
// compact-encoding bit unless STRICT was given.
func (o *Operand) MarkUnknownImmediate(strict bool) {
	o.SetUnknown()
	if strict {
		return
	}
	o.Type |= ModUnity | ModSByteWord | ModSByteDWord | ModUDWord | ModSDWord
}
