// Package operand implements the Operand data model: the ~40-bit operand
// type (size class x role x modifier) as a newtype over a 64-bit integer
// with named constants, plus the Operand struct itself and its
// effective-address and decorator flags.
package operand

// Type is the operand-type bitmask: size class, role, and modifier bits
// packed into one 64-bit value.
type Type uint64

// Size-class bits: 8,16,32,64,80,128,256,512.
const (
	Bits8 Type = 1 << iota
	Bits16
	Bits32
	Bits64
	Bits80
	Bits128
	Bits256
	Bits512
)

// Role bits: REGISTER, IMMEDIATE, MEMORY_ANY, IP_REL, MEM_OFFS,
// XMEM/YMEM/ZMEM.
const (
	Register Type = 1 << (iota + 16)
	Immediate
	MemoryAny
	IPRel
	MemOffs
	XMem
	YMem
	ZMem
)

// Modifier bits: TO, STRICT, FAR, NEAR, SHORT, COLON, UNITY, SBYTEDWORD,
// SBYTEWORD, UDWORD, SDWORD.
const (
	ModTo Type = 1 << (iota + 32)
	ModStrict
	ModFar
	ModNear
	ModShort
	ModColon
	ModUnity
	ModSByteDWord
	ModSByteWord
	ModUDWord
	ModSDWord
)

// Is reports whether all bits of mask are set in t.
func (t Type) Is(mask Type) bool { return t&mask == mask }

// Any reports whether any bit of mask is set in t.
func (t Type) Any(mask Type) bool { return t&mask != 0 }

// memoryRoleMask is every role bit that counts as "this operand is a memory
// reference" for classification purposes.
const memoryRoleMask = MemoryAny | IPRel | MemOffs | XMem | YMem | ZMem

// IsMemory reports whether the type carries any memory role bit.
func (t Type) IsMemory() bool { return t.Any(memoryRoleMask) }

// OpFlag is the per-operand opflag mask: forward-reference, relative,
// unknown.
type OpFlag uint8

const (
	OpFlagForward OpFlag = 1 << iota
	OpFlagRelative
	OpFlagUnknown
)

// EAFlag is the effective-address flag set: EAF_TIMESTWO, EAF_REL, EAF_ABS,
// EAF_BYTEOFFS, EAF_WORDOFFS, EAF_FSGS.
type EAFlag uint8

const (
	EAFTimesTwo EAFlag = 1 << iota
	EAFRel
	EAFAbs
	EAFByteOffs
	EAFWordOffs
	EAFFSGS
)

// DecoFlag is the decorator flag set: zeroing, broadcast present, SAE,
// embedded rounding. The opmask register and the broadcast width are kept
// in Operand.OpmaskReg and Operand.BroadcastNum, not in these bits.
type DecoFlag uint32

const (
	DecoZMask DecoFlag = 1 << iota
	DecoSAE
	DecoBroadcast
	// broadcast width is stored separately in Operand.BroadcastNum; the
	// DecoBroadcast bit only marks that a broadcast is present at all.
	DecoEmbeddedRound
)

// RoundingMode enumerates the four EVEX embedded-rounding modes.
type RoundingMode int

const (
	RoundNone RoundingMode = iota
	RoundNearest
	RoundDown
	RoundUp
	RoundTruncate
)

// HintType is the hint-base classification: NOHINT, MAKEBASE, NOTBASE.
type HintType int

const (
	NoHint HintType = iota
	MakeBase
	NotBase
)
