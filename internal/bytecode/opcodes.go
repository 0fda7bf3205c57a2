// Package bytecode compiles the instruction-database's bracketed
// `[operands: tuple: opcodes]` DSL into the octal-escape byte-code VM
// program the assembler's emitter interprets, including pool interning and
// instruction-flag synthesis.
package bytecode

// VM opcode bytes. The vocabulary is mostly octal, following the
// convention of the DSL it compiles; values are expressed here as Go
// integer constants (the compiler never emits literal octal text, only
// these byte values).
const (
	opTerminator byte = 0

	// 01..04: N literal bytes follow (adjacent literal runs up to length 4
	// coalesce into one of these).
	opLiteral1 byte = 01
	opLiteral2 byte = 02
	opLiteral3 byte = 03
	opLiteral4 byte = 04

	// 010..013 + r: ModR/M.reg = operand register's low 3 bits, plus the
	// literal byte that follows.
	opModRMRegBase byte = 010

	// 0100 + (m<<3) + r: full ModR/M byte referencing operand slots m
	// (rm) and r (reg).
	opModRMFull byte = 0100
	// 05 / 06: "register number >= 8" (REX.R / REX.B) markers for operand
	// positions beyond 3.
	opRegExtR byte = 05
	opRegExtB byte = 06

	// 0144..0147: mixed ModR/M slot forms.
	opModRMMixedBase byte = 0144

	// 0171: /0rN form — ModR/M.mod = 2 bits, reg = 3 bits, rm = 3 bits,
	// packed into the byte that follows.
	opModRMConstExt byte = 0171
	// 0172/0173/0174: is4 forms.
	opIs4Explicit byte = 0172
	opIs4Const    byte = 0173
	opIs4Implicit byte = 0174

	// 020..074: immediate slots (operand-size variants).
	opImmByte        byte = 020
	opImmWord        byte = 021
	opImmWordOrDWord byte = 022
	opImmDWord       byte = 023
	opImmQWord       byte = 024
	opImmByteUnsigned byte = 025
	opImmByteSigned   byte = 026
	opImmDWordSigned  byte = 027
	opImmWordDWordQWord byte = 030
	opRel8  byte = 031
	opRel16 byte = 032
	opRel   byte = 033
	opRel32 byte = 034

	// 0200..0237: ModR/M with only the rm slot, plus a 3-bit
	// opcode-extension constant.
	opModRMExtBase byte = 0200

	// 0240 + v ...: EVEX prefix emission.
	opEvexPrefix byte = 0240
	// 0250: EVEX prefix, no-v variant.
	opEvexPrefixNoV byte = 0250
	// 0260 + v ...: VEX/XOP prefix emission.
	opVexPrefix byte = 0260
	// 0270: VEX/XOP prefix, no-v variant.
	opVexPrefixNoV byte = 0270

	// 0310..0317: address-size / norex overrides.
	opAddrSizeBase byte = 0310

	// 0320..0327: operand-size overrides, including REX.W control.
	opOpSizeBase byte = 0320

	// 0330..0347: prefix mandates (F2/F3 legacy, REX bit forces, wait,
	// HLE, mustrep).
	opPrefixMandateBase byte = 0330

	// 0354..0357: legacy map prefix (0F, 0F38, 0F3A).
	opLegacyMapBase byte = 0354

	// 0350: REX2 prefix; |01 forces it.
	opRex2 byte = 0350

	// 0360..0371: NP / JMP8 / JCC8 / JLEN and friends.
	opMiscBase byte = 0360

	// 0374..0376: VSIB tuple size (XMM/YMM/ZMM).
	opVsibXMM byte = 0374
	opVsibYMM byte = 0375
	opVsibZMM byte = 0376
)
