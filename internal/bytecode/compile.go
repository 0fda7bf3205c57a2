package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Flags is the instruction-flags multiset the compiler synthesizes while
// scanning a pattern's opcode tokens.
type Flags struct {
	VEX, EVEX, REX2, APX bool
	Long, NoAPX          bool
	NF, DFV              bool
	LIG, WIG, WW         bool
}

// normalize applies the documented implication rules: LONG is implied by
// APX; NOAPX is implied by NOLONG, by VEX, and by any legacy map >= 2 that
// is not EVEX.
func (f *Flags) normalize(legacyMap int) {
	if f.APX {
		f.Long = true
	}
	if !f.Long {
		f.NoAPX = true
	}
	if f.VEX {
		f.NoAPX = true
	}
	if legacyMap >= 2 && !f.EVEX {
		f.NoAPX = true
	}
}

// Program is one pattern's compiled bytecode plus the role map the
// assembler's emitter needs to route operand values into the VM's slot
// references.
type Program struct {
	Bytes []byte
	Roles []RoleAssignment
	Tuple string
	Flags Flags

	// VexMap/VexPP/VexW/VexL carry the legacy-map/pp/w/l fields a
	// VEX/XOP/EVEX-prefixed pattern's compileVexLike token parsed, so the
	// disassembly index builder can derive a SyntheticPrefixKey without
	// re-decoding the emitted prefix bytes.
	VexMap, VexPP, VexW, VexL int
}

// Compile translates one instruction-database pattern's bracketed DSL
// string into a VM byte program, resolving role positions against
// relaxMask (the bit mask of operands a relaxed-form expansion omitted).
func Compile(encodingDSL string, relaxMask int) (Program, error) {
	input, err := ParseInput(encodingDSL)
	if err != nil {
		return Program{}, err
	}

	roles, err := ParseRoleString(input.Roles)
	if err != nil {
		return Program{}, err
	}
	roles = ApplyRelaxShift(roles, relaxMask)

	c := &compiler{roles: roles}
	if err := c.run(input.OpcodeText); err != nil {
		return Program{}, err
	}
	c.flags.normalize(c.legacyMap)
	c.emit(opTerminator)

	return Program{
		Bytes: c.out, Roles: roles, Tuple: input.Tuple, Flags: c.flags,
		VexMap: c.legacyMap, VexPP: c.vexPP, VexW: c.vexW, VexL: c.vexL,
	}, nil
}

type compiler struct {
	roles        []RoleAssignment
	out          []byte
	literalRun   []byte
	prefixOK     bool
	legacyMap    int
	vexPP, vexW, vexL int
	flags        Flags
	sawOpcodeByte bool
}

func (c *compiler) run(opcodeText string) error {
	c.prefixOK = true
	tokens := strings.Fields(opcodeText)
	for i := 0; i < len(tokens); i++ {
		if err := c.token(tokens[i]); err != nil {
			return fmt.Errorf("bytecode: token %q: %w", tokens[i], err)
		}
	}
	c.flushLiterals()
	return nil
}

func (c *compiler) roleByKind(role Role) (RoleAssignment, bool) {
	for _, r := range c.roles {
		if r.Role == role {
			return r, true
		}
	}
	return RoleAssignment{}, false
}

func (c *compiler) token(tok string) error {
	switch {
	case tok == "/r":
		c.flushLiterals()
		r, _ := c.roleByKind(RoleReg)
		m, _ := c.roleByKind(RoleRM)
		c.emit(opModRMFull + byte((m.Position&7)<<3) + byte(r.Position&7))
		c.sawOpcodeByte = true
		c.prefixOK = false
		return nil

	case len(tok) == 2 && tok[0] == '/' && tok[1] >= '0' && tok[1] <= '7':
		c.flushLiterals()
		ext := tok[1] - '0'
		m, _ := c.roleByKind(RoleRM)
		c.emit(opModRMExtBase + ext)
		c.emit(byte(m.Position))
		c.sawOpcodeByte = true
		c.prefixOK = false
		return nil

	case tok == "ib", tok == "iw", tok == "id", tok == "iq", tok == "iwd", tok == "iwdq":
		c.flushLiterals()
		i, _ := c.roleByKind(RoleImm)
		c.emit(immOpcodeFor(tok))
		c.emit(byte(i.Position))
		return nil

	case tok == "ib,u":
		c.flushLiterals()
		i, _ := c.roleByKind(RoleImm)
		c.emit(opImmByteUnsigned)
		c.emit(byte(i.Position))
		return nil

	case tok == "ib,s":
		c.flushLiterals()
		i, _ := c.roleByKind(RoleImm)
		c.emit(opImmByteSigned)
		c.emit(byte(i.Position))
		return nil

	case tok == "id,s":
		c.flushLiterals()
		i, _ := c.roleByKind(RoleImm)
		c.emit(opImmDWordSigned)
		c.emit(byte(i.Position))
		return nil

	case tok == "rel8":
		c.flushLiterals()
		c.emit(opRel8)
		return nil
	case tok == "rel16":
		c.flushLiterals()
		c.emit(opRel16)
		return nil
	case tok == "rel32":
		c.flushLiterals()
		c.emit(opRel32)
		return nil
	case tok == "rel":
		c.flushLiterals()
		c.emit(opRel)
		return nil

	case strings.HasPrefix(tok, "vex.") || strings.HasPrefix(tok, "xop."):
		c.flushLiterals()
		return c.compileVexLike(tok, false)

	case strings.HasPrefix(tok, "evex."):
		c.flushLiterals()
		return c.compileVexLike(tok, true)

	case strings.HasSuffix(tok, "+r") && len(tok) > 2:
		c.flushLiterals()
		lit, err := parseHexByte(tok[:len(tok)-2])
		if err != nil {
			return err
		}
		reg, _ := c.roleByKind(RoleReg)
		c.emit(opModRMRegBase + byte(reg.Position&3))
		c.emit(lit)
		c.sawOpcodeByte = true
		c.prefixOK = false
		return nil

	default:
		b, err := parseHexByte(tok)
		if err != nil {
			return err
		}
		c.literalRun = append(c.literalRun, b)
		if len(c.literalRun) == 4 {
			c.flushLiterals()
		}
		c.sawOpcodeByte = true
		c.prefixOK = false
		return nil
	}
}

// immOpcodeFor maps an immediate-size mnemonic token to its VM opcode.
func immOpcodeFor(tok string) byte {
	switch tok {
	case "ib":
		return opImmByte
	case "iw":
		return opImmWord
	case "iwd":
		return opImmWordOrDWord
	case "id":
		return opImmDWord
	case "iq":
		return opImmQWord
	case "iwdq":
		return opImmWordDWordQWord
	default:
		return opImmByte
	}
}

// compileVexLike emits an EVEX or VEX/XOP prefix for a dotted token such
// as "vex.128.66.0f.wig". The fields after the first dot may come in any
// order: length (128/256/512, l0/l1/l2, lz, lig), map (0f/0f38/0f3a), pp
// (66/f3/f2) and W (w0/w1/wig); unrecognised fields are ignored. No class
// field is parsed, so the VEX class bits are always 0 and an "xop." token
// compiles exactly like a "vex." one.
func (c *compiler) compileVexLike(tok string, evex bool) error {
	fields := strings.Split(tok, ".")[1:]
	var class, legacyMap, pp, w, l int
	for _, f := range fields {
		switch {
		case f == "128" || f == "lz" || f == "l0":
			l = 0
		case f == "256" || f == "l1":
			l = 1
		case f == "512" || f == "l2":
			l = 2
		case f == "0f":
			legacyMap = 1
		case f == "0f38":
			legacyMap = 2
		case f == "0f3a":
			legacyMap = 3
		case f == "66":
			pp = 1
		case f == "f3":
			pp = 2
		case f == "f2":
			pp = 3
		case f == "w0":
			w = 0
		case f == "w1":
			w = 1
		case f == "wig":
			c.flags.WIG = true
		case f == "lig":
			c.flags.LIG = true
		}
	}
	c.legacyMap = legacyMap
	c.vexPP, c.vexW, c.vexL = pp, w, l

	v, hasV := c.roleByKind(RoleVex)
	vPos := 0
	if hasV {
		vPos = v.Position
	}

	if evex {
		c.flags.EVEX = true
		c.emit(opEvexPrefix + byte(vPos))
		c.emit(byte(legacyMap) | 0xF0)
		c.emit(byte(pp) | 0x7C | byte((vPos&15)<<3) | byte(w<<7))
		c.emit(byte(l<<5) | 0x08)
		c.emit(0) // tuple type resolved by the caller via Program.Tuple
	} else {
		c.flags.VEX = true
		c.emit(opVexPrefix + byte(vPos))
		c.emit(byte(class<<6) | byte(legacyMap))
		c.emit(byte(w<<7) | byte(l<<2) | byte(pp))
	}
	c.sawOpcodeByte = false
	return nil
}

func parseHexByte(tok string) (byte, error) {
	v, err := strconv.ParseUint(tok, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("not a hex byte literal: %w", err)
	}
	return byte(v), nil
}

func (c *compiler) emit(b ...byte) {
	c.out = append(c.out, b...)
}

// flushLiterals coalesces the pending literal-byte run into one of the
// 01..04 length-prefixed forms.
func (c *compiler) flushLiterals() {
	if len(c.literalRun) == 0 {
		return
	}
	lengthOp := []byte{opLiteral1, opLiteral2, opLiteral3, opLiteral4}[len(c.literalRun)-1]
	c.emit(lengthOp)
	c.emit(c.literalRun...)
	c.literalRun = nil
}
