package bytecode

import (
	"fmt"
	"strings"
)

// Role names one operand-string character's meaning: modrm.reg, modrm.rm,
// VEX.vvvv/DFV, immediate, is4 register, mib index, or implicit (no
// operand slot consumed).
type Role byte

const (
	RoleReg      Role = 'r'
	RoleRM       Role = 'm'
	RoleVex      Role = 'v'
	RoleImm      Role = 'i'
	RoleIs4      Role = 's'
	RoleMibIndex Role = 'x'
	RoleImplicit Role = '-'
)

// RoleAssignment binds one operand-string position to the role it plays,
// after resolving `+`-prefixed position-sharing.
type RoleAssignment struct {
	Role     Role
	Position int
}

// ParseRoleString parses the DSL's leading operand-role string (the
// characters preceding the first ':', or the whole thing has no tuple or
// opcode section): positions increment left to right, except that a `+`
// gives the character after it the same position as the character before it.
func ParseRoleString(s string) ([]RoleAssignment, error) {
	var out []RoleAssignment
	pos := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '+' {
			if pos > 0 {
				pos--
			}
			continue
		}
		role := Role(c)
		switch role {
		case RoleReg, RoleRM, RoleVex, RoleImm, RoleIs4, RoleMibIndex, RoleImplicit:
		default:
			return nil, fmt.Errorf("bytecode: unrecognised operand-role character %q at position %d", c, i)
		}
		out = append(out, RoleAssignment{Role: role, Position: pos})
		pos++
	}
	return out, nil
}

// ApplyRelaxShift shifts every assignment left by one for each bit set in
// relaxMask below its position — relaxed-form expansion drops an operand,
// and successive positions must close over the gap.
func ApplyRelaxShift(assignments []RoleAssignment, relaxMask int) []RoleAssignment {
	if relaxMask == 0 {
		return assignments
	}
	out := make([]RoleAssignment, len(assignments))
	for i, a := range assignments {
		shift := 0
		for bit := 0; bit < a.Position; bit++ {
			if relaxMask&(1<<uint(bit)) != 0 {
				shift++
			}
		}
		out[i] = RoleAssignment{Role: a.Role, Position: a.Position - shift}
	}
	return out
}

// Input is a parsed `[operands: tuple: opcodes]` or `[opcodes]` DSL string.
type Input struct {
	Roles      string
	Tuple      string
	OpcodeText string
}

// ParseInput splits the bracketed DSL string into its colon-separated
// sections. A bare `[opcodes]` form (no colons) leaves Roles and Tuple
// empty.
func ParseInput(s string) (Input, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return Input{}, fmt.Errorf("bytecode: encoding DSL must be bracketed, got %q", s)
	}
	inner := s[1 : len(s)-1]
	parts := strings.Split(inner, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	switch len(parts) {
	case 1:
		return Input{OpcodeText: parts[0]}, nil
	case 2:
		return Input{Roles: parts[0], OpcodeText: parts[1]}, nil
	case 3:
		return Input{Roles: parts[0], Tuple: parts[1], OpcodeText: parts[2]}, nil
	default:
		return Input{}, fmt.Errorf("bytecode: too many ':'-separated sections in %q", s)
	}
}
