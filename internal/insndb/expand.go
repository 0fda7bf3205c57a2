package insndb

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is one fully-expanded instruction-database entry ready for the
// bytecode compiler: a single mnemonic/operand-set/encoding/flags tuple
// with no remaining `*`, `?`, `cc`, or `scc` shorthand.
type Pattern struct {
	Mnemonic   string
	Operands   []string
	Encoding   string
	Flags      string
	RelaxMask  int // bit i set ⇒ operand i was omitted by relaxed-form expansion
	NDOverride *bool
	SourceLine int
}

// ExpandRelaxed expands a Line's `*`-marked optional operands (any operand
// but the first) into the full form plus every form that omits one or more
// of them, and its `?`-marked EVEX-destination operand into a variant with
// the operand present (encoding suffixed `.nd1`) and one with it omitted
// (`.nd0`). Lines with raw-byte encodings are returned unexpanded
// (relaxed-form expansion does not apply to them).
func ExpandRelaxed(l Line) ([]Pattern, error) {
	if l.RawBytes {
		return []Pattern{{
			Mnemonic:   l.Mnemonic,
			Operands:   strings.Split(l.Operands, ","),
			Encoding:   l.Encoding,
			Flags:      l.Flags,
			SourceLine: l.SourceLine,
		}}, nil
	}

	operands := strings.Split(l.Operands, ",")

	var starPositions []int
	evexDest := -1
	cleanOperands := make([]string, len(operands))
	for i, op := range operands {
		cleaned := op
		if i > 0 && strings.HasSuffix(cleaned, "*") {
			cleaned = strings.TrimSuffix(cleaned, "*")
			starPositions = append(starPositions, i)
		}
		if strings.HasSuffix(cleaned, "?") {
			cleaned = strings.TrimSuffix(cleaned, "?")
			evexDest = i
			if !containsInt(starPositions, i) {
				starPositions = append(starPositions, i)
			}
		}
		cleanOperands[i] = cleaned
	}

	subsets := subsetsOf(starPositions)

	var out []Pattern
	for _, omit := range subsets {
		mask := 0
		var kept []string
		for i, op := range cleanOperands {
			if containsInt(omit, i) {
				mask |= 1 << uint(i)
				continue
			}
			kept = append(kept, op)
		}

		if evexDest == -1 {
			out = append(out, Pattern{
				Mnemonic:   l.Mnemonic,
				Operands:   kept,
				Encoding:   l.Encoding,
				Flags:      l.Flags,
				RelaxMask:  mask,
				SourceLine: l.SourceLine,
			})
			continue
		}

		// Present/absent EVEX-destination variants: `.nd1` when the
		// marked operand survives this subset, `.nd0` when relaxed-form
		// expansion dropped it.
		suffix := ".nd1"
		if containsInt(omit, evexDest) {
			suffix = ".nd0"
		}
		out = append(out, Pattern{
			Mnemonic:   l.Mnemonic,
			Operands:   kept,
			Encoding:   l.Encoding + suffix,
			Flags:      l.Flags,
			RelaxMask:  mask,
			SourceLine: l.SourceLine,
		})
	}
	return out, nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// subsetsOf returns every subset of positions, including the empty subset,
// as 2^len(positions) slices — the "omit" sets relaxed-form expansion
// iterates over.
func subsetsOf(positions []int) [][]int {
	n := len(positions)
	out := make([][]int, 0, 1<<uint(n))
	for mask := 0; mask < 1<<uint(n); mask++ {
		var subset []int
		for i, p := range positions {
			if mask&(1<<uint(i)) != 0 {
				subset = append(subset, p)
			}
		}
		out = append(out, subset)
	}
	return out
}

var ccAdditiveRe = regexp.MustCompile(`([0-9A-Fa-f]{2})\+c`)

// ExpandConditional expands a mnemonic containing the literal placeholder
// "cc" into one pattern per applicable condition code, chosen by the
// encoding field's own form: an additive `XX+c` byte selects the 16-entry
// cc-style set; a literal `scc` placeholder in the encoding selects the
// 14-entry scc-style set.
func ExpandConditional(l Line) ([]Pattern, error) {
	if !strings.Contains(l.Mnemonic, "cc") {
		return nil, fmt.Errorf("insndb: line %d: ExpandConditional called on a mnemonic without a cc placeholder", l.SourceLine)
	}

	additive := ccAdditiveRe.MatchString(l.Encoding)
	nibbleSub := strings.Contains(l.Encoding, "scc")

	if !additive && !nibbleSub {
		return nil, fmt.Errorf("insndb: line %d: conditional mnemonic %q has no recognisable cc/scc encoding form", l.SourceLine, l.Mnemonic)
	}

	var set []Condition
	switch {
	case additive:
		set = ccStyleConditions()
	case nibbleSub:
		set = sccStyleConditions()
	}

	out := make([]Pattern, 0, len(set))
	for _, c := range set {
		mnemonic := strings.Replace(l.Mnemonic, "cc", c.Name, 1)
		encoding := l.Encoding

		if additive {
			encoding = ccAdditiveRe.ReplaceAllStringFunc(encoding, func(m string) string {
				sub := ccAdditiveRe.FindStringSubmatch(m)
				var base int
				fmt.Sscanf(sub[1], "%x", &base)
				return fmt.Sprintf("%02x", base^c.Nibble)
			})
		} else {
			encoding = strings.ReplaceAll(encoding, "scc", fmt.Sprintf("%x", c.Nibble))
		}

		flags := l.Flags
		ndOverride := c.NDOnly
		if c.NDOnly && !strings.Contains(flags, "ND") {
			flags = flags + ",ND"
		}

		out = append(out, Pattern{
			Mnemonic:   mnemonic,
			Operands:   strings.Split(l.Operands, ","),
			Encoding:   encoding,
			Flags:      flags,
			NDOverride: &ndOverride,
			SourceLine: l.SourceLine,
		})
	}
	return out, nil
}
