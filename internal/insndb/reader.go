// Package insndb reads the line-oriented instruction database (insns.dat)
// and expands its relaxed-form and conditional-form pattern shorthand into
// individual instruction patterns for the bytecode compiler.
package insndb

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Line is one four-field insns.dat entry: MNEMONIC OPERANDS ENCODING FLAGS.
type Line struct {
	Mnemonic string
	Operands string
	Encoding string
	Flags    string

	// RawBytes marks an encoding given as a literal escape sequence
	// (\xHH or \OOO) rather than the bracketed DSL — such lines are
	// accepted but disqualified from relaxed-form expansion.
	RawBytes bool

	SourceLine int
}

// Directive is an inert `;#`-prefixed line, carried through the reader
// unexpanded so downstream tooling can inspect it without the reader
// silently dropping it.
type Directive struct {
	Text       string
	SourceLine int
}

// Read parses r's insns.dat-format content, returning the instruction
// lines and any directive lines encountered, in source order.
func Read(r io.Reader) ([]Line, []Directive, error) {
	var lines []Line
	var directives []Directive

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ";#") {
			directives = append(directives, Directive{Text: trimmed, SourceLine: lineNo})
			continue
		}
		if strings.HasPrefix(trimmed, ";") {
			continue
		}
		if idx := strings.Index(trimmed, ";"); idx >= 0 {
			trimmed = strings.TrimSpace(trimmed[:idx])
			if trimmed == "" {
				continue
			}
		}

		mnemonic, operands, encoding, flags, err := splitFields(trimmed)
		if err != nil {
			return lines, directives, fmt.Errorf("insndb: line %d: %w", lineNo, err)
		}

		lines = append(lines, Line{
			Mnemonic:   mnemonic,
			Operands:   operands,
			Encoding:   encoding,
			Flags:      flags,
			RawBytes:   isRawByteEncoding(encoding),
			SourceLine: lineNo,
		})
	}
	if err := scanner.Err(); err != nil {
		return lines, directives, err
	}
	return lines, directives, nil
}

// isRawByteEncoding reports whether encoding is a literal escape sequence
// (\xHH or \OOO) rather than a bracketed `[...]` DSL string.
func isRawByteEncoding(encoding string) bool {
	return strings.HasPrefix(encoding, `\`)
}

// splitFields splits one non-comment, non-blank insns.dat line into its
// four fields. The encoding field is special: when bracketed, it may span
// multiple whitespace-separated tokens (the bytecode DSL itself contains
// spaces between bytes), so the encoding token run is whatever sits
// between the operand field and the trailing flags field, rejoined with
// single spaces.
func splitFields(line string) (mnemonic, operands, encoding, flags string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return "", "", "", "", fmt.Errorf("expected at least 4 fields, got %d", len(fields))
	}
	mnemonic = fields[0]
	operands = fields[1]
	flags = fields[len(fields)-1]
	encoding = strings.Join(fields[2:len(fields)-1], " ")
	return mnemonic, operands, encoding, flags, nil
}
