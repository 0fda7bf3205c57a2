// Package cliscan is a small, demonstration-grade concrete implementation
// of the collab.Scanner/Evaluator/LabelBinder/Diagnostics/MnemonicLookup
// collaborator interfaces, built so cmd/cli's parse subcommand has
// something concrete to drive internal/lineparser with. Full tokenizer and
// expression-evaluator internals are explicitly out of this module's
// scope (they are the Scanner/Evaluator contracts' job to hide) — this
// package covers the common cases a single-line CLI invocation needs and
// is not a substitute for a production NASM-grade front end.
package cliscan

import (
	"strconv"
	"strings"

	"github.com/nasmgo/core/internal/regtable"
	"github.com/nasmgo/core/internal/token"
)

var prefixKeywords = map[string]bool{
	"lock": true, "rep": true, "repe": true, "repz": true, "repne": true, "repnz": true,
	"o16": true, "o32": true, "o64": true, "a16": true, "a32": true, "a64": true,
	"wait": true, "rex": true,
}

var sizeKeywords = map[string]bool{
	"byte": true, "word": true, "dword": true, "qword": true,
	"tword": true, "oword": true, "yword": true, "zword": true,
}

var roundingDecorators = map[string]bool{
	"rn": true, "rd": true, "ru": true, "rz": true, "sae": true,
}

// Scanner lexes one source line into the token stream internal/lineparser
// expects. Mnemonics classifies which identifiers are opcode mnemonics
// (KindInstruction) rather than plain identifiers — the same distinction
// the real stdscan makes by consulting the assembler's symbol/opcode
// tables as it tokenizes.
type Scanner struct {
	src       []byte
	pos       int
	line      int
	mnemonics map[string]bool

	pushed    []token.Token
}

// New returns a Scanner over line's text, tagged with lineNo for every
// token it produces. mnemonics classifies KindInstruction tokens; a nil
// map means no identifier is ever classified as an instruction.
func New(line string, lineNo int, mnemonics map[string]bool) *Scanner {
	return &Scanner{src: []byte(line), line: lineNo, mnemonics: mnemonics}
}

func (s *Scanner) Mark() int { return s.pos }

func (s *Scanner) Reset(pos int) {
	s.pos = pos
	s.pushed = nil
}

func (s *Scanner) Pushback(tok token.Token) {
	s.pushed = append(s.pushed, tok)
}

// Next returns the next token, consulting the pushback stack first.
func (s *Scanner) Next() token.Token {
	if n := len(s.pushed); n > 0 {
		tok := s.pushed[n-1]
		s.pushed = s.pushed[:n-1]
		return tok
	}
	return s.lex()
}

func (s *Scanner) lex() token.Token {
	s.skipSpace()
	col := s.pos + 1
	if s.pos >= len(s.src) || s.src[s.pos] == ';' {
		return token.Token{Kind: token.KindEOS, Line: s.line, Column: col}
	}

	c := s.src[s.pos]
	switch {
	case c == ',' || c == '[' || c == ']' || c == ':' || c == '+' || c == '-' || c == '*' || c == '&':
		s.pos++
		return token.Token{Kind: token.KindPunct, Text: string(c), Line: s.line, Column: col}

	case c == '?':
		s.pos++
		return token.Token{Kind: token.KindQMark, Text: "?", Line: s.line, Column: col}

	case c == '{':
		return s.lexBraced(col)

	case c == '\'' || c == '"':
		return s.lexString(c, col)

	case isDigit(c):
		return s.lexNumber(col)

	case isIdentStart(c):
		return s.lexIdent(col)

	default:
		s.pos++
		return token.Token{Kind: token.KindIllegal, Text: string(c), Line: s.line, Column: col}
	}
}

func (s *Scanner) skipSpace() {
	for s.pos < len(s.src) && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '.' || c == '$' || c == '%' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func (s *Scanner) lexIdent(col int) token.Token {
	start := s.pos
	for s.pos < len(s.src) && isIdentCont(s.src[s.pos]) {
		s.pos++
	}
	text := string(s.src[start:s.pos])
	lower := strings.ToLower(text)

	switch {
	case lower == "times":
		return token.Token{Kind: token.KindTimes, Text: text, Line: s.line, Column: col}
	case lower == "ptr":
		return token.Token{Kind: token.KindMasmPtr, Text: text, Line: s.line, Column: col}
	case lower == "flat":
		return token.Token{Kind: token.KindMasmFlat, Text: text, Line: s.line, Column: col}
	case prefixKeywords[lower]:
		return token.Token{Kind: token.KindPrefix, Text: text, Line: s.line, Column: col}
	case sizeKeywords[lower]:
		return token.Token{Kind: token.KindSize, Text: text, Line: s.line, Column: col}
	}

	if info, ok := regtable.Lookup(text); ok {
		return token.Token{
			Kind: token.KindRegister, Text: text,
			IntPayload: int64(info.Encoding), AuxPayload: int64(info.Class),
			Line: s.line, Column: col,
		}
	}

	if s.mnemonics != nil && s.mnemonics[strings.ToUpper(text)] {
		return token.Token{Kind: token.KindInstruction, Text: text, Line: s.line, Column: col}
	}

	return token.Token{Kind: token.KindIdentifier, Text: text, Line: s.line, Column: col}
}

func (s *Scanner) lexNumber(col int) token.Token {
	start := s.pos
	base := 10
	if s.pos+1 < len(s.src) && s.src[s.pos] == '0' && (s.src[s.pos+1] == 'x' || s.src[s.pos+1] == 'X') {
		s.pos += 2
		base = 16
		for s.pos < len(s.src) && isHex(s.src[s.pos]) {
			s.pos++
		}
		if s.pos < len(s.src) && (s.src[s.pos] == 'h' || s.src[s.pos] == 'H') {
			s.pos++
		}
	} else {
		for s.pos < len(s.src) && isIdentCont(s.src[s.pos]) {
			s.pos++
		}
		if s.pos > start && (s.src[s.pos-1] == 'h' || s.src[s.pos-1] == 'H') {
			base = 16
		}
	}
	text := string(s.src[start:s.pos])
	digits := text
	if base == 16 {
		digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0x"), "0X")
		digits = strings.TrimSuffix(strings.TrimSuffix(digits, "h"), "H")
	}
	v, _ := strconv.ParseInt(digits, base, 64)
	return token.Token{Kind: token.KindNumber, Text: text, IntPayload: v, Line: s.line, Column: col}
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (s *Scanner) lexString(quote byte, col int) token.Token {
	s.pos++
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] != quote {
		s.pos++
	}
	text := string(s.src[start:s.pos])
	if s.pos < len(s.src) {
		s.pos++
	}
	return token.Token{Kind: token.KindString, Text: text, Line: s.line, Column: col}
}

// lexBraced handles `{...}` decorator/opmask/broadcast syntax and naked
// braced-constant immediates, classifying the wrapped content and tagging
// it with FlagBraceWrapped.
func (s *Scanner) lexBraced(col int) token.Token {
	s.pos++ // '{'
	start := s.pos
	for s.pos < len(s.src) && s.src[s.pos] != '}' {
		s.pos++
	}
	inner := string(s.src[start:s.pos])
	if s.pos < len(s.src) {
		s.pos++ // '}'
	}

	lower := strings.ToLower(strings.TrimSpace(inner))
	switch {
	case lower == "evex" || lower == "vex3" || lower == "vex2":
		return token.Token{Kind: token.KindSpecial, Text: lower, Flags: token.FlagBraceWrapped, Line: s.line, Column: col}
	case len(lower) >= 2 && lower[0] == 'k' && isDigit(lower[1]):
		n, _ := strconv.Atoi(lower[1:])
		return token.Token{Kind: token.KindOpmask, Text: inner, IntPayload: int64(n), Flags: token.FlagBraceWrapped, Line: s.line, Column: col}
	case lower == "z" || roundingDecorators[lower] || strings.HasPrefix(lower, "1to"):
		return token.Token{Kind: token.KindDecorator, Text: lower, Flags: token.FlagBraceWrapped, Line: s.line, Column: col}
	default:
		v, _ := strconv.ParseInt(strings.TrimSpace(inner), 0, 64)
		return token.Token{Kind: token.KindBraceConst, Text: inner, IntPayload: v, Flags: token.FlagBraceWrapped, Line: s.line, Column: col}
	}
}
