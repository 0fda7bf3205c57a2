package insndb

import (
	"strings"
	"testing"
)

func TestRead_BasicLines(t *testing.T) {
	src := `; comment line
MOV reg,reg [mr: 89 /r] 8086

; another comment
ADD reg,imm [mi: 81 /0 id] 386
`
	lines, directives, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(directives) != 0 {
		t.Fatalf("expected no directives, got %d", len(directives))
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Mnemonic != "MOV" || lines[0].Encoding != "[mr: 89 /r]" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Flags != "386" {
		t.Fatalf("unexpected flags: %q", lines[1].Flags)
	}
}

func TestRead_DirectiveLine(t *testing.T) {
	src := `;# pragma-style directive
MOV reg,reg [mr: 89 /r] 8086
`
	lines, directives, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(directives) != 1 || directives[0].Text != ";# pragma-style directive" {
		t.Fatalf("unexpected directives: %+v", directives)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 instruction line, got %d", len(lines))
	}
}

func TestRead_RawByteEncoding(t *testing.T) {
	src := `NOP void \x90 8086
`
	lines, _, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 1 || !lines[0].RawBytes {
		t.Fatalf("expected a raw-byte encoded line, got %+v", lines)
	}
}

func TestRead_TooFewFields(t *testing.T) {
	src := `MOV reg,reg
`
	_, _, err := Read(strings.NewReader(src))
	if err == nil {
		t.Fatal("expected an error for a line with fewer than 4 fields")
	}
}
