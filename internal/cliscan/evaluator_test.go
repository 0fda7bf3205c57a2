package cliscan

import (
	"testing"

	"github.com/nasmgo/core/internal/collab"
)

type discardFlags struct {
	unknown bool
}

func (d *discardFlags) SetForwardReference() {}
func (d *discardFlags) SetUnknown()          { d.unknown = true }
func (d *discardFlags) SetRelative()         {}

func TestEvaluator_NumericSumTerminatesAtComma(t *testing.T) {
	s := New("4 + 8, rax", 1, nil)
	var flags discardFlags
	var hints collab.Hints

	terms, err := Evaluator{}.Evaluate(s, &flags, &hints)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	want := []collab.ExprTerm{
		{Type: collab.ExprSimple, Value: 4},
		{Type: collab.ExprSimple, Value: 8},
		{Type: collab.ExprEnd},
	}
	if len(terms) != len(want) {
		t.Fatalf("got %d terms, want %d: %+v", len(terms), len(want), terms)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("term %d: got %+v, want %+v", i, terms[i], want[i])
		}
	}

	next := s.Next()
	if !next.Punct(',') {
		t.Fatalf("scanner position after Evaluate: got %+v, want comma", next)
	}
}

func TestEvaluator_ScaledRegister(t *testing.T) {
	s := New("rax * 4]", 1, nil)
	var flags discardFlags
	var hints collab.Hints

	terms, err := Evaluator{}.Evaluate(s, &flags, &hints)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(terms) != 2 || terms[0].Type != collab.ExprRegStart || terms[0].Value != 4 || terms[0].Reg != "rax" {
		t.Fatalf("got %+v, want a single scaled register term", terms)
	}
}

func TestEvaluator_UnknownIdentifierSetsFlag(t *testing.T) {
	s := New("some_label", 1, nil)
	var flags discardFlags
	var hints collab.Hints

	terms, err := Evaluator{}.Evaluate(s, &flags, &hints)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !flags.unknown {
		t.Fatal("expected SetUnknown to be called for an unresolved identifier")
	}
	if len(terms) != 2 || terms[0].Type != collab.ExprUnknown || terms[0].Reg != "some_label" {
		t.Fatalf("got %+v, want a single ExprUnknown term", terms)
	}
}

func TestEvaluator_EmptyExpressionErrors(t *testing.T) {
	s := New("]", 1, nil)
	var flags discardFlags
	var hints collab.Hints

	if _, err := (Evaluator{}).Evaluate(s, &flags, &hints); err == nil {
		t.Fatal("expected an error for an empty expression")
	}
}
