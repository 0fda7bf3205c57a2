package cliscan

import (
	"fmt"

	"github.com/nasmgo/core/internal/collab"
	"github.com/nasmgo/core/internal/token"
)

// Evaluator is a minimal collab.Evaluator: it resolves +/- chains of
// numeric literals and registers (with an optional trailing "* N" scale),
// and treats any other identifier as an unresolved symbol reference
// (ExprUnknown) — full expression evaluation (parenthesised expressions,
// arithmetic operators beyond +/-, the real symbol table) is out of this
// module's scope, per the Evaluator contract.
type Evaluator struct{}

func (Evaluator) Evaluate(s collab.Scanner, flags collab.OpFlagsSink, hints *collab.Hints) ([]collab.ExprTerm, error) {
	var terms []collab.ExprTerm
	sign := int64(1)
	first := true

	for {
		tok := s.Next()
		if isStopToken(tok) {
			s.Pushback(tok)
			break
		}

		switch {
		case tok.Punct('+'):
			sign = 1
			continue
		case tok.Punct('-'):
			sign = -1
			continue
		case tok.Kind == token.KindNumber:
			terms = append(terms, collab.ExprTerm{Type: collab.ExprSimple, Value: sign * tok.IntPayload})
			sign = 1
		case tok.Kind == token.KindRegister:
			coeff := sign
			if next := s.Next(); next.Punct('*') {
				scaleTok := s.Next()
				if scaleTok.Kind == token.KindNumber {
					coeff *= scaleTok.IntPayload
				} else {
					s.Pushback(scaleTok)
					s.Pushback(next)
				}
			} else {
				s.Pushback(next)
			}
			terms = append(terms, collab.ExprTerm{Type: collab.ExprRegStart, Value: coeff, Reg: tok.Text})
			sign = 1
		case tok.Kind == token.KindIdentifier:
			flags.SetUnknown()
			terms = append(terms, collab.ExprTerm{Type: collab.ExprUnknown, Reg: tok.Text})
			sign = 1
		default:
			return terms, fmt.Errorf("cliscan: unexpected token %q in expression", tok.Text)
		}
		first = false
	}

	if first {
		return nil, fmt.Errorf("cliscan: empty expression")
	}
	terms = append(terms, collab.ExprTerm{Type: collab.ExprEnd})
	return terms, nil
}

// isStopToken reports whether tok ends an expression without being
// consumed by it — the same boundary the line parser's own operand loop
// and decorator/prefix phases rely on.
func isStopToken(tok token.Token) bool {
	switch tok.Kind {
	case token.KindEOS, token.KindOpmask, token.KindDecorator,
		token.KindPrefix, token.KindInstruction, token.KindTimes, token.KindSpecial:
		return true
	}
	return tok.Punct(',') || tok.Punct(']') || tok.Punct(':')
}
