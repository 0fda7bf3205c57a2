package extop

import (
	"fmt"
	"strings"

	"github.com/nasmgo/core/internal/collab"
	"github.com/nasmgo/core/internal/token"
)

// Parser holds the collaborators the extended-operand grammar needs. It
// has no hidden state beyond what a single ParseList call touches — like
// the line parser, it is a pure function of its inputs plus diagnostic
// side effects.
type Parser struct {
	Scanner   collab.Scanner
	Evaluator collab.Evaluator
	Float     collab.FloatEncoder
	StrFn     collab.StringTransform
	Diags     collab.Diagnostics
}

// NewParser constructs a Parser from its collaborators.
func NewParser(s collab.Scanner, eval collab.Evaluator, float collab.FloatEncoder, strFn collab.StringTransform, diags collab.Diagnostics) *Parser {
	return &Parser{Scanner: s, Evaluator: eval, Float: float, StrFn: strFn, Diags: diags}
}

// dummyFlags is a throwaway collab.OpFlagsSink for extop's evaluator calls:
// extended-operand items do not carry an Operand to stash forward-ref /
// unknown flags into, so the parser inspects the returned term vector
// directly instead. An EXPR_UNKNOWN term leaves the node as a zero
// DB_NUMBER to be resolved later.
type dummyFlags struct{}

func (dummyFlags) SetForwardReference() {}
func (dummyFlags) SetUnknown()          {}
func (dummyFlags) SetRelative()         {}

// ParseList parses a comma-separated list of extended-operand items,
// terminated by end-of-statement or a closing ')' (the caller is
// responsible for having already consumed any opening '('). elem is the
// element size in bytes inherited from the enclosing DB-family directive
// or SIZE(...) wrapper.
func (p *Parser) ParseList(elem int) (*Node, error) {
	var head *Node
	for {
		tok := p.Scanner.Next()
		if tok.Kind == token.KindEOS || tok.Punct(')') {
			p.Scanner.Pushback(tok)
			break
		}
		p.Scanner.Pushback(tok)

		node, err := p.parseItem(elem)
		if err != nil {
			return head, err
		}
		if node != nil {
			head = Append(head, node)
		}

		next := p.Scanner.Next()
		if next.Punct(',') {
			continue
		}
		p.Scanner.Pushback(next)
		break
	}
	return Coalesce(head), nil
}

// parseItem dispatches on the lookahead token to implement the
// extended-operand grammar's production rules, in order.
func (p *Parser) parseItem(elem int) (*Node, error) {
	tok := p.Scanner.Next()

	switch {
	case tok.Kind == token.KindQMark:
		return &Node{Kind: DBReserve, Dup: 1, Elem: elem}, nil

	case tok.Punct('%'):
		return p.parseNested(elem, elem)

	case tok.Kind == token.KindSize:
		return p.parseNested(elem, int(tok.IntPayload))

	case tok.Kind == token.KindString:
		return &Node{Kind: DBString, Dup: 1, Elem: 1, Data: []byte(tok.Text)}, nil

	case tok.Kind == token.KindStringFunc:
		open := p.Scanner.Next()
		if !open.Punct('(') {
			return nil, fmt.Errorf("extop: expected '(' after string-transform function at %d:%d", tok.Line, tok.Column)
		}
		arg := p.Scanner.Next()
		if arg.Kind != token.KindString {
			return nil, fmt.Errorf("extop: string-transform function expects a string argument at %d:%d", arg.Line, arg.Column)
		}
		closeTok := p.Scanner.Next()
		if !closeTok.Punct(')') {
			return nil, fmt.Errorf("extop: expected ')' closing string-transform call at %d:%d", closeTok.Line, closeTok.Column)
		}
		data, err := p.StrFn.Transform(tok.Text, arg.Text)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: DBStringFree, Dup: 1, Elem: 1, Data: data}, nil

	case tok.Kind == token.KindFloat:
		return p.parseFloat(tok.Text, elem)

	case tok.Punct('+') || tok.Punct('-'):
		next := p.Scanner.Next()
		if next.Kind == token.KindFloat {
			lit := tok.Text + next.Text
			return p.parseFloat(lit, elem)
		}
		p.Scanner.Pushback(next)
		p.Scanner.Pushback(tok)
		return p.parseExpression(elem)

	default:
		p.Scanner.Pushback(tok)
		return p.parseExpression(elem)
	}
}

func (p *Parser) parseFloat(literal string, elem int) (*Node, error) {
	if !legalFloatWidth(elem) {
		return nil, fmt.Errorf("extop: %d is not a legal float width for %q", elem, literal)
	}
	buf, err := p.Float.Encode(literal, elem)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: DBFloat, Dup: 1, Elem: elem, Float: buf}, nil
}

func legalFloatWidth(elem int) bool {
	switch elem {
	case 4, 8, 10, 16:
		return true
	default:
		return false
	}
}

// parseNested parses a `%(...)` or `SIZE(...)` sub-expression, consuming
// the opening '(' itself.
func (p *Parser) parseNested(outerElem, childElem int) (*Node, error) {
	open := p.Scanner.Next()
	if !open.Punct('(') {
		return nil, fmt.Errorf("extop: expected '(' opening nested sub-expression at %d:%d", open.Line, open.Column)
	}

	children, err := p.ParseList(childElem)
	if err != nil {
		return nil, err
	}

	closeTok := p.Scanner.Next()
	if !closeTok.Punct(')') {
		return nil, fmt.Errorf("extop: expected ')' closing nested sub-expression at %d:%d", closeTok.Line, closeTok.Column)
	}

	node := &Node{Kind: ExtOpKind, Dup: 1, Elem: outerElem, Children: children}
	return Flatten(node), nil
}

// parseExpression evaluates a general expression via the external
// Evaluator, then decides between the DUP form and the plain DB_NUMBER
// reduction.
func (p *Parser) parseExpression(elem int) (*Node, error) {
	start := p.Scanner.Next()
	p.Scanner.Pushback(start)
	terms, err := p.Evaluator.Evaluate(p.Scanner, dummyFlags{}, &collab.Hints{Base: -1})
	if err != nil {
		return nil, err
	}

	if p.isDupFollowing() {
		dupTok := p.Scanner.Next() // consume "dup"
		count, simple := simpleNonNegative(terms)
		if !simple {
			return nil, fmt.Errorf("extop: DUP count must be a simple non-negative expression at %d:%d", dupTok.Line, dupTok.Column)
		}
		open := p.Scanner.Next()
		if !open.Punct('(') {
			return nil, fmt.Errorf("extop: expected '(' after DUP at %d:%d", open.Line, open.Column)
		}
		children, err := p.ParseList(elem)
		if err != nil {
			return nil, err
		}
		closeTok := p.Scanner.Next()
		if !closeTok.Punct(')') {
			return nil, fmt.Errorf("extop: expected ')' closing DUP sub-list at %d:%d", closeTok.Line, closeTok.Column)
		}
		node := &Node{Kind: ExtOpKind, Dup: int(count), Elem: elem, Children: children}
		return Flatten(node), nil
	}

	for _, term := range terms {
		isReg := term.Type >= collab.ExprRegStart && term.Type <= collab.ExprRegEnd
		badSeg := term.Type >= collab.ExprSegBase && term.Value != 1 && term.Value != -1
		if isReg || badSeg {
			p.Diags.Report(collab.SeverityError, start.Line, start.Column, "data-declaration value is not a simple expression")
			break
		}
	}
	return reduceToDBNumber(terms, elem), nil
}

// isDupFollowing peeks the next token to see whether it is the DUP
// keyword, without permanently consuming it.
func (p *Parser) isDupFollowing() bool {
	tok := p.Scanner.Next()
	isDup := tok.Kind == token.KindIdentifier && strings.EqualFold(tok.Text, "dup")
	p.Scanner.Pushback(tok)
	return isDup
}

func simpleNonNegative(terms []collab.ExprTerm) (int64, bool) {
	var total int64
	for _, term := range terms {
		switch term.Type {
		case collab.ExprSimple:
			total += term.Value
		case collab.ExprEnd:
			// terminator, ignore
		default:
			return 0, false
		}
	}
	return total, total >= 0
}

// reduceToDBNumber walks the expression vector accumulating simple terms
// into Offset, accepting one WRT term, one segment-base term with
// coefficient 1, and one "-$" self-relative marker. Any register presence
// or unrepresentable term makes the node non-simple, which parseExpression
// reports as an error through the diagnostic sink rather than failing the
// whole parse (best-effort recovery).
func reduceToDBNumber(terms []collab.ExprTerm, elem int) *Node {
	n := NewNumber(1, elem)
	for _, term := range terms {
		switch {
		case term.Type == collab.ExprSimple:
			n.Offset += term.Value
		case term.Type == collab.ExprUnknown:
			n.Unknown = true
		case term.Type == collab.ExprWRT:
			n.WRT = int(term.Value)
		case term.Type >= collab.ExprRegStart && term.Type <= collab.ExprRegEnd:
			n.Unknown = true // register presence makes the node non-simple
		case term.Type >= collab.ExprSegBase:
			offsetFromBase := term.Type - collab.ExprSegBase
			if term.Value == 1 {
				n.Segment = int(offsetFromBase)
			} else if term.Value == -1 {
				n.Relative = true
			} else {
				n.Unknown = true
			}
		}
	}
	return n
}
