package filter

import (
	"strconv"
	"strings"

	"github.com/calvinalkan/imag/pkg/entry"
)

// parser is a recursive-descent parser over the token list:
//
//	expr      := and_expr ("or" and_expr)*
//	and_expr  := unary ("and" unary)*
//	unary     := "not" unary | "(" expr ")" | predicate
//	predicate := field_path [comparator literal]
//	literal   := string | number | "true" | "false"
type parser struct {
	query string
	toks  []token
	pos   int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}

	return t
}

func (p *parser) keyword(t token, word string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, word)
}

func (p *parser) errorf(t token, format string, args ...any) *SyntaxError {
	return syntaxError(p.query, t.pos, format, args...)
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.keyword(p.peek(), "or") {
		p.next()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = orNode{left, right}
	}

	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.keyword(p.peek(), "and") {
		p.next()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = andNode{left, right}
	}

	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	t := p.peek()

	switch {
	case p.keyword(t, "not"):
		p.next()

		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return notNode{inner}, nil
	case t.kind == tokLParen:
		p.next()

		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		closing := p.next()
		if closing.kind != tokRParen {
			return nil, p.errorf(closing, `expected ")", got %s`, closing.describe())
		}

		return inner, nil
	default:
		return p.parsePredicate()
	}
}

func (p *parser) parsePredicate() (node, error) {
	t := p.next()

	if t.kind != tokIdent || isReserved(t.text) {
		return nil, p.errorf(t, "expected field path, got %s", t.describe())
	}

	err := entry.ValidatePath(t.text)
	if err != nil {
		return nil, p.errorf(t, "%v", err)
	}

	if p.peek().kind != tokOp {
		return existsNode{path: t.text}, nil
	}

	op := p.next()

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	return cmpNode{path: t.text, op: op.text, lit: lit}, nil
}

func (p *parser) parseLiteral() (entry.Value, error) {
	t := p.next()

	switch {
	case t.kind == tokString:
		return entry.String(t.text), nil
	case t.kind == tokNumber:
		return parseNumber(p, t)
	case p.keyword(t, "true"):
		return entry.Bool(true), nil
	case p.keyword(t, "false"):
		return entry.Bool(false), nil
	default:
		return entry.Value{}, p.errorf(t, "expected literal, got %s", t.describe())
	}
}

func parseNumber(p *parser, t token) (entry.Value, error) {
	text := strings.ReplaceAll(t.text, "_", "")

	if !strings.ContainsAny(text, ".eE") {
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return entry.Value{}, p.errorf(t, "invalid integer %q", t.text)
		}

		return entry.Int(i), nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return entry.Value{}, p.errorf(t, "invalid number %q", t.text)
	}

	return entry.Float(f), nil
}

func isReserved(word string) bool {
	switch strings.ToLower(word) {
	case "and", "or", "not", "true", "false":
		return true
	}

	return false
}
