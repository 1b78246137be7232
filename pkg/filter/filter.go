// Package filter compiles and evaluates boolean queries over entry headers.
//
// A query combines comparisons with and, or, not and parentheses:
//
//	note.name == "groceries" and not (done == true or priority < 2)
//
// Keywords are case-insensitive. not binds tightest, then and, then or.
// Literals are double-quoted strings (Go escapes), single-quoted raw strings,
// integers, floats and the booleans true and false. A field path on its own
// is a presence test: it matches when the field exists and is not false.
//
// Evaluation is total. A missing field, a type mismatch or a comparison the
// kinds do not support yields false, never an error; != is no exception.
// Integers are promoted to float when compared with a float.
package filter

import (
	"github.com/calvinalkan/imag/pkg/entry"
)

// Reader is the header access a predicate needs. [*entry.Header] and
// [entry.View] implement it.
type Reader interface {
	Read(path string) (entry.Value, bool, error)
}

// Predicate is a compiled query. It is immutable and safe for concurrent use.
type Predicate struct {
	query string
	root  node
}

// Compile parses query. Errors are [*SyntaxError] carrying the query text.
func Compile(query string) (*Predicate, error) {
	toks, err := lex(query)
	if err != nil {
		return nil, err
	}

	p := &parser{query: query, toks: toks}

	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s after expression", t.describe())
	}

	return &Predicate{query: query, root: root}, nil
}

// MustCompile is like [Compile] but panics on error.
// Intended for constants and tests.
func MustCompile(query string) *Predicate {
	p, err := Compile(query)
	if err != nil {
		panic(err)
	}

	return p
}

// Match evaluates the predicate against a header. A nil predicate matches
// everything; a nil header matches nothing else.
func (p *Predicate) Match(h Reader) bool {
	if p == nil {
		return true
	}

	if h == nil {
		return false
	}

	return p.root.eval(h)
}

// Evaluate reports whether e's header satisfies p. A nil entry satisfies
// only the nil predicate.
func Evaluate(p *Predicate, e *entry.Entry) bool {
	if e == nil {
		return p == nil
	}

	return p.Match(e.Header())
}

// Query returns the source text p was compiled from.
func (p *Predicate) Query() string {
	return p.query
}

// String renders p in canonical, fully parenthesized form. Compiling the
// result yields an equivalent predicate.
func (p *Predicate) String() string {
	if p == nil {
		return "<all>"
	}

	return p.root.String()
}
