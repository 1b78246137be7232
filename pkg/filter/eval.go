package filter

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/calvinalkan/imag/pkg/entry"
)

type node interface {
	eval(h Reader) bool
	String() string
}

type andNode struct{ left, right node }

func (n andNode) eval(h Reader) bool { return n.left.eval(h) && n.right.eval(h) }
func (n andNode) String() string     { return "(" + n.left.String() + " and " + n.right.String() + ")" }

type orNode struct{ left, right node }

func (n orNode) eval(h Reader) bool { return n.left.eval(h) || n.right.eval(h) }
func (n orNode) String() string     { return "(" + n.left.String() + " or " + n.right.String() + ")" }

type notNode struct{ inner node }

func (n notNode) eval(h Reader) bool { return !n.inner.eval(h) }
func (n notNode) String() string     { return "not " + n.inner.String() }

// existsNode matches when the field is present and not boolean false.
type existsNode struct{ path string }

func (n existsNode) eval(h Reader) bool {
	v, ok := read(h, n.path)
	if !ok {
		return false
	}

	b, isBool := v.AsBool()

	return !isBool || b
}

func (n existsNode) String() string { return n.path }

type cmpNode struct {
	path string
	op   string
	lit  entry.Value
}

func (n cmpNode) eval(h Reader) bool {
	v, ok := read(h, n.path)
	if !ok {
		return false
	}

	c, ok := compare(v, n.lit)
	if !ok {
		return false
	}

	switch n.op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	}

	// Booleans are unordered.
	if v.Kind() == entry.KindBool {
		return false
	}

	switch n.op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}

	return false
}

func (n cmpNode) String() string {
	return n.path + " " + n.op + " " + literalString(n.lit)
}

func read(h Reader, path string) (entry.Value, bool) {
	if h == nil {
		return entry.Value{}, false
	}

	v, ok, err := h.Read(path)
	if err != nil || !ok {
		return entry.Value{}, false
	}

	return v, true
}

// compare orders a against b. ok is false when the kinds cannot be compared.
func compare(a, b entry.Value) (int, bool) {
	if ai, isInt := a.AsInt(); isInt {
		if bi, ok := b.AsInt(); ok {
			return cmp.Compare(ai, bi), true
		}
	}

	if af, ok := a.Number(); ok {
		bf, ok := b.Number()
		if !ok {
			return 0, false
		}

		return cmp.Compare(af, bf), true
	}

	if as, ok := a.AsString(); ok {
		bs, ok := b.AsString()
		if !ok {
			return 0, false
		}

		return strings.Compare(as, bs), true
	}

	if ab, ok := a.AsBool(); ok {
		bb, ok := b.AsBool()
		if !ok {
			return 0, false
		}

		if ab == bb {
			return 0, true
		}

		return 1, true
	}

	return 0, false
}

func literalString(v entry.Value) string {
	switch v.Kind() {
	case entry.KindString:
		s, _ := v.AsString()

		return strconv.Quote(s)
	case entry.KindInt:
		i, _ := v.AsInt()

		return strconv.FormatInt(i, 10)
	case entry.KindFloat:
		f, _ := v.AsFloat()

		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}

		return s
	case entry.KindBool:
		b, _ := v.AsBool()

		return strconv.FormatBool(b)
	default:
		return "<invalid>"
	}
}
