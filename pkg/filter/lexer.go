package filter

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokOp
	tokString
	tokNumber
	tokIdent
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokLParen:
		return `"("`
	case tokRParen:
		return `")"`
	case tokOp:
		return "comparator"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	default:
		return "identifier"
	}
}

type token struct {
	kind tokenKind
	text string // raw source text; for strings the decoded value
	pos  int    // byte offset into the query
}

// describe renders the token for error messages.
func (t token) describe() string {
	if t.kind == tokEOF {
		return "end of input"
	}

	return strconv.Quote(t.text)
}

// lex splits the query into tokens, ending with a tokEOF.
func lex(query string) ([]token, error) {
	var toks []token

	i := 0
	for i < len(query) {
		r, size := utf8.DecodeRuneInString(query[i:])

		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case strings.ContainsRune("=!<>", r):
			op, err := lexOp(query, i)
			if err != nil {
				return nil, err
			}

			toks = append(toks, token{kind: tokOp, text: op, pos: i})
			i += len(op)
		case r == '"' || r == '\'':
			s, n, err := lexString(query, i)
			if err != nil {
				return nil, err
			}

			toks = append(toks, token{kind: tokString, text: s, pos: i})
			i += n
		case isDigit(r) || ((r == '-' || r == '+') && i+1 < len(query) && isDigit(rune(query[i+1]))):
			n := scanWhile(query, i+1, isNumberRune)
			toks = append(toks, token{kind: tokNumber, text: query[i:n], pos: i})
			i = n
		case isIdentStart(r):
			n := scanWhile(query, i+size, isIdentRune)
			toks = append(toks, token{kind: tokIdent, text: query[i:n], pos: i})
			i = n
		default:
			return nil, syntaxError(query, i, "unexpected character %q", r)
		}
	}

	return append(toks, token{kind: tokEOF, pos: len(query)}), nil
}

func lexOp(query string, i int) (string, error) {
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		if strings.HasPrefix(query[i:], op) {
			return op, nil
		}
	}

	if query[i] == '=' {
		return "", syntaxError(query, i, `single "=" is not a comparator, use "=="`)
	}

	return "", syntaxError(query, i, "unexpected character %q", query[i])
}

// lexString decodes a quoted literal starting at i and returns its value and
// source length. Double-quoted strings take Go escapes; single-quoted
// strings are raw.
func lexString(query string, i int) (string, int, error) {
	quote := query[i]

	j := i + 1
	for j < len(query) {
		switch query[j] {
		case '\\':
			if quote == '"' {
				j += 2

				continue
			}
		case quote:
			raw := query[i : j+1]
			if quote == '\'' {
				return raw[1 : len(raw)-1], len(raw), nil
			}

			s, err := strconv.Unquote(raw)
			if err != nil {
				return "", 0, syntaxError(query, i, "invalid string literal %s", raw)
			}

			return s, len(raw), nil
		}

		j++
	}

	return "", 0, syntaxError(query, i, "unterminated string literal")
}

func scanWhile(s string, i int, ok func(rune) bool) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !ok(r) {
			break
		}

		i += size
	}

	return i
}

func isDigit(r rune) bool { return '0' <= r && r <= '9' }

func isNumberRune(r rune) bool {
	return isDigit(r) || r == '.' || r == 'e' || r == 'E' || r == '+' || r == '-' || r == '_'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '['
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_-.[]", r)
}
