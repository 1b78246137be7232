package filter

import (
	"errors"
	"fmt"
)

// ErrSyntax is wrapped by every [SyntaxError].
var ErrSyntax = errors.New("filter syntax error")

// SyntaxError reports a malformed query. Pos is the byte offset of the
// offending token in Query.
type SyntaxError struct {
	Query string
	Pos   int
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d in query: %s", ErrSyntax, e.Msg, e.Pos, e.Query)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

func syntaxError(query string, pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Query: query, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
