package entry

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/imag/pkg/storeid"
)

var (
	// ErrInvalidFieldPath indicates a malformed dotted field path.
	ErrInvalidFieldPath = errors.New("invalid field path")

	// ErrFieldMissing is returned by the Require* accessors when the field is
	// absent.
	ErrFieldMissing = errors.New("field missing")

	// ErrTypeMismatch is wrapped by every [TypeError].
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrIndexOutOfRange is returned by Insert when a list index is beyond
	// the end of the list. Appending at len(list) is allowed.
	ErrIndexOutOfRange = errors.New("list index out of range")

	// ErrEncoding indicates the entry file is not valid UTF-8.
	ErrEncoding = errors.New("entry is not valid utf-8")

	// ErrHeaderSyntax indicates missing delimiters or an invalid header.
	ErrHeaderSyntax = errors.New("invalid header")
)

// TypeError reports that the value at Path has kind Got where Want was
// required. Path is the prefix of the requested path that was inspected.
type TypeError struct {
	Path string
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("field %q: want %s, got %s", e.Path, e.Want, e.Got)
}

func (e *TypeError) Unwrap() error {
	return ErrTypeMismatch
}

// ParseError reports a failure to load an entry from its on-disk bytes.
//
// Line is 1-based within the file, or 0 when no position is known. Err wraps
// [ErrEncoding] or [ErrHeaderSyntax].
type ParseError struct {
	ID   storeid.ID
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	msg := "parse entry"
	if !e.ID.IsZero() {
		msg += " " + e.ID.String()
	}

	if e.Line > 0 {
		msg += fmt.Sprintf(": line %d", e.Line)
	}

	return msg + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
