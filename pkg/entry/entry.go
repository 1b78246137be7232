// Package entry implements the in-memory form of one stored document and its
// on-disk encoding.
//
// An entry file is a TOML header between two delimiter lines followed by the
// raw content:
//
//	---
//	[note]
//	name = "groceries"
//	---
//	milk, eggs
//
// The opening delimiter must be the first line. The closing delimiter is the
// next line consisting of exactly "---". Everything after it is content and
// is kept byte for byte. An empty header ("---\n---\n") is legal.
//
// [Entry.Bytes] always writes the canonical form: sorted keys and go-toml's
// layout. Parsing canonical bytes and writing them again reproduces them
// exactly; hand-edited files are normalized on their first write.
package entry

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/calvinalkan/imag/pkg/storeid"
)

// Delimiter is the line that opens and closes the header block.
const Delimiter = "---"

// Entry is one document: a typed header plus free-form content.
type Entry struct {
	id      storeid.ID
	header  *Header
	content string
}

// New returns an empty entry for id.
func New(id storeid.ID) *Entry {
	return &Entry{id: id, header: NewHeader()}
}

// Parse decodes an entry file. Errors are [*ParseError] wrapping
// [ErrEncoding] or [ErrHeaderSyntax].
func Parse(id storeid.ID, data []byte) (*Entry, error) {
	if !utf8.Valid(data) {
		return nil, &ParseError{ID: id, Line: invalidUTF8Line(data), Err: ErrEncoding}
	}

	first, rest, _ := cutLine(data)
	if !isDelimiter(first) {
		return nil, &ParseError{ID: id, Line: 1, Err: syntaxErr("missing opening delimiter")}
	}

	var (
		doc     []byte
		content []byte
		closed  bool
		line    = 1
	)

	start := rest

	for len(rest) > 0 {
		var l []byte

		offset := len(start) - len(rest)
		l, rest, _ = cutLine(rest)
		line++

		if isDelimiter(l) {
			doc = start[:offset]
			content = rest
			closed = true

			break
		}
	}

	if !closed {
		return nil, &ParseError{ID: id, Line: line, Err: syntaxErr("missing closing delimiter")}
	}

	header, errLine, err := decodeHeader(doc, 2)
	if err != nil {
		return nil, &ParseError{ID: id, Line: errLine, Err: err}
	}

	return &Entry{id: id, header: header, content: string(content)}, nil
}

// ID returns the identifier the entry was created or parsed for.
func (e *Entry) ID() storeid.ID { return e.id }

// Header returns the mutable header.
func (e *Entry) Header() *Header { return e.header }

// Content returns the content text.
func (e *Entry) Content() string { return e.content }

// ContentMut returns a pointer to the content for in-place edits.
func (e *Entry) ContentMut() *string { return &e.content }

// SetContent replaces the content.
func (e *Entry) SetContent(s string) { e.content = s }

// WithID returns a shallow copy of e that carries id.
func (e *Entry) WithID(id storeid.ID) *Entry {
	cp := *e
	cp.id = id

	return &cp
}

// Bytes encodes e in the on-disk format. It fails with an error wrapping
// [ErrEncoding] when the content or a header string is not valid UTF-8,
// since [Parse] would reject the result.
func (e *Entry) Bytes() ([]byte, error) {
	doc, err := encodeHeader(e.header)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	buf.Grow(2*len(Delimiter) + 2 + len(doc) + len(e.content))
	buf.WriteString(Delimiter + "\n")
	buf.Write(doc)
	buf.WriteString(Delimiter + "\n")
	buf.WriteString(e.content)

	if !utf8.Valid(buf.Bytes()) {
		return nil, fmt.Errorf("encode entry %s: line %d: %w", e.id, invalidUTF8Line(buf.Bytes()), ErrEncoding)
	}

	return buf.Bytes(), nil
}

// Clone returns a deep copy of e.
func (e *Entry) Clone() *Entry {
	return &Entry{id: e.id, header: e.header.Clone(), content: e.content}
}

// Equal reports whether e and o have equal IDs, headers and content.
func (e *Entry) Equal(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}

	return e.id.Equal(o.id) && e.header.Equal(o.header.View()) && e.content == o.content
}

func syntaxErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrHeaderSyntax, msg)
}

// cutLine splits data after the first '\n'. The returned line excludes the
// newline. found is false when data has no newline.
func cutLine(data []byte) (line, rest []byte, found bool) {
	line, rest, found = bytes.Cut(data, []byte{'\n'})

	return line, rest, found
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimSuffix(line, []byte{'\r'})) == Delimiter
}

func invalidUTF8Line(data []byte) int {
	line := 1

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size <= 1 {
			return line
		}

		if r == '\n' {
			line++
		}

		data = data[size:]
	}

	return line
}
