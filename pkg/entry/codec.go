package entry

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// decodeHeader parses a TOML document into a header. firstLine is the file
// line the document starts on, so error positions point into the file.
func decodeHeader(doc []byte, firstLine int) (*Header, int, error) {
	var raw map[string]any

	err := toml.Unmarshal(doc, &raw)
	if err != nil {
		line := 0

		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, _ := decErr.Position()
			line = firstLine + row - 1
		}

		return nil, line, fmt.Errorf("%w: %w", ErrHeaderSyntax, err)
	}

	root, err := FromNative(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrHeaderSyntax, err)
	}

	tbl, _ := root.AsTable()

	return NewHeaderFromTable(tbl), 0, nil
}

// encodeHeader renders h as TOML. Map keys are emitted in sorted order, so
// equal trees always produce equal bytes. An empty header encodes to nothing.
func encodeHeader(h *Header) ([]byte, error) {
	if h.Len() == 0 {
		return nil, nil
	}

	out, err := toml.Marshal(h.Map())
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	return out, nil
}
