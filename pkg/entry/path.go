package entry

import (
	"fmt"
	"strconv"
	"strings"
)

// segment is one step of a field path: a table key or a list index.
type segment struct {
	key   string
	index int
	isIdx bool
}

func (s segment) String() string {
	if s.isIdx {
		return "[" + strconv.Itoa(s.index) + "]"
	}

	return s.key
}

// parsePath splits a dotted field path such as "note.name" or "tags.[0]".
func parsePath(path string) ([]segment, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidFieldPath)
	}

	parts := strings.Split(path, ".")
	segs := make([]segment, 0, len(parts))

	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("%w %q: empty segment", ErrInvalidFieldPath, path)
		}

		if !strings.HasPrefix(part, "[") {
			if strings.ContainsAny(part, "[]") {
				return nil, fmt.Errorf("%w %q: stray bracket in %q", ErrInvalidFieldPath, path, part)
			}

			segs = append(segs, segment{key: part})

			continue
		}

		if !strings.HasSuffix(part, "]") {
			return nil, fmt.Errorf("%w %q: unterminated index %q", ErrInvalidFieldPath, path, part)
		}

		n, err := strconv.Atoi(part[1 : len(part)-1])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w %q: bad index %q", ErrInvalidFieldPath, path, part)
		}

		segs = append(segs, segment{index: n, isIdx: true})
	}

	return segs, nil
}

// joinPath renders segs back to dotted form; used for error context.
func joinPath(segs []segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.String()
	}

	return strings.Join(parts, ".")
}

// ValidatePath reports whether path is a well-formed field path. Errors wrap
// [ErrInvalidFieldPath].
func ValidatePath(path string) error {
	_, err := parsePath(path)

	return err
}
