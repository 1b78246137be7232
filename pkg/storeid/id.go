// Package storeid maps logical entry identifiers to paths below a store root.
//
// An [ID] is a normalized, slash-separated relative path such as
// "diary/2024/01/05" or "habit/instance/walk". Its leading segments name the
// collection the entry belongs to. IDs are validated once, in [FromPath], and
// are immutable afterwards: every function that accepts an ID can rely on it
// never escaping the root it is joined with.
//
// Normalization includes case folding, so "Notes/A" and "notes/a" are the
// same ID. The folded path is used both for comparison and on disk: an ID
// maps to exactly one file, and a file whose name is not already in
// normalized form maps to no ID at all.
package storeid

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Separator separates the segments of an [ID].
const Separator = "/"

// ErrMalformed is wrapped by every [PathError].
var ErrMalformed = errors.New("malformed identifier")

// PathError reports why a raw identifier was rejected.
//
// Use errors.Is(err, ErrMalformed) to detect it, or [errors.As] to get the
// raw input and the reason.
type PathError struct {
	Raw    string
	Reason string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformed, e.Raw, e.Reason)
}

func (e *PathError) Unwrap() error {
	return ErrMalformed
}

func malformed(raw, reason string) *PathError {
	return &PathError{Raw: raw, Reason: reason}
}

// ID identifies one entry. The zero value is invalid; see [ID.Validate].
type ID struct {
	path string
}

// FromPath validates and normalizes raw into an ID.
//
// Backslashes become slashes, repeated slashes collapse, "." segments and a
// trailing slash are dropped, and the result is case-folded and
// NFC-normalized. FromPath
// rejects empty input, invalid UTF-8, NUL bytes, absolute paths (including
// Windows volume and UNC prefixes), ".." segments and segments starting with
// a dot.
func FromPath(raw string) (ID, error) {
	if strings.TrimSpace(raw) == "" {
		return ID{}, malformed(raw, "empty")
	}

	if !utf8.ValidString(raw) {
		return ID{}, malformed(raw, "invalid utf-8")
	}

	if strings.IndexByte(raw, 0) >= 0 {
		return ID{}, malformed(raw, "contains NUL byte")
	}

	p := strings.ReplaceAll(raw, `\`, Separator)

	if strings.HasPrefix(p, Separator) {
		return ID{}, malformed(raw, "absolute path")
	}

	if hasVolume(p) {
		return ID{}, malformed(raw, "volume prefix")
	}

	parts := strings.Split(p, Separator)
	segs := parts[:0]

	for _, seg := range parts {
		switch {
		case seg == "" || seg == ".":
			continue
		case seg == "..":
			return ID{}, malformed(raw, "escapes store root")
		case strings.HasPrefix(seg, "."):
			return ID{}, malformed(raw, fmt.Sprintf("segment %q is hidden", seg))
		case strings.TrimSpace(seg) == "":
			return ID{}, malformed(raw, "blank segment")
		}

		segs = append(segs, seg)
	}

	if len(segs) == 0 {
		return ID{}, malformed(raw, "no segments")
	}

	return ID{path: canonical(strings.Join(segs, Separator))}, nil
}

// MustFromPath is like [FromPath] but panics on error.
// Intended for constants and tests.
func MustFromPath(raw string) ID {
	id, err := FromPath(raw)
	if err != nil {
		panic(err)
	}

	return id
}

// FromFilePath converts a filesystem path below root back into an ID.
// It is the inverse of [ID.ToPath]: a path whose name is not in normalized
// form (for example "Notes/A") is rejected, since no ID maps to it.
func FromFilePath(root, path string) (ID, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ID{}, malformed(path, "not below store root")
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ID{}, malformed(path, "not below store root")
	}

	slashed := filepath.ToSlash(rel)

	id, err := FromPath(slashed)
	if err != nil {
		return ID{}, err
	}

	if id.path != slashed {
		return ID{}, malformed(path, "file name is not normalized")
	}

	return id, nil
}

// NewUnique returns an ID inside collection whose last segment is a fresh
// time-ordered UUID.
func NewUnique(collection ...string) (ID, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return ID{}, fmt.Errorf("generate id: %w", err)
	}

	return FromPath(strings.Join(append(slices.Clone(collection), u.String()), Separator))
}

// String returns the normalized path.
func (id ID) String() string {
	return id.path
}

// Key returns the registry key. It equals [ID.String].
func (id ID) Key() string {
	return id.path
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id.path == ""
}

// Validate returns a [PathError] if id is the zero value.
func (id ID) Validate() error {
	if id.IsZero() {
		return malformed("", "zero identifier")
	}

	return nil
}

// Equal reports whether id and other name the same entry.
func (id ID) Equal(other ID) bool {
	return id.path == other.path
}

// Segments returns the slash-separated parts of id.
func (id ID) Segments() []string {
	if id.IsZero() {
		return nil
	}

	return strings.Split(id.path, Separator)
}

// Base returns the last segment.
func (id ID) Base() string {
	i := strings.LastIndex(id.path, Separator)

	return id.path[i+1:]
}

// ToPath joins id onto root using the OS separator.
func (id ID) ToPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(id.path))
}

// InCollection reports whether the leading segments of id equal names, and
// id has at least one segment more. Each name may itself contain slashes, so
// InCollection("habit/instance") and InCollection("habit", "instance") are
// the same test. Names are normalized like IDs. With no names every ID
// matches.
func (id ID) InCollection(names ...string) bool {
	if id.IsZero() {
		return false
	}

	var want []string

	for _, name := range names {
		for seg := range strings.SplitSeq(strings.ReplaceAll(name, `\`, Separator), Separator) {
			if seg != "" {
				want = append(want, canonical(seg))
			}
		}
	}

	have := strings.Split(id.path, Separator)
	if len(have) <= len(want) {
		return false
	}

	for i, seg := range want {
		if have[i] != seg {
			return false
		}
	}

	return true
}

// Compare orders IDs by their normalized path. It is suitable for
// [slices.SortFunc].
func Compare(a, b ID) int {
	return strings.Compare(a.path, b.path)
}

func hasVolume(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}

	c := p[0]

	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// cases.Caser is stateful and must not be shared across goroutines.
func canonical(s string) string {
	return norm.NFC.String(cases.Fold().String(norm.NFC.String(s)))
}
