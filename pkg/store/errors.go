package store

import (
	"errors"
	"strings"

	"github.com/calvinalkan/imag/pkg/storeid"
)

var (
	// ErrLocked indicates the identifier is checked out by another handle in
	// this process. Acquisition never waits.
	ErrLocked = errors.New("entry is locked")

	// ErrNotFound indicates no entry exists for the identifier.
	ErrNotFound = errors.New("entry not found")

	// ErrAlreadyExists indicates an entry already exists for the identifier.
	ErrAlreadyExists = errors.New("entry already exists")

	// ErrClosed indicates the store was closed.
	ErrClosed = errors.New("store closed")

	// ErrReleased indicates a handle was used after [Handle.Release].
	ErrReleased = errors.New("handle released")

	// ErrHandlesOutstanding is returned by [Store.Close] while handles are
	// still checked out.
	ErrHandlesOutstanding = errors.New("handles outstanding")
)

// Error is the uniform error type returned by Store and Handle operations.
//
// The underlying error message comes first, followed by context:
//
//	retrieve: entry is locked (id=notes/a)
//
// Use [errors.Is] to check for sentinel errors and [errors.As] to reach
// [*storeid.PathError] or [*entry.ParseError] causes.
type Error struct {
	// Op is the store operation that failed, e.g. "create".
	Op string

	// ID is the identifier the operation was called with. Zero when the
	// identifier itself was invalid.
	ID storeid.ID

	// Err is the underlying cause.
	Err error
}

// Error formats as "<op>: <cause> (id=X)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}

	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}

	if !e.ID.IsZero() {
		b.WriteString(" (id=")
		b.WriteString(e.ID.String())
		b.WriteString(")")
	}

	return b.String()
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// withContext attaches operation context at API boundaries and returns *Error.
// If err is already *Error, missing fields are filled in-place.
func withContext(op string, id storeid.ID, err error) error {
	if err == nil {
		return nil
	}

	existing := &Error{}
	if errors.As(err, &existing) {
		if existing.Op == "" {
			existing.Op = op
		}

		if existing.ID.IsZero() {
			existing.ID = id
		}

		return existing
	}

	return &Error{Op: op, ID: id, Err: err}
}
