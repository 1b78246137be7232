package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/imag/pkg/entry"
	"github.com/calvinalkan/imag/pkg/filter"
	"github.com/calvinalkan/imag/pkg/fs"
	"github.com/calvinalkan/imag/pkg/storeid"
)

// Entries walks the store root and yields the identifier of every entry file
// in lexical order. Every call walks again and reflects the disk at that
// time.
//
// Dot-names (store internals and temp files) are skipped, as are files and
// directories that vanish during the walk. Other I/O errors are yielded with
// a zero ID and the walk continues.
func (s *Store) Entries() iter.Seq2[storeid.ID, error] {
	return func(yield func(storeid.ID, error) bool) {
		if s.isClosed() {
			yield(storeid.ID{}, withContext("entries", storeid.ID{}, ErrClosed))

			return
		}

		s.walk(s.root, func(path string, hidden bool) bool {
			if hidden {
				return true
			}

			id, err := s.idForPath(path)
			if err != nil {
				s.log.Warn().Err(err).Str("path", path).Msg("skipping unmappable file")

				return yield(storeid.ID{}, withContext("entries", storeid.ID{}, err))
			}

			return yield(id, nil)
		}, func(err error) bool {
			s.log.Warn().Err(err).Msg("walk error")

			return yield(storeid.ID{}, withContext("entries", storeid.ID{}, err))
		})
	}
}

// Select yields every entry whose header matches p, read from disk as last
// persisted. Entries checked out by a handle are read without acquiring
// them. A nil p matches every entry.
//
// Unparsable entries are yielded as errors rather than skipped. Cancelling
// ctx stops the iteration after yielding ctx.Err().
func (s *Store) Select(ctx context.Context, p *filter.Predicate) iter.Seq2[*entry.Entry, error] {
	return func(yield func(*entry.Entry, error) bool) {
		for id, err := range s.Entries() {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(nil, ctxErr)

				return
			}

			if err != nil {
				if !yield(nil, err) {
					return
				}

				continue
			}

			e, err := s.load(id)
			if errors.Is(err, ErrNotFound) {
				continue
			}

			if err != nil {
				if !yield(nil, withContext("select", id, err)) {
					return
				}

				continue
			}

			if p.Match(e.Header()) && !yield(e, nil) {
				return
			}
		}
	}
}

// Problem is one finding of [Store.Verify].
type Problem struct {
	// ID is the affected entry, zero for problems not tied to an entry.
	ID storeid.ID

	// Path is the absolute file path.
	Path string

	Err error
}

// Report is the result of [Store.Verify].
type Report struct {
	// Checked is the number of entry files inspected.
	Checked int

	// Problems lists entries that failed to load.
	Problems []Problem

	// StaleTemps lists leftover temp files from interrupted writes.
	StaleTemps []string
}

// OK reports whether verification found nothing wrong.
func (r Report) OK() bool {
	return len(r.Problems) == 0 && len(r.StaleTemps) == 0
}

// Verify loads every entry and reports the ones that do not parse, plus
// temp files left behind by interrupted writes. It returns an error only
// when ctx is cancelled or the store is closed.
func (s *Store) Verify(ctx context.Context) (Report, error) {
	var report Report

	if s.isClosed() {
		return report, withContext("verify", storeid.ID{}, ErrClosed)
	}

	s.walk(s.root, func(path string, hidden bool) bool {
		if ctx.Err() != nil {
			return false
		}

		if hidden {
			if isTempName(filepath.Base(path)) {
				report.StaleTemps = append(report.StaleTemps, path)
			}

			return true
		}

		report.Checked++

		id, err := s.idForPath(path)
		if err != nil {
			report.Problems = append(report.Problems, Problem{Path: path, Err: err})

			return true
		}

		_, err = s.load(id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			report.Problems = append(report.Problems, Problem{ID: id, Path: path, Err: err})
		}

		return true
	}, func(err error) bool {
		report.Problems = append(report.Problems, Problem{Err: err})

		return true
	})

	if err := ctx.Err(); err != nil {
		return report, withContext("verify", storeid.ID{}, err)
	}

	s.metrics.observe("verify", nil)
	s.log.Debug().Int("checked", report.Checked).Int("problems", len(report.Problems)).Msg("verify finished")

	return report, nil
}

// walk visits regular files below dir in lexical order. Hidden names are
// reported with hidden=true and their directories are not descended. Stops
// when a callback returns false; the return value reports whether to go on.
func (s *Store) walk(dir string, file func(path string, hidden bool) bool, fail func(error) bool) bool {
	entries, err := s.fs.ReadDir(dir)
	if os.IsNotExist(err) && dir != s.root {
		return true
	}

	if err != nil {
		return fail(fmt.Errorf("read dir %q: %w", dir, err))
	}

	for _, de := range entries {
		path := filepath.Join(dir, de.Name())
		hidden := strings.HasPrefix(de.Name(), ".")

		switch {
		case de.IsDir():
			if hidden {
				continue
			}

			if !s.walk(path, file, fail) {
				return false
			}
		case de.Type().IsRegular():
			if !file(path, hidden) {
				return false
			}
		}
	}

	return true
}

// idForPath maps a file below the root to its identifier. Files whose names
// normalize to a different path are not addressable and are rejected.
func (s *Store) idForPath(path string) (storeid.ID, error) {
	id, err := storeid.FromFilePath(s.root, path)
	if err != nil {
		return storeid.ID{}, err
	}

	if id.ToPath(s.root) != path {
		return storeid.ID{}, fmt.Errorf("file %q does not map back to an identifier", path)
	}

	return id, nil
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

func isTempName(name string) bool {
	return strings.HasPrefix(name, fs.TempPrefix) && strings.Contains(name, ".tmp-")
}
