package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// ErrDirSync indicates the parent directory could not be synced after the
// replace step.
//
// When returned, the new file is in place but durability is not guaranteed.
// Callers can detect this with errors.Is(err, ErrDirSync).
var ErrDirSync = errors.New("dir sync")

// TempPrefix is the leading character of every temp file the writer creates.
// Directory walks that skip dot-names never observe half-written files.
const TempPrefix = "."

// AtomicWriter replaces files whole: readers observe either the old bytes or
// the new bytes, never a mix.
type AtomicWriter struct {
	fs      FS
	syncDir bool
	perm    os.FileMode
}

// NewAtomicWriter creates an AtomicWriter on top of fs with mode 0o644 and
// directory syncing enabled. Panics if fs is nil.
func NewAtomicWriter(fs FS) *AtomicWriter {
	if fs == nil {
		panic("fs is nil")
	}

	return &AtomicWriter{fs: fs, syncDir: true, perm: 0o644}
}

// WithoutDirSync returns a copy of w that skips the parent directory fsync.
func (w *AtomicWriter) WithoutDirSync() *AtomicWriter {
	cp := *w
	cp.syncDir = false

	return &cp
}

// WriteFile writes data to path. See [AtomicWriter.Write].
func (w *AtomicWriter) WriteFile(path string, data []byte) error {
	return w.Write(path, bytes.NewReader(data))
}

// Write streams r into a hidden temp file next to path, syncs it, replaces
// path with it, then syncs the parent directory.
//
// On any failure before the replace the temp file is removed and path is
// left untouched. If only the directory sync fails, the returned error
// satisfies errors.Is(err, ErrDirSync).
func (w *AtomicWriter) Write(path string, r io.Reader) error {
	if r == nil {
		panic("reader is nil")
	}

	dir, base := filepath.Split(path)
	if base == "" || base == "." || strings.ContainsRune(base, os.PathSeparator) {
		return fmt.Errorf("invalid path %q", path)
	}

	if dir == "" {
		dir = "."
	}

	dir = filepath.Clean(dir)

	tmp, tmpPath, err := w.createTemp(dir, base)
	if err != nil {
		return err
	}

	discard := func() error {
		return errors.Join(closeFile("temp file", tmpPath, tmp), w.removeTemp(tmpPath))
	}

	err = tmp.Chmod(w.perm)
	if err != nil {
		return errors.Join(fmt.Errorf("chmod temp file %q: %w", tmpPath, err), discard())
	}

	_, err = io.Copy(tmp, r)
	if err != nil {
		return errors.Join(fmt.Errorf("write temp file %q: %w", tmpPath, err), discard())
	}

	err = tmp.Sync()
	if err != nil {
		return errors.Join(fmt.Errorf("sync temp file %q: %w", tmpPath, err), discard())
	}

	err = closeFile("temp file", tmpPath, tmp)
	if err != nil {
		return errors.Join(err, w.removeTemp(tmpPath))
	}

	err = w.fs.Rename(tmpPath, path)
	if err != nil {
		return errors.Join(fmt.Errorf("replace %q: %w", path, err), w.removeTemp(tmpPath))
	}

	if w.syncDir {
		return syncDir(w.fs, dir)
	}

	return nil
}

const maxTempAttempts = 10000

var tempCounter atomic.Uint64

func (w *AtomicWriter) createTemp(dir, base string) (File, string, error) {
	for range maxTempAttempts {
		seq := tempCounter.Add(1)
		path := filepath.Join(dir, fmt.Sprintf("%s%s.tmp-%d", TempPrefix, base, seq))

		file, err := w.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, w.perm)
		if err == nil {
			return file, path, nil
		}

		if os.IsExist(err) {
			continue
		}

		return nil, "", fmt.Errorf("create temp file: %w", err)
	}

	return nil, "", fmt.Errorf("exhausted temp file attempts in %q", dir)
}

func (w *AtomicWriter) removeTemp(path string) error {
	err := w.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file %q: %w", path, err)
	}

	return nil
}

func syncDir(fs FS, dir string) error {
	d, err := fs.Open(dir)
	if err != nil {
		return errors.Join(ErrDirSync, fmt.Errorf("open dir %q: %w", dir, err))
	}

	err = d.Sync()
	if err != nil {
		return errors.Join(ErrDirSync, fmt.Errorf("%q: %w", dir, err), closeFile("dir", dir, d))
	}

	return closeFile("dir", dir, d)
}

func closeFile(what, path string, f File) error {
	err := f.Close()
	if err != nil {
		return fmt.Errorf("close %s %q: %w", what, path, err)
	}

	return nil
}
