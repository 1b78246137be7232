package fs

import (
	"os"

	"github.com/natefinch/atomic"
)

// Real is the [FS] backed by the host filesystem.
//
// Every method defers to [os] and returns its errors unchanged. The two
// exceptions are [Real.Exists], built on [os.Stat], and [Real.Rename], which
// goes through [atomic.ReplaceFile].
type Real struct{}

// NewReal returns a host filesystem.
func NewReal() *Real {
	return &Real{}
}

// Open calls [os.Open].
func (r *Real) Open(path string) (File, error) {
	return os.Open(path)
}

// OpenFile calls [os.OpenFile].
func (r *Real) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(path, flag, perm)
}

// ReadFile calls [os.ReadFile].
func (r *Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ReadDir calls [os.ReadDir]; entries come back sorted by name.
func (r *Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

// MkdirAll calls [os.MkdirAll].
func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Stat calls [os.Stat].
func (r *Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Exists reports (false, nil) for a missing path and surfaces any other
// stat failure.
func (r *Real) Exists(path string) (bool, error) {
	_, err := os.Stat(path)

	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

// Remove calls [os.Remove].
func (r *Real) Remove(path string) error {
	return os.Remove(path)
}

// Rename moves oldpath over newpath. On Unix this is rename(2); on Windows
// [atomic.ReplaceFile] uses MoveFileEx so an existing target is replaced.
func (r *Real) Rename(oldpath, newpath string) error {
	return atomic.ReplaceFile(oldpath, newpath)
}

var _ FS = (*Real)(nil)
