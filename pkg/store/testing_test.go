package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/calvinalkan/imag/pkg/fs"
	"github.com/calvinalkan/imag/pkg/store"
	"github.com/calvinalkan/imag/pkg/storeid"
)

func openTestStore(t *testing.T, cfg store.Config) *store.Store {
	t.Helper()

	if cfg.Root == "" {
		cfg.Root = t.TempDir()
	}

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func id(raw string) storeid.ID {
	return storeid.MustFromPath(raw)
}

func writeEntryFile(t *testing.T, root, rel, data string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	err = os.WriteFile(path, []byte(data), 0o644)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func collectIDs(t *testing.T, s *store.Store) []string {
	t.Helper()

	var ids []string

	for got, err := range s.Entries() {
		if err != nil {
			t.Fatalf("Entries: %v", err)
		}

		ids = append(ids, got.String())
	}

	return ids
}

// faultFS injects errors into selected operations of a real filesystem.
type faultFS struct {
	*fs.Real

	mu        sync.Mutex
	renameErr error
	readDir   map[string]error // keyed by base name
	renames   int
}

var errInjected = errors.New("injected fault")

func newFaultFS() *faultFS {
	return &faultFS{Real: fs.NewReal(), readDir: map[string]error{}}
}

func (f *faultFS) Rename(oldpath, newpath string) error {
	f.mu.Lock()
	f.renames++
	err := f.renameErr
	f.mu.Unlock()

	if err != nil {
		return err
	}

	return f.Real.Rename(oldpath, newpath)
}

func (f *faultFS) ReadDir(path string) ([]os.DirEntry, error) {
	f.mu.Lock()
	err := f.readDir[filepath.Base(path)]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return f.Real.ReadDir(path)
}

func (f *faultFS) setRenameErr(err error) {
	f.mu.Lock()
	f.renameErr = err
	f.mu.Unlock()
}

func (f *faultFS) renameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.renames
}

func hasTempFile(t *testing.T, root string) bool {
	t.Helper()

	found := false

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && strings.Contains(d.Name(), ".tmp-") {
			found = true
		}

		return nil
	})

	return found
}
