// Package store is the document store engine: it maps identifiers to entry
// files below a root directory and hands out exclusive [Handle]s to them.
//
// # Locking
//
// Every identifier is either free or locked. [Store.Create],
// [Store.Retrieve] and [Store.Get] lock it and return a Handle;
// [Handle.Release] writes the entry back if it was mutated (or never written)
// and frees the identifier. A second acquisition of a locked identifier fails
// immediately with [ErrLocked]; it never waits.
//
// The registry of locked identifiers lives in memory and only coordinates
// goroutines of one process. Set [Config.ProcessLock] to additionally hold an
// advisory lock on the store directory for the lifetime of the Store.
//
// # Durability
//
// Entries are written to a hidden temp file next to their target, synced,
// then renamed over the target. Iteration skips dot-names, so readers never
// observe a half-written entry.
//
// # Concurrency
//
// Store is safe for concurrent use. A Handle belongs to one goroutine at a
// time.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/calvinalkan/imag/pkg/entry"
	"github.com/calvinalkan/imag/pkg/fs"
	"github.com/calvinalkan/imag/pkg/storeid"
)

// InternalDir is the directory below the root reserved for store metadata.
// Its name starts with a dot, so it is never an identifier.
const InternalDir = ".imag"

// Config configures [Open].
type Config struct {
	// Root is the store directory. Created if missing. Required.
	Root string

	// FS is the filesystem to use. Default: [fs.NewReal].
	FS fs.FS

	// Logger receives debug and warning events. Default: no logging.
	Logger *zerolog.Logger

	// Registerer receives the store metrics. Default: metrics are kept
	// private to the store.
	Registerer prometheus.Registerer

	// ProcessLock takes an exclusive advisory lock on
	// <Root>/.imag/lock for the lifetime of the store, so that a second
	// process opening the same root fails fast.
	ProcessLock bool
}

// Store owns the identifier registry for one root directory.
type Store struct {
	root    string
	fs      fs.FS
	writer  *fs.AtomicWriter
	log     zerolog.Logger
	metrics *metrics
	lock    *fs.Lock

	// mu guards handles and closed. Acquisition reserves the slot under mu
	// and performs disk I/O outside it.
	mu      sync.Mutex
	handles map[string]*Handle
	closed  bool
}

// Open attaches to the store at cfg.Root, creating the directory if needed.
func Open(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("Config.Root is required")
	}

	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving store root: %w", err)
	}

	fsys := cfg.FS
	if fsys == nil {
		fsys = fs.NewReal()
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "store").Logger()
	}

	err = fsys.MkdirAll(root, 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating store root: fs: %w", err)
	}

	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat store root: fs: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("store root %q is not a directory", root)
	}

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	s := &Store{
		root:    root,
		fs:      fsys,
		writer:  fs.NewAtomicWriter(fsys),
		log:     logger,
		metrics: m,
		handles: make(map[string]*Handle),
	}

	if cfg.ProcessLock {
		lockPath := filepath.Join(root, InternalDir, "lock")

		lk, err := fs.NewLocker(fsys).TryLock(lockPath)
		if err != nil {
			m.unregister()

			return nil, fmt.Errorf("locking store: %w", err)
		}

		s.lock = lk
	}

	s.log.Debug().Str("root", root).Bool("process_lock", cfg.ProcessLock).Msg("store opened")

	return s, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string {
	return s.root
}

// Close detaches from the store. It fails with [ErrHandlesOutstanding] while
// any handle is unreleased. Close is idempotent.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	if n := len(s.handles); n > 0 {
		return fmt.Errorf("close: %w: %d", ErrHandlesOutstanding, n)
	}

	s.closed = true
	s.metrics.unregister()

	if s.lock != nil {
		err := s.lock.Close()
		if err != nil {
			return fmt.Errorf("close: releasing store lock: %w", err)
		}
	}

	s.log.Debug().Msg("store closed")

	return nil
}

// Create locks id and returns a handle to a new, empty entry. It fails with
// [ErrLocked] if id is checked out and with [ErrAlreadyExists] if an entry
// file exists. The entry is written when the handle is released.
func (s *Store) Create(id storeid.ID) (*Handle, error) {
	h, err := s.acquire("create", id, func(h *Handle) error {
		exists, err := s.fs.Exists(s.path(id))
		if err != nil {
			return fmt.Errorf("fs: %w", err)
		}

		if exists {
			return ErrAlreadyExists
		}

		h.entry = entry.New(id)
		h.fresh = true

		return nil
	})

	return h, err
}

// Retrieve locks id and returns its entry, creating an empty one if none
// exists. It never fails because of absence.
func (s *Store) Retrieve(id storeid.ID) (*Handle, error) {
	h, err := s.acquire("retrieve", id, func(h *Handle) error {
		e, err := s.load(id)
		if errors.Is(err, ErrNotFound) {
			h.entry = entry.New(id)
			h.fresh = true

			return nil
		}

		if err != nil {
			return err
		}

		h.entry = e

		return nil
	})

	return h, err
}

// Get locks id and returns its entry. It returns (nil, nil) when no entry
// exists and [ErrLocked] when id is checked out.
func (s *Store) Get(id storeid.ID) (*Handle, error) {
	h, err := s.acquire("get", id, func(h *Handle) error {
		e, err := s.load(id)
		if err != nil {
			return err
		}

		h.entry = e

		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	return h, err
}

// Update writes the handle's entry to disk without releasing it. A clean
// handle is not written again, so calling Update repeatedly is harmless.
func (s *Store) Update(h *Handle) error {
	if h == nil || h.store != s {
		return withContext("update", storeid.ID{}, errors.New("handle does not belong to this store"))
	}

	err := h.persist()
	s.metrics.observe("update", err)

	return withContext("update", h.id, err)
}

// Delete removes the entry file for id. It fails with [ErrLocked] if id is
// checked out and with [ErrNotFound] if no file exists.
func (s *Store) Delete(id storeid.ID) error {
	err := s.delete(id)
	s.metrics.observe("delete", err)

	return withContext("delete", id, err)
}

func (s *Store) delete(id storeid.ID) error {
	h, err := s.reserve(id)
	if err != nil {
		return err
	}

	defer s.unreserve(h)

	err = s.fs.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}

	if err != nil {
		return fmt.Errorf("fs: %w", err)
	}

	s.log.Debug().Str("id", id.String()).Msg("entry deleted")

	return nil
}

// Exists reports whether id has an entry file or is currently checked out.
func (s *Store) Exists(id storeid.ID) (bool, error) {
	err := id.Validate()
	if err != nil {
		return false, withContext("exists", id, err)
	}

	s.mu.Lock()
	_, held := s.handles[id.Key()]
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return false, withContext("exists", id, ErrClosed)
	}

	if held {
		return true, nil
	}

	exists, err := s.fs.Exists(s.path(id))
	if err != nil {
		return false, withContext("exists", id, fmt.Errorf("fs: %w", err))
	}

	return exists, nil
}

// Move renames the entry from to to. Both identifiers must be free, from
// must exist and to must not.
func (s *Store) Move(from, to storeid.ID) error {
	err := s.move(from, to)
	s.metrics.observe("move", err)

	return withContext("move", from, err)
}

func (s *Store) move(from, to storeid.ID) error {
	err := to.Validate()
	if err != nil {
		return err
	}

	if from.Equal(to) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, to)
	}

	src, err := s.reserve(from)
	if err != nil {
		return err
	}

	defer s.unreserve(src)

	dst, err := s.reserve(to)
	if err != nil {
		return fmt.Errorf("target %s: %w", to, err)
	}

	defer s.unreserve(dst)

	exists, err := s.fs.Exists(s.path(from))
	if err != nil {
		return fmt.Errorf("fs: %w", err)
	}

	if !exists {
		return ErrNotFound
	}

	exists, err = s.fs.Exists(s.path(to))
	if err != nil {
		return fmt.Errorf("fs: %w", err)
	}

	if exists {
		return fmt.Errorf("target %s: %w", to, ErrAlreadyExists)
	}

	err = s.fs.MkdirAll(filepath.Dir(s.path(to)), 0o755)
	if err != nil {
		return fmt.Errorf("fs: %w", err)
	}

	err = s.fs.Rename(s.path(from), s.path(to))
	if err != nil {
		return fmt.Errorf("fs: %w", err)
	}

	s.log.Debug().Str("id", from.String()).Str("to", to.String()).Msg("entry moved")

	return nil
}

// With retrieves id, runs fn and releases the handle on every exit path,
// including a panic in fn. Mutations made by fn are written even when fn
// returns an error; the release error is joined to fn's.
func (s *Store) With(id storeid.ID, fn func(*Handle) error) (err error) {
	h, err := s.Retrieve(id)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = h.Release()

			panic(r)
		}

		err = errors.Join(err, h.Release())
	}()

	return fn(h)
}

// acquire validates id, reserves its slot and runs load outside the registry
// mutex. The slot is dropped again if load fails.
func (s *Store) acquire(op string, id storeid.ID, load func(*Handle) error) (*Handle, error) {
	h, err := s.reserve(id)
	if err == nil {
		err = load(h)
		if err != nil {
			s.unreserve(h)
		}
	}

	s.metrics.observe(op, err)

	if err != nil {
		return nil, withContext(op, id, err)
	}

	s.log.Debug().Str("op", op).Str("id", id.String()).Bool("fresh", h.fresh).Msg("entry locked")

	return h, nil
}

// reserve marks id as locked and returns the handle occupying the slot.
func (s *Store) reserve(id storeid.ID) (*Handle, error) {
	err := id.Validate()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	if _, held := s.handles[id.Key()]; held {
		return nil, ErrLocked
	}

	h := &Handle{store: s, id: id}
	s.handles[id.Key()] = h
	s.metrics.locked.Inc()

	return h, nil
}

// unreserve frees the slot held by h. It is a no-op if h no longer owns it.
func (s *Store) unreserve(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handles[h.id.Key()] != h {
		return
	}

	delete(s.handles, h.id.Key())
	s.metrics.locked.Dec()
}

// load reads and parses the entry file for id. A missing file is ErrNotFound.
func (s *Store) load(id storeid.ID) (*entry.Entry, error) {
	data, err := s.fs.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("fs: %w", err)
	}

	e, err := entry.Parse(id, data)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// write persists e to its file, creating parent directories.
func (s *Store) write(e *entry.Entry) error {
	data, err := e.Bytes()
	if err != nil {
		return err
	}

	path := s.path(e.ID())

	err = s.fs.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("fs: %w", err)
	}

	err = s.writer.WriteFile(path, data)
	if err != nil {
		return fmt.Errorf("fs: %w", err)
	}

	s.metrics.writes.Inc()
	s.log.Debug().Str("id", e.ID().String()).Int("bytes", len(data)).Msg("entry written")

	return nil
}

func (s *Store) path(id storeid.ID) string {
	return id.ToPath(s.root)
}
