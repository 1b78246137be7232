package store

import (
	"sync"

	"github.com/calvinalkan/imag/pkg/entry"
	"github.com/calvinalkan/imag/pkg/storeid"
)

// Handle is exclusive access to one entry. Obtain it from [Store.Create],
// [Store.Retrieve] or [Store.Get] and always pair it with [Handle.Release],
// typically via defer or [Store.With].
//
// The *Mut accessors mark the handle dirty. A dirty or never-written entry is
// persisted on release; a clean one is not touched.
type Handle struct {
	store *Store
	id    storeid.ID
	entry *entry.Entry

	// mu guards the fields below against a concurrent Release.
	mu       sync.Mutex
	fresh    bool // no file has been written for the entry yet
	dirty    bool
	released bool
}

// ID returns the identifier the handle holds.
func (h *Handle) ID() storeid.ID {
	return h.id
}

// Header returns a read-only view of the header.
func (h *Handle) Header() entry.View {
	return h.entry.Header().View()
}

// HeaderMut returns the header for mutation and marks the handle dirty.
func (h *Handle) HeaderMut() *entry.Header {
	h.markDirty()

	return h.entry.Header()
}

// Content returns the content text.
func (h *Handle) Content() string {
	return h.entry.Content()
}

// ContentMut returns the content for in-place mutation and marks the handle
// dirty.
func (h *Handle) ContentMut() *string {
	h.markDirty()

	return h.entry.ContentMut()
}

// SetContent replaces the content and marks the handle dirty.
func (h *Handle) SetContent(s string) {
	h.markDirty()
	h.entry.SetContent(s)
}

// Entry returns a deep copy of the entry as currently held.
func (h *Handle) Entry() *entry.Entry {
	return h.entry.Clone()
}

// Dirty reports whether the entry has unsaved mutable access.
func (h *Handle) Dirty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.dirty || h.fresh
}

// Released reports whether [Handle.Release] was called.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.released
}

// Release writes the entry if it is dirty or was never written, then frees
// the identifier. The identifier is freed even when the write fails; the
// write error is returned. Calling Release again returns nil.
func (h *Handle) Release() error {
	h.mu.Lock()

	if h.released {
		h.mu.Unlock()

		return nil
	}

	h.released = true

	var err error
	if h.dirty || h.fresh {
		err = h.store.write(h.entry)
		if err == nil {
			h.dirty, h.fresh = false, false
		}
	}

	h.mu.Unlock()

	h.store.unreserve(h)
	h.store.metrics.observe("release", err)

	if err != nil {
		h.store.log.Warn().Err(err).Str("id", h.id.String()).Msg("entry write on release failed")
	}

	return withContext("release", h.id, err)
}

// Close calls [Handle.Release], so a Handle can be used as an [io.Closer].
func (h *Handle) Close() error {
	return h.Release()
}

// persist writes the entry now if it is dirty and keeps the handle locked.
func (h *Handle) persist() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return ErrReleased
	}

	if !h.dirty && !h.fresh {
		return nil
	}

	err := h.store.write(h.entry)
	if err != nil {
		return err
	}

	h.dirty, h.fresh = false, false

	return nil
}

func (h *Handle) markDirty() {
	h.mu.Lock()
	h.dirty = true
	h.mu.Unlock()
}
