package entry

import (
	"fmt"
	"maps"
	"slices"
)

// Header is the typed metadata tree of an entry. The root is always a table.
//
// Fields are addressed by dotted paths: "note.name" reads key "name" of the
// table at key "note", and "tags.[1]" reads the second item of the list at
// key "tags". Reading an absent path is not an error.
//
// The zero Header is empty and ready to use. A Header is not safe for
// concurrent mutation.
type Header struct {
	fields
}

// View is a read-only window onto a [Header]. It shares the header's storage,
// so later mutations through the Header are visible.
type View struct {
	*fields
}

// fields carries the read accessors shared by Header and View.
type fields struct {
	root map[string]Value
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{fields{root: map[string]Value{}}}
}

// NewHeaderFromTable returns a header that takes ownership of root.
func NewHeaderFromTable(root map[string]Value) *Header {
	if root == nil {
		root = map[string]Value{}
	}

	return &Header{fields{root: root}}
}

// View returns a read-only view of h.
func (h *Header) View() View {
	return View{&h.fields}
}

// Read returns a copy of the value at path. The boolean is false when the
// path is absent. Errors are [ErrInvalidFieldPath] and [*TypeError], the
// latter when an intermediate segment is not a container of the right kind.
func (f *fields) Read(path string) (Value, bool, error) {
	segs, err := parsePath(path)
	if err != nil {
		return Value{}, false, err
	}

	cur := Table(f.root)

	for i, s := range segs {
		if s.isIdx {
			items, ok := cur.AsList()
			if !ok {
				return Value{}, false, &TypeError{Path: joinPath(segs[:i]), Want: KindList, Got: cur.kind}
			}

			if s.index >= len(items) {
				return Value{}, false, nil
			}

			cur = items[s.index]

			continue
		}

		tbl, ok := cur.AsTable()
		if !ok {
			return Value{}, false, &TypeError{Path: joinPath(segs[:i]), Want: KindTable, Got: cur.kind}
		}

		next, ok := tbl[s.key]
		if !ok {
			return Value{}, false, nil
		}

		cur = next
	}

	return cur.Clone(), true, nil
}

// Has reports whether a value exists at path. Malformed paths and type
// mismatches report false.
func (f *fields) Has(path string) bool {
	_, ok, err := f.Read(path)

	return ok && err == nil
}

// ReadString reads a string field.
func (f *fields) ReadString(path string) (string, bool, error) {
	return readAs(f, path, KindString, Value.AsString)
}

// ReadInt reads an integer field.
func (f *fields) ReadInt(path string) (int64, bool, error) {
	return readAs(f, path, KindInt, Value.AsInt)
}

// ReadFloat reads a float field. Integers are not promoted.
func (f *fields) ReadFloat(path string) (float64, bool, error) {
	return readAs(f, path, KindFloat, Value.AsFloat)
}

// ReadBool reads a boolean field.
func (f *fields) ReadBool(path string) (bool, bool, error) {
	return readAs(f, path, KindBool, Value.AsBool)
}

// ReadList reads a list field.
func (f *fields) ReadList(path string) ([]Value, bool, error) {
	return readAs(f, path, KindList, Value.AsList)
}

// ReadTable reads a table field.
func (f *fields) ReadTable(path string) (map[string]Value, bool, error) {
	return readAs(f, path, KindTable, Value.AsTable)
}

// RequireString is like ReadString but fails with [ErrFieldMissing] when the
// field is absent.
func (f *fields) RequireString(path string) (string, error) {
	return requireAs(f, path, KindString, Value.AsString)
}

// RequireInt is like ReadInt but fails with [ErrFieldMissing] when absent.
func (f *fields) RequireInt(path string) (int64, error) {
	return requireAs(f, path, KindInt, Value.AsInt)
}

// RequireFloat is like ReadFloat but fails with [ErrFieldMissing] when absent.
func (f *fields) RequireFloat(path string) (float64, error) {
	return requireAs(f, path, KindFloat, Value.AsFloat)
}

// RequireBool is like ReadBool but fails with [ErrFieldMissing] when absent.
func (f *fields) RequireBool(path string) (bool, error) {
	return requireAs(f, path, KindBool, Value.AsBool)
}

// Keys returns the top-level keys in sorted order.
func (f *fields) Keys() []string {
	return slices.Sorted(maps.Keys(f.root))
}

// Len returns the number of top-level keys.
func (f *fields) Len() int {
	return len(f.root)
}

// Map returns the header as plain Go values. See [Value.Native].
func (f *fields) Map() map[string]any {
	out, _ := Table(f.root).Native().(map[string]any)

	return out
}

// Clone returns an independent copy of the tree.
func (f *fields) Clone() *Header {
	c := Table(f.root).Clone()

	return &Header{fields{root: c.table}}
}

// Equal reports whether both trees hold the same values.
func (f *fields) Equal(o View) bool {
	if o.fields == nil {
		return len(f.root) == 0
	}

	return Table(f.root).Equal(Table(o.root))
}

func readAs[T any](f *fields, path string, want Kind, get func(Value) (T, bool)) (T, bool, error) {
	var zero T

	v, ok, err := f.Read(path)
	if err != nil || !ok {
		return zero, false, err
	}

	out, ok := get(v)
	if !ok {
		return zero, false, &TypeError{Path: path, Want: want, Got: v.kind}
	}

	return out, true, nil
}

func requireAs[T any](f *fields, path string, want Kind, get func(Value) (T, bool)) (T, error) {
	v, ok, err := readAs(f, path, want, get)
	if err != nil {
		return v, err
	}

	if !ok {
		return v, fmt.Errorf("%q: %w", path, ErrFieldMissing)
	}

	return v, nil
}

// Insert stores v at path, creating missing intermediate containers: a table
// for a key segment, a list when the following segment is an index. An index
// may address an existing item or len(list) to append.
//
// Insert fails with [*TypeError] when an existing intermediate has the wrong
// kind, and leaves the header unchanged on any error.
func (h *Header) Insert(path string, v Value) error {
	segs, err := parsePath(path)
	if err != nil {
		return err
	}

	if v.IsZero() {
		return fmt.Errorf("insert %q: %w: value has no kind", path, ErrTypeMismatch)
	}

	if h.root == nil {
		h.root = map[string]Value{}
	}

	_, err = insertInto(Table(h.root), segs, 0, v)

	return err
}

// Set is Insert for callers that hold a plain Go value; see [FromNative].
func (h *Header) Set(path string, x any) error {
	v, err := FromNative(x)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}

	return h.Insert(path, v)
}

// Delete removes the value at path and reports whether one existed. Absent
// intermediates report false. It fails with [*TypeError] when an existing
// intermediate has the wrong kind.
func (h *Header) Delete(path string) (bool, error) {
	segs, err := parsePath(path)
	if err != nil {
		return false, err
	}

	_, existed, err := deleteFrom(Table(h.root), segs, 0)

	return existed, err
}

func insertInto(cur Value, segs []segment, i int, v Value) (Value, error) {
	s := segs[i]
	last := i == len(segs)-1

	if s.isIdx {
		if cur.kind != KindList {
			return cur, &TypeError{Path: joinPath(segs[:i]), Want: KindList, Got: cur.kind}
		}

		switch {
		case s.index < len(cur.list):
		case s.index == len(cur.list):
			cur.list = append(cur.list, containerFor(segs, i+1))
		default:
			return cur, fmt.Errorf("%w: %s (len %d)", ErrIndexOutOfRange, joinPath(segs[:i+1]), len(cur.list))
		}

		if last {
			cur.list[s.index] = v

			return cur, nil
		}

		child, err := insertInto(cur.list[s.index], segs, i+1, v)
		if err != nil {
			return cur, err
		}

		cur.list[s.index] = child

		return cur, nil
	}

	if cur.kind != KindTable {
		return cur, &TypeError{Path: joinPath(segs[:i]), Want: KindTable, Got: cur.kind}
	}

	if last {
		cur.table[s.key] = v

		return cur, nil
	}

	child, ok := cur.table[s.key]
	if !ok {
		child = containerFor(segs, i+1)
	}

	child, err := insertInto(child, segs, i+1, v)
	if err != nil {
		return cur, err
	}

	cur.table[s.key] = child

	return cur, nil
}

func deleteFrom(cur Value, segs []segment, i int) (Value, bool, error) {
	s := segs[i]
	last := i == len(segs)-1

	if s.isIdx {
		if cur.kind != KindList {
			return cur, false, &TypeError{Path: joinPath(segs[:i]), Want: KindList, Got: cur.kind}
		}

		if s.index >= len(cur.list) {
			return cur, false, nil
		}

		if last {
			cur.list = slices.Delete(cur.list, s.index, s.index+1)

			return cur, true, nil
		}

		child, existed, err := deleteFrom(cur.list[s.index], segs, i+1)
		if err != nil || !existed {
			return cur, existed, err
		}

		cur.list[s.index] = child

		return cur, true, nil
	}

	if cur.kind != KindTable {
		return cur, false, &TypeError{Path: joinPath(segs[:i]), Want: KindTable, Got: cur.kind}
	}

	child, ok := cur.table[s.key]
	if !ok {
		return cur, false, nil
	}

	if last {
		delete(cur.table, s.key)

		return cur, true, nil
	}

	child, existed, err := deleteFrom(child, segs, i+1)
	if err != nil || !existed {
		return cur, existed, err
	}

	cur.table[s.key] = child

	return cur, true, nil
}

func containerFor(segs []segment, i int) Value {
	if i < len(segs) && segs[i].isIdx {
		return List()
	}

	return Table(nil)
}
