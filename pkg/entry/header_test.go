package entry_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/imag/pkg/entry"
)

func Test_Header_Read_Returns_Absent_When_Path_Missing(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()

	for _, path := range []string{"note", "note.name", "tags.[3]"} {
		v, ok, err := h.Read(path)
		if err != nil || ok {
			t.Fatalf("Read(%q) = (%#v, %v, %v), want absent", path, v, ok, err)
		}
	}
}

func Test_Header_Insert_Creates_Intermediate_Tables(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()

	err := h.Insert("diary.timed.hour", entry.Int(13))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok, err := h.ReadInt("diary.timed.hour")
	if err != nil || !ok || got != 13 {
		t.Fatalf("ReadInt = (%d, %v, %v), want (13, true, nil)", got, ok, err)
	}

	want := map[string]any{"diary": map[string]any{"timed": map[string]any{"hour": int64(13)}}}
	if diff := cmp.Diff(want, h.Map()); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
}

func Test_Header_Insert_Creates_List_When_Next_Segment_Is_Index(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()

	if err := h.Insert("tags.[0]", entry.String("a")); err != nil {
		t.Fatalf("Insert [0]: %v", err)
	}

	if err := h.Insert("tags.[1]", entry.String("b")); err != nil {
		t.Fatalf("Insert [1]: %v", err)
	}

	if err := h.Insert("tags.[0]", entry.String("z")); err != nil {
		t.Fatalf("Insert replace [0]: %v", err)
	}

	err := h.Insert("tags.[5]", entry.String("x"))
	if !errors.Is(err, entry.ErrIndexOutOfRange) {
		t.Fatalf("Insert [5] err=%v, want %v", err, entry.ErrIndexOutOfRange)
	}

	want := map[string]any{"tags": []any{"z", "b"}}
	if diff := cmp.Diff(want, h.Map()); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
}

func Test_Header_Insert_Returns_TypeError_When_Intermediate_Is_Scalar(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()

	if err := h.Insert("note", entry.String("flat")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err := h.Insert("note.name", entry.String("x"))

	var tErr *entry.TypeError
	if !errors.As(err, &tErr) {
		t.Fatalf("err=%v, want *TypeError", err)
	}

	if tErr.Path != "note" || tErr.Want != entry.KindTable || tErr.Got != entry.KindString {
		t.Fatalf("TypeError=%+v, want {note table string}", *tErr)
	}

	if got, _, _ := h.ReadString("note"); got != "flat" {
		t.Fatalf("note=%q, want unchanged %q", got, "flat")
	}
}

func Test_Header_Insert_Leaves_Header_Unchanged_When_Nested_Insert_Fails(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()

	err := h.Insert("a.b.[2]", entry.Int(1))
	if !errors.Is(err, entry.ErrIndexOutOfRange) {
		t.Fatalf("err=%v, want %v", err, entry.ErrIndexOutOfRange)
	}

	if h.Len() != 0 {
		t.Fatalf("Len()=%d, want 0: %v", h.Len(), h.Map())
	}
}

func Test_Header_Delete_Reports_Whether_Value_Existed(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()
	_ = h.Insert("note.name", entry.String("x"))
	_ = h.Insert("note.tags", entry.List(entry.String("a"), entry.String("b")))

	existed, err := h.Delete("note.name")
	if err != nil || !existed {
		t.Fatalf("Delete(note.name) = (%v, %v), want (true, nil)", existed, err)
	}

	existed, err = h.Delete("note.name")
	if err != nil || existed {
		t.Fatalf("second Delete(note.name) = (%v, %v), want (false, nil)", existed, err)
	}

	existed, err = h.Delete("missing.deep.path")
	if err != nil || existed {
		t.Fatalf("Delete(missing) = (%v, %v), want (false, nil)", existed, err)
	}

	existed, err = h.Delete("note.tags.[0]")
	if err != nil || !existed {
		t.Fatalf("Delete(note.tags.[0]) = (%v, %v), want (true, nil)", existed, err)
	}

	want := map[string]any{"note": map[string]any{"tags": []any{"b"}}}
	if diff := cmp.Diff(want, h.Map()); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}

	_, err = h.Delete("note.tags.[0].x")
	if !errors.Is(err, entry.ErrTypeMismatch) {
		t.Fatalf("Delete through string err=%v, want %v", err, entry.ErrTypeMismatch)
	}
}

func Test_Header_Typed_Read_Returns_TypeError_When_Kind_Differs(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()
	_ = h.Insert("count", entry.Int(3))

	_, _, err := h.ReadString("count")

	var tErr *entry.TypeError
	if !errors.As(err, &tErr) {
		t.Fatalf("err=%v, want *TypeError", err)
	}

	if tErr.Want != entry.KindString || tErr.Got != entry.KindInt {
		t.Fatalf("TypeError=%+v, want string/integer", *tErr)
	}

	_, _, err = h.ReadFloat("count")
	if !errors.Is(err, entry.ErrTypeMismatch) {
		t.Fatalf("ReadFloat on int err=%v, want %v", err, entry.ErrTypeMismatch)
	}
}

func Test_Header_Require_Returns_ErrFieldMissing_When_Absent(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()
	_ = h.Insert("done", entry.Bool(true))

	_, err := h.RequireString("note.name")
	if !errors.Is(err, entry.ErrFieldMissing) {
		t.Fatalf("err=%v, want %v", err, entry.ErrFieldMissing)
	}

	done, err := h.RequireBool("done")
	if err != nil || !done {
		t.Fatalf("RequireBool = (%v, %v), want (true, nil)", done, err)
	}
}

func Test_Header_Returns_ErrInvalidFieldPath_When_Path_Malformed(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()

	for _, path := range []string{"", "a..b", ".a", "a.", "a.[x]", "a.[-1]", "a[0]", "a.[0"} {
		_, _, err := h.Read(path)
		if !errors.Is(err, entry.ErrInvalidFieldPath) {
			t.Fatalf("Read(%q) err=%v, want %v", path, err, entry.ErrInvalidFieldPath)
		}

		if err := h.Insert(path, entry.Int(1)); !errors.Is(err, entry.ErrInvalidFieldPath) {
			t.Fatalf("Insert(%q) err=%v, want %v", path, err, entry.ErrInvalidFieldPath)
		}
	}
}

func Test_Header_Read_Returns_Copy_When_Value_Is_Container(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()
	_ = h.Insert("tags", entry.List(entry.String("a")))

	items, _, _ := h.ReadList("tags")
	items[0] = entry.String("mutated")

	got, _, _ := h.ReadString("tags.[0]")
	if got != "a" {
		t.Fatalf("tags.[0]=%q, want %q", got, "a")
	}
}

func Test_Header_View_Sees_Later_Mutations(t *testing.T) {
	t.Parallel()

	h := entry.NewHeader()
	view := h.View()

	_ = h.Insert("a", entry.Int(1))

	if !view.Has("a") {
		t.Fatal("view.Has(a)=false, want true")
	}

	if !h.Equal(view) {
		t.Fatal("header not equal to its own view")
	}

	clone := view.Clone()
	_ = clone.Insert("b", entry.Int(2))

	if h.Has("b") {
		t.Fatal("clone mutation leaked into original")
	}
}
