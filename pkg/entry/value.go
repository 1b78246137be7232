package entry

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Kind enumerates the shapes a header [Value] can take.
type Kind uint8

// The zero Kind marks an absent value.
const (
	KindNone Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindList
	KindTable
)

var kindNames = [...]string{
	KindNone:   "none",
	KindString: "string",
	KindInt:    "integer",
	KindFloat:  "float",
	KindBool:   "boolean",
	KindList:   "list",
	KindTable:  "table",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Value is one node of the header tree. Exactly one payload is meaningful,
// selected by Kind. The zero Value has KindNone.
//
// Lists and tables share their backing storage when a Value is copied; use
// [Value.Clone] for an independent copy.
//
// TOML dates and times are strings holding their RFC 3339 text that also
// remember the decoded value, so they are written back as TOML datetimes.
type Value struct {
	kind     Kind
	str      string
	datetime any
	num   int64
	flt   float64
	flag  bool
	list  []Value
	table map[string]Value
}

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, num: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// List returns a list value holding items.
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}

	return Value{kind: KindList, list: items}
}

// Table returns a table value that takes ownership of fields.
func Table(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}

	return Value{kind: KindTable, table: fields}
}

// Kind returns the shape of v.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v is the absent value.
func (v Value) IsZero() bool { return v.kind == KindNone }

// AsString returns the string payload and whether v is a string.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInt returns the integer payload and whether v is an integer.
func (v Value) AsInt() (int64, bool) { return v.num, v.kind == KindInt }

// AsFloat returns the float payload and whether v is a float.
func (v Value) AsFloat() (float64, bool) { return v.flt, v.kind == KindFloat }

// AsBool returns the boolean payload and whether v is a boolean.
func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == KindBool }

// AsList returns the list items and whether v is a list. The slice is shared.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsTable returns the table fields and whether v is a table. The map is shared.
func (v Value) AsTable() (map[string]Value, bool) { return v.table, v.kind == KindTable }

// IsDatetime reports whether v is a string that was decoded from a TOML date
// or time.
func (v Value) IsDatetime() bool { return v.datetime != nil }

// Number returns v as a float64 when v is an integer or a float.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.num), true
	case KindFloat:
		return v.flt, true
	default:
		return 0, false
	}
}

// Equal reports whether v and o hold the same tree. NaN equals NaN so that a
// parsed tree always equals itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindNone:
		return true
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt || (math.IsNaN(v.flt) && math.IsNaN(o.flt))
	case KindBool:
		return v.flag == o.flag
	case KindList:
		return slices.EqualFunc(v.list, o.list, Value.Equal)
	case KindTable:
		return maps.EqualFunc(v.table, o.table, Value.Equal)
	}

	return false
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}

		return Value{kind: KindList, list: items}
	case KindTable:
		fields := make(map[string]Value, len(v.table))
		for k, item := range v.table {
			fields[k] = item.Clone()
		}

		return Value{kind: KindTable, table: fields}
	default:
		return v
	}
}

// Native converts v into plain Go values: string, int64, float64, bool,
// []any and map[string]any. KindNone becomes nil. Datetimes come back as the
// time.Time or toml.LocalDate, LocalTime or LocalDateTime they were read as.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		if v.datetime != nil {
			return v.datetime
		}

		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.flag
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}

		return out
	case KindTable:
		out := make(map[string]any, len(v.table))
		for k, item := range v.table {
			out[k] = item.Native()
		}

		return out
	default:
		return nil
	}
}

// FromNative converts decoded TOML (or JSON-like) data into a Value.
//
// All Go integer kinds become KindInt. Date and time values become strings
// holding their textual form; see [Value.IsDatetime]. Anything else is
// rejected.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int64:
		return Int(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", t)
		}

		return Int(int64(t)), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(float64(t)), nil
	case time.Time:
		return Value{kind: KindString, str: t.Format(time.RFC3339Nano), datetime: t}, nil
	case toml.LocalDate:
		return Value{kind: KindString, str: t.String(), datetime: t}, nil
	case toml.LocalTime:
		return Value{kind: KindString, str: t.String(), datetime: t}, nil
	case toml.LocalDateTime:
		return Value{kind: KindString, str: t.String(), datetime: t}, nil
	case fmt.Stringer:
		return String(t.String()), nil
	case []string:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = String(item)
		}

		return List(items...), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromNative(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}

			items[i] = v
		}

		return List(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			v, err := FromNative(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}

			fields[k] = v
		}

		return Table(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// GoString renders v for debugging and test failure output.
func (v Value) GoString() string {
	switch v.kind {
	case KindNone:
		return "<none>"
	case KindString:
		return fmt.Sprintf("%q", v.str)
	default:
		return fmt.Sprintf("%v", v.Native())
	}
}
