package cli

import (
	"testing"

	"github.com/calvinalkan/imag/pkg/entry"
)

func Test_ParseLiteral_Reads_TOML_Values_And_Falls_Back_To_String(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		in   string
		want entry.Value
	}{
		{in: "3", want: entry.Int(3)},
		{in: "-1_000", want: entry.Int(-1000)},
		{in: "2.5", want: entry.Float(2.5)},
		{in: "true", want: entry.Bool(true)},
		{in: `"quoted"`, want: entry.String("quoted")},
		{in: "'raw'", want: entry.String("raw")},
		{in: "plain words", want: entry.String("plain words")},
		{in: "", want: entry.String("")},
		{in: "2024-04-15", want: entry.String("2024-04-15")},
		{in: "[1, 'a']", want: entry.List(entry.Int(1), entry.String("a"))},
		{in: "{ x = 1 }", want: entry.Table(map[string]entry.Value{"x": entry.Int(1)})},
	} {
		got := parseLiteral(tt.in)
		if !got.Equal(tt.want) {
			t.Errorf("parseLiteral(%q)=%#v, want %#v", tt.in, got, tt.want)
		}
	}
}
