package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/calvinalkan/imag/pkg/entry"
	"github.com/calvinalkan/imag/pkg/store"

	flag "github.com/spf13/pflag"
)

var (
	errSetSyntax       = errors.New("--set wants path=value")
	errContentConflict = errors.New("--content and --content-stdin are mutually exclusive")
)

// mutation is one header change requested on the command line.
type mutation struct {
	path  string
	value entry.Value // zero for an unset
}

// mutations are the entry changes shared by create, retrieve and update.
type mutations struct {
	header     []mutation
	content    string
	setContent bool
}

func addMutationFlags(fs *flag.FlagSet) {
	fs.StringArray("set", nil, "Set header field: `path=value` (TOML literal, else string; repeatable)")
	fs.StringArray("unset", nil, "Remove header field at `path` (repeatable)")
	fs.String("content", "", "Replace the content with `text`")
	fs.Bool("content-stdin", false, "Replace the content with stdin")
}

// readMutations validates the mutation flags. All sets apply before all
// unsets.
func readMutations(fs *flag.FlagSet, stdin io.Reader) (mutations, error) {
	var m mutations

	sets, _ := fs.GetStringArray("set")
	for _, raw := range sets {
		path, literal, ok := strings.Cut(raw, "=")
		if !ok {
			return mutations{}, fmt.Errorf("%w: %q", errSetSyntax, raw)
		}

		path = strings.TrimSpace(path)

		err := entry.ValidatePath(path)
		if err != nil {
			return mutations{}, fmt.Errorf("--set %s: %w", path, err)
		}

		m.header = append(m.header, mutation{path: path, value: parseLiteral(literal)})
	}

	unsets, _ := fs.GetStringArray("unset")
	for _, path := range unsets {
		err := entry.ValidatePath(path)
		if err != nil {
			return mutations{}, fmt.Errorf("--unset %s: %w", path, err)
		}

		m.header = append(m.header, mutation{path: path})
	}

	fromStdin, _ := fs.GetBool("content-stdin")
	if fromStdin && fs.Changed("content") {
		return mutations{}, errContentConflict
	}

	switch {
	case fromStdin:
		if stdin == nil {
			return mutations{}, errors.New("--content-stdin: no stdin")
		}

		data, err := io.ReadAll(stdin)
		if err != nil {
			return mutations{}, fmt.Errorf("reading stdin: %w", err)
		}

		m.content, m.setContent = string(data), true
	case fs.Changed("content"):
		m.content, _ = fs.GetString("content")
		m.setContent = true
	}

	return m, nil
}

// parseLiteral reads s as a TOML value, so 3 is an integer and [1, 2] a
// list. Anything that is not a valid TOML value is taken as a plain string.
func parseLiteral(s string) entry.Value {
	var doc map[string]any

	err := toml.Unmarshal([]byte("v = "+s), &doc)
	if err != nil {
		return entry.String(s)
	}

	v, err := entry.FromNative(doc["v"])
	if err != nil {
		return entry.String(s)
	}

	return v
}

func (m mutations) empty() bool {
	return len(m.header) == 0 && !m.setContent
}

// applyTo performs the changes on an entry.
func (m mutations) applyTo(e *entry.Entry) error {
	for _, mu := range m.header {
		if mu.value.IsZero() {
			_, err := e.Header().Delete(mu.path)
			if err != nil {
				return fmt.Errorf("unset %s: %w", mu.path, err)
			}

			continue
		}

		err := e.Header().Insert(mu.path, mu.value)
		if err != nil {
			return fmt.Errorf("set %s: %w", mu.path, err)
		}
	}

	if m.setContent {
		e.SetContent(m.content)
	}

	return nil
}

// apply performs the changes on h. They are tried on a copy first, so h is
// only touched when every change succeeds.
func (m mutations) apply(h *store.Handle) error {
	if m.empty() {
		return nil
	}

	err := m.applyTo(h.Entry())
	if err != nil {
		return err
	}

	for _, mu := range m.header {
		if mu.value.IsZero() {
			_, _ = h.HeaderMut().Delete(mu.path)

			continue
		}

		_ = h.HeaderMut().Insert(mu.path, mu.value)
	}

	if m.setContent {
		h.SetContent(m.content)
	}

	return nil
}
