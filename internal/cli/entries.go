package cli

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/imag/pkg/entry"
	"github.com/calvinalkan/imag/pkg/store"
	"github.com/calvinalkan/imag/pkg/storeid"

	flag "github.com/spf13/pflag"
)

var (
	errIDRequired      = errors.New("id is required")
	errIDOrCollection  = errors.New("pass either <id> or --collection, not both")
	errTooManyArgs     = errors.New("too many arguments")
	errUnknownFormat   = errors.New("unknown format")
	errNothingToUpdate = errors.New("nothing to update: pass --set, --unset, --content or --content-stdin")
)

const (
	formatRaw  = "raw"
	formatYAML = "yaml"
)

// CreateCmd returns the create command.
func CreateCmd(env *Env) *Command {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.String("collection", "", "Create a uniquely named entry in `collection` instead of <id>")
	addMutationFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "create <id>",
		Short: "Create entry, prints ID",
		Long: `Create a new entry and print its ID.

Fails if the entry already exists. With --collection a unique ID below the
collection is generated instead.`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execCreate(io, env, fs, args)
		},
	}
}

func execCreate(io *IO, env *Env, fs *flag.FlagSet, args []string) error {
	collection, _ := fs.GetString("collection")

	var (
		id  storeid.ID
		err error
	)

	switch {
	case len(args) > 1:
		return errTooManyArgs
	case len(args) == 1 && fs.Changed("collection"):
		return errIDOrCollection
	case len(args) == 1:
		id, err = storeid.FromPath(args[0])
	case fs.Changed("collection"):
		id, err = storeid.NewUnique(collection)
	default:
		return errIDRequired
	}

	if err != nil {
		return err
	}

	m, err := readMutations(fs, io.Stdin())
	if err != nil {
		return err
	}

	// Check the changes before creating, so a bad --set never leaves an entry behind.
	err = m.applyTo(entry.New(id))
	if err != nil {
		return err
	}

	err = env.withStore(func(s *store.Store) error {
		h, err := s.Create(id)
		if err != nil {
			return err
		}

		return errors.Join(m.apply(h), h.Release())
	})
	if err != nil {
		return err
	}

	io.Println(id)

	return nil
}

// RetrieveCmd returns the retrieve command.
func RetrieveCmd(env *Env) *Command {
	fs := flag.NewFlagSet("retrieve", flag.ContinueOnError)
	addMutationFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "retrieve <id>",
		Short: "Get or create entry, prints ID",
		Long: `Open the entry, creating it if it does not exist, apply the given changes
and print its ID.`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execRetrieve(io, env, fs, args)
		},
	}
}

func execRetrieve(io *IO, env *Env, fs *flag.FlagSet, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}

	m, err := readMutations(fs, io.Stdin())
	if err != nil {
		return err
	}

	err = env.withStore(func(s *store.Store) error {
		h, err := s.Retrieve(id)
		if err != nil {
			return err
		}

		return errors.Join(m.apply(h), h.Release())
	})
	if err != nil {
		return err
	}

	io.Println(id)

	return nil
}

// UpdateCmd returns the update command.
func UpdateCmd(env *Env) *Command {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	addMutationFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "update <id>",
		Short: "Change existing entry",
		Long:  "Apply header and content changes to an existing entry.",
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execUpdate(io, env, fs, args)
		},
	}
}

func execUpdate(io *IO, env *Env, fs *flag.FlagSet, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}

	m, err := readMutations(fs, io.Stdin())
	if err != nil {
		return err
	}

	if m.empty() {
		return errNothingToUpdate
	}

	return env.withStore(func(s *store.Store) error {
		h, err := getExisting(s, id)
		if err != nil {
			return err
		}

		err = m.apply(h)
		if err == nil {
			err = s.Update(h)
		}

		return errors.Join(err, h.Release())
	})
}

// GetCmd returns the get command.
func GetCmd(env *Env) *Command {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.StringP("format", "f", formatRaw, "Output `format`: raw|yaml")

	return &Command{
		Flags: fs,
		Usage: "get <id>",
		Short: "Print entry",
		Long: `Print an existing entry.

raw prints the entry file as stored. yaml prints the id, header and content
as a YAML document.`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execGet(io, env, fs, args)
		},
	}
}

func execGet(io *IO, env *Env, fs *flag.FlagSet, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}

	format, _ := fs.GetString("format")
	if format != formatRaw && format != formatYAML {
		return fmt.Errorf("%w: %s", errUnknownFormat, format)
	}

	var e *entry.Entry

	err = env.withStore(func(s *store.Store) error {
		h, err := getExisting(s, id)
		if err != nil {
			return err
		}

		e = h.Entry()

		return h.Release()
	})
	if err != nil {
		return err
	}

	out, err := renderEntry(e, format)
	if err != nil {
		return err
	}

	io.Printf("%s", out)

	return nil
}

// entryDoc is the YAML export shape of an entry.
type entryDoc struct {
	ID      string         `yaml:"id"`
	Header  map[string]any `yaml:"header"`
	Content string         `yaml:"content"`
}

func renderEntry(e *entry.Entry, format string) ([]byte, error) {
	if format == formatYAML {
		data, err := yaml.Marshal(entryDoc{
			ID:      e.ID().String(),
			Header:  e.Header().Map(),
			Content: e.Content(),
		})
		if err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}

		return data, nil
	}

	return e.Bytes()
}

// DeleteCmd returns the delete command.
func DeleteCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("delete", flag.ContinueOnError),
		Usage: "delete <id>",
		Short: "Delete entry",
		Exec: func(_ context.Context, _ *IO, args []string) error {
			id, err := singleID(args)
			if err != nil {
				return err
			}

			return env.withStore(func(s *store.Store) error {
				return s.Delete(id)
			})
		},
	}
}

// MoveCmd returns the mv command.
func MoveCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("mv", flag.ContinueOnError),
		Usage: "mv <from> <to>",
		Short: "Rename entry",
		Long:  "Rename an entry. The target must not exist.",
		Exec: func(_ context.Context, _ *IO, args []string) error {
			if len(args) != 2 {
				return errors.New("mv wants exactly two ids")
			}

			from, err := storeid.FromPath(args[0])
			if err != nil {
				return err
			}

			to, err := storeid.FromPath(args[1])
			if err != nil {
				return err
			}

			return env.withStore(func(s *store.Store) error {
				return s.Move(from, to)
			})
		},
	}
}

func singleID(args []string) (storeid.ID, error) {
	switch len(args) {
	case 0:
		return storeid.ID{}, errIDRequired
	case 1:
		return storeid.FromPath(args[0])
	default:
		return storeid.ID{}, errTooManyArgs
	}
}

// getExisting is [store.Store.Get] with absence turned into an error.
func getExisting(s *store.Store, id storeid.ID) (*store.Handle, error) {
	h, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if h == nil {
		return nil, &store.Error{Op: "get", ID: id, Err: store.ErrNotFound}
	}

	return h, nil
}
