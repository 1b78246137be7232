package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calvinalkan/imag/pkg/filter"
	"github.com/calvinalkan/imag/pkg/store"
	"github.com/calvinalkan/imag/pkg/storeid"

	flag "github.com/spf13/pflag"
)

// IDsCmd returns the ids command.
func IDsCmd(env *Env) *Command {
	fs := flag.NewFlagSet("ids", flag.ContinueOnError)
	fs.StringP("filter", "f", "", "Only list entries whose header matches `expr`")
	fs.StringArray("collection", nil, "Only list entries below `collection` (repeatable, any matches)")
	fs.BoolP("print-storepath", "p", false, "Print file paths instead of IDs")
	fs.Bool("stdin", false, "Check IDs read from stdin instead of listing the store")

	return &Command{
		Flags: fs,
		Usage: "ids [flags]",
		Short: "List entry IDs",
		Long: `List the IDs of all entries in lexical order.

Filter expressions compare header fields, for example:

  imag ids --filter 'kind == "note" and (priority >= 2 or not done)'

Entries that cannot be read are reported as warnings; listing continues.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execIDs(ctx, io, env, fs, args)
		},
	}
}

type idsOptions struct {
	pred        *filter.Predicate
	collections []string
	storePath   bool
}

func execIDs(ctx context.Context, io *IO, env *Env, fs *flag.FlagSet, args []string) error {
	if len(args) > 0 {
		return errTooManyArgs
	}

	var opts idsOptions

	if query, _ := fs.GetString("filter"); fs.Changed("filter") {
		p, err := filter.Compile(query)
		if err != nil {
			return err
		}

		opts.pred = p
	}

	opts.collections, _ = fs.GetStringArray("collection")
	opts.storePath, _ = fs.GetBool("print-storepath")
	fromStdin, _ := fs.GetBool("stdin")

	return env.withStore(func(s *store.Store) error {
		if fromStdin {
			return listFromStdin(ctx, io, s, opts)
		}

		return listStore(ctx, io, s, opts)
	})
}

func listStore(ctx context.Context, io *IO, s *store.Store, opts idsOptions) error {
	if opts.pred == nil {
		for id, err := range s.Entries() {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			if err != nil {
				io.Warn(err.Error())

				continue
			}

			printID(io, s, id, opts)
		}

		return nil
	}

	for e, err := range s.Select(ctx, opts.pred) {
		if errors.Is(err, context.Canceled) {
			return err
		}

		if err != nil {
			io.Warn(err.Error())

			continue
		}

		printID(io, s, e.ID(), opts)
	}

	return nil
}

func listFromStdin(ctx context.Context, io *IO, s *store.Store, opts idsOptions) error {
	if io.Stdin() == nil {
		return errors.New("--stdin: no stdin")
	}

	scanner := bufio.NewScanner(io.Stdin())

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, err := storeid.FromPath(line)
		if err != nil {
			io.Warn(err.Error())

			continue
		}

		ok, err := matchOne(s, id, opts.pred)
		if err != nil {
			io.Warn(err.Error())

			continue
		}

		if ok {
			printID(io, s, id, opts)
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	return nil
}

// matchOne reports whether id exists and its header satisfies pred.
func matchOne(s *store.Store, id storeid.ID, pred *filter.Predicate) (bool, error) {
	h, err := getExisting(s, id)
	if err != nil {
		return false, err
	}

	ok := pred.Match(h.Header())

	return ok, h.Release()
}

func printID(io *IO, s *store.Store, id storeid.ID, opts idsOptions) {
	if !inAnyCollection(id, opts.collections) {
		return
	}

	if opts.storePath {
		io.Println(id.ToPath(s.Root()))

		return
	}

	io.Println(id)
}

func inAnyCollection(id storeid.ID, collections []string) bool {
	if len(collections) == 0 {
		return true
	}

	for _, c := range collections {
		if id.InCollection(c) {
			return true
		}
	}

	return false
}
