package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/imag/pkg/filter"
	"github.com/calvinalkan/imag/pkg/store"

	flag "github.com/spf13/pflag"
)

const queryPrompt = "imag> "

// lineReader is the input side of the query shell.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(line string)
	Close() error
}

// scanReader reads lines from a non-terminal input without prompting.
type scanReader struct {
	scanner *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}

	if err := r.scanner.Err(); err != nil {
		return "", err
	}

	return "", io.EOF
}

func (*scanReader) AppendHistory(string) {}

func (*scanReader) Close() error { return nil }

// QueryCmd returns the query command.
func QueryCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("query", flag.ContinueOnError),
		Usage: "query",
		Short: "Interactive filter shell",
		Long: `Read filter expressions line by line and print the IDs of matching entries.

Type 'help' for the expression syntax and 'quit' to leave. When stdin is not a
terminal the expressions are read from it without prompting.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 0 {
				return errTooManyArgs
			}

			in, history := newLineReader(o.Stdin(), env.Vars)
			defer func() { _ = in.Close() }()

			err := env.withStore(func(s *store.Store) error {
				return runQueryShell(ctx, o, s, in)
			})

			if history != "" {
				saveHistory(in, history)
			}

			return err
		},
	}
}

// newLineReader returns liner on an interactive terminal and a plain line
// scanner otherwise, plus the history file to use.
func newLineReader(stdin io.Reader, env map[string]string) (lineReader, string) {
	if f, ok := stdin.(*os.File); ok && f == os.Stdin && isTerminal(f) && liner.TerminalSupported() {
		state := liner.NewLiner()
		state.SetCtrlCAborts(true)

		history := historyFile(env)
		if history != "" {
			if hf, err := os.Open(history); err == nil {
				_, _ = state.ReadHistory(hf)
				_ = hf.Close()
			}
		}

		return state, history
	}

	if stdin == nil {
		stdin = strings.NewReader("")
	}

	return &scanReader{scanner: bufio.NewScanner(stdin)}, ""
}

func runQueryShell(ctx context.Context, o *IO, s *store.Store, in lineReader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := in.Prompt(queryPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		in.AppendHistory(line)

		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			printQueryHelp(o)

			continue
		}

		err = runQuery(ctx, o, s, line)
		if errors.Is(err, context.Canceled) {
			return err
		}

		if err != nil {
			o.ErrPrintln("error:", err)
		}
	}
}

func runQuery(ctx context.Context, o *IO, s *store.Store, query string) error {
	p, err := filter.Compile(query)
	if err != nil {
		return err
	}

	n := 0

	for e, err := range s.Select(ctx, p) {
		if errors.Is(err, context.Canceled) {
			return err
		}

		if err != nil {
			o.ErrPrintln("warning:", err)

			continue
		}

		o.Println(e.ID())

		n++
	}

	o.Printf("(%d matching)\n", n)

	return nil
}

func printQueryHelp(o *IO) {
	o.Println(`Expressions:
  field                   field exists and is not false
  field == "text"         compare (== != < <= > >=) with a string, number or bool
  a.b.[0] > 2             nested fields and list elements
  not x, x and y, x or y  combine; parentheses group
Commands:
  help                    show this help
  quit                    leave the shell`)
}

// historyFile returns the path to the history file.
func historyFile(env map[string]string) string {
	home := env["HOME"]
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".imag_history")
}

// saveHistory persists command history to disk.
func saveHistory(in lineReader, path string) {
	state, ok := in.(*liner.State)
	if !ok {
		return
	}

	if f, err := os.Create(path); err == nil {
		_, _ = state.WriteHistory(f)
		_ = f.Close()
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}
