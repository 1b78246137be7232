package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/calvinalkan/imag/pkg/store"

	flag "github.com/spf13/pflag"
)

var errVerifyFailed = errors.New("store has problems")

// VerifyCmd returns the verify command.
func VerifyCmd(env *Env) *Command {
	return &Command{
		Flags: flag.NewFlagSet("verify", flag.ContinueOnError),
		Usage: "verify",
		Short: "Check every entry parses",
		Long: `Load every entry and report the ones that fail to parse, plus temp files
left behind by interrupted writes. Exits 1 if anything was found.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			if len(args) > 0 {
				return errTooManyArgs
			}

			return env.withStore(func(s *store.Store) error {
				return execVerify(ctx, io, s)
			})
		},
	}
}

func execVerify(ctx context.Context, io *IO, s *store.Store) error {
	report, err := s.Verify(ctx)
	if err != nil {
		return err
	}

	for _, p := range report.Problems {
		io.Printf("corrupt %s: %v\n", relPath(s.Root(), p.Path), p.Err)
	}

	for _, path := range report.StaleTemps {
		io.Printf("stale temp %s\n", relPath(s.Root(), path))
	}

	io.Printf("checked=%d problems=%d stale_temps=%d\n", report.Checked, len(report.Problems), len(report.StaleTemps))

	if !report.OK() {
		return fmt.Errorf("%w: %d", errVerifyFailed, len(report.Problems)+len(report.StaleTemps))
	}

	return nil
}

func relPath(root, path string) string {
	if path == "" {
		return "(store)"
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}

	return filepath.ToSlash(rel)
}
