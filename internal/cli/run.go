// Package cli implements the imag command: a thin shell over the document
// store for creating, inspecting, filtering and verifying entries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/imag/internal/config"
	"github.com/calvinalkan/imag/internal/log"
	"github.com/calvinalkan/imag/pkg/store"

	flag "github.com/spf13/pflag"
)

var errNoCommand = errors.New("no command provided")

// Env is what commands need from the process: the resolved configuration,
// a logger and the environment variables.
type Env struct {
	Cfg  config.Config
	Log  zerolog.Logger
	Vars map[string]string
}

// withStore opens the configured store, runs fn and closes the store again.
func (e *Env) withStore(fn func(*store.Store) error) error {
	s, err := store.Open(store.Config{
		Root:        e.Cfg.StorePathAbs,
		Logger:      &e.Log,
		ProcessLock: e.Cfg.ProcessLock,
	})
	if err != nil {
		return err
	}

	err = fn(s)

	return errors.Join(err, s.Close())
}

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. A signal on it cancels the running command's context.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("imag", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.SetOutput(&strings.Builder{})
	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagStore := globalFlags.String("store", "", "Use the store at `dir`")
	flagLogLevel := globalFlags.String("log-level", "", "Log `level`: debug|info|warn|error|off")

	cmdEnv := &Env{Vars: env}
	commands := allCommands(cmdEnv)

	if len(args) < 2 {
		printUsage(out, globalFlags, commands)

		return 0
	}

	err := globalFlags.Parse(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printGlobalFlags(errOut, globalFlags)

		return 1
	}

	if *flagHelp {
		printUsage(out, globalFlags, commands)

		return 0
	}

	rest := globalFlags.Args()
	if len(rest) == 0 {
		fprintln(errOut, "error:", errNoCommand)
		fprintln(errOut)
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	cmd, ok := lookup(commands, rest[0])
	if !ok {
		fprintln(errOut, "error: unknown command:", rest[0])
		fprintln(errOut)
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	in := config.Input{
		WorkDirOverride:  *flagCwd,
		ConfigPath:       *flagConfig,
		LogLevelOverride: *flagLogLevel,
		Env:              env,
	}

	if globalFlags.Changed("store") {
		in.StoreOverride = flagStore
	}

	cfg, err := config.Load(in)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	logger, err := log.New(log.Config{
		Level:   log.Level(cfg.LogLevel),
		Format:  log.Format(cfg.LogFormat),
		Output:  errOut,
		NoColor: env["NO_COLOR"] != "",
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	cmdEnv.Cfg = cfg
	cmdEnv.Log = logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				logger.Debug().Msg("interrupted")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	o := NewIO(stdin, out, errOut)

	code := cmd.Run(ctx, o, rest[1:])
	if finish := o.Finish(); code == 0 {
		code = finish
	}

	return code
}

func allCommands(env *Env) []*Command {
	return []*Command{
		CreateCmd(env),
		RetrieveCmd(env),
		GetCmd(env),
		UpdateCmd(env),
		DeleteCmd(env),
		MoveCmd(env),
		IDsCmd(env),
		VerifyCmd(env),
		QueryCmd(env),
		PrintConfigCmd(env),
	}
}

func lookup(commands []*Command, name string) (*Command, bool) {
	for _, c := range commands {
		if c.Name() == name {
			return c, true
		}
	}

	return nil, false
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printGlobalFlags(w io.Writer, globalFlags *flag.FlagSet) {
	fprintln(w, "Global flags:")

	var buf strings.Builder

	globalFlags.SetOutput(&buf)
	globalFlags.PrintDefaults()
	globalFlags.SetOutput(&strings.Builder{})

	_, _ = io.WriteString(w, buf.String())
}

func printUsage(w io.Writer, globalFlags *flag.FlagSet, commands []*Command) {
	fprintln(w, "imag - personal document store")
	fprintln(w)
	fprintln(w, "Usage: imag [global flags] <command> [args]")
	fprintln(w)
	printGlobalFlags(w, globalFlags)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, "Run 'imag <command> --help' for command flags.")
}
