package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one imag sub-command.
//
// Usage starts with the command name followed by its arguments, for example
// "get <id>" or "mv <from> <to>". The name of the flag set is ignored.
type Command struct {
	Flags *flag.FlagSet
	Usage string

	// Short is shown in the command listing, Long in "imag <cmd> --help".
	// Long falls back to Short.
	Short string
	Long  string

	// Exec receives the positional arguments left after flag parsing.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name is the first word of Usage.
func (c *Command) Name() string {
	return strings.Fields(c.Usage + " ")[0]
}

// HelpLine is the row printed for c under "Commands:".
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-26s %s", c.Usage, c.Short)
}

// PrintHelp writes the usage line, description and flag defaults to stdout.
func (c *Command) PrintHelp(o *IO) {
	o.Printf("%s", c.helpText())
}

func (c *Command) helpText() string {
	var b strings.Builder

	b.WriteString("Usage: imag " + c.Usage + "\n\n")

	if c.Long != "" {
		b.WriteString(c.Long + "\n")
	} else {
		b.WriteString(c.Short + "\n")
	}

	if c.Flags == nil || !c.Flags.HasFlags() {
		return b.String()
	}

	b.WriteString("\nFlags:\n")
	c.Flags.SetOutput(&b)
	c.Flags.PrintDefaults()

	return b.String()
}

// Run parses args into c.Flags and calls Exec. Flag errors print the error
// to stderr and the help to stdout. The result is the exit code.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	switch err := c.Flags.Parse(args); {
	case errors.Is(err, flag.ErrHelp):
		c.PrintHelp(o)

		return 0
	case err != nil:
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 1
	}

	if err := c.Exec(ctx, o, c.Flags.Args()); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return 0
}
