package cli_test

import (
	"testing"

	"github.com/calvinalkan/imag/internal/cli"
)

func Test_Query_Answers_Each_Line_When_Stdin_Is_Not_A_Terminal(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	seedEntries(c)

	input := `kind == "task"
# comment lines are skipped

priority > 2
kind ==
quit
kind == "note"
`

	stdout, stderr, code := c.RunWithInput(input, "query")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	if want := "todo/taxes\n(1 matching)\nnotes/imag\nnotes/release\n(2 matching)\n"; stdout != want {
		t.Fatalf("stdout=%q, want %q", stdout, want)
	}

	cli.AssertContains(t, stderr, "error:")
	cli.AssertContains(t, stderr, "kind ==")
}

func Test_Query_Prints_Help_When_Asked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout, _, code := c.RunWithInput("help\n", "query")
	if code != 0 {
		t.Fatalf("exitCode=%d", code)
	}

	cli.AssertContains(t, stdout, "Expressions:")
	cli.AssertContains(t, stdout, "quit")
}
