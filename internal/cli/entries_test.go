package cli_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/calvinalkan/imag/internal/cli"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()

	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func Test_Create_Writes_Entry_When_ID_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("create", "notes/a", "--content", "hello")
	if stdout != "notes/a" {
		t.Fatalf("stdout=%q, want notes/a", stdout)
	}

	if got, want := c.ReadEntry("notes/a"), "---\n---\nhello"; got != want {
		t.Fatalf("entry=%q, want %q", got, want)
	}
}

func Test_Create_Fails_When_Entry_Exists(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("create", "notes/a")

	stderr := c.MustFail("create", "notes/a")
	cli.AssertContains(t, stderr, "entry already exists")
	cli.AssertContains(t, stderr, "(id=notes/a)")

	stderr = c.MustFail("create", "Notes/A")
	cli.AssertContains(t, stderr, "entry already exists")
	cli.AssertContains(t, stderr, "(id=notes/a)")

	if got := c.MustRun("ids"); got != "notes/a" {
		t.Fatalf("ids=%q, want only notes/a", got)
	}
}

func Test_Create_Generates_ID_When_Collection_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stdout := c.MustRun("create", "--collection", "inbox")
	if !strings.HasPrefix(stdout, "inbox/") || len(stdout) <= len("inbox/") {
		t.Fatalf("stdout=%q, want inbox/<unique>", stdout)
	}

	if ids := c.MustRun("ids"); ids != stdout {
		t.Fatalf("ids=%q, want %q", ids, stdout)
	}
}

func Test_Create_Rejects_Bad_Arguments(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name string
		args []string
		want string
	}{
		{name: "no id", args: []string{"create"}, want: "id is required"},
		{name: "id and collection", args: []string{"create", "a", "--collection", "c"}, want: "not both"},
		{name: "parent escape", args: []string{"create", "../a"}, want: "malformed"},
		{name: "hidden segment", args: []string{"create", "notes/.secret"}, want: "malformed"},
		{name: "set without equals", args: []string{"create", "a", "--set", "kind"}, want: "--set wants path=value"},
		{name: "bad set path", args: []string{"create", "a", "--set", "a..b=1"}, want: "invalid field path"},
		{name: "conflicting sets", args: []string{"create", "a", "--set", "a=1", "--set", "a.b=2"}, want: "got integer"},
		{name: "both content flags", args: []string{"create", "a", "--content", "x", "--content-stdin"}, want: "mutually exclusive"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := cli.NewCLI(t)
			stderr := c.MustFail(tt.args...)
			cli.AssertContains(t, stderr, tt.want)

			if ids := c.MustRun("ids"); ids != "" {
				t.Fatalf("ids=%q, want no entries after failed create", ids)
			}
		})
	}
}

func Test_Create_Parses_Set_Values_As_TOML_When_Possible(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("create", "notes/a",
		"--set", "kind=note",
		"--set", "priority=3",
		"--set", "done=false",
		"--set", "tags=['x', 'y']",
		"--set", "meta.title=\"A title\"",
	)

	want := `---
done = false
kind = 'note'
priority = 3
tags = ['x', 'y']

[meta]
title = 'A title'
---
`

	if got := c.ReadEntry("notes/a"); got != want {
		t.Fatalf("entry=\n%s\nwant\n%s", got, want)
	}
}

func Test_Create_Reads_Content_From_Stdin_When_Requested(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	_, stderr, code := c.RunWithInput("line one\nline two\n", "create", "notes/a", "--content-stdin")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	if got, want := c.ReadEntry("notes/a"), "---\n---\nline one\nline two\n"; got != want {
		t.Fatalf("entry=%q, want %q", got, want)
	}
}

func Test_Retrieve_Creates_Or_Updates_Entry(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	if got := c.MustRun("retrieve", "diary/2024/01/05", "--set", "mood=good"); got != "diary/2024/01/05" {
		t.Fatalf("stdout=%q", got)
	}

	c.MustRun("retrieve", "diary/2024/01/05", "--content", "walked")

	if got, want := c.ReadEntry("diary/2024/01/05"), "---\nmood = 'good'\n---\nwalked"; got != want {
		t.Fatalf("entry=%q, want %q", got, want)
	}
}

func Test_Update_Changes_Existing_Entry(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteEntry("notes/a", "---\nkind = 'note'\nstale = true\n---\nbody")

	c.MustRun("update", "notes/a", "--set", "priority=2", "--unset", "stale")

	if got, want := c.ReadEntry("notes/a"), "---\nkind = 'note'\npriority = 2\n---\nbody"; got != want {
		t.Fatalf("entry=%q, want %q", got, want)
	}
}

func Test_Update_Fails_When_Entry_Missing_Or_No_Changes(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("update", "notes/missing", "--set", "a=1")
	cli.AssertContains(t, stderr, "entry not found")

	if _, err := os.Stat(filepath.Join(c.StoreDir(), "notes", "missing")); !os.IsNotExist(err) {
		t.Fatalf("update created the entry: %v", err)
	}

	c.MustRun("create", "notes/a")

	stderr = c.MustFail("update", "notes/a")
	cli.AssertContains(t, stderr, "nothing to update")
}

func Test_Get_Prints_Raw_Entry(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("create", "notes/a", "--set", "kind=note", "--content", "hello\n")

	stdout, stderr, code := c.Run("get", "notes/a")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	newGoldie(t).Assert(t, "get_raw", []byte(stdout))
}

func Test_Get_Prints_YAML_When_Format_Is_YAML(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteEntry("notes/a", "---\nkind = 'note'\npriority = 3\ntags = ['red', 'blue']\n---\nhello")

	stdout, stderr, code := c.Run("get", "--format", "yaml", "notes/a")
	if code != 0 {
		t.Fatalf("exitCode=%d, stderr=%s", code, stderr)
	}

	newGoldie(t).Assert(t, "get_yaml", []byte(stdout))
}

func Test_Get_Fails_When_Entry_Missing_Or_Corrupt(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteEntry("notes/bad", "no header")

	stderr := c.MustFail("get", "notes/missing")
	cli.AssertContains(t, stderr, "get: entry not found (id=notes/missing)")

	stderr = c.MustFail("get", "notes/bad")
	cli.AssertContains(t, stderr, "parse entry notes/bad: line 1")

	stderr = c.MustFail("get", "--format", "xml", "notes/bad")
	cli.AssertContains(t, stderr, "unknown format: xml")
}

func Test_Delete_Removes_Entry(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("create", "notes/a")
	c.MustRun("delete", "notes/a")

	if ids := c.MustRun("ids"); ids != "" {
		t.Fatalf("ids=%q, want empty", ids)
	}

	stderr := c.MustFail("delete", "notes/a")
	cli.AssertContains(t, stderr, "delete: entry not found (id=notes/a)")
}

func Test_Mv_Renames_Entry(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("create", "inbox/a", "--content", "moved")
	c.MustRun("create", "notes/taken")

	stderr := c.MustFail("mv", "inbox/a", "notes/taken")
	cli.AssertContains(t, stderr, "entry already exists")

	c.MustRun("mv", "inbox/a", "archive/a")

	if got := c.MustRun("ids"); got != "archive/a\nnotes/taken" {
		t.Fatalf("ids=%q", got)
	}

	if got := c.ReadEntry("archive/a"); got != "---\n---\nmoved" {
		t.Fatalf("entry=%q", got)
	}

	stderr = c.MustFail("mv", "only-one")
	cli.AssertContains(t, stderr, "exactly two ids")
}
