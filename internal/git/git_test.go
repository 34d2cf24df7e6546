package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"commitgate/internal/toolexec"
	"commitgate/internal/toolexec/fake"
)

// createTestRepo initializes a git repository with the git binary.
func createTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	tmpDir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@test.com"},
		{"config", "user.name", "Test User"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = tmpDir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	return tmpDir
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, stderr.String())
	}
	return string(out)
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFindRoot(t *testing.T) {
	t.Run("nested directory", func(t *testing.T) {
		root := t.TempDir()
		if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
			t.Fatal(err)
		}
		nested := filepath.Join(root, "apps", "example")
		if err := os.MkdirAll(nested, 0755); err != nil {
			t.Fatal(err)
		}

		got, err := FindRoot(nested)
		if err != nil {
			t.Fatalf("FindRoot() error = %v", err)
		}
		if got != root {
			t.Errorf("FindRoot() = %v, want %v", got, root)
		}
	})

	t.Run("worktree .git file", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, ".git", "gitdir: /elsewhere/.git/worktrees/x\n")

		got, err := FindRoot(root)
		if err != nil || got != root {
			t.Errorf("FindRoot() = %v, %v; want %v", got, err, root)
		}
	})

	t.Run("not a repository", func(t *testing.T) {
		// The temp dir may itself live under a repository on some hosts.
		if _, err := FindRoot(os.TempDir()); err == nil {
			t.Skip("temp dir is inside a repository")
		}
		if _, err := FindRoot(t.TempDir()); !errors.Is(err, ErrNotRepository) {
			t.Errorf("FindRoot() error = %v, want %v", err, ErrNotRepository)
		}
	})
}

func TestCLIInvocations(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	runner := &fake.Runner{Handle: func(inv toolexec.Invocation) (*toolexec.Result, error) {
		switch inv.Args[0] {
		case "diff":
			return fake.OK("a.py\x00pkg/b.py\x00")
		default:
			return fake.OK("")
		}
	}}
	cli := NewCLI(root, runner)

	staged, err := cli.StagedFiles(ctx, []string{"*.py"})
	if err != nil {
		t.Fatalf("StagedFiles() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a.py", "pkg/b.py"}, staged); diff != "" {
		t.Errorf("StagedFiles() mismatch (-want +got):\n%s", diff)
	}

	if _, err := cli.ModifiedFiles(ctx, staged); err != nil {
		t.Fatalf("ModifiedFiles() error = %v", err)
	}
	if err := cli.Add(ctx, []string{"a.py"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	want := []toolexec.Invocation{
		{Name: "git", Dir: root, Args: []string{"diff", "--cached", "--name-only", "--diff-filter=ACM", "-z", "--", "*.py"}},
		{Name: "git", Dir: root, Args: []string{"diff", "--name-only", "-z", "--", ":(literal)a.py", ":(literal)pkg/b.py"}},
		{Name: "git", Dir: root, Args: []string{"add", "--", ":(literal)a.py"}},
	}
	if diff := cmp.Diff(want, runner.Calls); diff != "" {
		t.Errorf("invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestCLIEmptyPathsSkipGit(t *testing.T) {
	runner := &fake.Runner{}
	cli := NewCLI(t.TempDir(), runner)
	ctx := context.Background()

	if got, err := cli.ModifiedFiles(ctx, nil); err != nil || got != nil {
		t.Errorf("ModifiedFiles(nil) = %v, %v", got, err)
	}
	if err := cli.Add(ctx, nil); err != nil {
		t.Errorf("Add(nil) error = %v", err)
	}
	if len(runner.Calls) != 0 {
		t.Errorf("runner called %d times, want 0", len(runner.Calls))
	}
}

func TestCLICommandError(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	runner := &fake.Runner{Handle: func(toolexec.Invocation) (*toolexec.Result, error) {
		return fake.Exit(128, "", "fatal: index file corrupt\n")
	}}

	_, err := NewCLI(root, runner).StagedFiles(context.Background(), []string{"*.py"})
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("StagedFiles() error = %v, want *CommandError", err)
	}
	if cmdErr.ExitCode != 128 {
		t.Errorf("ExitCode = %d, want 128", cmdErr.ExitCode)
	}
	if got := cmdErr.Error(); got != "git diff --cached --name-only --diff-filter=ACM -z -- *.py: exit status 128: fatal: index file corrupt" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCLIWithGit(t *testing.T) {
	dir := createTestRepo(t)
	ctx := context.Background()
	cli := NewCLI(dir, &toolexec.Exec{})

	writeFile(t, dir, "keep.py", "x = 1\n")
	writeFile(t, dir, "notes.md", "# notes\n")
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "initial")

	writeFile(t, dir, "keep.py", "x = 2\n")
	writeFile(t, dir, "pkg/new.py", "y = 1\n")
	writeFile(t, dir, "notes.md", "# more notes\n")
	writeFile(t, dir, "untracked.py", "z = 1\n")
	gitRun(t, dir, "add", "keep.py", "pkg/new.py", "notes.md")

	staged, err := cli.StagedFiles(ctx, []string{"*.py"})
	if err != nil {
		t.Fatalf("StagedFiles() error = %v", err)
	}
	if diff := cmp.Diff([]string{"keep.py", "pkg/new.py"}, staged); diff != "" {
		t.Errorf("StagedFiles() mismatch (-want +got):\n%s", diff)
	}

	// A fixer rewrites one staged file in the working tree.
	writeFile(t, dir, "pkg/new.py", "y = 1  # fixed\n")

	modified, err := cli.ModifiedFiles(ctx, staged)
	if err != nil {
		t.Fatalf("ModifiedFiles() error = %v", err)
	}
	if diff := cmp.Diff([]string{"pkg/new.py"}, modified); diff != "" {
		t.Errorf("ModifiedFiles() mismatch (-want +got):\n%s", diff)
	}

	if err := cli.Add(ctx, modified); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	modified, err = cli.ModifiedFiles(ctx, staged)
	if err != nil {
		t.Fatalf("ModifiedFiles() error = %v", err)
	}
	if len(modified) != 0 {
		t.Errorf("ModifiedFiles() after Add = %v, want empty", modified)
	}
}

func TestCLIGlobCharactersInFileNames(t *testing.T) {
	dir := createTestRepo(t)
	ctx := context.Background()
	cli := NewCLI(dir, &toolexec.Exec{})

	writeFile(t, dir, "a1.py", "x = 1\n")
	gitRun(t, dir, "add", "a1.py")
	gitRun(t, dir, "commit", "-m", "initial")

	// a1.py is edited but not staged; a[1].py is new and staged.
	writeFile(t, dir, "a1.py", "x = 2\n")
	writeFile(t, dir, "a[1].py", "y = 1\n")
	gitRun(t, dir, "add", "--", ":(literal)a[1].py")

	staged, err := cli.StagedFiles(ctx, []string{"*.py"})
	if err != nil {
		t.Fatalf("StagedFiles() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a[1].py"}, staged); diff != "" {
		t.Fatalf("StagedFiles() mismatch (-want +got):\n%s", diff)
	}

	writeFile(t, dir, "a[1].py", "y = 1  # fixed\n")

	modified, err := cli.ModifiedFiles(ctx, staged)
	if err != nil {
		t.Fatalf("ModifiedFiles() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a[1].py"}, modified); diff != "" {
		t.Errorf("ModifiedFiles() mismatch (-want +got):\n%s", diff)
	}

	if err := cli.Add(ctx, modified); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// a1.py matches the glob a[1].py and must still be unstaged.
	index := gitRun(t, dir, "diff", "--cached", "--name-only")
	if diff := cmp.Diff("a[1].py\n", index); diff != "" {
		t.Errorf("staged set mismatch (-want +got):\n%s", diff)
	}
	if unstaged := gitRun(t, dir, "diff", "--name-only"); unstaged != "a1.py\n" {
		t.Errorf("unstaged = %q, want a1.py", unstaged)
	}
}

func TestCLIFromSubdirectory(t *testing.T) {
	dir := createTestRepo(t)
	ctx := context.Background()

	writeFile(t, dir, "apps/example/main.py", "print('hi')\n")
	writeFile(t, dir, "shared/utils.py", "def f(): pass\n")
	gitRun(t, dir, "add", ".")

	cli := NewCLI(filepath.Join(dir, "apps", "example"), &toolexec.Exec{})
	staged, err := cli.StagedFiles(ctx, []string{"*.py"})
	if err != nil {
		t.Fatalf("StagedFiles() error = %v", err)
	}
	// Paths stay relative to the top level and cover the whole repository.
	if diff := cmp.Diff([]string{"apps/example/main.py", "shared/utils.py"}, staged); diff != "" {
		t.Errorf("StagedFiles() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitPaths(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []string
	}{
		{name: "empty", out: "", want: nil},
		{name: "nul separated", out: "a.py\x00b c.py\x00", want: []string{"a.py", "b c.py"}},
		{name: "newline separated", out: "a.py\nb.py\n", want: []string{"a.py", "b.py"}},
		{name: "blank lines", out: "\n\n", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, splitPaths(tt.out)); diff != "" {
				t.Errorf("splitPaths() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
