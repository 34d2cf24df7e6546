// Package git provides the narrow staging-area operations the commit gate
// needs: list staged files, list modified files, add files. Commands are run
// without shell interpolation and paths always follow "--". File lists are
// passed as literal pathspecs; only configured patterns are globbed.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"commitgate/internal/toolexec"
)

// ErrNotRepository is returned when no enclosing repository can be found.
var ErrNotRepository = errors.New("not a git repository")

// Stager is the staging-area surface used by the gate. All paths are
// relative to Root.
type Stager interface {
	// Root returns the top level of the working tree.
	Root(ctx context.Context) (string, error)
	// StagedFiles lists added, copied or modified index entries matching
	// any of the pathspec patterns.
	StagedFiles(ctx context.Context, patterns []string) ([]string, error)
	// ModifiedFiles lists which of paths differ between working tree and
	// index.
	ModifiedFiles(ctx context.Context, paths []string) ([]string, error)
	// Add stages exactly paths.
	Add(ctx context.Context, paths []string) error
}

// CommandError reports a git invocation that exited non-zero.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// FindRoot walks up from dir to the first directory holding a .git entry
// (a directory for normal clones, a file for worktrees and submodules).
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotRepository
		}
		abs = parent
	}
}

// CLI implements Stager by running the git binary.
type CLI struct {
	workDir string
	runner  toolexec.Runner
	root    string
}

var _ Stager = (*CLI)(nil)

// NewCLI returns a Stager that runs git through runner. The repository
// root is resolved on first use.
func NewCLI(workDir string, runner toolexec.Runner) *CLI {
	return &CLI{workDir: workDir, runner: runner}
}

// Root implements Stager.
func (c *CLI) Root(_ context.Context) (string, error) {
	if c.root == "" {
		root, err := FindRoot(c.workDir)
		if err != nil {
			return "", err
		}
		c.root = root
	}
	return c.root, nil
}

// StagedFiles implements Stager.
func (c *CLI) StagedFiles(ctx context.Context, patterns []string) ([]string, error) {
	args := append([]string{"diff", "--cached", "--name-only", "--diff-filter=ACM", "-z", "--"}, patterns...)
	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return splitPaths(out), nil
}

// ModifiedFiles implements Stager.
func (c *CLI) ModifiedFiles(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	args := append([]string{"diff", "--name-only", "-z", "--"}, literal(paths)...)
	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return splitPaths(out), nil
}

// Add implements Stager.
func (c *CLI) Add(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, literal(paths)...)
	_, err := c.run(ctx, args)
	return err
}

func (c *CLI) run(ctx context.Context, args []string) (string, error) {
	root, err := c.Root(ctx)
	if err != nil {
		return "", err
	}
	res, err := c.runner.Run(ctx, toolexec.Invocation{Name: "git", Args: args, Dir: root})
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", &CommandError{Args: args, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res.Stdout, nil
}

// literal marks exact file names so git does not expand glob characters
// in them. Only configured patterns are passed as plain pathspecs.
func literal(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = ":(literal)" + p
	}
	return out
}

// splitPaths parses -z output, falling back to newline separation for
// output produced without -z.
func splitPaths(out string) []string {
	sep := "\x00"
	if !strings.Contains(out, sep) {
		sep = "\n"
	}
	var paths []string
	for _, p := range strings.Split(out, sep) {
		if p = strings.TrimRight(p, "\r"); p != "" && strings.TrimSpace(p) != "" {
			paths = append(paths, p)
		}
	}
	return paths
}
