// Package fake provides a recording toolexec.Runner for tests.
package fake

import (
	"context"
	"strings"

	"commitgate/internal/toolexec"
)

// Handler answers one invocation.
type Handler func(inv toolexec.Invocation) (*toolexec.Result, error)

// Runner records every invocation and answers it with Handle. With a nil
// Handle every invocation succeeds with empty output.
type Runner struct {
	Handle Handler
	Calls  []toolexec.Invocation
}

var _ toolexec.Runner = (*Runner)(nil)

// Run implements toolexec.Runner.
func (r *Runner) Run(_ context.Context, inv toolexec.Invocation) (*toolexec.Result, error) {
	r.Calls = append(r.Calls, inv)
	if r.Handle == nil {
		return &toolexec.Result{}, nil
	}
	return r.Handle(inv)
}

// CallsTo returns the recorded invocations whose rendered command line
// starts with prefix, e.g. "git add" or "uv run pytest".
func (r *Runner) CallsTo(prefix string) []toolexec.Invocation {
	var out []toolexec.Invocation
	for _, c := range r.Calls {
		if strings.HasPrefix(c.String(), prefix) {
			out = append(out, c)
		}
	}
	return out
}

// OK returns a successful result with the given stdout.
func OK(stdout string) (*toolexec.Result, error) {
	return &toolexec.Result{Stdout: stdout}, nil
}

// Exit returns a result with the given exit code and streams.
func Exit(code int, stdout, stderr string) (*toolexec.Result, error) {
	return &toolexec.Result{ExitCode: code, Stdout: stdout, Stderr: stderr}, nil
}
