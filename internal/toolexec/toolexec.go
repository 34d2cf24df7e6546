// Package toolexec runs external tools without shell interpolation and
// captures their output streams separately.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// Invocation describes one subprocess call.
type Invocation struct {
	Name string
	Args []string
	Dir  string
}

// String renders the invocation for logs.
func (i Invocation) String() string {
	if len(i.Args) == 0 {
		return i.Name
	}
	return i.Name + " " + strings.Join(i.Args, " ")
}

// Result holds what a finished subprocess reported.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// StartError means the process could not be started or did not exit
// normally (missing binary, killed by a signal, deadline exceeded).
// The partial streams captured before the failure are kept.
type StartError struct {
	Invocation Invocation
	Stdout     string
	Stderr     string
	Err        error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("run %s: %v", e.Invocation.Name, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// Runner executes invocations. A non-zero exit is reported in Result, not
// as an error; errors are reserved for *StartError.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// Exec runs invocations with os/exec.
type Exec struct {
	// Timeout bounds every invocation. Zero waits until the process exits.
	Timeout time.Duration
}

var _ Runner = (*Exec)(nil)

// Run executes inv and waits for it to finish.
func (e *Exec) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	clog.FromContext(ctx).Debugf("exec: %s", inv)

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, &StartError{
			Invocation: inv,
			Stdout:     result.Stdout,
			Stderr:     result.Stderr,
			Err:        fmt.Errorf("timed out after %s", e.Timeout),
		}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.Exited() {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, &StartError{
			Invocation: inv,
			Stdout:     result.Stdout,
			Stderr:     result.Stderr,
			Err:        err,
		}
	}

	return result, nil
}
