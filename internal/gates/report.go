package gates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"commitgate/internal/toolexec"
)

// FailureKind says why a check failed.
type FailureKind string

const (
	// FailureRemediation means the fixer ran and reported problems it
	// could not fix.
	FailureRemediation FailureKind = "remediation"
	// FailureVerification means the tests ran and failed.
	FailureVerification FailureKind = "verification"
	// FailureToolInvocation means a tool could not be run at all, or git
	// refused a query or re-add.
	FailureToolInvocation FailureKind = "tool_invocation"
)

// Step is the pipeline step a failure came from.
type Step string

const (
	StepScope   Step = "scope"
	StepFix     Step = "fix"
	StepRestage Step = "restage"
	StepTest    Step = "test"
)

// Reason prefixes, one per step.
const (
	PrefixScope   = "[pre-commit] Could not determine staged files."
	PrefixLint    = "[pre-commit] Ruff check failed. Please fix the issues before committing."
	PrefixRestage = "[pre-commit] Could not re-stage files fixed by ruff."
	PrefixTests   = "[pre-commit] Tests failed. Please fix failing tests before committing."
)

// CheckError is a typed check failure. It aborts the pipeline.
type CheckError struct {
	Check    string
	Step     Step
	Kind     FailureKind
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CheckError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s check: %s: %v", e.Check, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s check: %s: exit status %d", e.Check, e.Kind, e.ExitCode)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// startFailure builds a tool invocation failure for check, keeping any
// output the process wrote before it died.
func startFailure(check string, step Step, err error) *CheckError {
	ce := &CheckError{Check: check, Step: step, Kind: FailureToolInvocation, ExitCode: -1, Err: err}
	var se *toolexec.StartError
	if errors.As(err, &se) {
		ce.Stdout = se.Stdout
		ce.Stderr = se.Stderr
	}
	return ce
}

// Reason renders the caller-facing block message: a fixed prefix for the
// failing step followed by the most informative output available.
func Reason(e *CheckError) string {
	return prefix(e.Step) + "\n" + detail(e)
}

func prefix(step Step) string {
	switch step {
	case StepScope:
		return PrefixScope
	case StepRestage:
		return PrefixRestage
	case StepTest:
		return PrefixTests
	default:
		return PrefixLint
	}
}

// detail picks the stream to show. The fixer explains itself on stderr,
// test runners report on stdout, and a tool that never ran only has its
// error.
func detail(e *CheckError) string {
	var candidates []string
	switch e.Kind {
	case FailureRemediation:
		candidates = []string{e.Stderr, e.Stdout}
	case FailureVerification:
		candidates = []string{e.Stdout, e.Stderr}
	default:
		candidates = []string{e.Stderr}
		if e.Err != nil {
			candidates = append(candidates, e.Err.Error())
		}
	}
	for _, c := range candidates {
		if s := strings.TrimRight(c, " \t\r\n"); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fallback(e)
}

func fallback(e *CheckError) string {
	if e.Kind == FailureToolInvocation {
		return fmt.Sprintf("%s could not be started", e.Check)
	}
	return fmt.Sprintf("%s exited with status %d and produced no output", e.Check, e.ExitCode)
}

// Summary renders a multi-line report of d for terminals.
func Summary(d *Decision) string {
	var b strings.Builder
	for _, r := range d.Results {
		fmt.Fprintf(&b, "%-6s %-7s", r.Check, r.Status)
		if r.Status != StatusSkipped {
			fmt.Fprintf(&b, " %s", r.Duration.Round(time.Millisecond))
		}
		if len(r.Restaged) > 0 {
			fmt.Fprintf(&b, "  re-staged: %s", strings.Join(r.Restaged, ", "))
		}
		b.WriteString("\n")
	}
	if d.Tests != nil {
		fmt.Fprintf(&b, "tests: %s\n", d.Tests)
	}
	if d.Blocked() {
		b.WriteString(d.Reason)
		b.WriteString("\n")
	} else {
		b.WriteString("[pre-commit] All checks passed!\n")
	}
	return b.String()
}
