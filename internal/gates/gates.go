// Package gates runs the pre-commit check pipeline for an intercepted
// commit and turns its outcome into an allow or block decision.
//
// The pipeline has two checks in fixed order. "lint" runs the fixer over
// the staged files, re-stages whatever it rewrote and blocks if the fixer
// still reports problems. "tests" always runs once lint has passed or been
// skipped. The first failure stops the pipeline and blocks the commit.
package gates

import (
	"context"
	"errors"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"

	"commitgate/internal/git"
	"commitgate/internal/intercept"
	"commitgate/internal/testrunner"
	"commitgate/internal/toolexec"
)

// Check names.
const (
	CheckLint  = "lint"
	CheckTests = "tests"
)

// Action is the final verdict for an intercepted command.
type Action string

const (
	ActionAllow Action = "allow"
	ActionBlock Action = "block"
)

// Status is the outcome of one check.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// State tracks how far an evaluation got.
type State int

const (
	StateIdle State = iota
	StateScoped
	StateLintRunning
	StateLintPassed
	StateTestsRunning
	StateAllowed
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScoped:
		return "scoped"
	case StateLintRunning:
		return "lint_running"
	case StateLintPassed:
		return "lint_passed"
	case StateTestsRunning:
		return "tests_running"
	case StateAllowed:
		return "allowed"
	case StateBlocked:
		return "blocked"
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateAllowed || s == StateBlocked
}

// CheckResult is what one check observed.
type CheckResult struct {
	Check    string
	Status   Status
	ExitCode int
	Stdout   string
	Stderr   string
	// Remediated is set when the fixer rewrote files that were then
	// re-added to the index; Restaged lists exactly those files.
	Remediated bool
	Restaged   []string
	Duration   time.Duration
}

// Decision is the result of evaluating one command.
type Decision struct {
	// RunID identifies the evaluation in logs and the journal. Empty for
	// commands that are not commit attempts.
	RunID   string
	Command intercept.Command
	Action  Action
	State   State
	// Reason is the caller-facing explanation of a block.
	Reason  string
	Failure *CheckError
	Scope   Scope
	Results []CheckResult
	// Tests holds the parsed test summary when the tests check ran.
	Tests    *testrunner.Summary
	Duration time.Duration
}

// Blocked reports whether the command must not proceed.
func (d *Decision) Blocked() bool {
	return d.Action == ActionBlock
}

// Result returns the result recorded for check, if it ran.
func (d *Decision) Result(check string) (CheckResult, bool) {
	for _, r := range d.Results {
		if r.Check == check {
			return r, true
		}
	}
	return CheckResult{}, false
}

// Options configures the pipeline.
type Options struct {
	// LintCommand is run with the scoped paths appended.
	LintCommand []string
	// Patterns select the staged files in scope.
	Patterns []string
	// TestCommand runs the project's tests.
	TestCommand []string
	// TestDir is where tests run. Empty means the repository root.
	TestDir string
}

// Gate evaluates intercepted commands. A Gate holds no per-evaluation
// state, so one value can evaluate any number of commits in sequence.
type Gate struct {
	opts   Options
	stager git.Stager
	runner toolexec.Runner
	scoper *Scoper
}

// New returns a Gate that queries the index through stager and runs the
// fixer and tests through runner.
func New(opts Options, stager git.Stager, runner toolexec.Runner) *Gate {
	return &Gate{
		opts:   opts,
		stager: stager,
		runner: runner,
		scoper: NewScoper(stager, opts.Patterns),
	}
}

// Evaluate decides whether cmd may proceed. Commands that are not commit
// attempts are allowed without touching the repository. Commit attempts run
// the full pipeline.
func (g *Gate) Evaluate(ctx context.Context, cmd intercept.Command) Decision {
	d := Decision{Command: cmd, Action: ActionAllow, State: StateIdle}
	if !cmd.IsCommit() {
		d.State = StateAllowed
		return d
	}

	d.RunID = uuid.NewString()
	log := clog.FromContext(ctx).With("run_id", d.RunID)
	ctx = clog.WithLogger(ctx, log)

	start := time.Now()
	err := g.pipeline(ctx, &d)
	d.Duration = time.Since(start)

	if err != nil {
		d.Action = ActionBlock
		d.State = StateBlocked
		d.Failure = err
		d.Reason = Reason(err)
		log.With("check", err.Check).With("kind", err.Kind).
			Warnf("[pre-commit] commit blocked by %s check", err.Check)
		return d
	}

	d.State = StateAllowed
	log.Infof("[pre-commit] all checks passed in %s", d.Duration.Round(time.Millisecond))
	return d
}

func (g *Gate) pipeline(ctx context.Context, d *Decision) *CheckError {
	log := clog.FromContext(ctx)

	scope, err := g.scoper.Staged(ctx)
	if errors.Is(err, git.ErrNotRepository) {
		// Nothing to commit outside a repository; git will refuse on its own.
		log.Warnf("[pre-commit] not inside a git repository, skipping checks")
		return nil
	}
	if err != nil {
		return &CheckError{Check: CheckLint, Step: StepScope, Kind: FailureToolInvocation, Err: err}
	}
	d.Scope = scope
	d.State = StateScoped
	if scope.Empty() {
		log.Infof("[pre-commit] no staged files match %v, skipping lint", scope.Filter)
	} else {
		log.Infof("[pre-commit] %d staged file(s) in scope", len(scope.Paths))
	}

	d.State = StateLintRunning
	lint, cerr := g.lint(ctx, scope)
	d.Results = append(d.Results, lint)
	if cerr != nil {
		return cerr
	}
	d.State = StateLintPassed

	d.State = StateTestsRunning
	tests, summary, cerr := g.tests(ctx)
	d.Results = append(d.Results, tests)
	d.Tests = summary
	if cerr != nil {
		return cerr
	}
	log.Infof("[pre-commit] tests passed: %s", summary)
	return nil
}
