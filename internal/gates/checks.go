package gates

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"commitgate/internal/testrunner"
	"commitgate/internal/toolexec"
)

// lint runs the fixer over scope and re-stages the files it rewrote.
func (g *Gate) lint(ctx context.Context, scope Scope) (CheckResult, *CheckError) {
	log := clog.FromContext(ctx)
	result := CheckResult{Check: CheckLint, Status: StatusSkipped}
	if scope.Empty() {
		return result, nil
	}

	root, err := g.stager.Root(ctx)
	if err != nil {
		result.Status = StatusFail
		return result, &CheckError{Check: CheckLint, Step: StepScope, Kind: FailureToolInvocation, Err: err}
	}

	inv := command(g.opts.LintCommand, root, scope.Paths...)
	log.Infof("[pre-commit] Running: %s", inv)

	start := time.Now()
	res, err := g.runner.Run(ctx, inv)
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusFail
		ce := startFailure(CheckLint, StepFix, err)
		result.ExitCode, result.Stdout, result.Stderr = ce.ExitCode, ce.Stdout, ce.Stderr
		return result, ce
	}
	result.ExitCode, result.Stdout, result.Stderr = res.ExitCode, res.Stdout, res.Stderr

	if !res.Success() {
		result.Status = StatusFail
		return result, &CheckError{
			Check:    CheckLint,
			Step:     StepFix,
			Kind:     FailureRemediation,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	log.Infof("[pre-commit] Ruff check passed")

	restaged, err := g.restage(ctx, scope)
	if err != nil {
		result.Status = StatusFail
		return result, &CheckError{Check: CheckLint, Step: StepRestage, Kind: FailureToolInvocation, Err: err}
	}
	if len(restaged) > 0 {
		log.Infof("[pre-commit] Ruff fixed some issues. Re-staged %d file(s)", len(restaged))
		result.Remediated = true
		result.Restaged = restaged
	}

	result.Status = StatusPass
	return result, nil
}

// restage adds back to the index exactly the in-scope files that differ
// from it after the fixer ran.
func (g *Gate) restage(ctx context.Context, scope Scope) ([]string, error) {
	modified, err := g.stager.ModifiedFiles(ctx, scope.Paths)
	if err != nil {
		return nil, fmt.Errorf("listing fixed files: %w", err)
	}

	var fixed []string
	for _, p := range modified {
		if scope.Contains(p) {
			fixed = append(fixed, p)
		}
	}
	if len(fixed) == 0 {
		return nil, nil
	}
	if err := g.stager.Add(ctx, fixed); err != nil {
		return nil, fmt.Errorf("staging fixed files: %w", err)
	}
	return fixed, nil
}

// tests runs the test command. It runs whatever the lint scope was.
func (g *Gate) tests(ctx context.Context) (CheckResult, *testrunner.Summary, *CheckError) {
	log := clog.FromContext(ctx)
	result := CheckResult{Check: CheckTests}

	dir := g.opts.TestDir
	if dir == "" {
		root, err := g.stager.Root(ctx)
		if err != nil {
			result.Status = StatusFail
			return result, nil, &CheckError{Check: CheckTests, Step: StepTest, Kind: FailureToolInvocation, Err: err}
		}
		dir = root
	}

	inv := command(g.opts.TestCommand, dir)
	log.Infof("[pre-commit] Running: %s", inv)

	start := time.Now()
	res, err := g.runner.Run(ctx, inv)
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusFail
		ce := startFailure(CheckTests, StepTest, err)
		result.ExitCode, result.Stdout, result.Stderr = ce.ExitCode, ce.Stdout, ce.Stderr
		return result, nil, ce
	}
	result.ExitCode, result.Stdout, result.Stderr = res.ExitCode, res.Stdout, res.Stderr

	summary := testrunner.Parse(res.Stdout+res.Stderr, res.ExitCode, result.Duration)
	if !res.Success() {
		result.Status = StatusFail
		return result, summary, &CheckError{
			Check:    CheckTests,
			Step:     StepTest,
			Kind:     FailureVerification,
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}

	result.Status = StatusPass
	return result, summary, nil
}

// command builds an invocation from argv with extra arguments appended.
func command(argv []string, dir string, extra ...string) toolexec.Invocation {
	args := make([]string, 0, len(argv)-1+len(extra))
	args = append(args, argv[1:]...)
	args = append(args, extra...)
	return toolexec.Invocation{Name: argv[0], Args: args, Dir: dir}
}
