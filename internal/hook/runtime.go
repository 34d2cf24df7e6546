// Package hook wires configuration, the gate and its side channels
// (journal, metrics) together, and answers PreToolUse hook events.
package hook

import (
	"context"
	"io"
	"log/slog"

	"github.com/chainguard-dev/clog"

	"commitgate/internal/config"
	"commitgate/internal/gates"
	"commitgate/internal/git"
	"commitgate/internal/intercept"
	"commitgate/internal/journal"
	"commitgate/internal/metrics"
	"commitgate/internal/toolexec"
	"commitgate/internal/validation"
)

// NewLogger returns a text logger writing to w. Hook stdout carries the
// protocol, so w is normally stderr.
func NewLogger(w io.Writer, level slog.Level) *clog.Logger {
	return clog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Runtime is a gate built from a loaded configuration, plus the journal
// and metrics it reports to.
type Runtime struct {
	Config  *config.Config
	WorkDir string
	Gate    *gates.Gate

	journal *journal.Journal
	metrics *metrics.Recorder
}

// Setup builds a Runtime for workDir. The journal and metrics textfile are
// best effort: failing to open them is logged and the gate still runs.
func Setup(ctx context.Context, cfg *config.Config, workDir string) *Runtime {
	log := clog.FromContext(ctx)
	runner := &toolexec.Exec{Timeout: cfg.Timeout}

	var stager git.Stager
	switch cfg.GitBackend {
	case config.BackendGoGit:
		stager = git.NewRepo(workDir)
	default:
		stager = git.NewCLI(workDir, runner)
	}

	rt := &Runtime{
		Config:  cfg,
		WorkDir: workDir,
		Gate: gates.New(gates.Options{
			LintCommand: cfg.Lint.Command,
			Patterns:    cfg.Lint.Patterns,
			TestCommand: cfg.Tests.Command,
			TestDir:     workDir,
		}, stager, runner),
	}

	if cfg.Journal != "" {
		path, err := validation.ResolvePath(workDir, cfg.Journal)
		if err != nil {
			log.Warnf("[pre-commit] journal disabled: %v", err)
		} else if j, err := journal.Open(path); err != nil {
			log.Warnf("[pre-commit] journal disabled: %v", err)
		} else {
			rt.journal = j
		}
	}
	if cfg.MetricsTextfile != "" {
		rt.metrics = metrics.New()
	}
	return rt
}

// Close releases the journal.
func (rt *Runtime) Close() error {
	if rt.journal == nil {
		return nil
	}
	return rt.journal.Close()
}

// Evaluate runs the gate on cmd and reports the decision to the journal and
// metrics. Reporting errors are logged and never change the decision.
func (rt *Runtime) Evaluate(ctx context.Context, sessionID string, cmd intercept.Command) gates.Decision {
	d := rt.Gate.Evaluate(ctx, cmd)
	if !cmd.IsCommit() {
		return d
	}
	log := clog.FromContext(ctx).With("run_id", d.RunID)

	if rt.journal != nil {
		if err := rt.journal.Record(ctx, Entry(sessionID, &d)); err != nil {
			log.Warnf("[pre-commit] journal: %v", err)
		}
	}

	if rt.metrics != nil {
		rt.metrics.ObserveEvaluation(string(d.Action))
		for _, r := range d.Results {
			rt.metrics.ObserveCheck(r.Check, string(r.Status), r.Duration)
			rt.metrics.ObserveRestaged(len(r.Restaged))
		}
		path, err := validation.ResolvePath(rt.WorkDir, rt.Config.MetricsTextfile)
		if err == nil {
			err = rt.metrics.WriteTextfile(path)
		}
		if err != nil {
			log.Warnf("[pre-commit] metrics: %v", err)
		}
	}
	return d
}

// Entry converts a decision into a journal entry. Session IDs that fail
// validation are dropped rather than stored.
func Entry(sessionID string, d *gates.Decision) journal.Entry {
	if validation.ValidateSessionID(sessionID) != nil {
		sessionID = ""
	}
	e := journal.Entry{
		RunID:     d.RunID,
		SessionID: sessionID,
		Command:   d.Command.Text,
		Decision:  string(d.Action),
		State:     d.State.String(),
		Reason:    d.Reason,
		Scope:     d.Scope.Paths,
		Duration:  d.Duration,
	}
	if d.Failure != nil {
		e.FailedCheck = d.Failure.Check
		e.FailureKind = string(d.Failure.Kind)
	}
	for _, r := range d.Results {
		e.Restaged = append(e.Restaged, r.Restaged...)
	}
	if d.Tests != nil {
		e.TestsPassed = d.Tests.Passed
		e.TestsFailed = d.Tests.Failed
	}
	return e
}
