package hook

import (
	"context"
	"io"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"

	"commitgate/internal/config"
	"commitgate/internal/intercept"
	"commitgate/internal/protocol"
	"commitgate/internal/validation"
)

// Options override what Handle would otherwise derive from the event and
// the environment. Zero values keep the defaults.
type Options struct {
	// WorkDir replaces the work directory resolved from the event.
	WorkDir string
	// ConfigPath replaces <work dir>/.claude/commit-gate.yaml.
	ConfigPath string
	// LogLevel replaces the configured log level.
	LogLevel string
}

// Handle answers one PreToolUse event read from r, writing the response to
// w and logs to logw. Every infrastructure problem fails open: the tool
// call proceeds and, where useful, a warning systemMessage is attached.
// Only a failed check produces a deny.
func Handle(ctx context.Context, r io.Reader, w, logw io.Writer) error {
	return HandleWith(ctx, Options{}, r, w, logw)
}

// HandleWith is Handle with explicit overrides.
func HandleWith(ctx context.Context, opts Options, r io.Reader, w, logw io.Writer) error {
	input, err := protocol.ReadInput(r)
	if err != nil {
		return protocol.WriteError(w, "%v", err)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = validation.GetWorkDir(input.Cwd)
	}
	if err := validation.ValidateWorkDir(workDir); err != nil {
		return protocol.WriteEmpty(w)
	}

	var cfg *config.Config
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFile(ctx, opts.ConfigPath, envconfig.OsLookuper())
	} else {
		cfg, err = config.Load(ctx, workDir)
	}
	if err != nil {
		return protocol.WriteError(w, "loading config: %v", err)
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
		if err := cfg.Validate(); err != nil {
			return protocol.WriteError(w, "loading config: %v", err)
		}
	}
	level, _ := cfg.Level()
	ctx = clog.WithLogger(ctx, NewLogger(logw, level).With("session_id", input.SessionID))

	if !cfg.Active() || !cfg.IsShellTool(input.ToolName) {
		return protocol.WriteEmpty(w)
	}

	cmd := intercept.Classify(input.GetCommand())
	if !cmd.IsCommit() {
		return protocol.WriteEmpty(w)
	}
	clog.FromContext(ctx).Infof("[pre-commit] Running pre-commit checks...")

	rt := Setup(ctx, cfg, workDir)
	defer rt.Close()

	d := rt.Evaluate(ctx, input.SessionID, cmd)
	if d.Blocked() {
		return protocol.WriteDeny(w, d.Reason)
	}
	return protocol.WriteEmpty(w)
}
