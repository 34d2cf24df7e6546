package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"commitgate/internal/config"
	"commitgate/internal/hook"
	"commitgate/internal/validation"
)

// errBlocked is returned by "run" when the gate blocks; the report has
// already been printed.
var errBlocked = errors.New("commit blocked")

type rootOptions struct {
	dir        string
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "commitgate",
		Short:         "Gate git commits behind the fixer and the test suite",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", "", "project directory (default: hook env or current directory)")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: <dir>/.claude/"+config.ConfigFileName+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newHookCmd(opts),
		newRunCmd(opts),
		newClassifyCmd(),
		newConfigCmd(opts),
		newInitCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

// workDir resolves the project directory the same way the hook does.
func (o *rootOptions) workDir() (string, error) {
	dir := o.dir
	if dir == "" {
		dir = validation.GetWorkDir("")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := validation.ValidateWorkDir(abs); err != nil {
		return "", fmt.Errorf("%s: %w", abs, err)
	}
	return abs, nil
}

// load returns the effective config for workDir with flag overrides applied.
func (o *rootOptions) load(ctx context.Context, workDir string) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = config.Path(workDir)
	}
	cfg, err := config.LoadFile(ctx, path, envconfig.OsLookuper())
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// logged attaches a stderr logger at the configured level to ctx.
func logged(cmd *cobra.Command, cfg *config.Config) context.Context {
	level, _ := cfg.Level()
	return clog.WithLogger(cmd.Context(), hook.NewLogger(cmd.ErrOrStderr(), level))
}
