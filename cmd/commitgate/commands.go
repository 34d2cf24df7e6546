package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"commitgate/internal/config"
	"commitgate/internal/gates"
	"commitgate/internal/hook"
	"commitgate/internal/intercept"
	"commitgate/internal/protocol"
)

func newHookCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hook",
		Short: "Answer one PreToolUse event from stdin",
		Long: `Read a PreToolUse event on stdin and write the hook response on stdout.
Always exits 0; problems are reported as a warning and the tool call proceeds.
--dir, --config and --log-level override the event's work directory, the
project config file and the configured log level.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			hopts := hook.Options{ConfigPath: opts.configPath, LogLevel: opts.logLevel}
			if opts.dir != "" {
				dir, err := filepath.Abs(opts.dir)
				if err != nil {
					return protocol.WriteError(out, "%v", err)
				}
				hopts.WorkDir = dir
			}
			if err := hook.HandleWith(cmd.Context(), hopts, cmd.InOrStdin(), out, cmd.ErrOrStderr()); err != nil {
				return protocol.WriteError(out, "%v", err)
			}
			return nil
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the gate against the current staging area",
		Long: `Evaluate the staged changes exactly as an intercepted "git commit" would be.
Exits 1 when the commit would be blocked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workDir, err := opts.workDir()
			if err != nil {
				return err
			}
			cfg, err := opts.load(cmd.Context(), workDir)
			if err != nil {
				return err
			}
			ctx := logged(cmd, cfg)

			rt := hook.Setup(ctx, cfg, workDir)
			defer rt.Close()

			d := rt.Evaluate(ctx, "", intercept.Classify("git commit"))
			fmt.Fprint(cmd.OutOrStdout(), gates.Summary(&d))
			if d.Blocked() {
				return errBlocked
			}
			return nil
		},
	}
}

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "classify <command>...",
		Short:   "Print whether a shell command would be gated",
		Example: `  commitgate classify git commit -m "wip"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := intercept.Classify(strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), c.Kind)
			return nil
		},
	}
	// Everything after the first word belongs to the classified command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workDir, err := opts.workDir()
			if err != nil {
				return err
			}
			cfg, err := opts.load(cmd.Context(), workDir)
			if err != nil {
				return err
			}
			return encode(cmd, output, cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workDir, err := opts.workDir()
			if err != nil {
				return err
			}
			path := config.Path(workDir)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().Save(workDir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")
	return cmd
}

var errUnknownFormat = errors.New("unknown output format")

// encode writes v to the command's stdout as yaml or json.
func encode(cmd *cobra.Command, format string, v interface{}) error {
	w := cmd.OutOrStdout()
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("%w: %q", errUnknownFormat, format)
}
