package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"commitgate/internal/journal"
	"commitgate/internal/validation"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent gate decisions from the journal",
		Example: `  commitgate history
  commitgate history -n 5 -o json`,
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
			if cfg.Journal == "" {
				return fmt.Errorf("journal is disabled")
			}
			path, err := validation.ResolvePath(workDir, cfg.Journal)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No decisions recorded yet.")
				return nil
			}

			j, err := journal.Open(path)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if output == "table" {
				return renderHistory(cmd, entries)
			}
			return encode(cmd, output, entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of decisions to show")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, yaml or json")
	return cmd
}

func renderHistory(cmd *cobra.Command, entries []journal.Entry) error {
	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithHeader([]string{"When", "Decision", "Check", "Kind", "Scope", "Re-staged", "Tests", "Took"}),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
	for _, e := range entries {
		tests := "-"
		if e.TestsPassed+e.TestsFailed > 0 {
			tests = fmt.Sprintf("%d/%d", e.TestsPassed, e.TestsPassed+e.TestsFailed)
		}
		row := []string{
			e.CreatedAt.Local().Format(time.DateTime),
			e.Decision,
			dash(e.FailedCheck),
			dash(e.FailureKind),
			strconv.Itoa(len(e.Scope)),
			dash(strings.Join(e.Restaged, " ")),
			tests,
			e.Duration.Round(time.Millisecond).String(),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
