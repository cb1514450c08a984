package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"deepcheck/internal/logging"
	"deepcheck/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and reclaim transient media in the staging directory",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged media",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := staging.List(cfg.Paths.StagingDir)
			if err != nil {
				return fmt.Errorf("list staging directory: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Staging directory is empty")
				return nil
			}

			var total int64
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				total += e.Size
				rows = append(rows, []string{e.Name, humanize.Time(e.ModTime), humanize.IBytes(uint64(e.Size))})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Name", "Modified", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
				withTitle(cfg.Paths.StagingDir),
				withFooter(fmt.Sprintf("Total: %d entries", len(entries)), "", humanize.IBytes(uint64(total))),
			))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staged media left behind by interrupted analyses",
		Long: `Remove staged media older than --max-age.

The default age is server.request_timeout: nothing older than one request
budget can belong to an analysis that is still running. Pass --max-age 0 to
remove everything, which is only safe when no server or analysis is running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if !cmd.Flags().Changed("max-age") {
				maxAge = cfg.RequestTimeout()
			}

			result := staging.Sweep(commandCtx(cmd), cfg.Paths.StagingDir, maxAge, logging.NewComponentLogger(logger, "staging"))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d staged entr%s (%s)\n", len(result.Removed), pluralY(len(result.Removed)), humanize.IBytes(uint64(result.Freed)))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d staged entries could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Only remove entries older than this (default server.request_timeout)")
	return cmd
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
