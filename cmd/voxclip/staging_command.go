package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"voxclip/internal/clipstore"
	"voxclip/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Inspect and sweep per-video staging directories",
	}
	cmd.AddCommand(newStagingListCommand(ctx))
	cmd.AddCommand(newStagingCleanCommand(ctx))
	return cmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staging directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dirs, err := staging.ListDirectories(cfg.Paths.StagingDir)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				return writeJSON(cmd, dirs)
			}
			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging directories")
				return nil
			}
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				rows = append(rows, []string{
					dir.VideoID,
					humanize.IBytes(uint64(dir.Size)),
					dir.ModTime.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Video", "Size", "Modified"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staging directories idle longer than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			locker := clipstore.NewLocker(cfg.LockDir())
			result := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, locker, logger)
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{
					"removed": len(result.Removed),
					"skipped": len(result.Skipped),
					"errors":  len(result.Errors),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d, skipped %d busy\n", len(result.Removed), len(result.Skipped))
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "  %s: %v\n", failure.Path, failure.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d staging directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", staging.DefaultMaxAge, "Minimum idle time before a directory is removed")
	return cmd
}
