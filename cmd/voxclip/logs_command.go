package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voxclip/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logs.TailOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent entries from today's log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := logs.Latest(cfg.Paths.LogDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path == "" {
				fmt.Fprintf(out, "No log files in %s\n", cfg.Paths.LogDir)
				return nil
			}
			return logs.Tail(cmd.Context(), path, opts, func(line string) error {
				_, err := fmt.Fprintln(out, line)
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&opts.VideoID, "video", "", "Only show entries for this video id")
	return cmd
}
