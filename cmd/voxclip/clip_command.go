package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voxclip/internal/config"
	"voxclip/internal/fileutil"
	"voxclip/internal/pipeline"
)

func newClipCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "clip <video-id> <clip-name>",
		Short: "Write a clip's WAV bytes to a file or stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				data, err := p.ClipBytes(cmd.Context(), strings.TrimSpace(args[0]), strings.TrimSpace(args[1]))
				if err != nil {
					return err
				}
				target := strings.TrimSpace(output)
				if target == "" || target == "-" {
					if isTerminal(cmd.OutOrStdout()) {
						return errors.New("refusing to write WAV data to a terminal; pass --output")
					}
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(expanded, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(data), expanded)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default stdout)")
	return cmd
}
