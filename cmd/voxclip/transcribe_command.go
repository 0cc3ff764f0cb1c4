package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voxclip/internal/pipeline"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var clipNames []string
	var force bool
	var language string

	cmd := &cobra.Command{
		Use:   "transcribe <video-id>",
		Short: "Transcribe the clips of a split video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.TranscribeRequest{
				VideoID:   strings.TrimSpace(args[0]),
				ClipNames: clipNames,
				Force:     force,
				Language:  language,
			}
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				result, err := p.Transcribe(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s): %d attempted, %d succeeded, %d failed, %d skipped\n",
					result.VideoID, result.Language, result.Attempted, result.Succeeded, result.Failed, result.Skipped)
				rows := make([][]string, 0, len(result.Clips))
				for _, outcome := range result.Clips {
					detail := outcome.Transcript
					if outcome.Error != "" {
						detail = outcome.Error
					}
					rows = append(rows, []string{outcome.Name, string(outcome.Status), truncate(detail, 60)})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(out, []string{"Clip", "Status", "Transcript"}, rows, nil))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&clipNames, "clip", nil, "Clip file name to transcribe (repeatable; default all)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-transcribe clips that already have a transcript")
	cmd.Flags().StringVar(&language, "language", "", "BCP 47 language tag (default from config)")
	return cmd
}
