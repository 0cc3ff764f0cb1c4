package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voxclip/internal/pipeline"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var aggressiveness int
	var startPadding, endPadding float64

	cmd := &cobra.Command{
		Use:   "split <video-url>",
		Short: "Download a video's audio and split it into speech clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.SplitRequest{VideoRef: strings.TrimSpace(args[0])}
			if cmd.Flags().Changed("vad-aggressiveness") {
				req.VADAggressiveness = &aggressiveness
			}
			if cmd.Flags().Changed("start-padding") {
				req.StartPadding = &startPadding
			}
			if cmd.Flags().Changed("end-padding") {
				req.EndPadding = &endPadding
			}
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				result, err := p.Split(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: %d clips from %q\n", result.VideoID, len(result.Clips), result.Video.Title)
				if len(result.Clips) > 0 {
					fmt.Fprintln(out, renderClipTable(out, result.Clips))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&aggressiveness, "vad-aggressiveness", 0, "Voice activity detector aggressiveness (0-3)")
	cmd.Flags().Float64Var(&startPadding, "start-padding", 0, "Seconds of audio kept before each speech span")
	cmd.Flags().Float64Var(&endPadding, "end-padding", 0, "Seconds of audio kept after each speech span")
	return cmd
}
