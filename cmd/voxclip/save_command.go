package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voxclip/internal/pipeline"
)

func newSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save <video-id>",
		Short: "Upload clips, record them in the catalog, and archive the video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.SaveRequest{VideoID: strings.TrimSpace(args[0])}
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				result, err := p.Save(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: uploaded %d, persisted %d, completed %s\n",
					result.VideoID, result.UploadedCount, result.PersistedCount, yesNo(result.Completed))
				if len(result.FailedClips) > 0 {
					fmt.Fprintf(out, "Failed clips (rerun save to retry): %s\n", strings.Join(result.FailedClips, ", "))
				}
				return nil
			})
		},
	}
}
