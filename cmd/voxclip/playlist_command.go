package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"voxclip/internal/pipeline"
)

func newPlaylistCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "playlist <url>",
		Short: "List the videos of a playlist without downloading them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pipeline.PlaylistRequest{PlaylistURL: args[0], Limit: limit}
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				result, err := p.Playlist(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s): %d of %d videos\n", result.PlaylistTitle, result.PlaylistID, result.ReturnedVideos, result.TotalVideos)
				rows := make([][]string, 0, len(result.Videos))
				for i, video := range result.Videos {
					rows = append(rows, []string{strconv.Itoa(i + 1), video.VideoID, formatSeconds(float64(video.Duration)), video.Title})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable(out,
						[]string{"#", "Video", "Length", "Title"},
						rows,
						[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
					))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Return at most this many videos (0 for all)")
	return cmd
}
