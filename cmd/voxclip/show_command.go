package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voxclip/internal/catalog"
	"voxclip/internal/clipstore"
	"voxclip/internal/pipeline"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <video-id>",
		Short: "Show where a video lives and the state of its clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				status, err := p.Status(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				video := status.Video
				fmt.Fprintf(out, "Video:     %s\n", status.VideoID)
				fmt.Fprintf(out, "Title:     %s\n", video.Title)
				fmt.Fprintf(out, "Location:  %s (%s)\n", status.Location, status.Dir)
				fmt.Fprintf(out, "State:     %s\n", video.State)
				fmt.Fprintf(out, "Clips:     %d\n", len(status.Clips))
				if status.CatalogError != "" {
					fmt.Fprintf(out, "Catalog:   unavailable (%s)\n", status.CatalogError)
				} else {
					fmt.Fprintf(out, "Catalog:   %d clip rows\n", status.CatalogClipCount)
					if row := status.CatalogVideo; row != nil {
						fmt.Fprintf(out, "Recorded:  %s\n", row.UpdatedAt.Format(time.RFC3339))
					}
				}
				if len(status.Clips) > 0 {
					fmt.Fprintln(out, renderClipTable(out, status.Clips))
				}
				if len(status.CatalogClips) > 0 {
					fmt.Fprintln(out, renderCatalogTable(out, status.CatalogClips))
				}
				return nil
			})
		},
	}
}

func renderClipTable(out io.Writer, clips []clipstore.Clip) string {
	rows := make([][]string, 0, len(clips))
	for _, clip := range clips {
		rows = append(rows, []string{
			strconv.Itoa(clip.Index),
			clip.Name,
			formatSeconds(clip.PaddedStart),
			formatSeconds(clip.PaddedEnd),
			formatSeconds(clip.Duration),
			yesNo(clip.HasTranscript()),
			yesNo(clip.Uploaded()),
		})
	}
	return renderTable(out,
		[]string{"#", "Clip", "Start", "End", "Length", "Transcript", "Uploaded"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func renderCatalogTable(out io.Writer, rows []catalog.ClipRow) string {
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, []string{strconv.Itoa(row.ClipIndex), row.ID, row.CloudRef})
	}
	return renderTable(out,
		[]string{"#", "Catalog row", "Storage reference"},
		cells,
		[]columnAlignment{alignRight, alignLeft, alignLeft},
	)
}
