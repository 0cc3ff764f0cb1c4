package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voxclip/internal/api"
	"voxclip/internal/fetch"
)

func newVideoIDCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "video-id <url>",
		Short:       "Print the video id embedded in a URL",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := fetch.ExtractVideoID(args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.VideoIDResponse{VideoID: id, URL: fetch.CanonicalURL(id)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}
