package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"voxclip/internal/pipeline"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage the registry of source channels",
	}
	cmd.AddCommand(newChannelsListCommand(ctx))
	cmd.AddCommand(newChannelsAddCommand(ctx))
	cmd.AddCommand(newChannelsDeleteCommand(ctx))
	return cmd
}

func newChannelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered channels, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				channels, err := p.Channels(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, channels)
				}
				out := cmd.OutOrStdout()
				if len(channels) == 0 {
					fmt.Fprintln(out, "No channels registered")
					return nil
				}
				rows := make([][]string, 0, len(channels))
				for _, ch := range channels {
					rows = append(rows, []string{ch.ChannelID, ch.Title, ch.Domain, strings.Join(ch.TopicCategories, ", ")})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Channel", "Title", "Domain", "Topics"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newChannelsAddCommand(ctx *commandContext) *cobra.Command {
	var req pipeline.ChannelRequest
	cmd := &cobra.Command{
		Use:   "add <channel-id>",
		Short: "Register a channel or revive a deleted one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ChannelID = args[0]
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				channel, err := p.AddChannel(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, channel)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", channel.ChannelID, channel.Domain)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Domain, "domain", "", "Subject domain of the channel (required)")
	cmd.Flags().StringVar(&req.Title, "title", "", "Channel title")
	cmd.Flags().StringSliceVar(&req.TopicCategories, "topic", nil, "Topic category (repeatable)")
	cmd.Flags().StringVar(&req.ThumbnailURL, "thumbnail", "", "Thumbnail URL")
	return cmd
}

func newChannelsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <channel-id>",
		Short: "Soft-delete a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				if err := p.DeleteChannel(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}
