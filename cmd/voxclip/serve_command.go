package main

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"voxclip/internal/api"
	"voxclip/internal/logging"
	"voxclip/internal/pipeline"
	"voxclip/internal/staging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if trimmed := strings.TrimSpace(bind); trimmed != "" {
				cfg.API.Bind = trimmed
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir,
				logging.DailyLogPath(cfg.Paths.LogDir, time.Now()),
			)
			return ctx.withPipeline(cmd, func(p *pipeline.Pipeline) error {
				staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, staging.DefaultMaxAge, ctx.deps.Locker, logger)
				var opts []api.Option
				if checker, ok := ctx.deps.Catalog.(interface{ Ping(context.Context) error }); ok {
					opts = append(opts, api.WithHealthCheck("catalog", checker.Ping))
				}
				server := api.NewServer(p, cfg, logger, opts...)
				return server.ListenAndServe(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from config)")
	return cmd
}
