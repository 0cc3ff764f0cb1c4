package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"voxclip/internal/config"
	"voxclip/internal/logging"
	"voxclip/internal/pipeline"
	"voxclip/internal/services"
)

type depsBuilder func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Deps, func() error, error)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool
	build      depsBuilder

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	pipelineOnce sync.Once
	pipeline     *pipeline.Pipeline
	deps         pipeline.Deps
	closer       func() error
	pipelineErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool, build depsBuilder) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
		build:      build,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// ensurePipeline wires dependencies on first use. Commands that never touch
// the pipeline do not open the catalog or storage clients.
func (c *commandContext) ensurePipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	c.pipelineOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.pipelineErr = err
			return
		}
		logger, err := c.ensureLogger()
		if err != nil {
			c.pipelineErr = err
			return
		}
		deps, closer, err := c.build(ctx, cfg, logger)
		if err != nil {
			c.pipelineErr = err
			return
		}
		c.deps = deps
		c.closer = closer
		c.pipeline, c.pipelineErr = pipeline.New(deps)
	})
	return c.pipeline, c.pipelineErr
}

// withPipeline runs fn against the wired pipeline and releases the catalog
// and storage clients afterwards.
func (c *commandContext) withPipeline(cmd *cobra.Command, fn func(*pipeline.Pipeline) error) (err error) {
	p, err := c.ensurePipeline(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, c.close())
	}()
	return fn(p)
}

func (c *commandContext) close() error {
	if c.closer == nil {
		return nil
	}
	closer := c.closer
	c.closer = nil
	return closer()
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// exitCode distinguishes caller mistakes from runtime failures.
func exitCode(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrConflict):
		return 2
	default:
		return 1
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
