package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"incident-insights-go/internal/app"
	"incident-insights-go/internal/config"
	"incident-insights-go/internal/logger"
)

type commandContext struct {
	configFlag *string
	logLevel   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevel *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevel: logLevel}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger writes to stderr so stdout stays clean for results.
func (c *commandContext) logger(cmd *cobra.Command) *logger.Logger {
	opts := logger.Options{Output: cmd.ErrOrStderr(), Level: "warn"}
	if c.config != nil {
		opts.Environment = c.config.Server.Environment
	}
	if c.logLevel != nil && *c.logLevel != "" {
		opts.Level = *c.logLevel
	}
	return logger.NewWithOptions(opts)
}

// withRuntime builds the pipeline once per invocation and closes it after fn.
func (c *commandContext) withRuntime(cmd *cobra.Command, fn func(context.Context, *app.Runtime) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := app.Build(ctx, cfg, c.logger(cmd))
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
