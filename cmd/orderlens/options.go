package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cortexai/orderlens/internal/config"
	"github.com/cortexai/orderlens/internal/server"
	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options is the root command. Struct tags are interpreted by go-flags.
type Options struct {
	Config   string `short:"c" long:"config" env:"ORDERLENS_CONFIG" description:"config file (JSON, YAML or TOML)"`
	LogLevel string `long:"log-level" description:"override log level (debug, info, warn, error)"`

	Serve   ServeCmd   `command:"serve" description:"Start the HTTP server"`
	Ask     AskCmd     `command:"ask" description:"Answer one question and print the outcome as JSON"`
	Seed    SeedCmd    `command:"seed" description:"Load sample policy snippets and orders"`
	Migrate MigrateCmd `command:"migrate" description:"Apply order store schema migrations"`
}

// wrap loads configuration and logging once before any sub-command runs
func (o *Options) wrap(cmd flags.Commander, args []string) error {
	if cmd == nil {
		return nil
	}
	if o.Config != "" {
		os.Setenv("ORDERLENS_CONFIG", o.Config)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	setupLogging(cfg)

	if c, ok := cmd.(interface{ setConfig(*config.Config) }); ok {
		c.setConfig(cfg)
	}
	return cmd.Execute(args)
}

// configured is embedded by every sub-command to receive the loaded config
type configured struct {
	cfg *config.Config
}

func (c *configured) setConfig(cfg *config.Config) { c.cfg = cfg }

// build validates the config and constructs every component
func (c *configured) build(ctx context.Context) (*server.Components, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	return server.Build(ctx, c.cfg)
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger
}
