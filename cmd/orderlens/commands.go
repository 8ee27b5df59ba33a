package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cortexai/orderlens/internal/handler"
	"github.com/cortexai/orderlens/internal/seed"
	"github.com/cortexai/orderlens/internal/server"
	"github.com/rs/zerolog/log"
)

// ServeCmd starts the HTTP API
type ServeCmd struct {
	configured
	Port int `short:"p" long:"port" description:"listen port (overrides config)"`
}

func (c *ServeCmd) Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Port > 0 {
		c.cfg.Port = c.Port
	}
	comps, err := c.build(ctx)
	if err != nil {
		return err
	}
	return server.New(comps).Run(ctx)
}

// AskCmd runs one exchange without the HTTP server
type AskCmd struct {
	configured
	Args struct {
		Question []string `positional-arg-name:"question" required:"1"`
	} `positional-args:"yes"`
}

func (c *AskCmd) Execute(args []string) error {
	ctx := log.Logger.WithContext(context.Background())
	question := strings.TrimSpace(strings.Join(c.Args.Question, " "))
	if question == "" {
		return errors.New(`missing "query"`)
	}

	comps, err := c.build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	outcome, err := comps.Orchestrator.Answer(ctx, question)
	if err != nil {
		return err
	}
	resp := handler.AskResponseFor(outcome)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// SeedCmd loads the sample data
type SeedCmd struct {
	configured
	Migrate bool `long:"migrate" description:"apply migrations before seeding"`
}

func (c *SeedCmd) Execute(args []string) error {
	ctx, cancel := context.WithTimeout(log.Logger.WithContext(context.Background()), 2*time.Minute)
	defer cancel()

	comps, err := c.build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	if c.Migrate {
		if err := comps.Migrate(ctx); err != nil {
			return err
		}
	}
	if err := comps.EnsureVectorIndex(ctx); err != nil {
		return err
	}

	s := &seed.Seeder{
		Embedder:  comps.LLM,
		Vectors:   comps.Vectors,
		Orders:    comps.Orders,
		Namespace: c.cfg.VectorNamespace,
	}
	return s.Run(ctx)
}

// MigrateCmd applies order store migrations
type MigrateCmd struct {
	configured
}

func (c *MigrateCmd) Execute(args []string) error {
	ctx, cancel := context.WithTimeout(log.Logger.WithContext(context.Background()), time.Minute)
	defer cancel()

	comps, err := c.build(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()
	return comps.Migrate(ctx)
}
