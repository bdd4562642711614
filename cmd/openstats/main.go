// Command openstats runs the Spotify listening-stats web service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/openstats/openstats/internal/config"
	"github.com/openstats/openstats/internal/db"
	"github.com/openstats/openstats/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	cfgPath := os.Getenv("OPENSTATS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := context.Background()
	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	// Persistence is not optional: refuse to start on a broken schema.
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	return web.NewServer(cfg, database, logger).Run()
}
