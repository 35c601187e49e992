// Package main implements the entry point for the BlogTube API server,
// which turns YouTube videos into Markdown blog posts.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/blogtube-api/internal/config"
	"github.com/phrazzld/blogtube-api/internal/platform/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// run parses flags, loads configuration and serves until ctx is cancelled
// or SIGINT/SIGTERM arrives.
func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("server", flag.ContinueOnError)
	migrate := flags.String("migrate", "", "run a migration command (up, down, status, version, reset); only up continues to serve")
	verbose := flags.Bool("verbose", false, "enable debug logging")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *verbose {
		cfg.Server.LogLevel = "debug"
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"version", version,
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database", cfg.Database.URL != "",
		"max_concurrent_jobs", cfg.Jobs.MaxConcurrent)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = setupAppDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
	} else {
		log.Warn("no database configured, jobs are kept in memory only")
	}

	if *migrate != "" {
		if db == nil {
			return errors.New("migrations require a database URL")
		}
		if err := runMigrations(ctx, db, *migrate, *verbose); err != nil {
			_ = db.Close()
			return err
		}
		if *migrate != "up" {
			return db.Close()
		}
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if _, err := app.manager.Recover(ctx); err != nil {
		log.Error("failed to recover interrupted jobs", "error", err)
	}

	return app.Run(ctx)
}
