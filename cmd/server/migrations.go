package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/blogtube-api/internal/platform/postgres"
	"github.com/pressly/goose/v3"
)

// slogGooseLogger forwards goose output to slog. Fatalf does not exit so
// that main decides how the process ends.
type slogGooseLogger struct {
	verbose bool
}

func (l slogGooseLogger) Printf(format string, v ...any) {
	if l.verbose {
		slog.Info(fmt.Sprintf(format, v...), "component", "migrations")
		return
	}
	slog.Debug(fmt.Sprintf(format, v...), "component", "migrations")
}

func (l slogGooseLogger) Fatalf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...), "component", "migrations")
}

// runMigrations executes a goose command against the embedded migrations.
func runMigrations(ctx context.Context, db *sql.DB, command string, verbose bool) error {
	goose.SetBaseFS(postgres.Migrations)
	goose.SetLogger(slogGooseLogger{verbose: verbose})
	goose.SetVerbose(verbose)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	slog.Info("running migrations", "command", command)

	var err error
	switch command {
	case "up":
		err = goose.UpContext(ctx, db, postgres.MigrationsDir)
	case "down":
		err = goose.DownContext(ctx, db, postgres.MigrationsDir)
	case "reset":
		err = goose.ResetContext(ctx, db, postgres.MigrationsDir)
	case "status":
		err = goose.StatusContext(ctx, db, postgres.MigrationsDir)
	case "version":
		err = goose.VersionContext(ctx, db, postgres.MigrationsDir)
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	slog.Info("migrations finished", "command", command)
	return nil
}
