package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/merchkit/studio-engine/config"
	"github.com/merchkit/studio-engine/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrateCommand,
		},
		"jobs-list": {
			name:        "jobs-list",
			description: "List tracked jobs for a shop",
			run:         runJobsList,
		},
		"job-show": {
			name:        "job-show",
			description: "Show one job record as JSON",
			run:         runJobShow,
		},
		"job-stats": {
			name:        "job-stats",
			description: "Show aggregate job statistics for a shop",
			run:         runJobStats,
		},
		"job-retry": {
			name:        "job-retry",
			description: "Re-dispatch a failed job under a fresh external id",
			run:         runJobRetry,
		},
		"job-sync": {
			name:        "job-sync",
			description: "Synchronize one job with the AI job service",
			run:         runJobSync,
		},
		"job-cancel": {
			name:        "job-cancel",
			description: "Cancel a pending or processing job",
			run:         runJobCancel,
		},
		"job-deliver": {
			name:        "job-deliver",
			description: "Deliver a completed job's output to the destination catalog",
			run:         runJobDeliver,
		},
		"batch-show": {
			name:        "batch-show",
			description: "Show one batch aggregate as JSON",
			run:         runBatchShow,
		},
		"db-seed": {
			name:        "db-seed",
			description: "Seed a development database with demo jobs and batches",
			run:         runDBSeed,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: studio-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	for _, c := range commands() {
		if err := writef(os.Stdout, "  %-12s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
