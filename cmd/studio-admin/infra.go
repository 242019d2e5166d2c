package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/merchkit/studio-engine/config"
	"github.com/merchkit/studio-engine/internal/adapters/aijobs"
	"github.com/merchkit/studio-engine/internal/adapters/catalog"
	"github.com/merchkit/studio-engine/internal/bootstrap"
	"github.com/merchkit/studio-engine/internal/data"
	"github.com/merchkit/studio-engine/internal/devseed"
	"github.com/merchkit/studio-engine/internal/service"
)

var errRedisNotConfigured = errors.New("redis not configured")

// connectDB wires just the database, for commands that never touch the AI
// service.
func connectDB(logger *slog.Logger, cfg *config.AppConfig) (*sql.DB, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	return db, nil
}

// maybeConnectRedis returns a connected client when configuration is present.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func maybeConnectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseCluster {
		return len(cfg.ClusterNodes) > 0
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

func closeInfra(db *sql.DB, redisClient redis.UniversalClient) error {
	var closeErr error
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}

// newSyncService wires the repositories and AI client needed by the job
// lifecycle commands.
func newSyncService(logger *slog.Logger, cfg *config.AppConfig, db *sql.DB) (*service.SyncService, error) {
	jobRepo := data.NewJobRepo(db, data.JobRepoConfig{Logger: logger})
	batchRepo := data.NewBatchRepo(db, data.BatchRepoConfig{Logger: logger})

	aiClient := aijobs.NewClient(aijobs.ClientOptions{
		BaseURL:    cfg.AIJobs.BaseURL,
		APIKey:     cfg.AIJobs.APIKey,
		HTTPClient: &http.Client{Timeout: cfg.AIJobs.Timeout},
		Logger:     logger,
	})

	return service.NewSyncService(service.SyncServiceOptions{
		Jobs:    jobRepo,
		Batches: batchRepo,
		API:     aiClient,
		Logger:  logger,
	})
}

// newOrchestrator wires the full service stack for commands that deliver output
// to the catalog. The tool cache is left out: delivery never resolves tool names.
func newOrchestrator(logger *slog.Logger, cfg *config.AppConfig, db *sql.DB) (*service.Orchestrator, error) {
	jobRepo := data.NewJobRepo(db, data.JobRepoConfig{Logger: logger})
	batchRepo := data.NewBatchRepo(db, data.BatchRepoConfig{Logger: logger})

	aiClient := aijobs.NewClient(aijobs.ClientOptions{
		BaseURL:    cfg.AIJobs.BaseURL,
		APIKey:     cfg.AIJobs.APIKey,
		HTTPClient: &http.Client{Timeout: cfg.AIJobs.Timeout},
		Logger:     logger,
	})
	catalogClient := catalog.NewClient(catalog.ClientOptions{
		Endpoint:    cfg.Catalog.Endpoint,
		AccessToken: cfg.Catalog.AccessToken,
		HTTPClient:  &http.Client{Timeout: cfg.Catalog.Timeout},
		Logger:      logger,
	})

	retry := service.NewRetryPolicy(service.RetryPolicyOptions{
		MaxAttempts: cfg.Upload.MaxAttempts,
		BaseDelay:   cfg.Upload.BaseDelay,
		Logger:      logger,
	})
	validator := service.NewImageValidator(service.ImageValidatorOptions{
		MaxBytes: cfg.Upload.MaxImageBytes,
		Logger:   logger,
	})

	uploads, err := service.NewUploadService(service.UploadServiceOptions{
		Catalog:   catalogClient,
		Validator: validator,
		Retry:     retry,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	syncSvc, err := service.NewSyncService(service.SyncServiceOptions{
		Jobs:    jobRepo,
		Batches: batchRepo,
		API:     aiClient,
		Retry:   retry,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return service.NewOrchestrator(service.OrchestratorOptions{
		Jobs:      jobRepo,
		Batches:   batchRepo,
		API:       aiClient,
		Validator: validator,
		Uploads:   uploads,
		Sync:      syncSvc,
		Logger:    logger,
	})
}

func runMigrateCommand(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	timeout := fs.Duration("timeout", defaultMigrationTimeout, "maximum time to wait for migrations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, *timeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

// runDBSeed populates a development database with demo records. Refuses to run
// outside development mode.
func runDBSeed(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("db-seed", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !cmdCtx.Config.IsDev {
		return errors.New("db-seed only runs in development mode (set DEV=true)")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, commandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	if err := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); err != nil {
		return err
	}
	return devseed.NewSeeder(db, cmdCtx.Logger).Run(ctx)
}
