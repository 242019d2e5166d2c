package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/merchkit/studio-engine/config"
	"github.com/merchkit/studio-engine/internal/adapters/aijobs"
	"github.com/merchkit/studio-engine/internal/adapters/catalog"
	"github.com/merchkit/studio-engine/internal/adapters/syncrunner"
	"github.com/merchkit/studio-engine/internal/data"
	"github.com/merchkit/studio-engine/internal/observability/statsd"
	"github.com/merchkit/studio-engine/internal/service"
)

// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds the wired engine services.
type ServiceContainer struct {
	Orchestrator *service.Orchestrator
	Sync         *service.SyncService
	Uploads      *service.UploadService
	Jobs         *data.JobRepo
	Batches      *data.BatchRepo
	Metrics      *statsd.Client
}

// ServiceDeps groups the infrastructure dependencies for service construction.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the full engine: repositories, external clients, and domain
// services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("config and database are required")
	}
	cfg := deps.Config

	jobRepo := data.NewJobRepo(deps.DB, data.JobRepoConfig{Logger: deps.Logger})
	batchRepo := data.NewBatchRepo(deps.DB, data.BatchRepoConfig{Logger: deps.Logger})

	aiClient := aijobs.NewClient(aijobs.ClientOptions{
		BaseURL: cfg.AIJobs.BaseURL,
		APIKey:  cfg.AIJobs.APIKey,
		HTTPClient: &http.Client{
			Timeout: cfg.AIJobs.Timeout,
		},
		Logger: deps.Logger,
	})

	catalogClient := catalog.NewClient(catalog.ClientOptions{
		Endpoint:    cfg.Catalog.Endpoint,
		AccessToken: cfg.Catalog.AccessToken,
		HTTPClient: &http.Client{
			Timeout: cfg.Catalog.Timeout,
		},
		Logger: deps.Logger,
	})

	retry := service.NewRetryPolicy(service.RetryPolicyOptions{
		MaxAttempts: cfg.Upload.MaxAttempts,
		BaseDelay:   cfg.Upload.BaseDelay,
		Logger:      deps.Logger,
	})
	validator := service.NewImageValidator(service.ImageValidatorOptions{
		MaxBytes: cfg.Upload.MaxImageBytes,
		Logger:   deps.Logger,
	})

	uploads, err := service.NewUploadService(service.UploadServiceOptions{
		Catalog:          catalogClient,
		Validator:        validator,
		Retry:            retry,
		BatchConcurrency: cfg.Upload.Concurrency,
		Logger:           deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("wire upload service: %w", err)
	}

	syncSvc, err := service.NewSyncService(service.SyncServiceOptions{
		Jobs:        jobRepo,
		Batches:     batchRepo,
		API:         aiClient,
		Retry:       retry,
		Concurrency: cfg.SyncRunner.Concurrency,
		Logger:      deps.Logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("wire sync service: %w", err)
	}

	orchOpts := service.OrchestratorOptions{
		Jobs:      jobRepo,
		Batches:   batchRepo,
		API:       aiClient,
		Validator: validator,
		Uploads:   uploads,
		Sync:      syncSvc,
		Logger:    deps.Logger,
	}
	if deps.RedisClient != nil {
		orchOpts.ToolCache = data.NewRedisToolCacheRepo(deps.RedisClient)
	}

	orchestrator, err := service.NewOrchestrator(orchOpts)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("wire orchestrator: %w", err)
	}

	// StatsD is best-effort: a dial failure downgrades to no metrics.
	metrics, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.MetricsActive(),
		Address: cfg.Observability.StatsdAddress,
		Prefix:  cfg.Observability.StatsdPrefix,
		Logger:  deps.Logger,
	})
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.Warn("statsd unavailable, metrics disabled", "error", err)
		}
		metrics = nil
	}

	return ServiceContainer{
		Orchestrator: orchestrator,
		Sync:         syncSvc,
		Uploads:      uploads,
		Jobs:         jobRepo,
		Batches:      batchRepo,
		Metrics:      metrics,
	}, nil
}

// ServiceOrchestrationConfig groups dependencies for running the service set.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, len(enabledServices)+1)

	var handles []backgroundServiceHandle
	for _, descriptor := range buildBackgroundServices(cfg) {
		if !enabledServices[descriptor.mode] {
			continue
		}
		handles = append(handles, launchBackground(serviceCtx, descriptor, errCh, logger))
	}

	return waitForShutdown(shutdownConfig{
		cancel:      cancel,
		errCh:       errCh,
		logger:      logger,
		backgrounds: handles,
	})
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig) []backgroundService {
	return []backgroundService{
		{
			mode: config.ServiceModeSyncRunner,
			name: "sync runner",
			start: func(ctx context.Context) error {
				runner, err := syncrunner.NewRunner(syncrunner.RunnerOptions{
					Source:   cfg.Services.Jobs,
					Sync:     cfg.Services.Sync,
					Interval: cfg.Config.SyncRunner.Interval,
					PageSize: cfg.Config.SyncRunner.PageSize,
					Metrics:  cfg.Services.Metrics,
					Logger:   cfg.Logger,
				})
				if err != nil {
					return fmt.Errorf("wire sync runner: %w", err)
				}
				return runner.Run(ctx)
			},
		},
	}
}

func launchBackground(ctx context.Context, descriptor backgroundService, errCh chan<- error, logger *slog.Logger) backgroundServiceHandle {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			select {
			case errCh <- fmt.Errorf("%s failed: %w", descriptor.name, err):
			case <-ctx.Done():
			}
		}
	}()

	logger.InfoContext(ctx, "background service started", "service", descriptor.name)
	return backgroundServiceHandle{name: descriptor.name, done: done}
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	cancel      context.CancelFunc
	errCh       <-chan error
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		gracefulStop(cfg)
		return nil
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		gracefulStop(cfg)
		return err
	}
}

// gracefulStop waits for background services to finish, each with a timeout.
func gracefulStop(cfg shutdownConfig) {
	for _, svc := range cfg.backgrounds {
		select {
		case <-svc.done:
			cfg.logger.Info(svc.name + " stopped")
		case <-time.After(shutdownWaitTimeout):
			cfg.logger.Warn("timeout waiting for " + svc.name + " to stop")
		}
	}
}
