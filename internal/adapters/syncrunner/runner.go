// Package syncrunner hosts the periodic job synchronization loop.
package syncrunner

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/merchkit/studio-engine/internal/core"
	"github.com/merchkit/studio-engine/internal/observability/statsd"
	"github.com/merchkit/studio-engine/internal/service"
)

const (
	defaultInterval = 5 * time.Second
	defaultPageSize = 100
)

// Runner polls the job store for non-terminal jobs and reconciles them with the
// AI job service on a fixed interval. The loop is the only component that wakes
// on a timer; the sync service itself is caller-driven.
type Runner struct {
	source   core.ActiveJobSource
	sync     *service.SyncService
	interval time.Duration
	pageSize int
	metrics  statsd.Sink
	logger   *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Source   core.ActiveJobSource // Required: where to find jobs awaiting sync
	Sync     *service.SyncService // Required
	Interval time.Duration        // Optional: defaults to 5s
	PageSize int                  // Optional: jobs per tick, defaults to 100
	Metrics  statsd.Sink          // Optional
	Logger   *slog.Logger         // Optional
}

// NewRunner creates a sync runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Source == nil {
		return nil, errors.New("active job source is required")
	}
	if opts.Sync == nil {
		return nil, errors.New("sync service is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sync_runner")
	}

	return &Runner{
		source:   opts.Source,
		sync:     opts.Sync,
		interval: interval,
		pageSize: pageSize,
		metrics:  opts.Metrics,
		logger:   logger,
	}, nil
}

// Run starts the sync loop and runs until the context is cancelled. Graceful
// shutdown returns nil.
func (r *Runner) Run(ctx context.Context) error {
	if r.logger != nil {
		r.logger.InfoContext(ctx, "starting sync runner", "interval", r.interval)
	}

	// Jitter prevents a thundering herd when several instances start together.
	r.waitWithJitter(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			if r.logger != nil {
				r.logger.InfoContext(ctx, "sync runner stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick synchronizes one page of active jobs. Per-job failures are reported in
// the outcomes and never stop the loop.
func (r *Runner) tick(ctx context.Context) {
	started := time.Now()

	ids, err := r.source.ListActiveIDs(ctx, r.pageSize)
	if err != nil {
		if r.logger != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "list active jobs failed", "error", err)
		}
		return
	}
	if len(ids) == 0 {
		return
	}

	outcomes := r.sync.BulkSync(ctx, ids)

	var failed int
	for _, outcome := range outcomes {
		if outcome.Err != nil && !errors.Is(outcome.Err, context.Canceled) {
			failed++
			if r.logger != nil {
				r.logger.WarnContext(ctx, "job sync failed",
					"job_id", outcome.JobID,
					"error", outcome.Err,
				)
			}
		}
	}

	if r.metrics != nil {
		r.metrics.Timing("sync.tick", time.Since(started), nil)
		r.metrics.Count("sync.jobs", int64(len(ids)-failed), map[string]string{"result": "success"})
		if failed > 0 {
			r.metrics.Count("sync.jobs", int64(failed), map[string]string{"result": "error"})
		}
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "sync tick complete",
			"jobs", len(ids),
			"failed", failed,
		)
	}
}

// waitWithJitter sleeps a random duration up to 10% of the interval.
func (r *Runner) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}
