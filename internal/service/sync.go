package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/merchkit/studio-engine/internal/core"
	"github.com/merchkit/studio-engine/internal/domain/model"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

const defaultSyncConcurrency = 5

// SyncService reconciles local job records with their authoritative state at the
// AI job service. It owns no timer: callers decide when to invoke Sync, and
// polling should stop the moment a terminal state is observed.
type SyncService struct {
	jobs        core.JobRepository
	batches     core.BatchRepository
	api         core.AIJobsAPI
	retry       *RetryPolicy
	logger      *slog.Logger
	concurrency int
}

// SyncServiceOptions groups dependencies for SyncService.
type SyncServiceOptions struct {
	Jobs        core.JobRepository   // Required: job repository
	Batches     core.BatchRepository // Optional: batch counter refresh on terminal transitions
	API         core.AIJobsAPI       // Required: external job service
	Retry       *RetryPolicy         // Optional: defaults to the standard policy
	Logger      *slog.Logger         // Optional: structured logger
	Concurrency int                  // Optional: parallel fetches in BulkSync
}

// NewSyncService constructs a SyncService.
func NewSyncService(opts SyncServiceOptions) (*SyncService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.API == nil {
		return nil, errors.New("AIJobsAPI is required")
	}

	retry := opts.Retry
	if retry == nil {
		retry = NewRetryPolicy(RetryPolicyOptions{Logger: opts.Logger})
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultSyncConcurrency
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "sync_service")
	}

	return &SyncService{
		jobs:        opts.Jobs,
		batches:     opts.Batches,
		api:         opts.API,
		retry:       retry,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Sync reconciles one job with the AI service. Synchronizing a terminal job is a
// no-op that returns the current record unchanged, and a sync that observes no
// external change writes nothing, so repeated calls converge.
//
// A transient fetch failure that survives the retry policy is returned without
// touching the job: it stays in its last-known state and the next poll tick tries
// again.
func (s *SyncService) Sync(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	var external *core.ExternalJob
	if err := s.retry.Do(ctx, "fetch_external_job", func(ctx context.Context) error {
		var fetchErr error
		external, fetchErr = s.api.GetJob(ctx, job.ExternalID)
		return fetchErr
	}); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.GetCode(err),
			"sync job %s: external lookup failed", id)
	}

	update, changed, err := buildSyncUpdate(job, external)
	if err != nil {
		return nil, err
	}
	if !changed {
		return job, nil
	}

	updated, err := s.jobs.Update(ctx, job.ID, update)
	if err != nil {
		return nil, err
	}

	if s.logger != nil && updated.Status != job.Status {
		s.logger.InfoContext(ctx, "job state synchronized",
			"id", updated.ID,
			"from", job.Status,
			"to", updated.Status,
		)
	}

	s.refreshBatchOnTerminal(ctx, job, updated)
	return updated, nil
}

// buildSyncUpdate maps the external snapshot onto a local state transition.
// The reported progress never rewinds the local one; the store enforces the same
// monotonicity under racing syncs.
func buildSyncUpdate(job *model.Job, external *core.ExternalJob) (model.JobUpdate, bool, error) {
	var status model.JobStatus
	switch external.Status {
	case core.ExternalJobQueued:
		status = model.JobStatusPending
	case core.ExternalJobRunning:
		status = model.JobStatusProcessing
	case core.ExternalJobSucceeded:
		status = model.JobStatusCompleted
	case core.ExternalJobError:
		status = model.JobStatusFailed
	case core.ExternalJobCancelled:
		status = model.JobStatusCancelled
	default:
		return model.JobUpdate{}, false, apperrors.Internalf("job service reported unknown status %q", external.Status)
	}

	progress := max(external.Progress, job.Progress)

	changed := status != job.Status || progress != job.Progress
	update := model.JobUpdate{
		Status:   &status,
		Progress: &progress,
	}

	if status == model.JobStatusCompleted {
		if external.OutputURL != "" {
			update.OutputURL = &external.OutputURL
			changed = true
		}
		if external.ThumbnailURL != "" {
			update.ThumbnailURL = &external.ThumbnailURL
		}
		if external.ProcessingMS > 0 {
			update.ProcessingMS = &external.ProcessingMS
		}
	}
	if status == model.JobStatusFailed && external.Error != "" {
		update.ErrorMessage = &external.Error
		changed = true
	}
	if external.CreditsUsed != job.CreditsUsed {
		update.CreditsUsed = &external.CreditsUsed
		changed = true
	}

	return update, changed, nil
}

// refreshBatchOnTerminal recomputes the owning batch's counters after a member
// reached a terminal state. The job sync itself already succeeded, so a refresh
// failure is logged rather than surfaced.
func (s *SyncService) refreshBatchOnTerminal(ctx context.Context, before, after *model.Job) {
	if s.batches == nil || after.BatchID == nil {
		return
	}
	if before.Status.Terminal() || !after.Status.Terminal() {
		return
	}
	if _, err := s.batches.RefreshCounts(ctx, *after.BatchID); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "refresh batch counters failed",
			"batch_id", *after.BatchID,
			"job_id", after.ID,
			"error", err,
		)
	}
}

// SyncOutcome is the per-job result of a bulk synchronization.
type SyncOutcome struct {
	JobID string
	Job   *model.Job
	Err   error
}

// BulkSync synchronizes each job independently and concurrently. One job's
// failure never prevents the others from completing; every outcome is reported
// per item, in input order.
func (s *SyncService) BulkSync(ctx context.Context, ids []string) []SyncOutcome {
	outcomes := make([]SyncOutcome, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			job, err := s.Sync(gctx, id)
			outcomes[i] = SyncOutcome{JobID: id, Job: job, Err: err}
			return nil // per-job failures live in outcomes
		})
	}
	_ = g.Wait()

	return outcomes
}

// Retry re-dispatches a permanently failed job as brand-new work at the AI
// service: the job service has no resume semantics, so retry is a fresh
// submission that yields a new external id. The local record returns to pending
// with its error, progress, and completion timestamp cleared.
//
// This is a caller-initiated business operation, distinct from the automatic
// retry of transient network calls.
func (s *SyncService) Retry(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusFailed {
		return nil, apperrors.NotFailed("only a failed job can be retried")
	}

	externalID, err := s.api.Submit(ctx, core.SubmitJobParams{
		ToolID:   job.ToolID,
		InputURL: job.InputURL,
		Priority: job.Priority,
		Params:   job.Params,
		Metadata: job.Metadata,
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.GetCode(err), "re-dispatch job %s", id)
	}

	pending := model.JobStatusPending
	updated, err := s.jobs.Update(ctx, job.ID, model.JobUpdate{
		Status:        &pending,
		NewExternalID: &externalID,
		ClearError:    true,
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "failed job re-dispatched",
			"id", updated.ID,
			"old_external_id", job.ExternalID,
			"new_external_id", externalID,
		)
	}

	// The member left the failed pool, so the batch counters need a recompute.
	if s.batches != nil && updated.BatchID != nil {
		if _, err := s.batches.RefreshCounts(ctx, *updated.BatchID); err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "refresh batch counters failed",
				"batch_id", *updated.BatchID,
				"job_id", updated.ID,
				"error", err,
			)
		}
	}
	return updated, nil
}

// Cancel moves a pending or processing job to cancelled. The AI service is asked
// to stop, but only best-effort: regardless of its answer the local record goes
// terminal and polling stops.
func (s *SyncService) Cancel(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, apperrors.Validationf("cannot cancel a job in state %q", job.Status)
	}

	if err := s.api.Cancel(ctx, job.ExternalID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "external cancel failed, marking local record cancelled anyway",
			"id", job.ID,
			"external_id", job.ExternalID,
			"error", err,
		)
	}

	cancelled := model.JobStatusCancelled
	return s.jobs.Update(ctx, job.ID, model.JobUpdate{Status: &cancelled})
}
