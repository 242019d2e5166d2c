package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/merchkit/studio-engine/internal/core"
	"github.com/merchkit/studio-engine/internal/domain/model"
	apperrors "github.com/merchkit/studio-engine/internal/errors"
)

const toolNameTTL = 12 * time.Hour

// Orchestrator is the facade over the engine: it dispatches work to the AI job
// service, tracks it in the job store, and delivers finished outputs to the
// destination catalog. External handlers and runners talk to this type only.
type Orchestrator struct {
	jobs      core.JobRepository
	batches   core.BatchRepository
	api       core.AIJobsAPI
	toolCache core.ToolCache
	validator *ImageValidator
	uploads   *UploadService
	sync      *SyncService
	logger    *slog.Logger
}

// OrchestratorOptions groups dependencies for Orchestrator.
type OrchestratorOptions struct {
	Jobs      core.JobRepository   // Required
	Batches   core.BatchRepository // Optional: batch operations unavailable without it
	API       core.AIJobsAPI       // Required
	ToolCache core.ToolCache       // Optional: tool names resolved via API on every dispatch
	Validator *ImageValidator      // Optional: defaults to a standard validator
	Uploads   *UploadService       // Required for Deliver
	Sync      *SyncService         // Required
	Logger    *slog.Logger         // Optional
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.API == nil {
		return nil, errors.New("AIJobsAPI is required")
	}
	if opts.Uploads == nil {
		return nil, errors.New("UploadService is required")
	}
	if opts.Sync == nil {
		return nil, errors.New("SyncService is required")
	}

	validator := opts.Validator
	if validator == nil {
		validator = NewImageValidator(ImageValidatorOptions{Logger: opts.Logger})
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "orchestrator")
	}

	return &Orchestrator{
		jobs:      opts.Jobs,
		batches:   opts.Batches,
		api:       opts.API,
		toolCache: opts.ToolCache,
		validator: validator,
		uploads:   opts.Uploads,
		sync:      opts.Sync,
		logger:    logger,
	}, nil
}

// DispatchRequest describes one unit of work to send to the AI job service.
type DispatchRequest struct {
	ShopID    string            `json:"shop_id"`
	ToolID    string            `json:"tool_id"`
	InputURL  string            `json:"input_url"`
	Priority  model.JobPriority `json:"priority,omitempty"`
	ProductID *string           `json:"product_id,omitempty"`
	Params    []byte            `json:"params,omitempty"`
	Metadata  []byte            `json:"metadata,omitempty"`
}

// Dispatch validates the input image, submits it to the AI job service, and
// records the new job in the store. Nothing is submitted when the image fails
// validation, so a rejected dispatch leaves no trace.
//
// The external id assigned by the job service acts as the idempotency key: if it
// is already tracked, Dispatch reports a conflict instead of a second record.
func (o *Orchestrator) Dispatch(ctx context.Context, req DispatchRequest) (*model.Job, error) {
	validation, err := o.validator.Validate(ctx, req.InputURL)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, apperrors.Validationf("input image rejected: %s", validation.Reason)
	}

	toolName := o.resolveToolName(ctx, req.ToolID)

	externalID, err := o.api.Submit(ctx, core.SubmitJobParams{
		ToolID:   req.ToolID,
		InputURL: req.InputURL,
		Priority: req.Priority,
		Params:   req.Params,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.GetCode(err), "submit job for tool %s", req.ToolID)
	}

	return o.record(ctx, externalID, toolName, req, nil)
}

func (o *Orchestrator) record(ctx context.Context, externalID, toolName string, req DispatchRequest, batchID *string) (*model.Job, error) {
	job, err := o.jobs.Create(ctx, &model.CreateJobRequest{
		ExternalID: externalID,
		ShopID:     req.ShopID,
		ToolID:     req.ToolID,
		ToolName:   toolName,
		InputURL:   req.InputURL,
		Priority:   req.Priority,
		ProductID:  req.ProductID,
		BatchID:    batchID,
		Params:     req.Params,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.InfoContext(ctx, "job dispatched",
			"id", job.ID,
			"external_id", job.ExternalID,
			"tool_id", job.ToolID,
			"shop_id", job.ShopID,
		)
	}
	return job, nil
}

// resolveToolName returns the tool's display name, preferring the cache. The
// name is a denormalized projection and a failed lookup never blocks dispatch.
func (o *Orchestrator) resolveToolName(ctx context.Context, toolID string) string {
	if o.toolCache != nil {
		if name, err := o.toolCache.GetToolName(ctx, toolID); err == nil && name != "" {
			return name
		}
	}

	tool, err := o.api.GetTool(ctx, toolID)
	if err != nil {
		if o.logger != nil {
			o.logger.WarnContext(ctx, "tool name lookup failed", "tool_id", toolID, "error", err)
		}
		return ""
	}

	if o.toolCache != nil {
		if err := o.toolCache.SetToolName(ctx, toolID, tool.Name, toolNameTTL); err != nil && o.logger != nil {
			o.logger.WarnContext(ctx, "tool name cache write failed", "tool_id", toolID, "error", err)
		}
	}
	return tool.Name
}

// DispatchBatchRequest describes a group of inputs processed with one tool.
type DispatchBatchRequest struct {
	ShopID   string            `json:"shop_id"`
	ToolID   string            `json:"tool_id"`
	Priority model.JobPriority `json:"priority,omitempty"`
	Params   []byte            `json:"params,omitempty"`
	// Items carry the per-input fields; tool and shop come from the envelope.
	Items []DispatchBatchItem `json:"items"`
}

// DispatchBatchItem is one input within a batch dispatch.
type DispatchBatchItem struct {
	InputURL  string  `json:"input_url"`
	ProductID *string `json:"product_id,omitempty"`
	Metadata  []byte  `json:"metadata,omitempty"`
}

// DispatchBatchResult pairs the created batch with per-item outcomes.
type DispatchBatchResult struct {
	Batch *model.Batch `json:"batch"`
	Jobs  []*model.Job `json:"jobs"`
	Errs  []error      `json:"-"`
}

// DispatchBatch creates the batch aggregate first, then dispatches each member
// independently. One member's rejection never aborts the rest; failed members
// simply never join the batch, and the counters reflect only admitted jobs.
func (o *Orchestrator) DispatchBatch(ctx context.Context, req DispatchBatchRequest) (*DispatchBatchResult, error) {
	if o.batches == nil {
		return nil, apperrors.Internalf("batch operations are not configured")
	}
	if len(req.Items) == 0 {
		return nil, apperrors.ValidationField("items", "at least one item is required")
	}

	batch, err := o.batches.Create(ctx, &model.CreateBatchRequest{
		ShopID:    req.ShopID,
		ToolID:    req.ToolID,
		TotalJobs: len(req.Items),
		Params:    req.Params,
	})
	if err != nil {
		return nil, err
	}

	result := &DispatchBatchResult{
		Batch: batch,
		Jobs:  make([]*model.Job, len(req.Items)),
		Errs:  make([]error, len(req.Items)),
	}

	toolName := o.resolveToolName(ctx, req.ToolID)

	for i, item := range req.Items {
		job, err := o.dispatchMember(ctx, req, item, toolName, batch.ID)
		result.Jobs[i], result.Errs[i] = job, err
		if err != nil && o.logger != nil {
			o.logger.WarnContext(ctx, "batch member dispatch failed",
				"batch_id", batch.ID,
				"input_url", item.InputURL,
				"error", err,
			)
		}
	}

	if refreshed, err := o.batches.RefreshCounts(ctx, batch.ID); err == nil {
		result.Batch = refreshed
	}
	return result, nil
}

func (o *Orchestrator) dispatchMember(ctx context.Context, req DispatchBatchRequest, item DispatchBatchItem, toolName, batchID string) (*model.Job, error) {
	validation, err := o.validator.Validate(ctx, item.InputURL)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, apperrors.Validationf("input image rejected: %s", validation.Reason)
	}

	externalID, err := o.api.Submit(ctx, core.SubmitJobParams{
		ToolID:   req.ToolID,
		InputURL: item.InputURL,
		Priority: req.Priority,
		Params:   req.Params,
		Metadata: item.Metadata,
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.GetCode(err), "submit batch member for tool %s", req.ToolID)
	}

	return o.record(ctx, externalID, toolName, DispatchRequest{
		ShopID:    req.ShopID,
		ToolID:    req.ToolID,
		InputURL:  item.InputURL,
		Priority:  req.Priority,
		ProductID: item.ProductID,
		Params:    req.Params,
		Metadata:  item.Metadata,
	}, &batchID)
}

// Sync reconciles one job with the AI service.
func (o *Orchestrator) Sync(ctx context.Context, id string) (*model.Job, error) {
	return o.sync.Sync(ctx, id)
}

// BulkSync reconciles many jobs, isolating failures per item.
func (o *Orchestrator) BulkSync(ctx context.Context, ids []string) []SyncOutcome {
	return o.sync.BulkSync(ctx, ids)
}

// Retry re-dispatches a failed job under a fresh external id.
func (o *Orchestrator) Retry(ctx context.Context, id string) (*model.Job, error) {
	return o.sync.Retry(ctx, id)
}

// Cancel stops a pending or processing job.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*model.Job, error) {
	return o.sync.Cancel(ctx, id)
}

// DeliverRequest describes where a completed job's output should land.
type DeliverRequest struct {
	JobID          string `json:"job_id"`
	ProductID      string `json:"product_id,omitempty"`
	AltText        string `json:"alt_text,omitempty"`
	ReplaceMediaID string `json:"replace_media_id,omitempty"`
	SetPrimary     bool   `json:"set_primary,omitempty"`
}

// Deliver pushes a completed job's output image into the destination catalog via
// the staged upload protocol. Guards fire before any network traffic: the job
// must be completed with an output, and must not have been delivered already.
//
// The destination product defaults to the one recorded at dispatch; the request
// may override it.
func (o *Orchestrator) Deliver(ctx context.Context, req DeliverRequest) (*model.Job, *model.UploadResult, error) {
	job, err := o.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != model.JobStatusCompleted {
		return nil, nil, apperrors.NotCompleted("only a completed job can be delivered")
	}
	if job.Delivered {
		return nil, nil, apperrors.AlreadyDelivered("job output has already been delivered")
	}
	if job.OutputURL == nil || *job.OutputURL == "" {
		return nil, nil, apperrors.NotCompleted("job has no output to deliver")
	}

	productID := req.ProductID
	if productID == "" && job.ProductID != nil {
		productID = *job.ProductID
	}
	if productID == "" {
		return nil, nil, apperrors.ValidationField("product_id", "a destination product is required")
	}

	var progress ProgressFunc
	if o.logger != nil {
		progress = func(stage model.UploadStage) {
			o.logger.DebugContext(ctx, "delivery progress", "job_id", job.ID, "stage", stage)
		}
	}

	result := o.uploads.Upload(ctx, model.UploadRequest{
		ProductID:      productID,
		SourceURL:      *job.OutputURL,
		AltText:        req.AltText,
		ReplaceMediaID: req.ReplaceMediaID,
		SetPrimary:     req.SetPrimary,
	}, progress)

	if !result.Success {
		if o.logger != nil {
			o.logger.WarnContext(ctx, "delivery failed", "job_id", job.ID, "error", result.Error)
		}
		return job, result, nil
	}

	delivered := true
	updated, err := o.jobs.Update(ctx, job.ID, model.JobUpdate{
		Delivered: &delivered,
		ProductID: &productID,
	})
	if err != nil {
		// The catalog holds the media but the flag write failed. Surface the error;
		// a repeated Deliver will hit the AlreadyDelivered guard only after the flag
		// lands, so the caller must reconcile.
		return job, result, err
	}

	if o.logger != nil {
		o.logger.InfoContext(ctx, "job output delivered",
			"job_id", updated.ID,
			"product_id", productID,
			"media_id", result.MediaID,
		)
	}
	return updated, result, nil
}

// Get returns one job by store id.
func (o *Orchestrator) Get(ctx context.Context, id string) (*model.Job, error) {
	return o.jobs.GetByID(ctx, id)
}

// List returns jobs matching the filter options.
func (o *Orchestrator) List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	return o.jobs.List(ctx, opts)
}

// Stats aggregates per-status counts for a shop. Computed from the store on
// every call, never cached.
func (o *Orchestrator) Stats(ctx context.Context, shopID string) (*model.JobStats, error) {
	return o.jobs.Stats(ctx, shopID)
}

// GetBatch returns one batch aggregate.
func (o *Orchestrator) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	if o.batches == nil {
		return nil, apperrors.Internalf("batch operations are not configured")
	}
	return o.batches.GetByID(ctx, id)
}
