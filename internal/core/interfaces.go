package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/merchkit/studio-engine/internal/domain/model"
)

// This file contains port definitions (hexagonal architecture) consumed by the
// service layer. Services depend on these interfaces, never on concrete
// implementations.

// JobRepository defines the interface for job data operations. It is the single
// source of truth for a job's persisted state; Update is the only mutation path.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.Job, error)
	List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error)
	Update(ctx context.Context, id string, update model.JobUpdate) (*model.Job, error)
	Stats(ctx context.Context, shopID string) (*model.JobStats, error)
}

// BatchRepository defines the interface for batch aggregate operations.
type BatchRepository interface {
	Create(ctx context.Context, req *model.CreateBatchRequest) (*model.Batch, error)
	GetByID(ctx context.Context, id string) (*model.Batch, error)
	List(ctx context.Context, shopID string, limit, offset int) ([]*model.Batch, error)
	// RefreshCounts recomputes the cached counters and aggregate status from the
	// batch's constituent jobs.
	RefreshCounts(ctx context.Context, id string) (*model.Batch, error)
}

// SubmitJobParams groups parameters for AIJobsAPI.Submit to keep param count ≤3.
type SubmitJobParams struct {
	ToolID   string            `json:"tool_id"`
	InputURL string            `json:"input_url"`
	Priority model.JobPriority `json:"priority"`
	Params   json.RawMessage   `json:"params,omitempty"`
	Metadata json.RawMessage   `json:"metadata,omitempty"`
}

// ExternalJobState is the job status vocabulary of the AI job service.
type ExternalJobState string

const (
	ExternalJobQueued    ExternalJobState = "queued"
	ExternalJobRunning   ExternalJobState = "running"
	ExternalJobSucceeded ExternalJobState = "succeeded"
	ExternalJobError     ExternalJobState = "error"
	ExternalJobCancelled ExternalJobState = "cancelled"
)

// ExternalJob is the authoritative snapshot of a job at the AI service.
type ExternalJob struct {
	ID           string           `json:"id"`
	Status       ExternalJobState `json:"status"`
	Progress     int              `json:"progress"`
	OutputURL    string           `json:"output_url,omitempty"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty"`
	Error        string           `json:"error,omitempty"`
	CreditsUsed  int              `json:"credits_used"`
	ProcessingMS int64            `json:"processing_ms,omitempty"`
}

// Tool describes one processing tool offered by the AI job service.
type Tool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreditsCost int    `json:"credits_cost"`
}

// AIJobsAPI defines the boundary to the external AI job service.
type AIJobsAPI interface {
	// Submit dispatches new work and returns the externally-assigned job id.
	Submit(ctx context.Context, params SubmitJobParams) (string, error)
	// GetJob fetches the authoritative state of a job by its external id.
	GetJob(ctx context.Context, externalID string) (*ExternalJob, error)
	// GetTool fetches tool metadata, including the display name.
	GetTool(ctx context.Context, toolID string) (*Tool, error)
	// Cancel requests the service stop work on a job. Best-effort: the service may
	// already have finished.
	Cancel(ctx context.Context, externalID string) error
}

// StagedUploadParam is one opaque form field returned by the catalog for the
// transfer step. Fields must be replayed verbatim and in order.
type StagedUploadParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StagedUploadTarget is the pre-authorized upload target produced by step one of
// the staged upload protocol.
type StagedUploadTarget struct {
	URL         string              `json:"url"`
	ResourceURL string              `json:"resourceUrl"`
	Parameters  []StagedUploadParam `json:"parameters"`
}

// StagedUploadInput groups the declared file attributes for target creation.
type StagedUploadInput struct {
	Filename string
	MimeType string
	Size     int64
}

// MediaAttachInput groups parameters for attaching an uploaded resource to a
// catalog product.
type MediaAttachInput struct {
	ProductID   string
	ResourceURL string
	AltText     string
}

// UserError is a field-level validation error reported by a catalog mutation.
type UserError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CatalogAPI defines the boundary to the destination catalog's GraphQL API.
type CatalogAPI interface {
	// StagedUploadCreate asks the catalog for a pre-authorized upload target.
	StagedUploadCreate(ctx context.Context, input StagedUploadInput) (*StagedUploadTarget, error)
	// ProductMediaCreate registers a transferred resource against a product and
	// returns the catalog-assigned media id, or the mutation's user errors.
	ProductMediaCreate(ctx context.Context, input MediaAttachInput) (string, []UserError, error)
	// ProductMediaDelete detaches a media from a product.
	ProductMediaDelete(ctx context.Context, productID, mediaID string) error
	// ProductMediaReorder moves the given media to the ordinal position. Best-effort.
	ProductMediaReorder(ctx context.Context, productID, mediaID string, position int) error
}

// ActiveJobSource lists jobs that still need state synchronization, oldest
// update first.
type ActiveJobSource interface {
	ListActiveIDs(ctx context.Context, limit int) ([]string, error)
}

// ToolCache caches tool display names. Tool names on jobs are a cached projection
// and may go stale; the cache is advisory only.
type ToolCache interface {
	GetToolName(ctx context.Context, toolID string) (string, error)
	SetToolName(ctx context.Context, toolID, name string, ttl time.Duration) error
}
