// Package testutil provides testing utilities and helpers for the studio engine.
package testutil

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/merchkit/studio-engine/internal/domain/model"
)

var externalIDSeq atomic.Int64

// NextExternalID returns a process-unique external id so parallel tests never
// collide on the idempotency index.
func NextExternalID() string {
	return fmt.Sprintf("ext-%d", externalIDSeq.Add(1))
}

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			ExternalID: NextExternalID(),
			ShopID:     "shop-1",
			ToolID:     "tool-upscale",
			ToolName:   "Upscale",
			InputURL:   "https://cdn.example.com/in.jpg",
			Priority:   model.JobPriorityNormal,
		},
	}
}

// WithExternalID sets the external id.
func (b *JobRequestBuilder) WithExternalID(id string) *JobRequestBuilder {
	b.req.ExternalID = id
	return b
}

// WithShopID sets the shop id.
func (b *JobRequestBuilder) WithShopID(shopID string) *JobRequestBuilder {
	b.req.ShopID = shopID
	return b
}

// WithToolID sets the tool id.
func (b *JobRequestBuilder) WithToolID(toolID string) *JobRequestBuilder {
	b.req.ToolID = toolID
	return b
}

// WithInputURL sets the input image URL.
func (b *JobRequestBuilder) WithInputURL(url string) *JobRequestBuilder {
	b.req.InputURL = url
	return b
}

// WithPriority sets the job priority.
func (b *JobRequestBuilder) WithPriority(priority model.JobPriority) *JobRequestBuilder {
	b.req.Priority = priority
	return b
}

// WithProductID sets the destination product id.
func (b *JobRequestBuilder) WithProductID(productID string) *JobRequestBuilder {
	b.req.ProductID = &productID
	return b
}

// WithBatchID sets the owning batch id.
func (b *JobRequestBuilder) WithBatchID(batchID string) *JobRequestBuilder {
	b.req.BatchID = &batchID
	return b
}

// WithParams sets the tool parameters from a string.
func (b *JobRequestBuilder) WithParams(params string) *JobRequestBuilder {
	b.req.Params = json.RawMessage(params)
	return b
}

// WithMetadata sets the job metadata from a string.
func (b *JobRequestBuilder) WithMetadata(metadata string) *JobRequestBuilder {
	b.req.Metadata = json.RawMessage(metadata)
	return b
}

// Build returns the constructed request.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// JobBuilder provides a fluent interface for building Job records for mock-based tests.
type JobBuilder struct {
	job *model.Job
}

// NewJob creates a new JobBuilder with sensible defaults.
func NewJob() *JobBuilder {
	now := time.Now().UTC()
	return &JobBuilder{
		job: &model.Job{
			ID:         "11111111-1111-1111-1111-111111111111",
			ExternalID: NextExternalID(),
			ShopID:     "shop-1",
			ToolID:     "tool-upscale",
			ToolName:   "Upscale",
			Status:     model.JobStatusPending,
			Priority:   model.JobPriorityNormal,
			InputURL:   "https://cdn.example.com/in.jpg",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

// WithID sets the local id.
func (b *JobBuilder) WithID(id string) *JobBuilder {
	b.job.ID = id
	return b
}

// WithExternalID sets the external id.
func (b *JobBuilder) WithExternalID(id string) *JobBuilder {
	b.job.ExternalID = id
	return b
}

// WithStatus sets the status.
func (b *JobBuilder) WithStatus(status model.JobStatus) *JobBuilder {
	b.job.Status = status
	return b
}

// WithProgress sets the progress.
func (b *JobBuilder) WithProgress(progress int) *JobBuilder {
	b.job.Progress = progress
	return b
}

// WithOutputURL sets the output URL.
func (b *JobBuilder) WithOutputURL(url string) *JobBuilder {
	b.job.OutputURL = &url
	return b
}

// WithProductID sets the destination product id.
func (b *JobBuilder) WithProductID(productID string) *JobBuilder {
	b.job.ProductID = &productID
	return b
}

// WithBatchID sets the owning batch id.
func (b *JobBuilder) WithBatchID(batchID string) *JobBuilder {
	b.job.BatchID = &batchID
	return b
}

// WithDelivered marks the job delivered.
func (b *JobBuilder) WithDelivered() *JobBuilder {
	now := time.Now().UTC()
	b.job.Delivered = true
	b.job.DeliveredAt = &now
	return b
}

// WithErrorMessage sets the failure message.
func (b *JobBuilder) WithErrorMessage(msg string) *JobBuilder {
	b.job.ErrorMessage = &msg
	return b
}

// Build returns the constructed job.
func (b *JobBuilder) Build() *model.Job {
	return b.job
}

// BatchRequestBuilder provides a fluent interface for building CreateBatchRequest objects.
type BatchRequestBuilder struct {
	req *model.CreateBatchRequest
}

// NewBatchRequest creates a new BatchRequestBuilder with sensible defaults.
func NewBatchRequest() *BatchRequestBuilder {
	return &BatchRequestBuilder{
		req: &model.CreateBatchRequest{
			ShopID:    "shop-1",
			ToolID:    "tool-upscale",
			TotalJobs: 3,
		},
	}
}

// WithShopID sets the shop id.
func (b *BatchRequestBuilder) WithShopID(shopID string) *BatchRequestBuilder {
	b.req.ShopID = shopID
	return b
}

// WithTotalJobs sets the expected member count.
func (b *BatchRequestBuilder) WithTotalJobs(total int) *BatchRequestBuilder {
	b.req.TotalJobs = total
	return b
}

// Build returns the constructed request.
func (b *BatchRequestBuilder) Build() *model.CreateBatchRequest {
	return b.req
}
